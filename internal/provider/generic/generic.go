// Package generic is the fallback adapter for hosts without a supported
// change-request API. It returns minimal metadata so the pipeline can
// still run; callers must tolerate the empty file list.
package generic

import (
	"context"
	"fmt"

	"github.com/augurhq/augur/internal/provider"
)

// Adapter implements provider.Adapter for unrecognized platforms.
type Adapter struct{}

// New creates the generic adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the platform name.
func (a *Adapter) Name() string {
	return "generic"
}

// FetchChangeRequest returns placeholder metadata. There is no API to
// call, so the title carries the change number and the file list stays
// empty.
func (a *Adapter) FetchChangeRequest(_ context.Context, ref provider.ChangeRef) (*provider.ChangeRequest, error) {
	title := "Change request"
	if ref.Number > 0 {
		title = fmt.Sprintf("Change request #%d", ref.Number)
	}

	return &provider.ChangeRequest{
		Platform:    "generic",
		Host:        ref.Host,
		Owner:       ref.Owner,
		Repo:        ref.Repo,
		Number:      ref.Number,
		Title:       title,
		Description: "Details not available via API; clone the repository for full analysis.",
	}, nil
}

// PostComment is not available without a platform API.
func (a *Adapter) PostComment(context.Context, provider.ChangeRef, string) error {
	return provider.ErrUnsupported
}
