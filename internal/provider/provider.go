// Package provider defines the adapter contract for git hosting
// platforms and the URL parsing that resolves a change-request link to
// the platform serving it.
package provider

import (
	"context"
	"errors"
)

// Sentinel errors returned by adapters. Platform-specific API errors are
// wrapped so callers can test with errors.Is.
var (
	ErrNotFound     = errors.New("change request not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnsupported  = errors.New("operation not supported by platform")
)

// Adapter fetches change-request data from one hosting platform.
// Adapters hold no per-call state; every method is safe for concurrent
// use.
type Adapter interface {
	// Name returns the platform name (github, gitlab, bitbucket,
	// generic).
	Name() string

	// FetchChangeRequest fetches metadata and per-file diffs for the
	// referenced change request and normalizes them.
	FetchChangeRequest(ctx context.Context, ref ChangeRef) (*ChangeRequest, error)

	// PostComment posts a comment on the referenced change request.
	// Adapters without a comment API return ErrUnsupported.
	PostComment(ctx context.Context, ref ChangeRef, body string) error
}
