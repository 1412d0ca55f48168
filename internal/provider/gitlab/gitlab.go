// Package gitlab adapts GitLab merge requests to the normalized
// change-request model.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/augurhq/augur/internal/diffstat"
	"github.com/augurhq/augur/internal/provider"
	"github.com/xanzy/go-gitlab"
)

// Adapter implements provider.Adapter for GitLab.
type Adapter struct {
	client *gitlab.Client
	token  string
}

// Option configures the GitLab adapter.
type Option func(*Adapter)

// WithBaseURL sets a custom base URL (for testing and self-hosted
// instances).
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		a.client, _ = gitlab.NewClient(a.token, gitlab.WithBaseURL(baseURL+"/api/v4"))
	}
}

// New creates a new GitLab adapter. An empty token is allowed for public
// projects.
func New(token string, opts ...Option) *Adapter {
	client, _ := gitlab.NewClient(token)
	a := &Adapter{client: client, token: token}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Name returns the platform name.
func (a *Adapter) Name() string {
	return "gitlab"
}

// projectPath encodes owner/repo for the GitLab API.
func projectPath(ref provider.ChangeRef) string {
	return url.PathEscape(ref.Owner + "/" + ref.Repo)
}

// FetchChangeRequest fetches merge-request metadata and per-file diffs.
// GitLab returns raw diff text per file and no per-file aggregates, so
// line counts always come from diff parsing here.
func (a *Adapter) FetchChangeRequest(ctx context.Context, ref provider.ChangeRef) (*provider.ChangeRequest, error) {
	mr, resp, err := a.client.MergeRequests.GetMergeRequest(projectPath(ref), ref.Number, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapErr("fetching merge request", resp, err)
	}

	var files []provider.FileChange
	opts := &gitlab.ListMergeRequestDiffsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	for {
		diffs, resp, err := a.client.MergeRequests.ListMergeRequestDiffs(projectPath(ref), ref.Number, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, wrapErr("listing merge request diffs", resp, err)
		}
		for _, d := range diffs {
			files = append(files, normalizeDiff(d))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	cr := &provider.ChangeRequest{
		Platform:     "gitlab",
		Host:         ref.Host,
		Owner:        ref.Owner,
		Repo:         ref.Repo,
		Number:       mr.IID,
		Title:        mr.Title,
		Description:  mr.Description,
		State:        mr.State,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		URL:          mr.WebURL,
		Files:        files,
	}
	if mr.Author != nil {
		cr.Author = mr.Author.Username
	}
	if mr.CreatedAt != nil {
		cr.CreatedAt = *mr.CreatedAt
	}
	if mr.UpdatedAt != nil {
		cr.UpdatedAt = *mr.UpdatedAt
	}
	return cr, nil
}

// PostComment posts a note on a merge request.
func (a *Adapter) PostComment(ctx context.Context, ref provider.ChangeRef, body string) error {
	_, resp, err := a.client.Notes.CreateMergeRequestNote(projectPath(ref), ref.Number, &gitlab.CreateMergeRequestNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return wrapErr("posting note", resp, err)
	}
	return nil
}

func normalizeDiff(d *gitlab.MergeRequestDiff) provider.FileChange {
	fc := provider.FileChange{
		Path:   d.NewPath,
		Status: provider.StatusModified,
		Diff:   d.Diff,
	}
	if fc.Path == "" {
		fc.Path = d.OldPath
	}

	switch {
	case d.NewFile:
		fc.Status = provider.StatusAdded
	case d.DeletedFile:
		fc.Status = provider.StatusDeleted
	case d.RenamedFile:
		fc.Status = provider.StatusRenamed
		fc.OldPath = d.OldPath
	}

	stats := diffstat.Parse(d.Diff)
	fc.Additions = stats.Additions
	fc.Deletions = stats.Deletions
	return fc
}

func wrapErr(op string, resp *gitlab.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, provider.ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, provider.ErrUnauthorized)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
