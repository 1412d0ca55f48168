// Package github adapts GitHub pull requests to the normalized
// change-request model.
package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/augurhq/augur/internal/diffstat"
	"github.com/augurhq/augur/internal/provider"
	"github.com/google/go-github/v60/github"
)

// Adapter implements provider.Adapter for GitHub.
type Adapter struct {
	client *github.Client
	token  string
}

// Option configures the GitHub adapter.
type Option func(*Adapter)

// WithBaseURL sets a custom base URL (for testing and GitHub Enterprise).
func WithBaseURL(url string) Option {
	return func(a *Adapter) {
		a.client.BaseURL, _ = a.client.BaseURL.Parse(url + "/")
	}
}

// New creates a new GitHub adapter. An empty token is allowed; requests
// then run unauthenticated against public repositories.
func New(token string, opts ...Option) *Adapter {
	httpClient := http.DefaultClient
	if token != "" {
		httpClient = &http.Client{Transport: &tokenTransport{token: token}}
	}

	a := &Adapter{
		client: github.NewClient(httpClient),
		token:  token,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// tokenTransport adds the authorization header to requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// Name returns the platform name.
func (a *Adapter) Name() string {
	return "github"
}

// FetchChangeRequest fetches pull-request metadata and per-file patches.
// Line counts come from parsing each file's patch text; GitHub's own
// additions/deletions figures are used only when patch text is absent
// (binary or oversized files).
func (a *Adapter) FetchChangeRequest(ctx context.Context, ref provider.ChangeRef) (*provider.ChangeRequest, error) {
	pr, resp, err := a.client.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, wrapErr("fetching pull request", resp, err)
	}

	var files []provider.FileChange
	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := a.client.PullRequests.ListFiles(ctx, ref.Owner, ref.Repo, ref.Number, opts)
		if err != nil {
			return nil, wrapErr("listing changed files", resp, err)
		}
		for _, f := range page {
			files = append(files, normalizeFile(f))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return &provider.ChangeRequest{
		Platform:     "github",
		Host:         ref.Host,
		Owner:        ref.Owner,
		Repo:         ref.Repo,
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		Author:       pr.GetUser().GetLogin(),
		State:        pr.GetState(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		URL:          pr.GetHTMLURL(),
		Files:        files,
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
	}, nil
}

// PostComment posts a comment on a pull request.
func (a *Adapter) PostComment(ctx context.Context, ref provider.ChangeRef, body string) error {
	_, resp, err := a.client.Issues.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number, &github.IssueComment{
		Body: &body,
	})
	if err != nil {
		return wrapErr("posting comment", resp, err)
	}
	return nil
}

func normalizeFile(f *github.CommitFile) provider.FileChange {
	fc := provider.FileChange{
		Path:    f.GetFilename(),
		OldPath: f.GetPreviousFilename(),
		Status:  normalizeStatus(f.GetStatus()),
		Diff:    f.GetPatch(),
	}

	if fc.Diff != "" {
		stats := diffstat.Parse(fc.Diff)
		fc.Additions = stats.Additions
		fc.Deletions = stats.Deletions
	} else {
		fc.Additions = f.GetAdditions()
		fc.Deletions = f.GetDeletions()
	}
	return fc
}

func normalizeStatus(s string) provider.ChangeStatus {
	switch s {
	case "added":
		return provider.StatusAdded
	case "removed", "deleted":
		return provider.StatusDeleted
	case "renamed":
		return provider.StatusRenamed
	default:
		return provider.StatusModified
	}
}

func wrapErr(op string, resp *github.Response, err error) error {
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
