// Package bitbucket adapts Bitbucket Cloud pull requests to the
// normalized change-request model using the 2.0 REST API.
package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/augurhq/augur/internal/provider"
)

const defaultBaseURL = "https://api.bitbucket.org/2.0"

// Adapter implements provider.Adapter for Bitbucket Cloud.
type Adapter struct {
	username    string
	appPassword string
	baseURL     string
	client      *http.Client
}

// Option configures the Bitbucket adapter.
type Option func(*Adapter)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(a *Adapter) {
		a.baseURL = strings.TrimSuffix(url, "/")
	}
}

// New creates a new Bitbucket adapter. Empty credentials are allowed for
// public repositories.
func New(username, appPassword string, opts ...Option) *Adapter {
	a := &Adapter{
		username:    username,
		appPassword: appPassword,
		baseURL:     defaultBaseURL,
		client:      &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Name returns the platform name.
func (a *Adapter) Name() string {
	return "bitbucket"
}

type pullRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
	Author      struct {
		DisplayName string `json:"display_name"`
		Nickname    string `json:"nickname"`
	} `json:"author"`
	Source struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"source"`
	Destination struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"destination"`
	Links struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

type diffStatPage struct {
	Values []diffStatEntry `json:"values"`
	Next   string          `json:"next"`
}

type diffStatEntry struct {
	Status       string `json:"status"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
	New          *struct {
		Path string `json:"path"`
	} `json:"new"`
	Old *struct {
		Path string `json:"path"`
	} `json:"old"`
}

// FetchChangeRequest fetches pull-request metadata and per-file change
// statistics. Bitbucket's diffstat endpoint reports aggregate line
// counts without per-file diff text, so the platform aggregates are the
// only available source here (the documented fallback path).
func (a *Adapter) FetchChangeRequest(ctx context.Context, ref provider.ChangeRef) (*provider.ChangeRequest, error) {
	prURL := fmt.Sprintf("%s/repositories/%s/%s/pullrequests/%d", a.baseURL, ref.Owner, ref.Repo, ref.Number)

	var pr pullRequest
	if err := a.getJSON(ctx, prURL, &pr); err != nil {
		return nil, fmt.Errorf("fetching pull request: %w", err)
	}

	var files []provider.FileChange
	next := prURL + "/diffstat"
	for next != "" {
		var page diffStatPage
		if err := a.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("fetching diffstat: %w", err)
		}
		for _, e := range page.Values {
			files = append(files, normalizeEntry(e))
		}
		next = page.Next
	}

	author := pr.Author.Nickname
	if author == "" {
		author = pr.Author.DisplayName
	}

	return &provider.ChangeRequest{
		Platform:     "bitbucket",
		Host:         ref.Host,
		Owner:        ref.Owner,
		Repo:         ref.Repo,
		Number:       ref.Number,
		Title:        pr.Title,
		Description:  pr.Description,
		Author:       author,
		State:        strings.ToLower(pr.State),
		SourceBranch: pr.Source.Branch.Name,
		TargetBranch: pr.Destination.Branch.Name,
		URL:          pr.Links.HTML.Href,
		Files:        files,
		CreatedAt:    pr.CreatedOn,
		UpdatedAt:    pr.UpdatedOn,
	}, nil
}

// PostComment posts a comment on a pull request.
func (a *Adapter) PostComment(ctx context.Context, ref provider.ChangeRef, body string) error {
	u := fmt.Sprintf("%s/repositories/%s/%s/pullrequests/%d/comments", a.baseURL, ref.Owner, ref.Repo, ref.Number)

	payload, err := json.Marshal(map[string]any{
		"content": map[string]string{"raw": body},
	})
	if err != nil {
		return fmt.Errorf("marshaling comment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting comment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("posting comment: %w", statusErr(resp))
	}
	return nil
}

func (a *Adapter) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusErr(resp)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func (a *Adapter) authorize(req *http.Request) {
	if a.username != "" {
		req.SetBasicAuth(a.username, a.appPassword)
	}
}

func statusErr(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return provider.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return provider.ErrUnauthorized
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
}

func normalizeEntry(e diffStatEntry) provider.FileChange {
	fc := provider.FileChange{
		Status:    provider.StatusModified,
		Additions: e.LinesAdded,
		Deletions: e.LinesRemoved,
	}

	if e.New != nil {
		fc.Path = e.New.Path
	} else if e.Old != nil {
		fc.Path = e.Old.Path
	}

	switch e.Status {
	case "added":
		fc.Status = provider.StatusAdded
	case "removed":
		fc.Status = provider.StatusDeleted
	case "renamed":
		fc.Status = provider.StatusRenamed
		if e.Old != nil {
			fc.OldPath = e.Old.Path
		}
	}
	return fc
}
