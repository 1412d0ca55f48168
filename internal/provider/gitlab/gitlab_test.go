package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/augurhq/augur/internal/provider"
	"github.com/xanzy/go-gitlab"
)

const mrJSON = `{
	"iid": 7,
	"title": "Refactor worker pool",
	"description": "Splits the pool from the queue.",
	"state": "opened",
	"source_branch": "refactor/pool",
	"target_branch": "main",
	"web_url": "https://gitlab.com/group/project/-/merge_requests/7",
	"author": {"username": "bob"}
}`

func testRef() provider.ChangeRef {
	return provider.ChangeRef{Platform: "gitlab", Host: "gitlab.com", Owner: "group", Repo: "project", Number: 7}
}

// newTestServer routes merge-request API calls by path suffix so the
// URL-encoded project path does not matter.
func newTestServer(t *testing.T, diffs http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/merge_requests/7/diffs"):
			diffs(w, r)
		case strings.HasSuffix(r.URL.Path, "/merge_requests/7"):
			fmt.Fprint(w, mrJSON)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetchChangeRequest(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"old_path": "old_name.go", "new_path": "new_name.go", "renamed_file": true, "diff": ""}]`)
			return
		}
		w.Header().Set("X-Next-Page", "2")
		fmt.Fprint(w, `[{"old_path": "pool.go", "new_path": "pool.go", "diff": "@@ -1,3 +1,2 @@\n-a\n-b\n+c"}]`)
	})
	defer srv.Close()

	a := New("", WithBaseURL(srv.URL))
	cr, err := a.FetchChangeRequest(context.Background(), testRef())
	if err != nil {
		t.Fatalf("FetchChangeRequest() error = %v", err)
	}

	if cr.Number != 7 {
		t.Errorf("Number = %d, want 7", cr.Number)
	}
	if cr.Title != "Refactor worker pool" {
		t.Errorf("Title = %q, want %q", cr.Title, "Refactor worker pool")
	}
	if cr.Author != "bob" {
		t.Errorf("Author = %q, want bob", cr.Author)
	}
	if len(cr.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2 (pagination)", len(cr.Files))
	}

	modified := cr.Files[0]
	if modified.Additions != 1 || modified.Deletions != 2 {
		t.Errorf("counts = +%d -%d, want +1 -2 from diff text", modified.Additions, modified.Deletions)
	}

	renamed := cr.Files[1]
	if renamed.Status != provider.StatusRenamed {
		t.Errorf("status = %q, want renamed", renamed.Status)
	}
	if renamed.Path != "new_name.go" || renamed.OldPath != "old_name.go" {
		t.Errorf("rename = %q from %q, want new_name.go from old_name.go", renamed.Path, renamed.OldPath)
	}
}

func TestFetchChangeRequest_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, provider.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, provider.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, provider.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			a := New("", WithBaseURL(srv.URL))
			_, err := a.FetchChangeRequest(context.Background(), testRef())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPostComment(t *testing.T) {
	var posted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/merge_requests/7/notes") {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		posted = true
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1}`)
	}))
	defer srv.Close()

	a := New("", WithBaseURL(srv.URL))
	if err := a.PostComment(context.Background(), testRef(), "Looks good"); err != nil {
		t.Fatalf("PostComment() error = %v", err)
	}
	if !posted {
		t.Error("notes endpoint was not called")
	}
}

func TestNormalizeDiff_Statuses(t *testing.T) {
	added := normalizeDiff(&gitlab.MergeRequestDiff{NewPath: "a.go", NewFile: true})
	if added.Status != provider.StatusAdded {
		t.Errorf("new file status = %q, want added", added.Status)
	}

	deleted := normalizeDiff(&gitlab.MergeRequestDiff{OldPath: "b.go", DeletedFile: true})
	if deleted.Status != provider.StatusDeleted {
		t.Errorf("deleted file status = %q, want deleted", deleted.Status)
	}
	if deleted.Path != "b.go" {
		t.Errorf("deleted file path = %q, want b.go (old path)", deleted.Path)
	}
}
