package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/augurhq/augur/internal/config"
	"github.com/augurhq/augur/internal/provider"
)

func newTestRegistry() *Registry {
	return New(&config.Config{
		Providers: config.ProvidersConfig{
			GitHub: config.GitHubConfig{Token: "gh-token"},
			GitLab: config.GitLabConfig{Token: "gl-token"},
		},
	})
}

func TestGet(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		platform string
		want     string
	}{
		{"github", "github"},
		{"gitlab", "gitlab"},
		{"bitbucket", "bitbucket"},
		{"unknown", "generic"},
		{"", "generic"},
	}

	for _, tt := range tests {
		if got := r.Get(tt.platform).Name(); got != tt.want {
			t.Errorf("Get(%q).Name() = %q, want %q", tt.platform, got, tt.want)
		}
	}
}

func TestForURL(t *testing.T) {
	r := newTestRegistry()

	adapter, ref, err := r.ForURL("https://github.com/octocat/hello-world/pull/42")
	if err != nil {
		t.Fatalf("ForURL() error = %v", err)
	}
	if adapter.Name() != "github" {
		t.Errorf("adapter = %q, want github", adapter.Name())
	}
	if ref.Owner != "octocat" || ref.Repo != "hello-world" || ref.Number != 42 {
		t.Errorf("ref = %+v, want octocat/hello-world#42", ref)
	}
}

func TestForURL_GenericFallback(t *testing.T) {
	r := newTestRegistry()

	adapter, ref, err := r.ForURL("https://forge.example.com/changes/15")
	if err != nil {
		t.Fatalf("ForURL() error = %v", err)
	}
	if adapter.Name() != "generic" {
		t.Errorf("adapter = %q, want generic", adapter.Name())
	}
	if ref.Number != 15 {
		t.Errorf("ref.Number = %d, want 15", ref.Number)
	}
}

func TestForURL_Invalid(t *testing.T) {
	r := newTestRegistry()

	if _, _, err := r.ForURL("not a url"); err == nil {
		t.Error("ForURL should fail for text with no host")
	}
}

func TestFetch_GenericAdapter(t *testing.T) {
	r := newTestRegistry()

	cr, ref, err := r.Fetch(context.Background(), "https://forge.example.com/changes/15")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if cr.Platform != "generic" {
		t.Errorf("Platform = %q, want generic", cr.Platform)
	}
	if ref.Host != "forge.example.com" {
		t.Errorf("ref.Host = %q, want forge.example.com", ref.Host)
	}
}

func TestPostComment_Unsupported(t *testing.T) {
	r := newTestRegistry()

	err := r.PostComment(context.Background(), provider.ChangeRef{Platform: "generic"}, "hi")
	if !errors.Is(err, provider.ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestList(t *testing.T) {
	r := newTestRegistry()

	names := r.List()
	if len(names) != 3 {
		t.Errorf("len(List()) = %d, want 3", len(names))
	}
}
