package provider

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ChangeRef identifies a change request extracted from its web URL.
type ChangeRef struct {
	Platform string
	Host     string
	Owner    string
	Repo     string
	Number   int
}

// RepoRef identifies a repository extracted from its web or clone URL.
type RepoRef struct {
	Platform string
	Host     string
	Owner    string
	Repo     string
}

// URL shapes differ per platform: GitLab uses /-/merge_requests/N
// (including self-hosted instances), GitHub /pull/N, Bitbucket
// /pull-requests/N.
var (
	gitlabChangePattern    = regexp.MustCompile(`([^/]+)/([^/]+)/([^/]+)/-/merge_requests/(\d+)`)
	githubChangePattern    = regexp.MustCompile(`github[^/]*/([^/]+)/([^/]+)/pull/(\d+)`)
	bitbucketChangePattern = regexp.MustCompile(`bitbucket\.org/([^/]+)/([^/]+)/pull-requests/(\d+)`)

	hostPattern = regexp.MustCompile(`https?://([^/]+)`)
	repoPattern = regexp.MustCompile(`([^:/]+(?:\.[^:/]+)+)/([^/]+)/([^/]+?)(?:\.git)?/?$`)

	trailingNumberPattern = regexp.MustCompile(`/(\d+)/?$`)
)

// DetectPlatform guesses the platform from the URL text. Unknown hosts
// map to "generic".
func DetectPlatform(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "gitlab"):
		return "gitlab"
	case strings.Contains(lower, "github"):
		return "github"
	case strings.Contains(lower, "bitbucket"):
		return "bitbucket"
	default:
		return "generic"
	}
}

// ParseChangeURL resolves a change-request URL to a ChangeRef. URLs that
// match no known platform shape fall back to a generic ref (platform
// "generic", number best-effort) rather than failing; callers must
// tolerate the minimal metadata a generic adapter returns.
func ParseChangeURL(rawURL string) (ChangeRef, error) {
	// GitLab shape first: it is host-agnostic and covers self-hosted
	// instances.
	if m := gitlabChangePattern.FindStringSubmatch(rawURL); m != nil {
		n, _ := strconv.Atoi(m[4])
		return ChangeRef{Platform: "gitlab", Host: m[1], Owner: m[2], Repo: m[3], Number: n}, nil
	}

	if m := githubChangePattern.FindStringSubmatch(rawURL); m != nil {
		host := "github.com"
		if hm := hostPattern.FindStringSubmatch(rawURL); hm != nil {
			host = hm[1]
		}
		n, _ := strconv.Atoi(m[3])
		return ChangeRef{Platform: "github", Host: host, Owner: m[1], Repo: m[2], Number: n}, nil
	}

	if m := bitbucketChangePattern.FindStringSubmatch(rawURL); m != nil {
		n, _ := strconv.Atoi(m[3])
		return ChangeRef{Platform: "bitbucket", Host: "bitbucket.org", Owner: m[1], Repo: m[2], Number: n}, nil
	}

	// Generic fallback: salvage whatever the URL carries.
	hm := hostPattern.FindStringSubmatch(rawURL)
	if hm == nil {
		return ChangeRef{}, fmt.Errorf("unsupported change request URL format: %s", rawURL)
	}

	ref := ChangeRef{Platform: "generic", Host: hm[1]}
	if nm := trailingNumberPattern.FindStringSubmatch(rawURL); nm != nil {
		ref.Number, _ = strconv.Atoi(nm[1])
	}
	return ref, nil
}

// ParseRepoURL resolves a repository URL to a RepoRef.
func ParseRepoURL(rawURL string) (RepoRef, error) {
	m := repoPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return RepoRef{}, fmt.Errorf("invalid repository URL format: %s", rawURL)
	}
	return RepoRef{
		Platform: DetectPlatform(rawURL),
		Host:     m[1],
		Owner:    m[2],
		Repo:     m[3],
	}, nil
}
