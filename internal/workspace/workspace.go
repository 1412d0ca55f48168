// Package workspace manages shallow repository snapshots on local disk.
// Each pipeline run acquires a fresh snapshot; older snapshots of the
// same repository and branch are evicted first so disk usage stays
// bounded by the set of distinct (repository, branch) pairs.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/augurhq/augur/internal/metrics"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrCloneTimeout reports that a clone exceeded the configured deadline.
var ErrCloneTimeout = errors.New("clone timed out")

// Snapshot is an acquired working copy.
type Snapshot struct {
	Path    string
	RepoURL string
	Branch  string
}

// Manager acquires and releases snapshots under a root directory.
type Manager struct {
	root    string
	timeout time.Duration
	token   string

	// Serializes eviction scans so two concurrent runs do not race on
	// the same stale snapshot.
	mu sync.Mutex
}

// Option configures the manager.
type Option func(*Manager)

// WithTimeout sets the clone deadline.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithToken sets a token injected into HTTPS clone URLs for private
// repositories.
func WithToken(token string) Option {
	return func(m *Manager) {
		m.token = token
	}
}

// NewManager creates a snapshot manager rooted at dir.
func NewManager(dir string, opts ...Option) *Manager {
	m := &Manager{
		root:    dir,
		timeout: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Acquire evicts stale snapshots of the same repository and branch, then
// clones a fresh shallow copy. An empty branch clones the remote's
// default branch.
func (m *Manager) Acquire(ctx context.Context, repoURL, branch string) (*Snapshot, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot root: %w", err)
	}

	m.evictStale(repoURL, branch)

	dir := filepath.Join(m.root, snapshotDirName(repoURL))

	cloneCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	opts := &git.CloneOptions{
		URL:          m.cloneURL(repoURL),
		Depth:        1,
		SingleBranch: true,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	if _, err := git.PlainCloneContext(cloneCtx, dir, false, opts); err != nil {
		os.RemoveAll(dir)
		if errors.Is(cloneCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %s", ErrCloneTimeout, m.timeout, repoURL)
		}
		return nil, fmt.Errorf("cloning %s: %w", repoURL, err)
	}

	return &Snapshot{Path: dir, RepoURL: repoURL, Branch: branch}, nil
}

// Release disposes of a snapshot. With keep set the working copy stays
// on disk until a later Acquire for the same repository and branch
// evicts it.
func (m *Manager) Release(snap *Snapshot, keep bool) error {
	if snap == nil || keep {
		return nil
	}
	if err := os.RemoveAll(snap.Path); err != nil {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}

// evictStale removes existing snapshots whose origin URL and branch
// match the requested pair. Directories whose metadata cannot be read
// are left alone; a snapshot that cannot be identified must not be
// destroyed on a guess.
func (m *Manager) evictStale(repoURL, branch string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.root)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.root, entry.Name())

		gotURL, gotBranch, err := snapshotIdentity(dir)
		if err != nil {
			log.Printf("workspace: skipping unreadable snapshot %s: %v", dir, err)
			continue
		}

		if matchesKey(gotURL, gotBranch, repoURL, branch) {
			if err := os.RemoveAll(dir); err != nil {
				log.Printf("workspace: evicting %s: %v", dir, err)
				continue
			}
			metrics.SnapshotEvicted()
		}
	}
}

// snapshotIdentity reads the origin URL and checked-out branch of an
// existing snapshot.
func snapshotIdentity(dir string) (repoURL, branch string, err error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", "", err
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return "", "", err
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", "", errors.New("origin remote has no URL")
	}

	head, err := repo.Head()
	if err != nil {
		return "", "", err
	}
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}

	return urls[0], branch, nil
}

// matchesKey reports whether an existing snapshot belongs to the
// requested (repository, branch) pair. URLs compare after normalization
// so credential-bearing and .git-suffixed forms of the same repository
// match. An empty requested branch matches any branch of the repository.
func matchesKey(gotURL, gotBranch, wantURL, wantBranch string) bool {
	if normalizeURL(gotURL) != normalizeURL(wantURL) {
		return false
	}
	if wantBranch == "" {
		return true
	}
	return gotBranch == wantBranch
}

func normalizeURL(raw string) string {
	s := strings.TrimSuffix(strings.TrimSuffix(raw, "/"), ".git")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	return strings.ToLower(s)
}

// snapshotDirName builds a unique directory name from the repository
// name and the current time.
func snapshotDirName(repoURL string) string {
	name := strings.TrimSuffix(filepath.Base(normalizeURL(repoURL)), ".git")
	if name == "" || name == "." || name == "/" {
		name = "repo"
	}
	return fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
}

// cloneURL injects the configured token into HTTPS URLs.
func (m *Manager) cloneURL(repoURL string) string {
	if m.token == "" {
		return repoURL
	}
	if rest, ok := strings.CutPrefix(repoURL, "https://"); ok {
		return "https://oauth2:" + m.token + "@" + rest
	}
	return repoURL
}
