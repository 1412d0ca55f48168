package provider

import "time"

// ChangeStatus describes what happened to a file in a change request.
type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "added"
	StatusModified ChangeStatus = "modified"
	StatusDeleted  ChangeStatus = "deleted"
	StatusRenamed  ChangeStatus = "renamed"
)

// FileChange is one file touched by a change request. Additions and
// Deletions are derived from Diff when diff text is available; platform
// aggregate counts are used only as a fallback (binary files, truncated
// diffs).
type FileChange struct {
	Path      string
	OldPath   string // set for renames
	Status    ChangeStatus
	Additions int
	Deletions int
	Diff      string // raw unified diff; empty for binary files
}

// ChangeRequest is the normalized representation of a pull/merge request.
// It is built once per pipeline run and never mutated afterwards.
type ChangeRequest struct {
	Platform     string // github, gitlab, bitbucket, generic
	Host         string
	Owner        string
	Repo         string
	Number       int
	Title        string
	Description  string
	Author       string
	State        string // open, closed, merged
	SourceBranch string
	TargetBranch string
	URL          string
	Files        []FileChange
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TotalAdditions sums added lines across all files.
func (c *ChangeRequest) TotalAdditions() int {
	var n int
	for _, f := range c.Files {
		n += f.Additions
	}
	return n
}

// TotalDeletions sums removed lines across all files.
func (c *ChangeRequest) TotalDeletions() int {
	var n int
	for _, f := range c.Files {
		n += f.Deletions
	}
	return n
}
