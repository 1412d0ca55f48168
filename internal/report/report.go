// Package report assembles the final review report from completed stage
// outputs and repository analysis.
package report

import (
	"time"

	"github.com/augurhq/augur/internal/analyzer"
	"github.com/augurhq/augur/internal/provider"
	"github.com/augurhq/augur/internal/stage"
)

// Disposition is the overall recommendation for a change request.
type Disposition string

const (
	DispositionReady          Disposition = "ready"
	DispositionReview         Disposition = "review-recommended"
	DispositionNeedsAttention Disposition = "needs-attention"
)

// Status of a pipeline run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Summary is the structured digest of a run.
type Summary struct {
	TotalIssues     int            `json:"total_issues"`
	IssuesByStage   map[string]int `json:"issues_by_stage"`
	FilesChanged    int            `json:"files_changed"`
	DirsTouched     int            `json:"dirs_touched"`
	ChangeRoot      string         `json:"change_root"`
	ComplianceScore int            `json:"compliance_score"`
	Disposition     Disposition    `json:"disposition"`
}

// Run is the complete record of one pipeline execution.
type Run struct {
	ID         string                   `json:"id"`
	Change     *provider.ChangeRequest  `json:"change,omitempty"`
	Stages     []stage.Report           `json:"stages"`
	Summary    *stage.Report            `json:"summary,omitempty"`
	Digest     *Summary                 `json:"digest,omitempty"`
	Comparison *analyzer.Comparison     `json:"comparison,omitempty"`
	Generated  []analyzer.GeneratedTest `json:"generated,omitempty"`
	Status     Status                   `json:"status"`
	Error      string                   `json:"error,omitempty"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}
