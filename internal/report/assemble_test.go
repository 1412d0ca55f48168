package report

import (
	"testing"

	"github.com/augurhq/augur/internal/provider"
	"github.com/augurhq/augur/internal/stage"
)

func TestCountIssues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"numbered list", "1. First problem\n2. Second problem\n3. Third one", 3},
		{"numbered with parens", "1) One\n2) Two", 2},
		{"bullets", "- thing one\n- thing two", 2},
		{"asterisk bullets", "* thing one\n* thing two\n* three", 3},
		{"headers", "## Finding A\ndetails\n## Finding B\ndetails", 2},
		{"numbered wins over bullets", "1. One\n- detail\n- detail", 1},
		{"clean verdict", "No issues found in this change.", 0},
		{"short prose", "Looks good.", 0},
		{"long prose one finding", "The session handling in login.go keeps the token in a package level variable which is shared across requests and will leak between users.", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountIssues(tt.content); got != tt.want {
				t.Errorf("CountIssues(%q) = %d, want %d", tt.content, got, tt.want)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	ok := stage.Report{Stage: "security"}
	bad := stage.Report{Stage: "defects", Failed: true}

	tests := []struct {
		name    string
		reports []stage.Report
		want    Status
	}{
		{"all ok", []stage.Report{ok, ok, ok}, StatusSucceeded},
		{"some failed", []stage.Report{ok, bad, ok}, StatusPartial},
		{"all failed", []stage.Report{bad, bad}, StatusFailed},
		{"none", nil, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.reports); got != tt.want {
				t.Errorf("StatusOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommonRoot(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"none", nil, ""},
		{"single nested", []string{"internal/auth/login.go"}, "internal/auth"},
		{"shared parent", []string{"internal/auth/login.go", "internal/auth/session.go"}, "internal/auth"},
		{"diverging", []string{"internal/auth/login.go", "internal/billing/invoice.go"}, "internal"},
		{"root file", []string{"main.go", "internal/auth/login.go"}, "."},
		{"no overlap", []string{"cmd/a/main.go", "internal/b/b.go"}, "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commonRoot(tt.paths); got != tt.want {
				t.Errorf("commonRoot(%v) = %q, want %q", tt.paths, got, tt.want)
			}
		})
	}
}

func TestAssemble(t *testing.T) {
	change := &provider.ChangeRequest{
		Files: []provider.FileChange{
			{Path: "internal/domain/user_entity.go"},
			{Path: "internal/storage/user_repository.go"},
			{Path: "internal/api/user_service.go"},
		},
	}
	reports := []stage.Report{
		{Stage: "security", Content: "No issues found."},
		{Stage: "defects", Content: "1. Nil pointer in user_service.go"},
		{Stage: "style", Content: "broken", Failed: true},
	}

	a := NewAssembler(DefaultConfig())
	s := a.Assemble(change, reports)

	if s.TotalIssues != 1 {
		t.Errorf("TotalIssues = %d, want 1", s.TotalIssues)
	}
	if s.IssuesByStage["defects"] != 1 {
		t.Errorf("IssuesByStage = %v, want defects: 1", s.IssuesByStage)
	}
	if _, present := s.IssuesByStage["style"]; present {
		t.Error("failed stage contributed to issue counts")
	}
	if s.FilesChanged != 3 {
		t.Errorf("FilesChanged = %d, want 3", s.FilesChanged)
	}
	if s.DirsTouched != 3 {
		t.Errorf("DirsTouched = %d, want 3", s.DirsTouched)
	}
	if s.ChangeRoot != "internal" {
		t.Errorf("ChangeRoot = %q, want internal", s.ChangeRoot)
	}
	if s.ComplianceScore != 100 {
		t.Errorf("ComplianceScore = %d, want 100", s.ComplianceScore)
	}
	if s.Disposition != DispositionReady {
		t.Errorf("Disposition = %q, want ready", s.Disposition)
	}
}

func TestAssembleIdempotent(t *testing.T) {
	change := &provider.ChangeRequest{
		Files: []provider.FileChange{{Path: "internal/service/a.go"}},
	}
	reports := []stage.Report{
		{Stage: "security", Content: "1. One\n2. Two\n3. Three"},
	}

	a := NewAssembler(DefaultConfig())
	first := a.Assemble(change, reports)
	second := a.Assemble(change, reports)

	if first.TotalIssues != second.TotalIssues ||
		first.Disposition != second.Disposition ||
		first.ComplianceScore != second.ComplianceScore {
		t.Errorf("Assemble not stable: %+v vs %+v", first, second)
	}
}

func TestDisposition(t *testing.T) {
	a := NewAssembler(DefaultConfig())

	tests := []struct {
		name string
		s    Summary
		want Disposition
	}{
		{"clean structured change", Summary{TotalIssues: 1, FilesChanged: 2, ComplianceScore: 100}, DispositionReady},
		{"no files at all", Summary{TotalIssues: 0}, DispositionReady},
		{"many issues", Summary{TotalIssues: 8, FilesChanged: 2, ComplianceScore: 100}, DispositionNeedsAttention},
		{"unstructured change", Summary{TotalIssues: 0, FilesChanged: 2, ComplianceScore: 0}, DispositionNeedsAttention},
		{"middling", Summary{TotalIssues: 4, FilesChanged: 2, ComplianceScore: 66}, DispositionReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.s
			if got := a.disposition(&s); got != tt.want {
				t.Errorf("disposition(%+v) = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}
