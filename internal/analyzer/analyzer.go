// Package analyzer inspects a checked-out repository for test coverage
// and structural problems, independent of any change request.
package analyzer

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/augurhq/augur/internal/ai"
)

// Severity levels for reported issues.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Issue sources.
const (
	SourceHeuristic = "local-heuristic"
	SourceAI        = "ai"
)

// Issue is a single finding about the repository.
type Issue struct {
	Severity    string `json:"severity"`
	Source      string `json:"source"`
	File        string `json:"file,omitempty"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// Analysis is the result of scanning a repository.
type Analysis struct {
	TotalFiles       int      `json:"total_files"`
	CodeFiles        int      `json:"code_files"`
	NonTestCodeFiles int      `json:"non_test_code_files"`
	TestFiles        int      `json:"test_files"`
	CoverageRatio    float64  `json:"coverage_ratio"`
	Issues           []Issue  `json:"issues"`
	Uncovered        []string `json:"uncovered,omitempty"`
}

// Comparison summarizes the effect of a change between two analyses of
// the same repository.
type Comparison struct {
	TestsAdded      int     `json:"tests_added"`
	CoverageBefore  float64 `json:"coverage_before"`
	CoverageAfter   float64 `json:"coverage_after"`
	CoverageDelta   float64 `json:"coverage_delta"`
	FilesNowCovered int     `json:"files_now_covered"`
}

// Analyzer scans repositories. A nil AI client limits the scan to local
// heuristics.
type Analyzer struct {
	client         ai.Client
	maxAIFiles     int
	lowCoverage    float64
	mediumCoverage float64
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithMaxAIFiles caps how many uncovered files are sent for AI review.
func WithMaxAIFiles(n int) Option {
	return func(a *Analyzer) {
		a.maxAIFiles = n
	}
}

// WithCoverageThresholds sets the ratios below which coverage is
// reported as a high or medium severity issue.
func WithCoverageThresholds(low, medium float64) Option {
	return func(a *Analyzer) {
		a.lowCoverage = low
		a.mediumCoverage = medium
	}
}

// New creates an analyzer. client may be nil.
func New(client ai.Client, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:         client,
		maxAIFiles:     3,
		lowCoverage:    0.30,
		mediumCoverage: 0.60,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// skipDirs are directory names never descended into. Hidden directories
// are skipped separately.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"venv":         true,
	"env":          true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// codeExts are the file extensions counted as source code.
var codeExts = map[string]bool{
	".go":    true,
	".py":    true,
	".js":    true,
	".jsx":   true,
	".ts":    true,
	".tsx":   true,
	".java":  true,
	".kt":    true,
	".rb":    true,
	".php":   true,
	".c":     true,
	".h":     true,
	".cc":    true,
	".cpp":   true,
	".hpp":   true,
	".cs":    true,
	".rs":    true,
	".swift": true,
	".scala": true,
	".ex":    true,
	".exs":   true,
}

// Analyze scans the repository rooted at dir. Local heuristics always
// run; AI review of uncovered files runs when a client is configured
// and failures there degrade to logged skips.
func (a *Analyzer) Analyze(ctx context.Context, dir string) (*Analysis, error) {
	result := &Analysis{}
	var uncovered []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}

		result.TotalFiles++
		if !codeExts[filepath.Ext(name)] {
			return nil
		}
		result.CodeFiles++

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}

		if isTestFile(rel) {
			result.TestFiles++
		} else {
			result.NonTestCodeFiles++
			uncovered = append(uncovered, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}

	if result.NonTestCodeFiles > 0 {
		result.CoverageRatio = float64(result.TestFiles) / float64(result.NonTestCodeFiles)
	}

	sort.Strings(uncovered)
	result.Uncovered = uncovered

	result.Issues = append(result.Issues, a.heuristicIssues(dir, result)...)

	if a.client != nil {
		result.Issues = append(result.Issues, a.aiIssues(ctx, dir, uncovered)...)
	} else {
		result.Issues = append(result.Issues, Issue{
			Severity:    SeverityLow,
			Source:      SourceHeuristic,
			Description: "AI review skipped: no completion service configured",
			Suggestion:  "Configure an API key to enable per-file AI analysis.",
		})
	}

	return result, nil
}

// isTestFile classifies a repository-relative path as a test file. The
// match is case insensitive.
func isTestFile(rel string) bool {
	lower := strings.ToLower(filepath.ToSlash(rel))
	base := lower[strings.LastIndex(lower, "/")+1:]

	if strings.HasPrefix(base, "test_") {
		return true
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if strings.HasSuffix(stem, "_test") {
		return true
	}
	if strings.Contains(base, ".spec.") || strings.Contains(base, ".test.") {
		return true
	}
	for _, seg := range strings.Split(lower, "/") {
		if seg == "test" || seg == "tests" {
			return true
		}
	}
	return false
}

func (a *Analyzer) heuristicIssues(dir string, res *Analysis) []Issue {
	var issues []Issue

	if !fileExists(filepath.Join(dir, "README.md")) && !fileExists(filepath.Join(dir, "README")) {
		issues = append(issues, Issue{
			Severity:    SeverityMedium,
			Source:      SourceHeuristic,
			Description: "Repository has no README",
			Suggestion:  "Add a README.md describing the project and how to run it.",
		})
	}

	if !fileExists(filepath.Join(dir, ".gitignore")) {
		issues = append(issues, Issue{
			Severity:    SeverityLow,
			Source:      SourceHeuristic,
			Description: "Repository has no .gitignore",
			Suggestion:  "Add a .gitignore to keep build artifacts out of version control.",
		})
	}

	if res.NonTestCodeFiles > 0 {
		switch {
		case res.CoverageRatio < a.lowCoverage:
			issues = append(issues, Issue{
				Severity:    SeverityHigh,
				Source:      SourceHeuristic,
				Description: fmt.Sprintf("Test coverage ratio is %.0f%% (%d test files for %d source files)", res.CoverageRatio*100, res.TestFiles, res.NonTestCodeFiles),
				Suggestion:  "Add tests for the uncovered source files.",
			})
		case res.CoverageRatio < a.mediumCoverage:
			issues = append(issues, Issue{
				Severity:    SeverityMedium,
				Source:      SourceHeuristic,
				Description: fmt.Sprintf("Test coverage ratio is %.0f%% (%d test files for %d source files)", res.CoverageRatio*100, res.TestFiles, res.NonTestCodeFiles),
				Suggestion:  "Increase test coverage for critical paths.",
			})
		}
	}

	return issues
}

const maxAIFileBytes = 16 * 1024

// aiIssues asks the completion service to review a bounded sample of
// uncovered files. Per-file failures are logged and skipped so one bad
// response never sinks the scan.
func (a *Analyzer) aiIssues(ctx context.Context, dir string, uncovered []string) []Issue {
	limit := a.maxAIFiles
	if limit > len(uncovered) {
		limit = len(uncovered)
	}

	var issues []Issue
	for _, rel := range uncovered[:limit] {
		content, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			log.Printf("analyzer: reading %s: %v", rel, err)
			continue
		}
		if len(content) > maxAIFileBytes {
			content = content[:maxAIFileBytes]
		}

		found, err := a.reviewFile(ctx, rel, string(content))
		if err != nil {
			log.Printf("analyzer: AI review of %s: %v", rel, err)
			continue
		}
		issues = append(issues, found...)
	}
	return issues
}

func (a *Analyzer) reviewFile(ctx context.Context, rel, content string) ([]Issue, error) {
	resp, err := a.client.Complete(ctx, ai.Request{
		System: "You are a code reviewer. Respond only with a JSON array of findings. " +
			`Each finding has "severity" (high, medium, or low), "description", and "suggestion". ` +
			"Return [] when the file is fine.",
		User: fmt.Sprintf("Review this file for defects, security problems, and maintainability issues.\n\nFile: %s\n\n```\n%s\n```", rel, content),
	})
	if err != nil {
		return nil, err
	}

	findings, err := parseFindings(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing findings for %s: %w", rel, err)
	}

	issues := make([]Issue, 0, len(findings))
	for _, f := range findings {
		sev := strings.ToLower(f.Severity)
		if sev != SeverityHigh && sev != SeverityMedium && sev != SeverityLow {
			sev = SeverityLow
		}
		issues = append(issues, Issue{
			Severity:    sev,
			Source:      SourceAI,
			File:        rel,
			Description: f.Description,
			Suggestion:  f.Suggestion,
		})
	}
	return issues, nil
}

// Compare reports the coverage movement between two analyses.
func Compare(before, after *Analysis) *Comparison {
	added := after.TestFiles - before.TestFiles
	if added < 0 {
		added = 0
	}
	delta := after.CoverageRatio - before.CoverageRatio
	if math.Abs(delta) < 1e-12 {
		delta = 0
	}
	return &Comparison{
		TestsAdded:      added,
		CoverageBefore:  before.CoverageRatio,
		CoverageAfter:   after.CoverageRatio,
		CoverageDelta:   delta,
		FilesNowCovered: added,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
