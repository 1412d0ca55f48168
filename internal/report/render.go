package report

import (
	"fmt"
	"strings"
)

// Render formats a finished run as the plain-text report written to run
// logs and printed by the CLI.
func Render(run *Run) string {
	var b strings.Builder
	sep := strings.Repeat("=", 80)

	if run.Change != nil {
		fmt.Fprintf(&b, "Review of %s (%s/%s#%d)\n", run.Change.Title, run.Change.Owner, run.Change.Repo, run.Change.Number)
		fmt.Fprintf(&b, "Status: %s\n\n", run.Status)
	}

	for _, r := range run.Stages {
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", sep, r.Label, r.Content)
	}

	if run.Summary != nil {
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", sep, run.Summary.Label, run.Summary.Content)
	}

	if run.Digest != nil {
		fmt.Fprintf(&b, "%s\n", sep)
		fmt.Fprintf(&b, "Total issues:     %d\n", run.Digest.TotalIssues)
		fmt.Fprintf(&b, "Files changed:    %d\n", run.Digest.FilesChanged)
		fmt.Fprintf(&b, "Change root:      %s\n", run.Digest.ChangeRoot)
		fmt.Fprintf(&b, "Compliance score: %d\n", run.Digest.ComplianceScore)
		fmt.Fprintf(&b, "Disposition:      %s\n", run.Digest.Disposition)
	}

	if run.Comparison != nil {
		fmt.Fprintf(&b, "\nTests added:      %d\n", run.Comparison.TestsAdded)
		fmt.Fprintf(&b, "Coverage before:  %.2f\n", run.Comparison.CoverageBefore)
		fmt.Fprintf(&b, "Coverage after:   %.2f\n", run.Comparison.CoverageAfter)
	}

	return b.String()
}
