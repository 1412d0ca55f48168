package stage

import (
	"fmt"
	"strings"

	"github.com/augurhq/augur/internal/provider"
)

var separator = strings.Repeat("=", 80)

// FormatChanges renders a change request as the text block every stage
// reviews. Files are separated by a full-width rule; files without diff
// text get a placeholder so the model knows the content is missing, not
// empty.
func FormatChanges(cr *provider.ChangeRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Change request: %s\n", cr.Title)
	if cr.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", cr.Description)
	}
	fmt.Fprintf(&b, "Branch: %s -> %s\n", cr.SourceBranch, cr.TargetBranch)
	fmt.Fprintf(&b, "Files changed: %d (+%d -%d)\n", len(cr.Files), cr.TotalAdditions(), cr.TotalDeletions())

	for _, f := range cr.Files {
		b.WriteString(separator + "\n")
		fmt.Fprintf(&b, "File: %s (%s, +%d -%d)\n", f.Path, f.Status, f.Additions, f.Deletions)
		if f.Status == provider.StatusRenamed && f.OldPath != "" {
			fmt.Fprintf(&b, "Renamed from: %s\n", f.OldPath)
		}
		b.WriteString(separator + "\n")
		if f.Diff != "" {
			b.WriteString(f.Diff)
			if !strings.HasSuffix(f.Diff, "\n") {
				b.WriteString("\n")
			}
		} else {
			b.WriteString("(diff not available; binary file or platform did not provide content)\n")
		}
	}

	return b.String()
}
