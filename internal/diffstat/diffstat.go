// Package diffstat counts added and removed lines in unified-diff text.
package diffstat

import "strings"

// Stats holds line counts parsed from a unified diff.
type Stats struct {
	Additions int
	Deletions int
}

// Changes returns the total number of changed lines.
func (s Stats) Changes() int { return s.Additions + s.Deletions }

// Parse scans a unified diff and counts content lines. A line starting
// with "+" counts as an addition and "-" as a deletion, except the
// "+++"/"---" file-header lines. Hunk headers ("@@"), "diff " and
// "index " metadata lines are skipped. Empty input yields zero counts.
func Parse(diff string) Stats {
	var s Stats
	if diff == "" {
		return s
	}

	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			// File headers, not content.
		case strings.HasPrefix(line, "@@"), strings.HasPrefix(line, "diff "), strings.HasPrefix(line, "index "):
			// Hunk headers and git metadata.
		case strings.HasPrefix(line, "+"):
			s.Additions++
		case strings.HasPrefix(line, "-"):
			s.Deletions++
		}
	}
	return s
}
