package report

import (
	"path"
	"regexp"
	"strings"

	"github.com/augurhq/augur/internal/provider"
	"github.com/augurhq/augur/internal/stage"
)

// Config tunes how stage output maps to a disposition.
type Config struct {
	// ReadyMaxIssues is the most issues a change may carry and still be
	// marked ready.
	ReadyMaxIssues int
	// ReadyMinCompliance is the lowest structure score still marked
	// ready.
	ReadyMinCompliance int
	// AttentionMinIssues forces needs-attention regardless of score.
	AttentionMinIssues int
	// AttentionMaxCompliance forces needs-attention regardless of issue
	// count.
	AttentionMaxCompliance int
}

// DefaultConfig returns the standard disposition thresholds.
func DefaultConfig() Config {
	return Config{
		ReadyMaxIssues:         2,
		ReadyMinCompliance:     70,
		AttentionMinIssues:     6,
		AttentionMaxCompliance: 40,
	}
}

// Assembler builds run summaries.
type Assembler struct {
	cfg Config
}

// NewAssembler creates an assembler with the given thresholds.
func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg}
}

// Assemble computes the structured digest for a run. Failed stage
// reports contribute no issues; their absence shows in the run status
// instead.
func (a *Assembler) Assemble(change *provider.ChangeRequest, reports []stage.Report) *Summary {
	s := &Summary{
		IssuesByStage: make(map[string]int),
	}

	for _, r := range reports {
		if r.Failed {
			continue
		}
		n := CountIssues(r.Content)
		s.IssuesByStage[r.Stage] = n
		s.TotalIssues += n
	}

	if change != nil {
		s.FilesChanged = len(change.Files)
		dirs := make(map[string]bool)
		var paths []string
		for _, f := range change.Files {
			dirs[path.Dir(f.Path)] = true
			paths = append(paths, f.Path)
		}
		s.DirsTouched = len(dirs)
		s.ChangeRoot = commonRoot(paths)
		s.ComplianceScore = complianceScore(paths)
	}

	s.Disposition = a.disposition(s)
	return s
}

func (a *Assembler) disposition(s *Summary) Disposition {
	switch {
	case s.TotalIssues >= a.cfg.AttentionMinIssues,
		s.FilesChanged > 0 && s.ComplianceScore < a.cfg.AttentionMaxCompliance:
		return DispositionNeedsAttention
	case s.TotalIssues <= a.cfg.ReadyMaxIssues &&
		(s.FilesChanged == 0 || s.ComplianceScore >= a.cfg.ReadyMinCompliance):
		return DispositionReady
	default:
		return DispositionReview
	}
}

// StatusOf derives the run status from its stage reports. All stages
// failing is a failed run, some failing is partial.
func StatusOf(reports []stage.Report) Status {
	if len(reports) == 0 {
		return StatusFailed
	}
	failed := 0
	for _, r := range reports {
		if r.Failed {
			failed++
		}
	}
	switch failed {
	case 0:
		return StatusSucceeded
	case len(reports):
		return StatusFailed
	default:
		return StatusPartial
	}
}

var (
	numberedPattern = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+\S`)
	bulletPattern   = regexp.MustCompile(`(?m)^\s*[-*]\s+\S`)
	headerPattern   = regexp.MustCompile(`(?m)^#{1,4}\s+\S`)
)

// cleanVerdicts are phrases indicating a stage found nothing to report.
var cleanVerdicts = []string{
	"no issues",
	"no problems",
	"no vulnerabilities",
	"no defects",
	"no concerns",
	"looks good",
	"nothing is wrong",
	"nothing wrong",
	"structure is sound",
}

// CountIssues estimates how many findings a stage report contains.
// Numbered lists count first, then bullets, then section headers. Prose
// with no list structure counts as a single finding unless it reads as a
// clean verdict.
func CountIssues(content string) int {
	text := strings.TrimSpace(content)
	if text == "" {
		return 0
	}

	if n := len(numberedPattern.FindAllString(text, -1)); n > 0 {
		return n
	}
	if n := len(bulletPattern.FindAllString(text, -1)); n > 0 {
		return n
	}
	if n := len(headerPattern.FindAllString(text, -1)); n > 0 {
		return n
	}

	lower := strings.ToLower(text)
	for _, verdict := range cleanVerdicts {
		if strings.Contains(lower, verdict) {
			return 0
		}
	}
	if len(text) < 80 {
		return 0
	}
	return 1
}

// commonRoot returns the deepest directory containing every changed
// file, or "." when the change spans the repository root.
func commonRoot(paths []string) string {
	if len(paths) == 0 {
		return ""
	}

	segs := strings.Split(path.Dir(path.Clean(paths[0])), "/")
	if segs[0] == "." {
		return "."
	}
	for _, p := range paths[1:] {
		cur := strings.Split(path.Dir(path.Clean(p)), "/")
		if cur[0] == "." {
			return "."
		}
		i := 0
		for i < len(segs) && i < len(cur) && segs[i] == cur[i] {
			i++
		}
		segs = segs[:i]
		if len(segs) == 0 {
			return "."
		}
	}
	return strings.Join(segs, "/")
}

// layerIndicators are filename fragments suggesting a layered design.
var layerIndicators = [][]string{
	{"entity", "entities", "model", "models", "domain"},
	{"repository", "repositories", "store", "storage", "dao"},
	{"service", "services", "usecase", "usecases", "handler", "handlers"},
}

// complianceScore measures how much of a layered structure the changed
// paths exhibit, as a percentage of the layer groups represented.
func complianceScore(paths []string) int {
	found := 0
	for _, group := range layerIndicators {
		for _, indicator := range group {
			if anyPathContains(paths, indicator) {
				found++
				break
			}
		}
	}
	return found * 100 / len(layerIndicators)
}

func anyPathContains(paths []string, fragment string) bool {
	for _, p := range paths {
		if strings.Contains(strings.ToLower(p), fragment) {
			return true
		}
	}
	return false
}
