package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/augurhq/augur/internal/ai"
)

// Stage names.
const (
	NameSecurity  = "security"
	NameDefects   = "defects"
	NameStyle     = "style"
	NameTests     = "tests"
	NameStructure = "structure"
	NameSummary   = "summary"
)

// Defaults returns the standard analysis sequence. Percent values mark
// overall pipeline progress after each stage completes.
func Defaults() []Stage {
	return []Stage{
		{
			Name:    NameSecurity,
			Label:   "Security analysis",
			Percent: 35,
			Prompt: PromptVersion{
				Version:     "1.2",
				Description: "Security review of changed code",
				Criteria: []string{
					"injection risks (SQL, command, template)",
					"authentication and authorization gaps",
					"secrets or credentials committed in code",
					"unsafe deserialization and input handling",
					"insecure dependencies or API usage",
				},
			},
			System: "You are a security engineer reviewing a code change. " +
				"Report concrete vulnerabilities with file references. " +
				"Number each finding. If nothing is wrong, say so briefly.",
			Intro: "Review the following change for security vulnerabilities.",
		},
		{
			Name:    NameDefects,
			Label:   "Defect analysis",
			Percent: 55,
			Prompt: PromptVersion{
				Version:     "1.1",
				Description: "Functional defect review of changed code",
				Criteria: []string{
					"logic errors and incorrect conditions",
					"nil, null, and unhandled error paths",
					"off-by-one and boundary mistakes",
					"race conditions and unsafe shared state",
					"resource leaks",
				},
			},
			System: "You are a senior engineer hunting for bugs in a code change. " +
				"Report concrete defects with file references. " +
				"Number each finding. If nothing is wrong, say so briefly.",
			Intro: "Review the following change for functional defects.",
		},
		{
			Name:    NameStyle,
			Label:   "Style review",
			Percent: 70,
			Prompt: PromptVersion{
				Version:     "1.0",
				Description: "Readability and convention review",
				Criteria: []string{
					"naming clarity and consistency",
					"function length and complexity",
					"duplicated code",
					"dead code and commented-out blocks",
					"documentation of public surfaces",
				},
			},
			System: "You are reviewing a code change for readability and convention. " +
				"Point out concrete improvements with file references. " +
				"Number each finding. Keep it short.",
			Intro: "Review the following change for style and maintainability.",
		},
		{
			Name:    NameTests,
			Label:   "Test coverage review",
			Percent: 85,
			Prompt: PromptVersion{
				Version:     "1.1",
				Description: "Test adequacy review of changed code",
				Criteria: []string{
					"changed behavior without corresponding tests",
					"missing edge-case and error-path coverage",
					"tests that assert nothing meaningful",
					"brittle or order-dependent tests",
				},
			},
			System: "You are reviewing the test coverage of a code change. " +
				"Identify changed behavior that lacks tests and suggest specific test cases. " +
				"Number each finding.",
			Intro: "Review the test coverage of the following change.",
		},
		{
			Name:    NameStructure,
			Label:   "Structure review",
			Percent: 90,
			Prompt: PromptVersion{
				Version:     "1.0",
				Description: "Architecture and layering review",
				Criteria: []string{
					"separation between domain, application, and infrastructure code",
					"dependencies pointing the wrong way across layers",
					"business logic leaking into transport or storage code",
					"oversized modules that should split",
				},
			},
			System: "You are reviewing the architectural structure of a code change. " +
				"Comment on layering and module boundaries with file references. " +
				"Number each finding. If the structure is sound, say so briefly.",
			Intro: "Review the architectural structure of the following change.",
		},
	}
}

// Summarize condenses the completed stage reports into an executive
// summary. Failed stages are listed rather than fed to the model.
func Summarize(ctx context.Context, client ai.Client, reports []Report) Report {
	var b strings.Builder
	var failed []string
	for _, r := range reports {
		if r.Failed {
			failed = append(failed, r.Label)
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", r.Label, r.Content)
	}

	summary := Stage{
		Name:    NameSummary,
		Label:   "Summary",
		Percent: 95,
		Prompt: PromptVersion{
			Version:     "1.0",
			Description: "Executive summary of all review stages",
			Criteria: []string{
				"most important findings first",
				"overall readiness judgement",
				"concrete next steps for the author",
			},
		},
		System: "You are writing the final summary of a multi-stage code review. " +
			"Lead with the most important findings, give an overall readiness judgement, " +
			"and close with concrete next steps. Keep it under 300 words.",
		Intro: "Summarize these review results.",
	}

	report := Report{
		Stage:   summary.Name,
		Label:   summary.Label,
		Percent: summary.Percent,
		Prompt:  summary.Prompt,
	}

	if b.Len() == 0 {
		report.Content = "All review stages failed; no summary is available."
		report.Failed = true
		return report
	}

	report = summary.Run(ctx, client, b.String())
	if len(failed) > 0 && !report.Failed {
		report.Content += fmt.Sprintf("\n\nNote: the following stages did not complete: %s.", strings.Join(failed, ", "))
	}
	return report
}
