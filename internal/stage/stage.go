// Package stage defines the sequential analysis stages a change request
// passes through. Each stage carries a versioned prompt so reports can
// record exactly which review criteria produced them.
package stage

import (
	"context"
	"log"

	"github.com/augurhq/augur/internal/ai"
)

// PromptVersion identifies the review criteria a stage ran with.
type PromptVersion struct {
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Criteria    []string `json:"criteria"`
}

// Stage is one analysis pass over a change request.
type Stage struct {
	Name    string
	Label   string
	Percent int
	Prompt  PromptVersion
	System  string
	Intro   string
}

// Report is the outcome of running one stage.
type Report struct {
	Stage   string        `json:"stage"`
	Label   string        `json:"label"`
	Content string        `json:"content"`
	Percent int           `json:"percent"`
	Prompt  PromptVersion `json:"prompt"`
	Failed  bool          `json:"failed,omitempty"`
}

// Run executes the stage against the formatted change content. Service
// failures are absorbed into the report as a human-readable explanation
// so one broken stage never aborts the run.
func (s Stage) Run(ctx context.Context, client ai.Client, changes string) Report {
	report := Report{
		Stage:   s.Name,
		Label:   s.Label,
		Percent: s.Percent,
		Prompt:  s.Prompt,
	}

	if client == nil {
		report.Content = "No completion service configured."
		report.Failed = true
		return report
	}

	content, err := client.Complete(ctx, ai.Request{
		System: s.System,
		User:   s.Intro + "\n\n" + changes,
	})
	if err != nil {
		log.Printf("stage %s: %v", s.Name, err)
		report.Content = ai.UserMessage(err)
		report.Failed = true
		return report
	}

	report.Content = content
	return report
}
