// Package pipeline runs the full review sequence for one change
// request: fetch metadata, snapshot the repository, run the analysis
// stages, and assemble the final report.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/augurhq/augur/internal/ai"
	"github.com/augurhq/augur/internal/analyzer"
	"github.com/augurhq/augur/internal/metrics"
	"github.com/augurhq/augur/internal/provider"
	"github.com/augurhq/augur/internal/report"
	"github.com/augurhq/augur/internal/stage"
	"github.com/augurhq/augur/internal/workspace"
)

// ProgressSink receives progress updates during a run. Percent is
// monotonically non-decreasing and ends at 100.
type ProgressSink interface {
	Progress(percent int, step string)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(percent int, step string)

// Progress implements ProgressSink.
func (f ProgressFunc) Progress(percent int, step string) { f(percent, step) }

// Fetcher resolves a change-request URL to its metadata.
type Fetcher interface {
	Fetch(ctx context.Context, changeURL string) (*provider.ChangeRequest, provider.ChangeRef, error)
}

// Workspaces acquires repository snapshots.
type Workspaces interface {
	Acquire(ctx context.Context, repoURL, branch string) (*workspace.Snapshot, error)
	Release(snap *workspace.Snapshot, keep bool) error
}

// Commenter posts the summary back to the platform.
type Commenter interface {
	PostComment(ctx context.Context, ref provider.ChangeRef, body string) error
}

// Request describes one pipeline run.
type Request struct {
	ChangeURL string
	// RepoURL overrides the clone URL derived from the change request.
	RepoURL string
	// IncludeGeneration also writes AI-generated tests for uncovered
	// files and reports the before/after coverage movement.
	IncludeGeneration bool
	Sink              ProgressSink
}

// Orchestrator wires the pipeline steps together.
type Orchestrator struct {
	fetcher       Fetcher
	workspaces    Workspaces
	client        ai.Client
	stages        []stage.Stage
	assembler     *report.Assembler
	analyzer      *analyzer.Analyzer
	commenter     Commenter
	generateLimit int
	keepOnSuccess bool
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithStages overrides the default stage sequence.
func WithStages(stages []stage.Stage) Option {
	return func(o *Orchestrator) {
		o.stages = stages
	}
}

// WithCommenter posts the final summary back to the change request.
func WithCommenter(c Commenter) Option {
	return func(o *Orchestrator) {
		o.commenter = c
	}
}

// WithAnalyzer enables the repository analysis and test generation
// steps.
func WithAnalyzer(a *analyzer.Analyzer, generateLimit int) Option {
	return func(o *Orchestrator) {
		o.analyzer = a
		o.generateLimit = generateLimit
	}
}

// WithKeepOnSuccess keeps the repository snapshot on disk after a
// successful run.
func WithKeepOnSuccess(keep bool) Option {
	return func(o *Orchestrator) {
		o.keepOnSuccess = keep
	}
}

// New creates an orchestrator.
func New(fetcher Fetcher, workspaces Workspaces, client ai.Client, assembler *report.Assembler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:       fetcher,
		workspaces:    workspaces,
		client:        client,
		stages:        stage.Defaults(),
		assembler:     assembler,
		generateLimit: 5,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run executes the pipeline. Fetch and clone failures abort the run;
// stage failures are absorbed into the run with a partial status.
func (o *Orchestrator) Run(ctx context.Context, id string, req Request) (*report.Run, error) {
	metrics.RunStarted()
	sink := req.Sink
	if sink == nil {
		sink = ProgressFunc(func(int, string) {})
	}

	run := &report.Run{
		ID:        id,
		Status:    report.StatusRunning,
		StartedAt: time.Now(),
	}

	sink.Progress(5, "Fetching change request")
	change, ref, err := o.fetcher.Fetch(ctx, req.ChangeURL)
	if err != nil {
		metrics.RunFailed()
		return nil, fmt.Errorf("fetching change request: %w", err)
	}
	run.Change = change
	sink.Progress(10, "Fetched change request")

	repoURL := req.RepoURL
	if repoURL == "" {
		repoURL = fmt.Sprintf("https://%s/%s/%s.git", change.Host, change.Owner, change.Repo)
	}

	sink.Progress(15, "Cloning repository")
	snap, err := o.workspaces.Acquire(ctx, repoURL, change.SourceBranch)
	if err != nil {
		metrics.RunFailed()
		return nil, fmt.Errorf("acquiring snapshot: %w", err)
	}
	sink.Progress(20, "Cloned repository")

	changes := stage.FormatChanges(change)
	for _, s := range o.stages {
		sink.Progress(s.Percent-1, s.Label)
		r := s.Run(ctx, o.client, changes)
		if r.Failed {
			metrics.StageFailed()
		}
		run.Stages = append(run.Stages, r)
		sink.Progress(s.Percent, s.Label)
	}

	if req.IncludeGeneration && o.analyzer != nil {
		sink.Progress(92, "Generating tests")
		before, beforeErr := o.analyzer.Analyze(ctx, snap.Path)
		if beforeErr != nil {
			log.Printf("pipeline %s: repository analysis: %v", id, beforeErr)
		} else {
			generated, genErr := o.analyzer.GenerateTests(ctx, snap.Path, before.Uncovered, o.generateLimit)
			if genErr != nil {
				log.Printf("pipeline %s: test generation: %v", id, genErr)
			}
			run.Generated = generated

			if after, afterErr := o.analyzer.Analyze(ctx, snap.Path); afterErr == nil {
				run.Comparison = analyzer.Compare(before, after)
			} else {
				log.Printf("pipeline %s: post-generation analysis: %v", id, afterErr)
			}
		}
		sink.Progress(93, "Generated tests")
	}

	sink.Progress(94, "Summarizing")
	summary := stage.Summarize(ctx, o.client, run.Stages)
	run.Summary = &summary
	sink.Progress(95, "Summarized")

	run.Digest = o.assembler.Assemble(change, run.Stages)
	run.Status = report.StatusOf(run.Stages)
	run.FinishedAt = time.Now()

	switch run.Status {
	case report.StatusSucceeded:
		metrics.RunCompleted()
	case report.StatusPartial:
		metrics.RunPartial()
	default:
		metrics.RunFailed()
	}

	if o.commenter != nil && !summary.Failed {
		if err := o.commenter.PostComment(ctx, ref, summary.Content); err != nil {
			log.Printf("pipeline %s: posting summary comment: %v", id, err)
		}
	}

	keep := o.keepOnSuccess && run.Status != report.StatusFailed
	if err := o.workspaces.Release(snap, keep); err != nil {
		log.Printf("pipeline %s: releasing snapshot: %v", id, err)
	}

	sink.Progress(100, "Done")
	return run, nil
}
