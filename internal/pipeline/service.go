package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/augurhq/augur/internal/logging"
	"github.com/augurhq/augur/internal/report"
)

// Service starts pipeline runs in the background and tracks their
// state.
type Service struct {
	orchestrator *Orchestrator
	store        Store
	logWriter    *logging.Writer
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithRunLog persists the rendered report of every finished run through
// the given writer.
func WithRunLog(w *logging.Writer) ServiceOption {
	return func(s *Service) {
		s.logWriter = w
	}
}

// NewService creates a service backed by the given store.
func NewService(o *Orchestrator, store Store, opts ...ServiceOption) *Service {
	s := &Service{orchestrator: o, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the run store for status lookups.
func (s *Service) Store() Store {
	return s.store
}

// Start launches a run in the background and returns its ID
// immediately.
func (s *Service) Start(ctx context.Context, req Request) (string, error) {
	id, err := newRunID()
	if err != nil {
		return "", err
	}

	s.store.Put(State{
		ID:        id,
		ChangeURL: req.ChangeURL,
		RepoURL:   req.RepoURL,
		Status:    report.StatusRunning,
	})

	userSink := req.Sink
	req.Sink = ProgressFunc(func(percent int, step string) {
		state, err := s.store.Get(id)
		if err != nil {
			return
		}
		if percent > state.Progress {
			state.Progress = percent
		}
		if step != state.CurrentStep {
			if state.CurrentStep != "" {
				state.StepsCompleted = append(state.StepsCompleted, state.CurrentStep)
			}
			state.CurrentStep = step
		}
		s.store.Put(state)
		if userSink != nil {
			userSink.Progress(percent, step)
		}
	})

	go func() {
		run, err := s.orchestrator.Run(ctx, id, req)

		state, getErr := s.store.Get(id)
		if getErr != nil {
			state = State{ID: id, ChangeURL: req.ChangeURL}
		}
		if err != nil {
			log.Printf("run %s: %v", id, err)
			state.Status = report.StatusFailed
			state.Error = err.Error()
		} else {
			state.Status = run.Status
			state.Error = run.Error
			state.Result = run
			state.Progress = 100
			s.writeRunLog(run)
		}
		s.store.Put(state)
	}()

	return id, nil
}

// writeRunLog persists the rendered report of a finished run. A run is
// never failed over its log file.
func (s *Service) writeRunLog(run *report.Run) {
	if s.logWriter == nil || run == nil || run.Change == nil {
		return
	}

	entry := logging.LogEntry{
		RunID:        run.ID,
		RepoOwner:    run.Change.Owner,
		RepoName:     run.Change.Repo,
		ChangeNumber: run.Change.Number,
		Timestamp:    run.StartedAt,
	}
	if _, err := s.logWriter.Write(entry, []byte(report.Render(run))); err != nil {
		log.Printf("run %s: writing run log: %v", run.ID, err)
	}
}

func newRunID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating run id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
