// Package server is the HTTP front door: the review API, webhook
// receivers, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/augurhq/augur/internal/config"
	"github.com/augurhq/augur/internal/event"
	"github.com/augurhq/augur/internal/metrics"
	"github.com/augurhq/augur/internal/pipeline"
	"github.com/augurhq/augur/internal/report"
	"github.com/augurhq/augur/internal/webhook"
)

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// Server is the HTTP server for Augur.
type Server struct {
	cfg         *config.Config
	mux         *http.ServeMux
	live        *liveServer
	liveMu      sync.RWMutex  // protects live pointer
	ready       chan struct{} // closed when server is ready to accept connections
	service     *pipeline.Service
	eventRouter *event.Router
}

// New creates a new Server with the given config. service may be nil
// for a status-only server; the review API then answers 503.
func New(cfg *config.Config, service *pipeline.Service) *Server {
	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		ready:   make(chan struct{}),
		service: service,
	}
	s.routes()
	return s
}

// NewWithRouter creates a new Server with an injected event router for
// webhook-triggered runs.
func NewWithRouter(cfg *config.Config, service *pipeline.Service, router *event.Router) *Server {
	s := &Server{
		cfg:         cfg,
		mux:         http.NewServeMux(),
		ready:       make(chan struct{}),
		service:     service,
		eventRouter: router,
	}
	s.routes()
	return s
}

// Ready returns a channel that is closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// routes sets up the HTTP routes.
func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/metrics", s.handleMetrics)
	s.mux.HandleFunc("/api/review", s.handleStartReview)
	s.mux.HandleFunc("/api/review/status/", s.handleReviewStatus)

	// GitHub webhook
	if s.cfg.Providers.GitHub.WebhookSecret != "" {
		githubHandler := webhook.NewGitHubHandler(
			s.cfg.Providers.GitHub.WebhookSecret,
			s.handleGitHubEvent,
		)
		s.mux.Handle("/webhook/github", githubHandler)
	}

	// GitLab webhook
	if s.cfg.Providers.GitLab.WebhookSecret != "" {
		gitlabHandler := webhook.NewGitLabHandler(
			s.cfg.Providers.GitLab.WebhookSecret,
			s.handleGitLabEvent,
		)
		s.mux.Handle("/webhook/gitlab", gitlabHandler)
	}
}

// handleHealth responds with server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	workspaceOK := dirWritable(s.cfg.Workspace.Dir)

	checks := map[string]interface{}{
		"workspace":   workspaceOK,
		"ai_key":      s.cfg.AI.APIKey != "",
		"active_runs": s.activeRuns(),
	}

	status := "ok"
	if !workspaceOK || s.cfg.AI.APIKey == "" {
		status = "degraded"
	}

	health := HealthResponse{
		Status: status,
		Checks: checks,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func (s *Server) activeRuns() int {
	if s.service == nil {
		return 0
	}
	active := 0
	for _, state := range s.service.Store().List() {
		if state.Status == report.StatusRunning {
			active++
		}
	}
	return active
}

func dirWritable(dir string) bool {
	if dir == "" {
		return false
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".healthcheck-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

type startReviewRequest struct {
	ChangeURL         string `json:"change_url"`
	RepoURL           string `json:"repo_url"`
	IncludeGeneration bool   `json:"include_generation"`
}

// handleStartReview accepts a review request and answers 202 with the
// run ID.
func (s *Server) handleStartReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.service == nil {
		http.Error(w, "review service unavailable", http.StatusServiceUnavailable)
		return
	}

	var req startReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ChangeURL == "" {
		http.Error(w, "change_url is required", http.StatusBadRequest)
		return
	}

	id, err := s.service.Start(context.Background(), pipeline.Request{
		ChangeURL:         req.ChangeURL,
		RepoURL:           req.RepoURL,
		IncludeGeneration: req.IncludeGeneration,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"run_id": id})
}

// handleReviewStatus answers with the state of one run.
func (s *Server) handleReviewStatus(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		http.Error(w, "review service unavailable", http.StatusServiceUnavailable)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/review/status/")
	if id == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}

	state, err := s.service.Store().Get(id)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

// handleGitHubEvent processes a GitHub webhook event.
func (s *Server) handleGitHubEvent(ghEvent *webhook.GitHubEvent) error {
	log.Printf("Received GitHub event: %s, action: %s", ghEvent.EventType, ghEvent.Action)

	if s.eventRouter == nil {
		return nil
	}

	normalized, err := event.NormalizeGitHubEvent(ghEvent)
	if err != nil {
		log.Printf("Failed to normalize GitHub event: %v", err)
		return nil // Don't fail the webhook, just log
	}

	if err := s.eventRouter.Route(context.Background(), normalized); err != nil {
		log.Printf("Failed to route event: %v", err)
		return nil
	}

	return nil
}

// handleGitLabEvent processes a GitLab webhook event.
func (s *Server) handleGitLabEvent(glEvent *webhook.GitLabEvent) error {
	log.Printf("Received GitLab event: %s, kind: %s", glEvent.EventType, glEvent.ObjectKind)

	if s.eventRouter == nil {
		return nil
	}

	normalized, err := event.NormalizeGitLabEvent(glEvent)
	if err != nil {
		log.Printf("Failed to normalize GitLab event: %v", err)
		return nil // Don't fail the webhook, just log
	}

	if err := s.eventRouter.Route(context.Background(), normalized); err != nil {
		log.Printf("Failed to route event: %v", err)
		return nil
	}

	return nil
}

// handleMetrics responds with current operational metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := metrics.Get()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}
