// Package handler bridges normalized webhook events to pipeline runs.
package handler

import (
	"context"
	"fmt"
	"log"

	"github.com/augurhq/augur/internal/event"
	"github.com/augurhq/augur/internal/pipeline"
)

// ReviewHandler starts a review run for each accepted event.
type ReviewHandler struct {
	service *pipeline.Service
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(service *pipeline.Service) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Handle starts a pipeline run for the event's change request.
func (h *ReviewHandler) Handle(ctx context.Context, evt *event.Event) error {
	changeURL := evt.ChangeURL
	if changeURL == "" {
		return fmt.Errorf("event %s has no change URL", evt.Key())
	}

	id, err := h.service.Start(ctx, pipeline.Request{
		ChangeURL: changeURL,
		RepoURL:   evt.RepoURL,
	})
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	log.Printf("Started run %s for %s/%s change #%d (%s)", id, evt.RepoOwner, evt.RepoName, evt.ChangeNumber, evt.Type)
	return nil
}
