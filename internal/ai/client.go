// Package ai is the completion-service boundary. The core only ever
// sends a (system instructions, user content) pair and receives text
// back; provider-specific dialects stay behind this package.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// Request is the only shape crossing the completion-service boundary.
type Request struct {
	System string
	User   string
}

// Client is the completion-service abstraction.
type Client interface {
	// Complete sends the request and returns the raw response text.
	Complete(ctx context.Context, req Request) (string, error)
	// Name identifies the backing service (for logs).
	Name() string
}

// Category classifies completion-service failures.
type Category string

const (
	CategoryRateLimited   Category = "rate_limited"
	CategoryUnauthorized  Category = "unauthorized"
	CategoryModelNotFound Category = "model_not_found"
	CategoryUnknown       Category = "unknown"
)

// APIError is a categorized completion-service failure.
type APIError struct {
	Category   Category
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion service error (%s, status %d): %s", e.Category, e.StatusCode, e.Message)
}

// Categorize returns the failure category of err, or CategoryUnknown
// for anything that is not an APIError.
func Categorize(err error) Category {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}
	return CategoryUnknown
}

// UserMessage renders err as a human-readable report body. Stage runners
// substitute this text for the stage content instead of propagating the
// error.
func UserMessage(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fmt.Sprintf("Completion service error\n\n%s", truncate(err.Error(), 500))
	}

	switch apiErr.Category {
	case CategoryRateLimited:
		return fmt.Sprintf("API quota exceeded\n\n"+
			"The completion-service quota has been exhausted. Wait for the quota to reset, "+
			"check the provider's usage dashboard, or switch to a different API key.\n\n"+
			"Error: %s", truncate(apiErr.Message, 300))
	case CategoryUnauthorized:
		return fmt.Sprintf("API permission denied\n\n"+
			"The API key may be invalid, revoked, or reported as leaked.\n\n"+
			"Error: %s", truncate(apiErr.Message, 300))
	case CategoryModelNotFound:
		return fmt.Sprintf("Model not found\n\n"+
			"The configured model may not be available on this endpoint.\n\n"+
			"Error: %s", truncate(apiErr.Message, 300))
	default:
		return fmt.Sprintf("API error\n\n%s", truncate(apiErr.Message, 500))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
