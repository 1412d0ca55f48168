// Package event normalizes webhook payloads from the supported
// platforms into one event shape and routes them to the review
// pipeline.
package event

import (
	"fmt"
	"time"
)

// Type represents the type of webhook event.
type Type string

const (
	TypeChangeOpened  Type = "change_opened"
	TypeChangeUpdated Type = "change_updated"
)

// Event represents a normalized webhook event.
type Event struct {
	// Type is the event type.
	Type Type

	// Provider is the git platform (github, gitlab).
	Provider string

	// Repository information.
	RepoOwner string
	RepoName  string
	RepoURL   string

	// Change request information.
	ChangeNumber int
	ChangeTitle  string
	ChangeURL    string
	SourceBranch string
	TargetBranch string

	// Actor who triggered the event.
	Actor string

	// Timestamp of the event.
	Timestamp time.Time
}

// Key returns a unique key for this event (used for debouncing).
func (e *Event) Key() string {
	return e.Provider + "/" + e.RepoOwner + "/" + e.RepoName + "/" + string(e.Type) + "/" + fmt.Sprint(e.ChangeNumber)
}
