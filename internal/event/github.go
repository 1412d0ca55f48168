package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/augurhq/augur/internal/webhook"
)

// gitHubPayload represents the common GitHub webhook payload structure.
type gitHubPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
		Head    struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
		CloneURL string `json:"clone_url"`
	} `json:"repository"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

// NormalizeGitHubEvent converts a GitHub webhook event to a normalized Event.
func NormalizeGitHubEvent(ghEvent *webhook.GitHubEvent) (*Event, error) {
	var payload gitHubPayload
	if err := json.Unmarshal(ghEvent.RawPayload, &payload); err != nil {
		return nil, fmt.Errorf("parsing payload: %w", err)
	}

	// Parse owner/repo from full_name
	parts := strings.SplitN(payload.Repository.FullName, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid repository full_name: %s", payload.Repository.FullName)
	}

	if ghEvent.EventType != "pull_request" {
		return nil, fmt.Errorf("unhandled event type: %s", ghEvent.EventType)
	}

	event := &Event{
		Provider:     "github",
		RepoOwner:    parts[0],
		RepoName:     parts[1],
		RepoURL:      payload.Repository.CloneURL,
		ChangeNumber: payload.Number,
		ChangeTitle:  payload.PullRequest.Title,
		ChangeURL:    payload.PullRequest.HTMLURL,
		SourceBranch: payload.PullRequest.Head.Ref,
		TargetBranch: payload.PullRequest.Base.Ref,
		Actor:        payload.Sender.Login,
		Timestamp:    time.Now(),
	}

	switch payload.Action {
	case "opened", "reopened":
		event.Type = TypeChangeOpened
	case "synchronize":
		event.Type = TypeChangeUpdated
	default:
		return nil, fmt.Errorf("unhandled pull_request action: %s", payload.Action)
	}

	return event, nil
}
