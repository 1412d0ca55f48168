package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/augurhq/augur/internal/webhook"
)

type gitLabPayload struct {
	ObjectKind       string `json:"object_kind"`
	ObjectAttributes struct {
		IID          int    `json:"iid"`
		Title        string `json:"title"`
		URL          string `json:"url"`
		SourceBranch string `json:"source_branch"`
		TargetBranch string `json:"target_branch"`
		Action       string `json:"action"`
	} `json:"object_attributes"`
	Project struct {
		PathWithNamespace string `json:"path_with_namespace"`
		GitHTTPURL        string `json:"git_http_url"`
	} `json:"project"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
}

// NormalizeGitLabEvent converts a GitLab webhook event to a normalized Event.
func NormalizeGitLabEvent(glEvent *webhook.GitLabEvent) (*Event, error) {
	var payload gitLabPayload
	if err := json.Unmarshal(glEvent.RawPayload, &payload); err != nil {
		return nil, fmt.Errorf("parsing payload: %w", err)
	}

	parts := strings.SplitN(payload.Project.PathWithNamespace, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid project path: %s", payload.Project.PathWithNamespace)
	}

	if payload.ObjectKind != "merge_request" {
		return nil, fmt.Errorf("unhandled object_kind: %s", payload.ObjectKind)
	}

	event := &Event{
		Provider:     "gitlab",
		RepoOwner:    parts[0],
		RepoName:     parts[1],
		RepoURL:      payload.Project.GitHTTPURL,
		ChangeNumber: payload.ObjectAttributes.IID,
		ChangeTitle:  payload.ObjectAttributes.Title,
		ChangeURL:    payload.ObjectAttributes.URL,
		SourceBranch: payload.ObjectAttributes.SourceBranch,
		TargetBranch: payload.ObjectAttributes.TargetBranch,
		Actor:        payload.User.Username,
		Timestamp:    time.Now(),
	}

	switch payload.ObjectAttributes.Action {
	case "open", "reopen":
		event.Type = TypeChangeOpened
	case "update":
		event.Type = TypeChangeUpdated
	default:
		return nil, fmt.Errorf("unhandled merge_request action: %s", payload.ObjectAttributes.Action)
	}

	return event, nil
}
