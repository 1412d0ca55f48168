package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/augurhq/augur/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		AI: config.AIConfig{
			APIKey: "test-key",
		},
		Workspace: config.WorkspaceConfig{
			Dir: t.TempDir(),
		},
	}
}

func TestNewServer(t *testing.T) {
	srv := New(testConfig(t), nil)
	if srv == nil {
		t.Fatal("New() returned nil")
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := New(testConfig(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", rec.Code, http.StatusOK)
	}

	// Parse the JSON response
	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to parse health response: %v", err)
	}

	if health.Status != "ok" {
		t.Errorf("GET /health status = %q, want 'ok'", health.Status)
	}

	if _, ok := health.Checks["workspace"]; !ok {
		t.Error("GET /health missing 'workspace' in checks")
	}
	if _, ok := health.Checks["active_runs"]; !ok {
		t.Error("GET /health missing 'active_runs' in checks")
	}
}

func TestServer_HealthEndpoint_ContentType(t *testing.T) {
	srv := New(testConfig(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("GET /health Content-Type = %q, want %q", contentType, "application/json")
	}
}

func TestServer_HealthEndpoint_DegradedStatus(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.APIKey = "" // No completion service configured

	srv := New(cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", rec.Code, http.StatusOK)
	}

	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to parse health response: %v", err)
	}

	if health.Status != "degraded" {
		t.Errorf("GET /health status = %q, want 'degraded' without an API key", health.Status)
	}

	keyCheck, ok := health.Checks["ai_key"].(bool)
	if !ok || keyCheck {
		t.Error("GET /health ai_key check should be false without an API key")
	}
}

func TestServer_StartReview_NoService(t *testing.T) {
	srv := New(testConfig(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/review", strings.NewReader(`{"change_url":"https://github.com/o/r/pull/1"}`))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("POST /api/review status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestServer_StartReview_MethodNotAllowed(t *testing.T) {
	srv := New(testConfig(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/review", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/review status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestServer_WebhookGitHubEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers.GitHub.WebhookSecret = "test-secret"

	srv := New(cfg, nil)

	// Create valid signature
	payload := `{"action":"opened"}`
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(payload))
	signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhook/github", strings.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", signature)
	req.Header.Set("X-GitHub-Event", "pull_request")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("POST /webhook/github status = %d, want %d, body = %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
}

func TestServer_WebhookGitLabEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers.GitLab.WebhookSecret = "test-secret"

	srv := New(cfg, nil)

	payload := `{"object_kind":"merge_request"}`

	req := httptest.NewRequest(http.MethodPost, "/webhook/gitlab", strings.NewReader(payload))
	req.Header.Set("X-Gitlab-Token", "test-secret")
	req.Header.Set("X-Gitlab-Event", "Merge Request Hook")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("POST /webhook/gitlab status = %d, want %d, body = %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
}

func TestServer_WebhookNotRegisteredWithoutSecret(t *testing.T) {
	srv := New(testConfig(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/github", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("POST /webhook/github without secret status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
