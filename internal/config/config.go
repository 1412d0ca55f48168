// Package config loads the server configuration from YAML with
// environment-variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Providers ProvidersConfig `yaml:"providers"`
	AI        AIConfig        `yaml:"ai"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Review    ReviewConfig    `yaml:"review"`
	Events    EventsConfig    `yaml:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig holds run-report log settings.
type LoggingConfig struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// ProvidersConfig holds git platform credentials.
type ProvidersConfig struct {
	GitHub    GitHubConfig    `yaml:"github"`
	GitLab    GitLabConfig    `yaml:"gitlab"`
	Bitbucket BitbucketConfig `yaml:"bitbucket"`
}

// GitHubConfig holds GitHub-specific settings.
type GitHubConfig struct {
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// GitLabConfig holds GitLab-specific settings.
type GitLabConfig struct {
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// BitbucketConfig holds Bitbucket Cloud credentials.
type BitbucketConfig struct {
	Username    string `yaml:"username"`
	AppPassword string `yaml:"app_password"`
}

// AIConfig holds completion-service settings. BaseURL selects any
// OpenAI-compatible endpoint.
type AIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// WorkspaceConfig holds repository snapshot settings.
type WorkspaceConfig struct {
	Dir                 string `yaml:"dir"`
	CloneTimeoutMinutes int    `yaml:"clone_timeout_minutes"`
	KeepOnSuccess       bool   `yaml:"keep_on_success"`
}

// AnalysisConfig holds repository-analysis tuning.
type AnalysisConfig struct {
	MaxAIFiles     int     `yaml:"max_ai_files"`
	GenerateLimit  int     `yaml:"generate_limit"`
	LowCoverage    float64 `yaml:"low_coverage"`
	MediumCoverage float64 `yaml:"medium_coverage"`
}

// ReviewConfig holds pipeline behavior settings.
type ReviewConfig struct {
	PostComment     bool `yaml:"post_comment"`
	DebounceSeconds int  `yaml:"debounce_seconds"`
}

// EventsConfig controls which webhook-triggered events start a run.
type EventsConfig struct {
	ChangeOpened  bool `yaml:"change_opened"`
	ChangeUpdated bool `yaml:"change_updated"`
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 7100,
		},
		Logging: LoggingConfig{
			Dir:           "/var/log/augur",
			RetentionDays: 30,
		},
		AI: AIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			MaxTokens:   4096,
		},
		Workspace: WorkspaceConfig{
			Dir:                 "/var/lib/augur/snapshots",
			CloneTimeoutMinutes: 5,
			KeepOnSuccess:       true,
		},
		Analysis: AnalysisConfig{
			MaxAIFiles:     3,
			GenerateLimit:  5,
			LowCoverage:    0.30,
			MediumCoverage: 0.60,
		},
		Review: ReviewConfig{
			DebounceSeconds: 10,
		},
		Events: EventsConfig{
			ChangeOpened:  true,
			ChangeUpdated: true,
		},
	}
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Substitute environment variables
	data = envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}
