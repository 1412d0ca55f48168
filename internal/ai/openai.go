package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	client      *http.Client
}

// OpenAIOption configures the client.
type OpenAIOption func(*OpenAIClient)

// WithBaseURL points the client at a different endpoint (self-hosted
// gateways, test servers).
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithRetries sets how many times transient failures are retried.
func WithRetries(n int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.maxRetries = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) OpenAIOption {
	return func(c *OpenAIClient) {
		c.temperature = t
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.maxTokens = n
	}
}

// NewOpenAI creates a client for the given model.
func NewOpenAI(apiKey, model string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       model,
		temperature: 0.1,
		maxTokens:   4096,
		maxRetries:  2,
		client:      &http.Client{Timeout: 120 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the client name with its model.
func (c *OpenAIClient) Name() string {
	return "openai:" + c.model
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the request and returns the assistant's text. Server
// errors and rate limits are retried with backoff; other failures map to
// a categorized APIError.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling completion request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 2 * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, retryable, err := c.doRequest(ctx, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *OpenAIClient) doRequest(ctx context.Context, payload []byte) (text string, retryable bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", true, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := classifyStatus(resp.StatusCode, body)
		// Rate limits and server errors are worth retrying; auth and
		// model errors are not.
		retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, apiErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("parsing response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, &APIError{
			Category:   CategoryUnknown,
			StatusCode: resp.StatusCode,
			Message:    parsed.Error.Message,
		}
	}
	if len(parsed.Choices) == 0 {
		return "", false, &APIError{
			Category:   CategoryUnknown,
			StatusCode: resp.StatusCode,
			Message:    "response contained no choices",
		}
	}

	return parsed.Choices[0].Message.Content, false, nil
}

func classifyStatus(status int, body []byte) *APIError {
	msg := extractErrorMessage(body)

	category := CategoryUnknown
	switch {
	case status == http.StatusTooManyRequests:
		category = CategoryRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		category = CategoryUnauthorized
	case status == http.StatusNotFound:
		category = CategoryModelNotFound
	}

	return &APIError{
		Category:   category,
		StatusCode: status,
		Message:    msg,
	}
}

func extractErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}
