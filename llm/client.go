// Package llm provides the chat-completion client used for error triage.
// It speaks the OpenAI-compatible API; there is deliberately no provider
// abstraction, retry, or fallback here: one request is issued per analysis
// and it settles on its own.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize limits the completion response body to prevent memory
// exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client issues chat-completion requests against a single endpoint.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// Request defines one completion request.
type Request struct {
	// Credential is sent as a bearer token. The caller guards on presence;
	// the client sends whatever it is given.
	Credential string

	// Messages is the chat history to send.
	Messages []Message

	// Temperature controls randomness. nil uses the endpoint default.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int
}

// TokenUsage reports token consumption for a completed call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the completion result.
type Response struct {
	// Content is the generated explanation text.
	Content string

	// Model is the model that actually served the request.
	Model string

	// Usage contains token consumption metrics, if the endpoint reports them.
	Usage TokenUsage

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a client for the given OpenAI-compatible base URL and
// model name.
func NewClient(endpoint, model string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		model:    model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// apiRequest is the OpenAI-compatible request body.
type apiRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// apiResponse is the OpenAI-compatible response body.
type apiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage TokenUsage `json:"usage"`
}

// CompletionURL resolves the chat-completions URL for a base endpoint.
func CompletionURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// Complete issues one completion request and waits for it to settle. Any
// transport failure, non-2xx status, or malformed response surfaces as an
// error with a human-readable message; there is no retry.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	body, err := json.Marshal(apiRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokensPtr(req.MaxTokens),
	})
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	url := CompletionURL(c.endpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if req.Credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
	}

	c.logger.Debug("Sending completion request",
		"model", c.model,
		"url", url,
		"messages", len(req.Messages))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	return parseResponse(respBody)
}

func maxTokensPtr(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// parseResponse extracts the explanation from an OpenAI-compatible response.
func parseResponse(body []byte) (*Response, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewFatalError(fmt.Errorf("parse completion response: %w", err))
	}

	if len(resp.Choices) == 0 {
		return nil, NewFatalError(fmt.Errorf("no choices in response"))
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		Usage:        resp.Usage,
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}

// classifyHTTPError wraps a non-2xx status as transient or fatal. The
// distinction does not drive a retry here; it tells callers whether the
// same request could reasonably be re-issued by the user.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := strings.TrimSpace(string(body))
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("request failed with status code %d: %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		return NewFatalError(err)
	default:
		return NewFatalError(err)
	}
}
