package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1/messages"
	apiVersion     = "2023-06-01"
	defaultModel   = "claude-haiku-4-5-20251001"
)

// Client wraps a Messages-style completion API. BaseURL may point at
// the hosted API directly or at a local relay that injects credentials.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client

	// Rate limiting: max calls per minute.
	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// ClientConfig configures the remote completion client.
type ClientConfig struct {
	APIKey    string
	BaseURL   string // empty = hosted API
	Model     string // empty = default model
	MaxPerMin int    // calls per minute; 0 = default 20
	Timeout   time.Duration
}

// NewClient creates a completion client. Returns nil when neither an
// API key nor a relay URL is configured (remote inference disabled).
func NewClient(cfg ClientConfig) *Client {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxPerMin <= 0 {
		cfg.MaxPerMin = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxPerMin:  cfg.MaxPerMin,
	}
}

// Enabled reports whether remote completions are configured.
func (c *Client) Enabled() bool {
	return c != nil && (c.apiKey != "" || c.baseURL != defaultBaseURL)
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type response struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends a prompt and returns the response text.
func (c *Client) Complete(ctx context.Context, system, userPrompt string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("completion client not configured")
	}

	c.mu.Lock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		c.mu.Unlock()
		return "", fmt.Errorf("rate limit exceeded (%d calls/min)", c.maxPerMin)
	}
	c.callCount++
	c.mu.Unlock()

	req := request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []Message{
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	slog.Debug("completion call",
		"input_tokens", apiResp.Usage.InputTokens,
		"output_tokens", apiResp.Usage.OutputTokens,
	)
	return apiResp.Content[0].Text, nil
}

// Remote is a Backend that asks the completion API for adjustments.
type Remote struct {
	client *Client
}

// NewRemote wraps a client as a Backend. Returns nil for a nil client.
func NewRemote(client *Client) *Remote {
	if client == nil {
		return nil
	}
	return &Remote{client: client}
}

// Decide builds the prompts, calls the model, and parses the result.
func (r *Remote) Decide(ctx context.Context, dc *DecisionContext) (*Decision, error) {
	text, err := r.client.Complete(ctx, SystemPrompt(), UserPrompt(dc), 500)
	if err != nil {
		return nil, fmt.Errorf("remote decision: %w", err)
	}
	d, err := ParseDecision(text)
	if err != nil {
		return nil, fmt.Errorf("remote decision: %w", err)
	}
	d.Source = "remote"
	return d, nil
}

// Fallback tries a primary backend and falls back to a secondary when
// the primary errors.
type Fallback struct {
	Primary   Backend
	Secondary Backend
}

// Decide delegates to Primary, then Secondary on failure.
func (f *Fallback) Decide(ctx context.Context, dc *DecisionContext) (*Decision, error) {
	d, err := f.Primary.Decide(ctx, dc)
	if err == nil {
		return d, nil
	}
	slog.Warn("primary inference backend failed, using fallback", "err", err)
	return f.Secondary.Decide(ctx, dc)
}
