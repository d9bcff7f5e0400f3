package acontext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"startup-hunter-be/internal/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.acontext.io"
	module         = "Acontext"
)

// Message is one stored turn, in OpenAI message format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Config struct {
	APIKey    string
	BaseURL   string
	ProjectID string
	Timeout   time.Duration
}

// Client is the session memory adapter. Every call is best effort: an
// unconfigured client or a failed request yields an empty result and a
// log line, never an error.
type Client struct {
	apiKey    string
	baseURL   string
	projectID string
	http      *http.Client
	logger    logger.ILogger
}

func NewClient(cfg Config, log logger.ILogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		projectID: cfg.ProjectID,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    log,
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// CreateSession returns the new memory handle, or "" when unavailable.
func (c *Client) CreateSession(ctx context.Context, userID string, meta map[string]interface{}) string {
	if !c.Configured() {
		return ""
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}

	var out struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/v1/projects/%s/sessions", url.PathEscape(c.projectID))
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]interface{}{"user": userID, "configs": meta}, &out); err != nil {
		c.logger.Warn(module, "Failed to create memory session", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return out.ID
}

func (c *Client) StoreMessage(ctx context.Context, handle, role, content string, meta map[string]interface{}) {
	if !c.Configured() || handle == "" {
		return
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	body := map[string]interface{}{
		"blob":   Message{Role: role, Content: content},
		"format": "openai",
		"meta":   meta,
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(handle)+"/messages", nil, body, nil); err != nil {
		c.logger.Warn(module, "Failed to store message", map[string]interface{}{"handle": handle, "error": err.Error()})
	}
}

func (c *Client) GetMessages(ctx context.Context, handle string, limit int) []Message {
	if !c.Configured() || handle == "" {
		return nil
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("format", "openai")

	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(handle)+"/messages", q, nil, &out); err != nil {
		c.logger.Warn(module, "Failed to get messages", map[string]interface{}{"handle": handle, "error": err.Error()})
		return nil
	}
	return out.Messages
}

// Flush asks the service to process buffered messages for the session.
func (c *Client) Flush(ctx context.Context, handle string) {
	if !c.Configured() || handle == "" {
		return
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(handle)+"/flush", nil, map[string]interface{}{}, nil); err != nil {
		c.logger.Warn(module, "Failed to flush session", map[string]interface{}{"handle": handle, "error": err.Error()})
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("acontext request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("acontext error: status %d, body: %s", resp.StatusCode, string(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
