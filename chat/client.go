package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "http://127.0.0.1:11434"
	DefaultModel   = "deepseek-coder:1.3b"
	defaultTimeout = 60 * time.Second

	maxErrorBody = 4 << 10
)

// ErrorType classifies a ClientError.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnavailable
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeInvalidResponse
)

// ClientError is returned for every failed model call.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Config configures Client.
type Config struct {
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Model   string  `json:"model"`
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client sends one non-streaming chat request per message.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Respond returns the model's reply to message. identity is not sent to the
// model.
func (c *Client) Respond(ctx context.Context, identity, msg string) (string, error) {
	messages := make([]message, 0, 2)
	if c.config.SystemPrompt != "" {
		messages = append(messages, message{Role: "system", Content: c.config.SystemPrompt})
	}
	messages = append(messages, message{Role: "user", Content: msg})

	body, err := json.Marshal(chatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &ClientError{Type: ErrTypeTimeout, Message: "chat request timed out", Cause: err}
		}
		return "", &ClientError{Type: ErrTypeUnavailable, Message: "chat backend unreachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", &ClientError{Type: ErrTypeModelNotFound, Message: "model not found: " + c.config.Model}
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return "", &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error}
		}
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "chat request failed: " + resp.Status}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if out.Message.Content == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "empty model response"}
	}
	return out.Message.Content, nil
}

// StaticResponder always replies with Reply.
type StaticResponder struct {
	Reply string
}

// Placeholder is the reply used when no model backend is configured.
const Placeholder = "AI response placeholder"

func (s StaticResponder) Respond(context.Context, string, string) (string, error) {
	if s.Reply == "" {
		return Placeholder, nil
	}
	return s.Reply, nil
}
