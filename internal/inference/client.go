// Package inference is the HTTP client for the local OpenAI-compatible
// chat-completions backend (LM Studio and friends).
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request holds the parameters of one chat-completion call.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream,omitempty"`
}

// StatusError reports a non-success HTTP status from the backend.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.Code)
}

// Client talks to one inference backend. The base URL is fixed at
// construction; nothing is read from ambient state at call time.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:1234". A timeout of zero disables the client timeout,
// which streaming calls rely on.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete performs a blocking chat-completion call and returns the
// assistant text of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	req.Stream = false

	resp, err := c.post(ctx, req, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("backend returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// OpenStream performs a streaming chat-completion call. The returned
// Stream owns the response body; callers must Close it on every path.
// A non-success status yields a *StatusError and no stream.
func (c *Client) OpenStream(ctx context.Context, req Request) (*Stream, error) {
	req.Stream = true

	resp, err := c.post(ctx, req, "text/event-stream")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}

	return newStream(resp.Body), nil
}

func (c *Client) post(ctx context.Context, req Request, accept string) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
