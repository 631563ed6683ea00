// Package groq is a minimal client for Groq's OpenAI-compatible chat
// completions endpoint.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultURL is the Groq chat completions endpoint.
const DefaultURL = "https://api.groq.com/openai/v1/chat/completions"

// Client holds credentials and endpoint for one model.
type Client struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

// NewClient creates a Groq client.
func NewClient(apiKey, url, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey: apiKey,
		url:    url,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Message represents a chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatCompletion sends a completion request and returns the first choice's
// content. An empty or missing choice is an error: callers need either text
// to relay or a failure to report.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal groq request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create groq request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed reading groq response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies carry {"error":{"message":...}}; pull out the
		// message instead of dumping the whole envelope.
		detail := gjson.GetBytes(body, "error.message").String()
		if detail == "" {
			detail = truncate(string(body), 400)
		}
		return "", fmt.Errorf("groq non-success status=%d: %s", resp.StatusCode, detail)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse groq response: %s", truncate(string(body), 400))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq response has no choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("groq response content is empty")
	}
	return content, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
