// Package telegram is a minimal Telegram Bot API client covering the two
// calls this bot needs: getUpdates long polling and sendMessage.
package telegram

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

	"golang.org/x/time/rate"
)

// maxMessageRunes keeps outbound texts under the Bot API's 4096-char limit
// with headroom.
const maxMessageRunes = 3900

// Client talks to one bot's API base, e.g.
// "https://api.telegram.org/bot<token>".
type Client struct {
	apiBase    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client. sendRate caps outbound sendMessage calls per
// second; zero or negative disables the limit.
func NewClient(apiBase string, requestTimeout time.Duration, sendRate float64) *Client {
	var limiter *rate.Limiter
	if sendRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(sendRate), 1)
	}
	return &Client{
		apiBase: apiBase,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		limiter: limiter,
	}
}

// Response is the generic Telegram API response wrapper.
type Response struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result"`
}

// Update is one entry from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an incoming chat message. Text is nil for non-text content
// (stickers, photos, joins), which this bot ignores.
type Message struct {
	MessageID int64    `json:"message_id"`
	From      *User    `json:"from,omitempty"`
	Chat      Chat     `json:"chat"`
	Date      int64    `json:"date"`
	Text      *string  `json:"text,omitempty"`
	ReplyTo   *Message `json:"reply_to_message,omitempty"`
}

// User is the sender of a message.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
}

// DisplayName prefers the username and falls back to the first name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// Chat identifies a conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// GetUpdates long-polls the getUpdates API. timeout is the server-side hold
// in seconds; 0 returns immediately.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeout))
	params.Set("allowed_updates", `["message"]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/getUpdates?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read getUpdates response: %w", err)
	}

	var tgResp Response
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates response: %w", err)
	}
	if !tgResp.OK {
		return nil, fmt.Errorf("telegram getUpdates rejected: %s", tgResp.Description)
	}

	var updates []Update
	if err := json.Unmarshal(tgResp.Result, &updates); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates result: %w", err)
	}
	return updates, nil
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// SendMessage sends a text message to the given chat, truncating texts that
// exceed the Bot API limit. It waits on the outbound rate limiter first.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("telegram send limiter: %w", err)
		}
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID: chatID,
		Text:   truncate(text, maxMessageRunes),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sendMessage payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read sendMessage response: %w", err)
	}
	var tgResp Response
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return fmt.Errorf("failed to parse sendMessage response: %w", err)
	}
	if !tgResp.OK {
		return fmt.Errorf("telegram sendMessage rejected: %s", tgResp.Description)
	}
	return nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
