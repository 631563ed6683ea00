// Package summarize turns a slice of stored chat messages into a prose
// summary via an LLM collaborator.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DuckyBlender/duck-summarizer/internal/groq"
	"github.com/DuckyBlender/duck-summarizer/internal/metrics"
	"github.com/DuckyBlender/duck-summarizer/internal/store"
)

// DefaultModel is the Groq model used for summaries.
const DefaultModel = "llama-3.3-70b-versatile"

const (
	temperature = 0.7
	maxTokens   = 2000
)

const systemPrompt = `You are a Telegram conversation summarizer. Your task is to create a concise, accurate, and well-structured summary of the conversation provided. Follow these guidelines:
1. Identify the main participants and their key points
2. Highlight important topics discussed in the conversation
3. Note any decisions, actions, or conclusions reached
4. Maintain a neutral tone and avoid adding information not present in the original conversation
5. Group related points together thematically
6. Present the summary in clear paragraphs with proper formatting
7. If the conversation contains questions that were answered, include both the questions and their answers
8. Format the summary to be easily readable in Telegram`

// Summarizer produces a summary for an ordered message excerpt.
type Summarizer interface {
	Summarize(ctx context.Context, messages []store.Message) (string, error)
}

// CompletionClient is the part of the groq client the summarizer uses.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, messages []groq.Message, temperature float32, maxTokens int) (string, error)
}

// GroqSummarizer sends the transcript to Groq and relays the generated text.
type GroqSummarizer struct {
	client CompletionClient
}

// NewGroqSummarizer wraps a completion client.
func NewGroqSummarizer(client CompletionClient) *GroqSummarizer {
	return &GroqSummarizer{client: client}
}

// Summarize builds the conversation transcript, sends it with the system
// prompt, and returns the model's summary.
func (s *GroqSummarizer) Summarize(ctx context.Context, messages []store.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("nothing to summarize")
	}

	prompt := "Please summarize this Telegram conversation:\n\n" + Transcript(messages)

	started := time.Now()
	out, err := s.client.ChatCompletion(ctx, []groq.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}, temperature, maxTokens)
	metrics.GroqLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	return out, nil
}

// Transcript renders messages as one "Name: text" line each, oldest first.
// When a message replies to another message inside the excerpt, the line
// becomes "Name (replying to Other): text".
func Transcript(messages []store.Message) string {
	byID := make(map[int64]*store.Message, len(messages))
	for i := range messages {
		if messages[i].MessageID != 0 {
			byID[messages[i].MessageID] = &messages[i]
		}
	}

	var b strings.Builder
	for _, m := range messages {
		name := m.Sender
		if name == "" {
			name = "Unknown"
		}
		if m.ReplyTo != 0 {
			repliedTo := "someone"
			if target, ok := byID[m.ReplyTo]; ok && target.Sender != "" {
				repliedTo = target.Sender
			}
			fmt.Fprintf(&b, "%s (replying to %s): %s\n", name, repliedTo, m.Text)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", name, m.Text)
	}
	return b.String()
}
