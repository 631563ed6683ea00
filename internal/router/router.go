// Package router dispatches incoming chat messages: commands are answered,
// everything else is appended to the in-memory history.
package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DuckyBlender/duck-summarizer/internal/metrics"
	"github.com/DuckyBlender/duck-summarizer/internal/store"
	"github.com/DuckyBlender/duck-summarizer/internal/summarize"
	"github.com/DuckyBlender/duck-summarizer/internal/telegram"
)

const (
	// DefaultSummarizeCount is used when /summarize has no argument.
	DefaultSummarizeCount = 100
	// MaxSummarizeCount caps /summarize; larger requests are clamped.
	MaxSummarizeCount = 1000
)

const helpText = `I keep a short in-memory history of this chat and can summarize it on demand.

/summarize <count> - summarize the last <count> messages (default 100, max 1000)
/memory - show how many messages I currently remember here
/privacy - how message history is handled
/help - this message`

const privacyText = `Recent messages are buffered only in process memory so they can be summarized on request. Nothing is ever written to disk, nothing is shared between chats, and the whole history disappears when the bot restarts. Each chat keeps at most the newest messages up to a fixed cap; older ones are dropped automatically.`

const (
	replySummarizing   = "I'm summarizing your conversation..."
	replyNothingStored = "No messages to summarize."
	replySummaryFailed = "Sorry, I couldn't generate a summary. Please try again later."
)

// Replier is the outbound side of the bot transport.
type Replier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Router routes one chat message at a time. It is stateless apart from the
// store it reads and writes.
type Router struct {
	store      *store.Store
	summarizer summarize.Summarizer
	replier    Replier
	log        *zap.Logger
}

// New creates a router.
func New(s *store.Store, summarizer summarize.Summarizer, replier Replier, log *zap.Logger) *Router {
	return &Router{
		store:      s,
		summarizer: summarizer,
		replier:    replier,
		log:        log,
	}
}

// HandleMessage processes a single inbound message. Command failures are
// reported back into the chat; the returned error covers only transport
// failures while replying.
func (r *Router) HandleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg == nil || msg.Text == nil {
		return nil
	}
	text := strings.TrimSpace(*msg.Text)
	if text == "" {
		return nil
	}

	if name, arg, ok := parseCommand(text); ok {
		switch name {
		case "help":
			metrics.CommandsHandled.WithLabelValues("help").Inc()
			return r.replier.SendMessage(ctx, msg.Chat.ID, helpText)
		case "privacy":
			metrics.CommandsHandled.WithLabelValues("privacy").Inc()
			return r.replier.SendMessage(ctx, msg.Chat.ID, privacyText)
		case "memory":
			metrics.CommandsHandled.WithLabelValues("memory").Inc()
			return r.handleMemory(ctx, msg.Chat.ID)
		case "summarize":
			metrics.CommandsHandled.WithLabelValues("summarize").Inc()
			return r.handleSummarize(ctx, msg.Chat.ID, arg)
		}
		// Unknown commands fall through and get stored like any other text.
	}

	r.append(msg, text)
	return nil
}

func (r *Router) append(msg *telegram.Message, text string) {
	// Messages without a sender (channel posts etc.) are skipped.
	if msg.From == nil {
		return
	}
	stored := store.Message{
		MessageID: msg.MessageID,
		Sender:    msg.From.DisplayName(),
		SenderID:  msg.From.ID,
		Text:      text,
		Time:      time.Unix(msg.Date, 0),
	}
	if msg.ReplyTo != nil {
		stored.ReplyTo = msg.ReplyTo.MessageID
	}
	r.store.Append(msg.Chat.ID, stored)
	metrics.MessagesStored.Inc()
	metrics.ChatsTracked.Set(float64(r.store.Chats()))
}

func (r *Router) handleMemory(ctx context.Context, chatID int64) error {
	st := r.store.Stats(chatID)
	reply := fmt.Sprintf("Remembering %d of up to %d messages in this chat. Nothing is stored on disk.", st.Count, st.Capacity)
	return r.replier.SendMessage(ctx, chatID, reply)
}

func (r *Router) handleSummarize(ctx context.Context, chatID int64, arg string) error {
	count := DefaultSummarizeCount
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			metrics.Summaries.WithLabelValues("bad_input").Inc()
			return r.replier.SendMessage(ctx, chatID,
				fmt.Sprintf("Please provide a number between 1 and %d. Usage: /summarize <count>", MaxSummarizeCount))
		}
		if n < 1 {
			metrics.Summaries.WithLabelValues("bad_input").Inc()
			return r.replier.SendMessage(ctx, chatID,
				fmt.Sprintf("Invalid count: it must be between 1 and %d.", MaxSummarizeCount))
		}
		if n > MaxSummarizeCount {
			n = MaxSummarizeCount
		}
		count = n
	}

	// Snapshot before the network round trip; the store lock is never held
	// while waiting on Groq.
	snapshot := r.store.Recent(chatID, count)
	if len(snapshot) == 0 {
		metrics.Summaries.WithLabelValues("empty").Inc()
		return r.replier.SendMessage(ctx, chatID, replyNothingStored)
	}

	if err := r.replier.SendMessage(ctx, chatID, replySummarizing); err != nil {
		r.log.Warn("failed to send summarizing notice", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	requestID := uuid.NewString()
	r.log.Info("summarize requested",
		zap.String("request_id", requestID),
		zap.Int64("chat_id", chatID),
		zap.Int("requested", count),
		zap.Int("messages", len(snapshot)),
	)

	started := time.Now()
	summary, err := r.summarizer.Summarize(ctx, snapshot)
	if err != nil {
		metrics.Summaries.WithLabelValues("error").Inc()
		r.log.Error("summarize failed",
			zap.String("request_id", requestID),
			zap.Int64("chat_id", chatID),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return r.replier.SendMessage(ctx, chatID, replySummaryFailed)
	}

	metrics.Summaries.WithLabelValues("ok").Inc()
	r.log.Info("summarize completed",
		zap.String("request_id", requestID),
		zap.Int64("chat_id", chatID),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("summary_chars", len(summary)),
	)
	return r.replier.SendMessage(ctx, chatID, summary)
}

// parseCommand splits "/name arg" into its parts. The bot-mention suffix
// ("/summarize@SomeBot 50") is stripped. ok is false for non-command text.
func parseCommand(text string) (name, arg string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", "", false
	}
	name = strings.ToLower(fields[0])
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", "", false
	}
	arg = strings.Join(fields[1:], " ")
	return name, arg, true
}
