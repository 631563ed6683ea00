// Package bot runs the long-poll loop: it pulls updates from the Telegram
// transport and hands each message to the router.
package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DuckyBlender/duck-summarizer/internal/control"
	"github.com/DuckyBlender/duck-summarizer/internal/metrics"
	"github.com/DuckyBlender/duck-summarizer/internal/telegram"
)

// Transport is the inbound side of the Telegram client.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
}

// Handler consumes one message at a time.
type Handler interface {
	HandleMessage(ctx context.Context, msg *telegram.Message) error
}

// Options tune the poll loop.
type Options struct {
	// PollTimeout is the getUpdates server-side hold in seconds.
	PollTimeout int
	// SleepInterval is the pause between polls after an empty batch or an
	// error.
	SleepInterval time.Duration
	// DropPending skips the backlog accumulated while the bot was down,
	// keeping at most PendingMaxMessages within PendingWindow.
	DropPending        bool
	PendingWindow      time.Duration
	PendingMaxMessages int
	// Breaker settings for consecutive transport failures.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Bot owns the update loop.
type Bot struct {
	transport Transport
	handler   Handler
	opts      Options
	log       *zap.Logger
}

// New creates a bot.
func New(transport Transport, handler Handler, opts Options, log *zap.Logger) *Bot {
	if opts.SleepInterval <= 0 {
		opts.SleepInterval = time.Second
	}
	return &Bot{
		transport: transport,
		handler:   handler,
		opts:      opts,
		log:       log,
	}
}

// Run polls until ctx is canceled. Transport errors pause the loop via the
// circuit breaker; handler errors are logged and never stop it.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	if b.opts.DropPending {
		bootstrapped, err := b.bootstrapOffset(ctx)
		if err != nil {
			b.log.Warn("offset bootstrap failed", zap.Error(err))
		} else {
			offset = bootstrapped
		}
	}

	breaker := control.NewCircuitBreaker(b.opts.BreakerThreshold, b.opts.BreakerCooldown)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !breaker.Allow(time.Now()) {
			if !sleep(ctx, b.opts.SleepInterval) {
				return ctx.Err()
			}
			continue
		}

		updates, err := b.transport.GetUpdates(ctx, offset, b.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			class := control.Classify(err)
			metrics.PollErrors.WithLabelValues(class).Inc()
			prev := breaker.State()
			breaker.RecordFailure(class, time.Now())
			if prev != control.CircuitOpen && breaker.State() == control.CircuitOpen {
				b.log.Warn("poll circuit opened",
					zap.String("class", class),
					zap.Duration("cooldown", breaker.Cooldown),
				)
			}
			b.log.Error("getUpdates failed", zap.String("class", class), zap.Error(err))
			if !sleep(ctx, b.opts.SleepInterval) {
				return ctx.Err()
			}
			continue
		}
		if breaker.State() != control.CircuitClosed {
			b.log.Info("poll circuit closed")
		}
		breaker.RecordSuccess()

		for _, update := range updates {
			offset = update.UpdateID + 1
			if update.Message == nil {
				continue
			}
			if err := b.handler.HandleMessage(ctx, update.Message); err != nil {
				b.log.Error("handle message failed",
					zap.Int64("update_id", update.UpdateID),
					zap.Int64("chat_id", update.Message.Chat.ID),
					zap.Error(err),
				)
			}
		}

		if len(updates) == 0 {
			if !sleep(ctx, b.opts.SleepInterval) {
				return ctx.Err()
			}
		}
	}
}

// bootstrapOffset peeks at the pending backlog and picks the first update
// still worth handling: anything older than the pending window is dropped,
// and at most PendingMaxMessages recent ones are kept.
func (b *Bot) bootstrapOffset(ctx context.Context) (int64, error) {
	updates, err := b.transport.GetUpdates(ctx, 0, 0)
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-b.opts.PendingWindow).Unix()
	var inWindow []telegram.Update
	for _, u := range updates {
		if u.Message != nil && u.Message.Date >= cutoff {
			inWindow = append(inWindow, u)
		}
	}

	if len(inWindow) == 0 {
		return updates[len(updates)-1].UpdateID + 1, nil
	}
	if b.opts.PendingMaxMessages > 0 && len(inWindow) > b.opts.PendingMaxMessages {
		inWindow = inWindow[len(inWindow)-b.opts.PendingMaxMessages:]
	}
	return inWindow[0].UpdateID, nil
}

// sleep waits for d or until ctx is done; it reports whether ctx is still
// live.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
