package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DuckyBlender/duck-summarizer/internal/telegram"
)

// scriptedTransport returns one batch (or error) per GetUpdates call and
// cancels the run context once the script is exhausted.
type scriptedTransport struct {
	mu      sync.Mutex
	batches []batch
	offsets []int64
	cancel  context.CancelFunc
}

type batch struct {
	updates []telegram.Update
	err     error
}

func (s *scriptedTransport) GetUpdates(_ context.Context, offset int64, _ int) ([]telegram.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets = append(s.offsets, offset)
	if len(s.batches) == 0 {
		s.cancel()
		return nil, nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b.updates, b.err
}

type recordingHandler struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg *telegram.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Text != nil {
		h.texts = append(h.texts, *msg.Text)
	}
	return h.err
}

func textUpdate(updateID int64, text string, date int64) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		Message: &telegram.Message{
			MessageID: updateID,
			Chat:      telegram.Chat{ID: 1},
			Date:      date,
			Text:      &text,
		},
	}
}

func runBot(t *testing.T, transport *scriptedTransport, handler Handler, opts Options) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	transport.cancel = cancel
	b := New(transport, handler, opts, zap.NewNop())
	err := b.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_DispatchesAndAdvancesOffset(t *testing.T) {
	now := time.Now().Unix()
	transport := &scriptedTransport{batches: []batch{
		{updates: []telegram.Update{textUpdate(10, "a", now), textUpdate(11, "b", now)}},
		{updates: []telegram.Update{textUpdate(12, "c", now)}},
	}}
	handler := &recordingHandler{}

	runBot(t, transport, handler, Options{SleepInterval: time.Millisecond})

	assert.Equal(t, []string{"a", "b", "c"}, handler.texts)
	// First poll from 0, then past each consumed batch.
	require.GreaterOrEqual(t, len(transport.offsets), 3)
	assert.Equal(t, int64(0), transport.offsets[0])
	assert.Equal(t, int64(12), transport.offsets[1])
	assert.Equal(t, int64(13), transport.offsets[2])
}

func TestRun_SurvivesTransportAndHandlerErrors(t *testing.T) {
	now := time.Now().Unix()
	transport := &scriptedTransport{batches: []batch{
		{err: fmt.Errorf("telegram getUpdates request failed: boom")},
		{updates: []telegram.Update{textUpdate(5, "after-error", now)}},
	}}
	handler := &recordingHandler{err: fmt.Errorf("telegram sendMessage request failed")}

	runBot(t, transport, handler, Options{SleepInterval: time.Millisecond, BreakerThreshold: 5})

	assert.Equal(t, []string{"after-error"}, handler.texts)
}

func TestRun_SkipsMessagelessUpdates(t *testing.T) {
	now := time.Now().Unix()
	transport := &scriptedTransport{batches: []batch{
		{updates: []telegram.Update{{UpdateID: 1}, textUpdate(2, "real", now)}},
	}}
	handler := &recordingHandler{}

	runBot(t, transport, handler, Options{SleepInterval: time.Millisecond})

	assert.Equal(t, []string{"real"}, handler.texts)
}

func TestBootstrapOffset_DropsStaleBacklog(t *testing.T) {
	now := time.Now().Unix()
	stale := now - 3600
	transport := &scriptedTransport{batches: []batch{
		{updates: []telegram.Update{
			textUpdate(1, "old", stale),
			textUpdate(2, "old too", stale),
			textUpdate(3, "fresh", now),
		}},
	}}
	transport.cancel = func() {}
	b := New(transport, &recordingHandler{}, Options{
		DropPending:        true,
		PendingWindow:      10 * time.Minute,
		PendingMaxMessages: 50,
	}, zap.NewNop())

	offset, err := b.bootstrapOffset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), offset)
}

func TestBootstrapOffset_AllStale(t *testing.T) {
	stale := time.Now().Add(-2 * time.Hour).Unix()
	transport := &scriptedTransport{batches: []batch{
		{updates: []telegram.Update{textUpdate(7, "old", stale), textUpdate(8, "old", stale)}},
	}}
	transport.cancel = func() {}
	b := New(transport, &recordingHandler{}, Options{
		DropPending:   true,
		PendingWindow: 10 * time.Minute,
	}, zap.NewNop())

	offset, err := b.bootstrapOffset(context.Background())
	require.NoError(t, err)
	// Everything skipped: resume after the newest pending update.
	assert.Equal(t, int64(9), offset)
}

func TestBootstrapOffset_CapsPendingCount(t *testing.T) {
	now := time.Now().Unix()
	transport := &scriptedTransport{batches: []batch{
		{updates: []telegram.Update{
			textUpdate(1, "a", now),
			textUpdate(2, "b", now),
			textUpdate(3, "c", now),
		}},
	}}
	transport.cancel = func() {}
	b := New(transport, &recordingHandler{}, Options{
		DropPending:        true,
		PendingWindow:      10 * time.Minute,
		PendingMaxMessages: 2,
	}, zap.NewNop())

	offset, err := b.bootstrapOffset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), offset)
}

func TestBootstrapOffset_EmptyBacklog(t *testing.T) {
	transport := &scriptedTransport{batches: []batch{{}}}
	transport.cancel = func() {}
	b := New(transport, &recordingHandler{}, Options{DropPending: true, PendingWindow: time.Minute}, zap.NewNop())

	offset, err := b.bootstrapOffset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), offset)
}
