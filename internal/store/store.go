// Package store keeps the recent messages of every chat in memory.
// Nothing here ever touches disk; losing the process loses the history.
package store

import (
	"sync"
	"time"
)

// DefaultCapacity is the per-chat message cap used when none is configured.
const DefaultCapacity = 1000

// Message is one stored chat message.
type Message struct {
	MessageID int64
	Sender    string
	SenderID  int64
	// ReplyTo is the message id this message replies to, 0 if none.
	ReplyTo int64
	Text    string
	Time    time.Time
}

// Stats describes how full a chat's buffer is.
type Stats struct {
	Count    int
	Capacity int
}

// ringBuffer is a fixed-size FIFO of messages. Once full, every append
// overwrites the oldest entry.
type ringBuffer struct {
	buf   []Message
	head  int // index of the oldest message
	count int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]Message, capacity)}
}

func (r *ringBuffer) append(m Message) {
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = m
		r.count++
		return
	}
	// Full: overwrite the oldest slot and advance.
	r.buf[r.head] = m
	r.head = (r.head + 1) % len(r.buf)
}

// lastN copies out the newest n messages in arrival order, oldest first.
func (r *ringBuffer) lastN(n int) []Message {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Message, n)
	start := r.head + r.count - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Store maps chat ids to their ring buffers. A single mutex guards the
// whole map; contention is a handful of chats appending short texts.
type Store struct {
	mu       sync.Mutex
	capacity int
	chats    map[int64]*ringBuffer
}

// NewStore creates a store whose chat buffers hold at most capacity
// messages each. Capacities below 1 fall back to 1.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		chats:    make(map[int64]*ringBuffer),
	}
}

// Append records a message for a chat, creating the chat's buffer on
// first use and silently evicting the oldest message at capacity.
func (s *Store) Append(chatID int64, m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.chats[chatID]
	if !ok {
		rb = newRingBuffer(s.capacity)
		s.chats[chatID] = rb
	}
	rb.append(m)
}

// Recent returns a copy of the last min(n, stored) messages of a chat in
// arrival order, oldest first. Unknown chats and n <= 0 yield nil. The
// returned slice is the caller's; holding it does not hold the store lock.
func (s *Store) Recent(chatID int64, n int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.chats[chatID]
	if !ok {
		return nil
	}
	return rb.lastN(n)
}

// Stats reports the stored-message count and the capacity for a chat.
// Unknown chats report a zero count with the configured capacity.
func (s *Store) Stats(chatID int64) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Capacity: s.capacity}
	if rb, ok := s.chats[chatID]; ok {
		st.Count = rb.count
	}
	return st
}

// Chats returns how many chats currently have a buffer.
func (s *Store) Chats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}
