// Package mailbox provides keyed, one-shot message slots with blocking
// receive. A worker node keeps one Mailbox per job: the HTTP handlers put
// incoming protocol messages into it and the worker takes them out, and the
// worker's result travels back the same way.
package mailbox

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrClosed is returned by operations on a closed mailbox that was
	// closed without a specific reason.
	ErrClosed = errors.New("mailbox closed")
	// ErrOccupied is returned by Put when the slot already holds a message.
	// Protocol messages are delivered exactly once.
	ErrOccupied = errors.New("slot already occupied")
)

// Stats describes the current contents of a mailbox.
type Stats struct {
	Slots   int // Messages waiting to be taken
	Bytes   int // Total size of waiting messages
	Waiting int // Receivers blocked in Take
}

// Mailbox is safe for concurrent use.
type Mailbox struct {
	err     error                    // Close reason, nil while open
	slots   map[string][]byte        // Undelivered messages
	waiting map[string]chan struct{} // Closed when the key is filled
	mu      sync.Mutex
}

// New returns an empty, open mailbox.
func New() *Mailbox {
	return &Mailbox{
		slots:   make(map[string][]byte),
		waiting: make(map[string]chan struct{}),
	}
}

// Put stores a copy of value under key and wakes any receiver blocked on
// that key.
func (m *Mailbox) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if _, exists := m.slots[key]; exists {
		return ErrOccupied
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.slots[key] = stored

	if ch, ok := m.waiting[key]; ok {
		close(ch)
		delete(m.waiting, key)
	}
	return nil
}

// Take removes and returns the message under key, blocking until one is
// put, the mailbox is closed, or ctx is done. A message already waiting is
// returned even if the mailbox has since been closed.
func (m *Mailbox) Take(ctx context.Context, key string) ([]byte, error) {
	for {
		m.mu.Lock()
		if value, ok := m.slots[key]; ok {
			delete(m.slots, key)
			m.mu.Unlock()
			return value, nil
		}
		if m.err != nil {
			err := m.err
			m.mu.Unlock()
			return nil, err
		}
		ch, ok := m.waiting[key]
		if !ok {
			ch = make(chan struct{})
			m.waiting[key] = ch
		}
		m.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close shuts the mailbox. Blocked and future Takes on empty slots, and all
// future Puts, return reason, or ErrClosed when reason is nil. Closing twice
// keeps the first reason.
func (m *Mailbox) Close(reason error) {
	if reason == nil {
		reason = ErrClosed
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return
	}
	m.err = reason
	for key, ch := range m.waiting {
		close(ch)
		delete(m.waiting, key)
	}
}

// Err returns the close reason, or nil while the mailbox is open.
func (m *Mailbox) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Keys returns the keys holding undelivered messages, sorted.
func (m *Mailbox) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.slots))
	for key := range m.slots {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the mailbox contents.
func (m *Mailbox) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, value := range m.slots {
		total += len(value)
	}
	return Stats{
		Slots:   len(m.slots),
		Bytes:   total,
		Waiting: len(m.waiting),
	}
}
