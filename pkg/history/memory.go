package history

import (
	"sync"

	"github.com/vango-dev/navroute/pkg/routepath"
)

// Memory is an in-process History. Pop events are delivered synchronously
// from Go.
type Memory struct {
	base      string
	listeners listeners

	mu      sync.Mutex
	entries []string
	pos     int
	closed  bool
}

var _ History = (*Memory)(nil)

// NewMemory creates a memory history under base whose single entry is
// start ("/" when empty).
func NewMemory(base, start string) *Memory {
	if start == "" {
		start = "/"
	}
	return &Memory{
		base:    routepath.NormalizeBase(base),
		entries: []string{start},
	}
}

func (m *Memory) Base() string { return m.base }

func (m *Memory) Location() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.pos]
}

func (m *Memory) Position() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// Entries returns a copy of the stack, oldest first.
func (m *Memory) Entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries...)
}

func (m *Memory) Push(to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.entries = append(m.entries[:m.pos+1], to)
	m.pos++
	return nil
}

func (m *Memory) Replace(to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.entries[m.pos] = to
	return nil
}

// Go clamps the move to the stack bounds. A move that lands on the current
// entry is not reported.
func (m *Memory) Go(delta int) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	target := m.pos + delta
	if target < 0 {
		target = 0
	}
	if target > len(m.entries)-1 {
		target = len(m.entries) - 1
	}
	if target == m.pos {
		m.mu.Unlock()
		return
	}
	ev := PopEvent{
		From:      m.entries[m.pos],
		To:        m.entries[target],
		Delta:     target - m.pos,
		Direction: directionOf(target - m.pos),
	}
	m.pos = target
	m.mu.Unlock()

	m.listeners.emit(ev)
}

func (m *Memory) Back()    { m.Go(-1) }
func (m *Memory) Forward() { m.Go(1) }

func (m *Memory) Listen(fn PopHandler) func() {
	return m.listeners.add(fn)
}

func (m *Memory) Href(location string) string {
	return routepath.JoinBase(m.base, location)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.listeners.clear()
	return nil
}
