package history

import (
	"errors"
	"sync"
)

// History errors.
var (
	// ErrClosed is returned by operations on a closed History.
	ErrClosed = errors.New("history: closed")

	// ErrHandshake is returned when a remote client fails to introduce itself.
	ErrHandshake = errors.New("history: handshake failed")
)

// Direction is the direction of a pop navigation.
type Direction string

const (
	DirectionBack    Direction = "back"
	DirectionForward Direction = "forward"
	DirectionUnknown Direction = ""
)

// directionOf maps a position delta to a Direction.
func directionOf(delta int) Direction {
	switch {
	case delta < 0:
		return DirectionBack
	case delta > 0:
		return DirectionForward
	default:
		return DirectionUnknown
	}
}

// PopEvent describes a back/forward move reported by the platform.
type PopEvent struct {
	// To is the new current location (without base).
	To string

	// From is the location before the move.
	From string

	// Delta is the position change, 0 when the platform did not say.
	Delta int

	Direction Direction

	// OutsideBase is set when the platform moved to an href outside the
	// base path. To then holds the raw href.
	OutsideBase bool
}

// PopHandler receives pop events.
type PopHandler func(PopEvent)

// History is the navigation history capability used by the controller.
type History interface {
	// Base returns the normalized deployment base path ("" for root).
	Base() string

	// Location returns the current location without the base.
	Location() string

	// Position returns the index of the current entry in the stack.
	Position() int

	// Push appends a new entry after the current one. Forward entries are
	// discarded, as browsers do.
	Push(to string) error

	// Replace overwrites the current entry.
	Replace(to string) error

	// Go moves delta entries through the stack. The move is reported to
	// listeners as a PopEvent, possibly after Go has returned.
	Go(delta int)

	// Back is Go(-1).
	Back()

	// Forward is Go(1).
	Forward()

	// Listen registers a pop handler and returns its removal function.
	Listen(fn PopHandler) (unlisten func())

	// Href returns the platform href for an in-app location.
	Href(location string) string

	// Close releases the history. Listeners are dropped.
	Close() error
}

// BaseReporter is implemented by histories whose platform location can lie
// outside the base path, such as a browser sharing its origin with other
// applications.
type BaseReporter interface {
	// OutsideBase reports whether the current location is outside the base.
	OutsideBase() bool
}

// listeners is a registry of pop handlers safe for concurrent use.
type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]PopHandler
	order  []int
}

func (l *listeners) add(fn PopHandler) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]PopHandler)
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns, id)
			for i, v := range l.order {
				if v == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
		})
	}
}

// emit calls every handler in registration order. Handlers run without
// the registry lock held so they may unlisten themselves.
func (l *listeners) emit(ev PopEvent) {
	l.mu.Lock()
	fns := make([]PopHandler, 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (l *listeners) clear() {
	l.mu.Lock()
	l.fns = nil
	l.order = nil
	l.mu.Unlock()
}

func (l *listeners) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}
