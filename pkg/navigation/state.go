package navigation

import (
	"net/url"

	"github.com/vango-dev/navroute/pkg/router"
)

// Status is the controller state machine position.
type Status int

const (
	// StatusUnresolved is the state before the first navigation.
	StatusUnresolved Status = iota

	// StatusMatched means the current path resolved to a route.
	StatusMatched

	// StatusUnmatched means no route matched the current path.
	StatusUnmatched
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusMatched:
		return "matched"
	case StatusUnmatched:
		return "unmatched"
	default:
		return "unknown"
	}
}

// State is the navigation state of an application instance.
type State struct {
	Status Status

	// Path is the canonical path of the current location.
	Path string

	// FullPath is Path with query and hash.
	FullPath string

	Query url.Values
	Hash  string

	// Match is nil unless Status is StatusMatched.
	Match *router.Match

	// OutsideBase is set when the platform location lies outside the base
	// path. Such a location is always unmatched and Path holds the raw href.
	OutsideBase bool

	// Position is the history stack index of the current entry.
	Position int

	// Seq increases by one with every committed transition.
	Seq uint64
}

// Route returns the matched route or nil.
func (s State) Route() *router.Route {
	if s.Match == nil {
		return nil
	}
	return s.Match.Route
}

// RouteName returns the matched route name or "".
func (s State) RouteName() string {
	if r := s.Route(); r != nil {
		return r.Name
	}
	return ""
}

// Params returns the matched params. Never nil.
func (s State) Params() map[string]string {
	if s.Match == nil || s.Match.Params == nil {
		return map[string]string{}
	}
	return s.Match.Params
}

// clone returns a deep copy safe to hand to callers.
func (s State) clone() State {
	s.Match = s.Match.Clone()
	if s.Query != nil {
		q := make(url.Values, len(s.Query))
		for k, v := range s.Query {
			q[k] = append([]string(nil), v...)
		}
		s.Query = q
	}
	return s
}

// Mode is how a transition was triggered.
type Mode string

const (
	ModeInitial Mode = "initial"
	ModePush    Mode = "push"
	ModeReplace Mode = "replace"
	ModePop     Mode = "pop"
)

// Transition describes one navigation while it runs through middleware.
type Transition struct {
	Mode Mode

	// From is the state before the transition.
	From State

	// To is the requested location (canonical, with query and hash).
	To string

	// Result is the committed state. Zero until next() has run.
	Result State

	committed bool
}

// Committed reports whether the transition changed the state.
func (t *Transition) Committed() bool {
	return t.committed
}
