package router

import (
	"fmt"

	"github.com/vango-dev/navroute/pkg/routepath"
)

// Table is an ordered, immutable set of routes. Order is match priority.
// A Table is safe for concurrent use.
type Table struct {
	routes   []Route
	patterns []*pattern
	byName   map[string]int
}

// NewTable compiles routes into a Table. It fails with *PatternError for an
// unusable pattern or a missing name and with *DuplicateNameError when two
// routes share a name. On error no Table is returned.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{
		routes:   make([]Route, len(routes)),
		patterns: make([]*pattern, len(routes)),
		byName:   make(map[string]int, len(routes)),
	}

	for i, r := range routes {
		if r.Name == "" {
			return nil, &PatternError{Index: i, Pattern: r.Path, Reason: "missing route name"}
		}
		if first, dup := t.byName[r.Name]; dup {
			return nil, &DuplicateNameError{Name: r.Name, First: first, Second: i}
		}

		p, err := compilePattern(r.Path)
		if err != nil {
			return nil, &PatternError{Index: i, Name: r.Name, Pattern: r.Path, Reason: err.Error()}
		}

		r.Meta = copyMeta(r.Meta)
		t.routes[i] = r
		t.patterns[i] = p
		t.byName[r.Name] = i
	}

	return t, nil
}

// MustTable is NewTable that panics on error. Intended for static tables
// declared at package level.
func MustTable(routes ...Route) *Table {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.routes)
}

// Routes returns the routes in match order. The slice is a copy.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// ByName returns the route registered under name. The pointer is stable
// for the life of the table and must not be modified.
func (t *Table) ByName(name string) (*Route, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return &t.routes[i], true
}

// Params returns the dynamic segment names of the named route in pattern
// order.
func (t *Table) Params(name string) ([]string, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), t.patterns[i].params...), true
}

// Match finds the first route matching path. Query and fragment are
// ignored. ok is false when nothing matches or the path is unusable.
func (t *Table) Match(path string) (*Match, bool) {
	canon, err := routepath.CanonicalizePath(path)
	if err != nil {
		return nil, false
	}
	segs := routepath.Segments(canon)

	for i, p := range t.patterns {
		if params, ok := p.match(segs); ok {
			return &Match{Route: &t.routes[i], Params: params, Path: canon}, true
		}
	}
	return nil, false
}

// Resolve builds the path of the named route from params. Params not used
// by the pattern are ignored.
func (t *Table) Resolve(name string, params map[string]string) (string, error) {
	i, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}
	path, err := t.patterns[i].build(params)
	if err != nil {
		return "", fmt.Errorf("route %q: %w", name, err)
	}
	return path, nil
}
