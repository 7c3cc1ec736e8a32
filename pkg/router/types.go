package router

// Route is one entry of the route table.
type Route struct {
	// Path is the pattern, e.g. "/experiment/:name".
	Path string

	// Name identifies the route for named navigation. Unique per table.
	Name string

	// Target is the view rendered for this route. The router never
	// inspects it.
	Target any

	// Props delivers the extracted params to the view as named inputs.
	// When false the view reads them from the navigation state.
	Props bool

	// Meta is free-form data attached to the route.
	Meta map[string]string
}

// Match is the result of matching a path against a Table.
type Match struct {
	// Route is the matched table entry.
	Route *Route

	// Params maps dynamic segment names to their decoded values.
	Params map[string]string

	// Path is the canonical path that matched.
	Path string
}

// Param returns a single parameter value, or "" when absent.
func (m *Match) Param(name string) string {
	if m == nil {
		return ""
	}
	return m.Params[name]
}

// Clone returns a copy whose Params map can be modified freely.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	params := make(map[string]string, len(m.Params))
	for k, v := range m.Params {
		params[k] = v
	}
	return &Match{Route: m.Route, Params: params, Path: m.Path}
}
