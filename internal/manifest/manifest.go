package manifest

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/vango-dev/navroute/internal/errors"
	"github.com/vango-dev/navroute/pkg/routepath"
	"github.com/vango-dev/navroute/pkg/router"
)

// Entry is one route in a manifest. View becomes the route's Target.
type Entry struct {
	Name  string            `json:"name"`
	Path  string            `json:"path"`
	View  string            `json:"view"`
	Props bool              `json:"props,omitempty"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// Manifest is a deployment base path and an ordered route list.
type Manifest struct {
	Base   string  `json:"base,omitempty"`
	Routes []Entry `json:"routes"`

	// Source is where the manifest was read from.
	Source string `json:"-"`
}

// Parse decodes a manifest. source names the origin in error messages.
func Parse(data []byte, source string) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		e := errors.New("N041").Wrap(err)
		var syntax *json.SyntaxError
		var typ *json.UnmarshalTypeError
		switch {
		case stderrors.As(err, &syntax):
			e.WithOffset(source, data, syntax.Offset)
		case stderrors.As(err, &typ):
			e.WithOffset(source, data, typ.Offset)
		}
		return nil, e
	}
	if m.Routes == nil {
		return nil, errors.New("N042").
			WithDetail(fmt.Sprintf("%s has no \"routes\" array", source)).
			WithSuggestion(`Add "routes": [{"name": "home", "path": "/", "view": "HomeView"}]`)
	}

	m.Base = routepath.NormalizeBase(m.Base)
	m.Source = source
	return &m, nil
}

// RouteDefinitions converts the entries to route definitions.
func (m *Manifest) RouteDefinitions() []router.Route {
	routes := make([]router.Route, len(m.Routes))
	for i, e := range m.Routes {
		routes[i] = router.Route{
			Path:   e.Path,
			Name:   e.Name,
			Target: e.View,
			Props:  e.Props,
			Meta:   e.Meta,
		}
	}
	return routes
}

// Table validates the entries and builds the route table.
func (m *Manifest) Table() (*router.Table, error) {
	for i, e := range m.Routes {
		if e.View == "" {
			return nil, errors.New("N042").
				WithDetail(fmt.Sprintf("route %d (%q) in %s has no view", i, e.Name, m.Source)).
				WithSuggestion(`Set "view" to the component the route renders`)
		}
	}

	table, err := router.NewTable(m.RouteDefinitions()...)
	if err != nil {
		return nil, errors.Classify(err, "N042").
			WithSuggestion("Fix the route in " + m.Source)
	}
	return table, nil
}
