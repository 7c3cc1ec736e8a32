package shell

import (
	"github.com/vango-dev/navroute/pkg/navigation"
	"github.com/vango-dev/navroute/pkg/routepath"
)

// Resolution is the JSON form of a view. It is embedded in the shell,
// returned by the resolve endpoint and sent as render frames.
type Resolution struct {
	Op       string            `json:"op,omitempty"`
	Base     string            `json:"base"`
	Path     string            `json:"path"`
	FullPath string            `json:"fullPath"`
	Href     string            `json:"href"`
	Status   string            `json:"status"`
	Route    string            `json:"route,omitempty"`
	View     any               `json:"view,omitempty"`
	Params   map[string]string `json:"params"`
	Props    map[string]string `json:"props,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
	NotFound bool              `json:"notFound,omitempty"`
	Position int               `json:"position"`
}

func newResolution(base string, v navigation.View) Resolution {
	s := v.State
	res := Resolution{
		Base:     base,
		Path:     s.Path,
		FullPath: s.FullPath,
		Href:     routepath.JoinBase(base, s.FullPath),
		Status:   s.Status.String(),
		Route:    s.RouteName(),
		View:     v.Target,
		Params:   s.Params(),
		Props:    v.Props,
		NotFound: v.NotFound,
		Position: s.Position,
	}
	if v.Route != nil {
		res.Meta = v.Route.Meta
	}
	return res
}
