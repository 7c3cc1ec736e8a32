package navigation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vango-dev/navroute/pkg/router"
)

// View is the render decision for one navigation state.
type View struct {
	// Target is the route target, or the not-found fallback.
	Target any

	// Props holds the params as named inputs. Nil unless the route has
	// Props enabled.
	Props map[string]string

	// Route is nil when NotFound is set.
	Route *router.Route

	NotFound bool

	// State is the state the view was derived from.
	State State
}

// viewFor derives the View of a committed state.
func viewFor(s State, notFound any) View {
	v := View{State: s}
	if s.Status != StatusMatched {
		v.NotFound = true
		v.Target = notFound
		return v
	}
	v.Route = s.Match.Route
	v.Target = s.Match.Route.Target
	if s.Match.Route.Props {
		v.Props = make(map[string]string, len(s.Match.Params))
		for k, val := range s.Match.Params {
			v.Props[k] = val
		}
	}
	return v
}

// Outlet is the mount point the rendering layer provides.
type Outlet interface {
	Mount(ctx context.Context, v View)
}

// OutletFunc adapts a function to Outlet.
type OutletFunc func(ctx context.Context, v View)

// Mount implements Outlet.
func (f OutletFunc) Mount(ctx context.Context, v View) {
	f(ctx, v)
}

// Lazy is a target that becomes available later, such as a view whose
// code is loaded on demand. Mount it through an AsyncOutlet.
type Lazy func(ctx context.Context) (any, error)

// AsyncOutlet resolves Lazy targets before handing views to the wrapped
// outlet. Only the most recent navigation is ever mounted: a Lazy that
// completes after a newer view was requested is discarded.
//
// Lazy targets are resolved with a context detached from the navigation's
// cancellation, since the caller that triggered the navigation may return
// before the target is ready.
type AsyncOutlet struct {
	next   Outlet
	logger *slog.Logger

	mu       sync.Mutex
	latest   uint64
	mounting bool
	pending  *pendingMount

	wg sync.WaitGroup
}

type pendingMount struct {
	ctx    context.Context
	ticket uint64
	view   View
}

// NewAsyncOutlet wraps next. A nil logger uses slog.Default().
func NewAsyncOutlet(next Outlet, logger *slog.Logger) *AsyncOutlet {
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncOutlet{next: next, logger: logger}
}

// Mount implements Outlet.
func (o *AsyncOutlet) Mount(ctx context.Context, v View) {
	o.mu.Lock()
	o.latest++
	ticket := o.latest
	o.mu.Unlock()

	lazy, ok := v.Target.(Lazy)
	if !ok {
		o.mount(ctx, ticket, v)
		return
	}

	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		target, err := lazy(ctx)
		if err != nil {
			o.logger.Error("lazy view failed", "path", v.State.Path, "route", v.State.RouteName(), "error", err)
			return
		}
		v.Target = target
		o.mount(ctx, ticket, v)
	}()
}

// mount hands v to the wrapped outlet unless a newer view was requested.
// Views arriving while the wrapped outlet runs are queued, so an outlet
// that navigates from Mount does not re-enter itself.
func (o *AsyncOutlet) mount(ctx context.Context, ticket uint64, v View) {
	o.mu.Lock()
	if ticket != o.latest {
		o.mu.Unlock()
		o.logger.Debug("dropping superseded view", "path", v.State.Path, "seq", v.State.Seq)
		return
	}
	o.pending = &pendingMount{ctx: ctx, ticket: ticket, view: v}
	if o.mounting {
		o.mu.Unlock()
		return
	}
	o.mounting = true
	defer func() {
		if r := recover(); r != nil {
			o.mu.Lock()
			o.mounting = false
			o.mu.Unlock()
			panic(r)
		}
	}()

	for o.pending != nil {
		p := o.pending
		o.pending = nil
		if p.ticket != o.latest {
			o.logger.Debug("dropping superseded view", "path", p.view.State.Path, "seq", p.view.State.Seq)
			continue
		}
		o.mu.Unlock()
		o.next.Mount(p.ctx, p.view)
		o.mu.Lock()
	}
	o.mounting = false
	o.mu.Unlock()
}

// Wait blocks until every pending Lazy has finished.
func (o *AsyncOutlet) Wait() {
	o.wg.Wait()
}
