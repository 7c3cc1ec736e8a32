package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/navroute/pkg/history"
	"github.com/vango-dev/navroute/pkg/routepath"
	"github.com/vango-dev/navroute/pkg/router"
)

// Controller errors.
var (
	ErrClosed         = errors.New("navigation: controller closed")
	ErrAlreadyStarted = errors.New("navigation: controller already started")
)

// Controller orchestrates transitions between navigation states. It is
// safe for concurrent use; transitions are committed one at a time in the
// order they acquire the controller.
type Controller struct {
	table      *router.Table
	hist       history.History
	outlet     Outlet
	notFound   any
	logger     *slog.Logger
	middleware []Middleware

	mu       sync.Mutex
	state    State
	started  bool
	closed   bool
	unlisten func()
	subs     map[int]func(State)
	subOrder []int
	nextSub  int

	renderMu  sync.Mutex
	rendering bool
	rendered  uint64
	pending   *pendingRender
}

// pendingRender is the newest committed state waiting to be mounted.
type pendingRender struct {
	ctx   context.Context
	state State
}

// NewController creates a controller over table and hist. The controller
// is Unresolved until Start.
func NewController(table *router.Table, hist history.History, opts ...Option) *Controller {
	c := &Controller{
		table:  table,
		hist:   hist,
		logger: slog.Default(),
		subs:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns the route table.
func (c *Controller) Table() *router.Table {
	return c.table
}

// History returns the history adapter.
func (c *Controller) History() history.History {
	return c.hist
}

// Start subscribes to history pops and resolves the history's current
// location. A non-canonical location is replaced by its canonical form.
func (c *Controller) Start(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return State{}, ErrClosed
	}
	if c.started {
		s := c.state.clone()
		c.mu.Unlock()
		return s, ErrAlreadyStarted
	}
	c.started = true
	c.unlisten = c.hist.Listen(c.onPop)
	c.mu.Unlock()

	outside := false
	if br, ok := c.hist.(history.BaseReporter); ok {
		outside = br.OutsideBase()
	}
	return c.transition(ctx, ModeInitial, c.hist.Location(), outside)
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// View returns the render decision for the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return viewFor(c.state.clone(), c.notFound)
}

// Navigate moves to the in-app location to. By default a history entry is
// pushed; WithReplace overwrites the current one.
func (c *Controller) Navigate(ctx context.Context, to string, opts ...NavigateOption) (State, error) {
	var o NavigateOptions
	for _, opt := range opts {
		opt(&o)
	}

	loc, _, err := routepath.ValidateNavTarget(to)
	if err != nil {
		return c.State(), fmt.Errorf("navigation: %q: %w", to, err)
	}
	if len(o.Query) > 0 {
		q := loc.Values()
		for k, vs := range o.Query {
			q[k] = vs
		}
		loc.Query = q.Encode()
	}
	if o.Hash != "" {
		loc.Hash = o.Hash
	}

	mode := ModePush
	if o.Replace {
		mode = ModeReplace
	}
	return c.transition(ctx, mode, loc.FullPath(), false)
}

// Push is Navigate without options.
func (c *Controller) Push(ctx context.Context, to string) (State, error) {
	return c.Navigate(ctx, to)
}

// Replace is Navigate with WithReplace.
func (c *Controller) Replace(ctx context.Context, to string) (State, error) {
	return c.Navigate(ctx, to, WithReplace())
}

// NavigateNamed resolves the named route with params and navigates to it.
func (c *Controller) NavigateNamed(ctx context.Context, name string, params map[string]string, opts ...NavigateOption) (State, error) {
	path, err := c.table.Resolve(name, params)
	if err != nil {
		return c.State(), err
	}
	return c.Navigate(ctx, path, opts...)
}

// Go moves delta entries through the history. The resulting pop drives the
// transition, possibly after Go returns.
func (c *Controller) Go(delta int) {
	if c.isClosed() {
		return
	}
	c.hist.Go(delta)
}

// Back is Go(-1).
func (c *Controller) Back() { c.Go(-1) }

// Forward is Go(1).
func (c *Controller) Forward() { c.Go(1) }

// Subscribe registers fn to run after every committed transition, once the
// view has been mounted. It returns the removal function.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subOrder = append(c.subOrder, id)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[id]; !ok {
			return
		}
		delete(c.subs, id)
		for i, v := range c.subOrder {
			if v == id {
				c.subOrder = append(c.subOrder[:i], c.subOrder[i+1:]...)
				break
			}
		}
	}
}

// Close stops listening to the history and closes it.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unlisten := c.unlisten
	c.mu.Unlock()

	if unlisten != nil {
		unlisten()
	}
	return c.hist.Close()
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) onPop(ev history.PopEvent) {
	c.logger.Debug("history pop", "from", ev.From, "to", ev.To, "delta", ev.Delta, "direction", string(ev.Direction))
	if _, err := c.transition(context.Background(), ModePop, ev.To, ev.OutsideBase); err != nil {
		c.logger.Error("pop navigation failed", "to", ev.To, "error", err)
	}
}

// transition runs one navigation: history update, match, commit, mount.
// An outside location is an href beyond the base path; it is committed
// unmatched and never rewritten in the history.
func (c *Controller) transition(ctx context.Context, mode Mode, to string, outside bool) (State, error) {
	loc, changed, err := routepath.Canonicalize(to)
	if outside {
		changed = false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return State{}, ErrClosed
	}
	from := c.state

	if err != nil {
		if mode != ModeInitial && mode != ModePop {
			c.mu.Unlock()
			return from.clone(), fmt.Errorf("navigation: %q: %w", to, err)
		}
		// The platform handed us a location we cannot parse. Keep it
		// verbatim and resolve it as unmatched.
		c.logger.Warn("unusable location", "location", to, "error", err)
		loc = routepath.Location{Path: to}
		changed = false
	}

	full := loc.FullPath()
	if from.Status != StatusUnresolved && !from.OutsideBase && (mode == ModePush || mode == ModeReplace) && full == from.FullPath {
		c.mu.Unlock()
		c.logger.Debug("navigation to current location ignored", "path", full, "mode", string(mode))
		return from.clone(), nil
	}

	t := &Transition{Mode: mode, From: from.clone(), To: full}
	err = chain(ctx, c.middleware, t, func() error {
		switch {
		case mode == ModePush:
			if err := c.hist.Push(full); err != nil {
				return fmt.Errorf("navigation: history push: %w", err)
			}
		case mode == ModeReplace, mode == ModeInitial && changed:
			if err := c.hist.Replace(full); err != nil {
				return fmt.Errorf("navigation: history replace: %w", err)
			}
		}
		c.commit(t, loc, outside)
		return nil
	})

	state := c.state.clone()
	c.mu.Unlock()

	if t.committed {
		c.render(ctx, state)
	}
	if err != nil {
		c.logger.Error("navigation failed", "to", full, "mode", string(mode), "error", err)
	}
	return state, err
}

// commit matches loc and stores the new state. Called with c.mu held.
func (c *Controller) commit(t *Transition, loc routepath.Location, outside bool) {
	next := State{
		Path:        loc.Path,
		FullPath:    loc.FullPath(),
		Query:       loc.Values(),
		Hash:        loc.Hash,
		Position:    c.hist.Position(),
		Seq:         c.state.Seq + 1,
		OutsideBase: outside,
	}

	if outside {
		next.Status = StatusUnmatched
		c.logger.Warn("location outside base", "mode", string(t.Mode), "path", next.Path, "base", c.hist.Base())
	} else if m, ok := c.table.Match(loc.Path); ok {
		next.Status = StatusMatched
		next.Match = m
		c.logger.Debug("navigation",
			"mode", string(t.Mode),
			"from", t.From.FullPath,
			"to", next.FullPath,
			"route", m.Route.Name,
			"status", next.Status.String(),
		)
	} else {
		next.Status = StatusUnmatched
		c.logger.Warn("no route matched", "mode", string(t.Mode), "path", next.Path)
	}

	c.state = next
	t.Result = next.clone()
	t.committed = true
}

// render mounts the view for state and notifies subscribers. Only one
// goroutine renders at a time; states committed meanwhile, including by an
// outlet or subscriber that navigates, are queued and the newest one is
// rendered once the current callbacks return. Superseded states are
// skipped. No lock is held while callbacks run.
func (c *Controller) render(ctx context.Context, state State) {
	c.renderMu.Lock()
	if state.Seq > c.rendered && (c.pending == nil || state.Seq > c.pending.state.Seq) {
		c.pending = &pendingRender{ctx: ctx, state: state}
	}
	if c.rendering {
		c.renderMu.Unlock()
		return
	}
	c.rendering = true
	defer func() {
		if r := recover(); r != nil {
			c.renderMu.Lock()
			c.rendering = false
			c.renderMu.Unlock()
			panic(r)
		}
	}()

	for c.pending != nil {
		p := c.pending
		c.pending = nil
		if p.state.Seq <= c.rendered {
			continue
		}
		c.rendered = p.state.Seq
		c.renderMu.Unlock()

		if c.outlet != nil {
			c.outlet.Mount(p.ctx, viewFor(p.state, c.notFound))
		}
		for _, fn := range c.subscribers() {
			fn(p.state.clone())
		}

		c.renderMu.Lock()
	}
	c.rendering = false
	c.renderMu.Unlock()
}

func (c *Controller) subscribers() []func(State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := make([]func(State), 0, len(c.subOrder))
	for _, id := range c.subOrder {
		subs = append(subs, c.subs[id])
	}
	return subs
}
