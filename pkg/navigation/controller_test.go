package navigation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/navroute/pkg/history"
	"github.com/vango-dev/navroute/pkg/router"
)

type view string

const (
	homeView       view = "HomeView"
	experimentView view = "ExperimentView"
	reportView     view = "ReportView"
	notFoundView   view = "NotFoundView"
)

func testTable(t *testing.T) *router.Table {
	t.Helper()
	table, err := router.NewTable(
		router.Route{Path: "/", Name: "home", Target: homeView},
		router.Route{Path: "/experiment/:name", Name: "experiment", Target: experimentView, Props: true},
		router.Route{Path: "/report/:id", Name: "report", Target: reportView},
	)
	if err != nil {
		t.Fatalf("NewTable() error: %v", err)
	}
	return table
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingOutlet keeps every mounted view.
type recordingOutlet struct {
	mu    sync.Mutex
	views []View
}

func (o *recordingOutlet) Mount(_ context.Context, v View) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.views = append(o.views, v)
}

func (o *recordingOutlet) last(t *testing.T) View {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.views) == 0 {
		t.Fatal("no view mounted")
	}
	return o.views[len(o.views)-1]
}

func (o *recordingOutlet) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.views)
}

func newTestController(t *testing.T, hist history.History, opts ...Option) (*Controller, *recordingOutlet) {
	t.Helper()
	outlet := &recordingOutlet{}
	opts = append([]Option{WithOutlet(outlet), WithLogger(quietLogger())}, opts...)
	c := NewController(testTable(t), hist, opts...)
	t.Cleanup(func() { c.Close() })
	return c, outlet
}

func TestControllerUnresolvedBeforeStart(t *testing.T) {
	c, outlet := newTestController(t, history.NewMemory("", "/"))
	if s := c.State(); s.Status != StatusUnresolved || s.Match != nil {
		t.Errorf("State() = %+v, want unresolved", s)
	}
	if outlet.count() != 0 {
		t.Error("outlet mounted before Start")
	}
	if v := c.View(); !v.NotFound {
		t.Error("View() before Start should be NotFound")
	}
}

func TestControllerStartHome(t *testing.T) {
	c, outlet := newTestController(t, history.NewMemory("", "/"))

	s, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if s.Status != StatusMatched || s.RouteName() != "home" {
		t.Fatalf("state = %+v", s)
	}
	if len(s.Params()) != 0 {
		t.Errorf("params = %v, want none", s.Params())
	}

	v := outlet.last(t)
	if v.Target != homeView || v.Props != nil || v.NotFound {
		t.Errorf("view = %+v", v)
	}

	if _, err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start err = %v", err)
	}
}

func TestControllerPushExperimentProps(t *testing.T) {
	hist := history.NewMemory("", "/")
	c, outlet := newTestController(t, hist)
	c.Start(context.Background())

	s, err := c.Push(context.Background(), "/experiment/alpha-test")
	if err != nil {
		t.Fatalf("Push() error: %v", err)
	}
	if s.Status != StatusMatched || s.RouteName() != "experiment" {
		t.Fatalf("state = %+v", s)
	}
	if s.Params()["name"] != "alpha-test" {
		t.Errorf("params = %v", s.Params())
	}
	if s.Position != 1 {
		t.Errorf("Position = %d, want 1", s.Position)
	}

	v := outlet.last(t)
	if v.Target != experimentView {
		t.Errorf("Target = %v", v.Target)
	}
	if !reflect.DeepEqual(v.Props, map[string]string{"name": "alpha-test"}) {
		t.Errorf("Props = %v", v.Props)
	}
	if !reflect.DeepEqual(hist.Entries(), []string{"/", "/experiment/alpha-test"}) {
		t.Errorf("Entries() = %v", hist.Entries())
	}
}

func TestControllerParamsWithoutProps(t *testing.T) {
	c, outlet := newTestController(t, history.NewMemory("", "/"))
	c.Start(context.Background())

	s, _ := c.Push(context.Background(), "/report/42")
	v := outlet.last(t)
	if v.Target != reportView || v.Props != nil {
		t.Errorf("view = %+v, want no props", v)
	}
	if s.Params()["id"] != "42" || v.State.Params()["id"] != "42" {
		t.Errorf("params not available from state: %v", s.Params())
	}
}

func TestControllerUnmatched(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		wantView any
	}{
		{name: "render nothing", wantView: nil},
		{name: "fallback", opts: []Option{WithNotFound(notFoundView)}, wantView: notFoundView},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, outlet := newTestController(t, history.NewMemory("", "/"), tt.opts...)
			c.Start(context.Background())

			s, err := c.Push(context.Background(), "/experiment/")
			if err != nil {
				t.Fatalf("Push() error: %v", err)
			}
			if s.Status != StatusUnmatched || s.Match != nil {
				t.Fatalf("state = %+v, want unmatched", s)
			}
			if s.Path != "/experiment" {
				t.Errorf("Path = %q", s.Path)
			}
			v := outlet.last(t)
			if !v.NotFound || v.Target != tt.wantView || v.Route != nil {
				t.Errorf("view = %+v", v)
			}

			// Unmatched is not terminal.
			s, _ = c.Push(context.Background(), "/experiment/beta")
			if s.Status != StatusMatched {
				t.Errorf("status after recovery = %v", s.Status)
			}
		})
	}
}

func TestControllerReplaceIdempotent(t *testing.T) {
	hist := history.NewMemory("", "/experiment/alpha")
	c, outlet := newTestController(t, hist)
	before, _ := c.Start(context.Background())
	mounted := outlet.count()

	after, err := c.Replace(context.Background(), "/experiment/alpha")
	if err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	if after.Seq != before.Seq || after.Route() != before.Route() {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
	if outlet.count() != mounted {
		t.Error("outlet re-mounted for identical replace")
	}

	// Trailing slash is the same location.
	after, _ = c.Replace(context.Background(), "/experiment/alpha/")
	if after.Seq != before.Seq {
		t.Error("trailing slash variant treated as a new location")
	}

	// A duplicate push adds no history entry either.
	c.Push(context.Background(), "/experiment/alpha")
	if len(hist.Entries()) != 1 {
		t.Errorf("Entries() = %v", hist.Entries())
	}
}

func TestControllerReplaceOverwritesEntry(t *testing.T) {
	hist := history.NewMemory("", "/")
	c, _ := newTestController(t, hist)
	c.Start(context.Background())
	c.Push(context.Background(), "/experiment/a")
	s, _ := c.Replace(context.Background(), "/experiment/b")

	if !reflect.DeepEqual(hist.Entries(), []string{"/", "/experiment/b"}) {
		t.Errorf("Entries() = %v", hist.Entries())
	}
	if s.Position != 1 || s.Params()["name"] != "b" {
		t.Errorf("state = %+v", s)
	}
}

func TestControllerBackForward(t *testing.T) {
	hist := history.NewMemory("/app", "/")
	c, outlet := newTestController(t, hist)
	c.Start(context.Background())
	c.Push(context.Background(), "/experiment/a")
	c.Push(context.Background(), "/experiment/b")

	c.Back()
	s := c.State()
	if s.Params()["name"] != "a" || s.Position != 1 {
		t.Fatalf("after Back state = %+v", s)
	}
	if outlet.last(t).Props["name"] != "a" {
		t.Errorf("outlet not updated on pop")
	}

	c.Go(-1)
	if c.State().RouteName() != "home" {
		t.Errorf("after Go(-1) route = %q", c.State().RouteName())
	}

	c.Forward()
	c.Forward()
	if c.State().Params()["name"] != "b" {
		t.Errorf("after Forward state = %+v", c.State())
	}
	if hist.Href(c.State().FullPath) != "/app/experiment/b" {
		t.Errorf("Href() = %q", hist.Href(c.State().FullPath))
	}
}

func TestControllerStartCanonicalizes(t *testing.T) {
	hist := history.NewMemory("", "/experiment//alpha/")
	c, _ := newTestController(t, hist)
	s, err := c.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.Path != "/experiment/alpha" || s.Params()["name"] != "alpha" {
		t.Errorf("state = %+v", s)
	}
	if !reflect.DeepEqual(hist.Entries(), []string{"/experiment/alpha"}) {
		t.Errorf("Entries() = %v, want canonical replacement", hist.Entries())
	}
}

func TestControllerStartUnusableLocation(t *testing.T) {
	c, _ := newTestController(t, history.NewMemory("", "/a\\b"))
	s, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if s.Status != StatusUnmatched {
		t.Errorf("status = %v, want unmatched", s.Status)
	}
}

func TestControllerNavigateErrors(t *testing.T) {
	c, _ := newTestController(t, history.NewMemory("", "/"))
	before, _ := c.Start(context.Background())

	for _, to := range []string{"https://example.com/x", "//example.com", "/a\\b", "/../x"} {
		s, err := c.Push(context.Background(), to)
		if err == nil {
			t.Errorf("Push(%q) expected error", to)
		}
		if s.Seq != before.Seq {
			t.Errorf("Push(%q) changed state", to)
		}
	}
}

func TestControllerNavigateNamed(t *testing.T) {
	c, outlet := newTestController(t, history.NewMemory("", "/"))
	c.Start(context.Background())

	s, err := c.NavigateNamed(context.Background(), "experiment", map[string]string{"name": "alpha test"})
	if err != nil {
		t.Fatalf("NavigateNamed() error: %v", err)
	}
	if s.Path != "/experiment/alpha%20test" || outlet.last(t).Props["name"] != "alpha test" {
		t.Errorf("state = %+v", s)
	}

	if _, err := c.NavigateNamed(context.Background(), "nope", nil); !errors.Is(err, router.ErrUnknownRoute) {
		t.Errorf("err = %v, want ErrUnknownRoute", err)
	}
	if _, err := c.NavigateNamed(context.Background(), "experiment", nil); !errors.Is(err, router.ErrMissingParam) {
		t.Errorf("err = %v, want ErrMissingParam", err)
	}
}

func TestControllerQueryAndHash(t *testing.T) {
	hist := history.NewMemory("", "/")
	c, _ := newTestController(t, hist)
	c.Start(context.Background())

	s, err := c.Navigate(context.Background(), "/experiment/a?tab=1",
		WithQuery(url.Values{"sort": {"desc"}}),
		WithHash("results"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if s.Query.Get("tab") != "1" || s.Query.Get("sort") != "desc" || s.Hash != "results" {
		t.Errorf("state = %+v", s)
	}
	if s.FullPath != "/experiment/a?sort=desc&tab=1#results" {
		t.Errorf("FullPath = %q", s.FullPath)
	}
	if hist.Location() != s.FullPath {
		t.Errorf("history location = %q", hist.Location())
	}
}

func TestControllerSubscribe(t *testing.T) {
	c, _ := newTestController(t, history.NewMemory("", "/"))

	var seen []string
	unsubscribe := c.Subscribe(func(s State) { seen = append(seen, s.FullPath) })
	c.Start(context.Background())
	c.Push(context.Background(), "/experiment/a")
	unsubscribe()
	unsubscribe()
	c.Push(context.Background(), "/experiment/b")

	if !reflect.DeepEqual(seen, []string{"/", "/experiment/a"}) {
		t.Errorf("seen = %v", seen)
	}
}

func TestControllerStateIsSnapshot(t *testing.T) {
	c, _ := newTestController(t, history.NewMemory("", "/experiment/a"))
	c.Start(context.Background())

	s := c.State()
	s.Match.Params["name"] = "mutated"
	if c.State().Params()["name"] != "a" {
		t.Error("State() exposes internal params map")
	}
}

func TestControllerClose(t *testing.T) {
	hist := history.NewMemory("", "/")
	c, _ := newTestController(t, hist)
	c.Start(context.Background())

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Push(context.Background(), "/experiment/a"); !errors.Is(err, ErrClosed) {
		t.Errorf("Push after Close err = %v", err)
	}
	if _, err := c.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close err = %v", err)
	}
	c.Back() // no panic, no effect
	if err := c.Close(); err != nil {
		t.Errorf("second Close err = %v", err)
	}
}

// failingHistory fails every Push.
type failingHistory struct {
	*history.Memory
}

func (failingHistory) Push(string) error { return errors.New("quota exceeded") }

func TestControllerHistoryFailure(t *testing.T) {
	c, outlet := newTestController(t, failingHistory{history.NewMemory("", "/")})
	before, _ := c.Start(context.Background())
	mounted := outlet.count()

	s, err := c.Push(context.Background(), "/experiment/a")
	if err == nil {
		t.Fatal("expected error from history push")
	}
	if s.Seq != before.Seq || s.RouteName() != "home" {
		t.Errorf("state changed on failure: %+v", s)
	}
	if outlet.count() != mounted {
		t.Error("outlet mounted on failure")
	}
}

func TestControllerConcurrentNavigation(t *testing.T) {
	hist := history.NewMemory("", "/")
	c, outlet := newTestController(t, hist)
	c.Start(context.Background())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Push(context.Background(), fmt.Sprintf("/experiment/e%d", i))
		}(i)
	}
	wg.Wait()

	s := c.State()
	if s.Seq != n+1 {
		t.Errorf("Seq = %d, want %d", s.Seq, n+1)
	}
	if len(hist.Entries()) != n+1 {
		t.Errorf("entries = %d, want %d", len(hist.Entries()), n+1)
	}
	if hist.Location() != s.FullPath {
		t.Errorf("history %q and state %q diverged", hist.Location(), s.FullPath)
	}
	if v := outlet.last(t); v.State.Seq != s.Seq {
		t.Errorf("last mounted seq = %d, want %d", v.State.Seq, s.Seq)
	}
}

func TestControllerOutletRedirects(t *testing.T) {
	hist := history.NewMemory("", "/")
	rec := &recordingOutlet{}
	var c *Controller
	redirect := OutletFunc(func(ctx context.Context, v View) {
		rec.Mount(ctx, v)
		if v.NotFound {
			if _, err := c.Replace(ctx, "/"); err != nil {
				t.Errorf("Replace() from Mount error: %v", err)
			}
		}
	})
	c, _ = newTestController(t, hist, WithOutlet(redirect))
	c.Start(context.Background())

	within(t, 2*time.Second, func() {
		c.Push(context.Background(), "/nope")
	})

	s := c.State()
	if s.RouteName() != "home" {
		t.Fatalf("route = %q, want home", s.RouteName())
	}
	if !reflect.DeepEqual(hist.Entries(), []string{"/", "/"}) {
		t.Errorf("entries = %v", hist.Entries())
	}
	if rec.count() != 3 {
		t.Errorf("mounted %d views, want 3", rec.count())
	}
	if v := rec.last(t); v.Target != homeView || v.State.Seq != s.Seq {
		t.Errorf("last view = %+v", v)
	}
}

func TestControllerSubscriberGoesBack(t *testing.T) {
	hist := history.NewMemory("", "/")
	c, outlet := newTestController(t, hist)
	c.Start(context.Background())
	c.Push(context.Background(), "/experiment/a")

	var seen []string
	c.Subscribe(func(s State) {
		seen = append(seen, s.Path)
		if s.Status == StatusUnmatched {
			c.Back()
		}
	})

	within(t, 2*time.Second, func() {
		c.Push(context.Background(), "/nope")
	})

	s := c.State()
	if s.Params()["name"] != "a" || s.Position != 1 {
		t.Fatalf("state = %+v", s)
	}
	if !reflect.DeepEqual(seen, []string{"/nope", "/experiment/a"}) {
		t.Errorf("subscriber saw %v", seen)
	}
	if v := outlet.last(t); v.Props["name"] != "a" {
		t.Errorf("last view = %+v", v)
	}
}

// outsideHistory reports its location as lying outside the base path.
type outsideHistory struct {
	*history.Memory
	outside bool
}

func (h *outsideHistory) OutsideBase() bool { return h.outside }

func TestControllerLocationOutsideBase(t *testing.T) {
	hist := &outsideHistory{Memory: history.NewMemory("/app", "/experiment/outside/"), outside: true}
	c, outlet := newTestController(t, hist)

	s, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if s.Status != StatusUnmatched || !s.OutsideBase || s.Match != nil {
		t.Fatalf("state = %+v, want unmatched outside base", s)
	}
	if !outlet.last(t).NotFound {
		t.Error("outlet did not receive the not-found view")
	}
	if !reflect.DeepEqual(hist.Entries(), []string{"/experiment/outside/"}) {
		t.Errorf("outside location was rewritten: %v", hist.Entries())
	}

	// The same path inside the base is a different location.
	s, err = c.Push(context.Background(), "/experiment/outside")
	if err != nil {
		t.Fatalf("Push() error: %v", err)
	}
	if s.RouteName() != "experiment" || s.OutsideBase {
		t.Errorf("state = %+v", s)
	}

	c.onPop(history.PopEvent{From: "/experiment/outside", To: "/experiment/other", Delta: -1, OutsideBase: true})
	if s := c.State(); s.Status != StatusUnmatched || !s.OutsideBase {
		t.Errorf("after outside pop state = %+v", s)
	}
}
