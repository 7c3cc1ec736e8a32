package shell

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/navroute/internal/errors"
	"github.com/vango-dev/navroute/pkg/history"
	"github.com/vango-dev/navroute/pkg/middleware"
	"github.com/vango-dev/navroute/pkg/navigation"
	"github.com/vango-dev/navroute/pkg/routepath"
	"github.com/vango-dev/navroute/pkg/router"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address for Run.
	Addr string

	// Base is the deployment base path.
	Base string

	// Title is the shell page title.
	Title string

	// NotFound is the view reported for unmatched paths.
	NotFound string

	// MetricsPath serves Prometheus metrics. Empty disables metrics.
	MetricsPath string

	HandshakeTimeout time.Duration
	ShutdownTimeout  time.Duration

	// CheckOrigin validates WebSocket origins. Nil uses the gorilla
	// default, which requires a same-host Origin.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		Title:            "navroute",
		MetricsPath:      "/metrics",
		HandshakeTimeout: 5 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Server is the shell HTTP server.
type Server struct {
	table    atomic.Pointer[router.Table]
	config   Config
	base     string
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *middleware.Metrics
	navMW    []navigation.Middleware
	upgrader websocket.Upgrader
	handler  http.Handler

	mu         sync.Mutex
	sessions   map[*history.Remote]struct{}
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry sets the Prometheus registry metrics are registered on.
// Defaults to a fresh registry with Go and process collectors.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithNavigationMiddleware appends middleware to every controller the
// server creates.
func WithNavigationMiddleware(mw ...navigation.Middleware) Option {
	return func(s *Server) {
		s.navMW = append(s.navMW, mw...)
	}
}

// New creates a server for table.
func New(table *router.Table, config Config, opts ...Option) *Server {
	defaults := DefaultConfig()
	if config.Title == "" {
		config.Title = defaults.Title
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	s := &Server{
		config:   config,
		base:     routepath.NormalizeBase(config.Base),
		logger:   slog.Default(),
		sessions: make(map[*history.Remote]struct{}),
	}
	s.table.Store(table)
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "shell")

	if config.MetricsPath != "" {
		if s.registry == nil {
			s.registry = prometheus.NewRegistry()
			s.registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}
		s.metrics = middleware.Prometheus(middleware.WithRegistry(s.registry))
		s.navMW = append([]navigation.Middleware{s.metrics}, s.navMW...)
	}
	s.navMW = append(s.navMW, middleware.OpenTelemetry())

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     config.CheckOrigin,
	}
	s.handler = s.routes()
	return s
}

// Table returns the route table new navigations resolve against.
func (s *Server) Table() *router.Table {
	return s.table.Load()
}

// SetTable swaps the route table. Connected sessions keep the table they
// started with; new sessions and shell requests use t.
func (s *Server) SetTable(t *router.Table) {
	s.table.Store(t)
	s.logger.Info("route table replaced", "routes", t.Len())
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	if s.registry != nil {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	app := func(r chi.Router) {
		r.Get("/_nav/resolve", s.handleResolve)
		r.Get("/_nav/ws", s.handleWebSocket)
		r.Get("/_nav/client.js", s.handleClient)
		r.Get("/*", s.handleShell)
	}
	if s.base == "" {
		app(r)
	} else {
		r.Route(s.base, app)
	}
	return r
}

// resolve runs an initial navigation to location on a throwaway
// controller and returns the resulting view.
func (s *Server) resolve(ctx context.Context, location string) (navigation.View, error) {
	ctrl := navigation.NewController(s.Table(), history.NewMemory(s.base, location), s.controllerOptions()...)
	defer ctrl.Close()
	if _, err := ctrl.Start(ctx); err != nil {
		return navigation.View{}, err
	}
	return ctrl.View(), nil
}

func (s *Server) controllerOptions(extra ...navigation.Option) []navigation.Option {
	opts := []navigation.Option{
		navigation.WithLogger(s.logger),
		navigation.WithMiddleware(s.navMW...),
	}
	if s.config.NotFound != "" {
		opts = append(opts, navigation.WithNotFound(s.config.NotFound))
	}
	return append(opts, extra...)
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	href := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		href += "?" + r.URL.RawQuery
	}
	location, ok := routepath.StripBase(s.base, href)
	if !ok {
		http.NotFound(w, r)
		return
	}

	view, err := s.resolve(r.Context(), location)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, errors.Classify(err, "N051"))
		return
	}

	page := shellPage{
		Title:     s.config.Title,
		ClientSrc: s.base + "/_nav/client.js",
		State:     newResolution(s.base, view),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if view.NotFound {
		w.WriteHeader(http.StatusNotFound)
	}
	if err := shellTemplate.Execute(w, page); err != nil {
		s.logger.Error("shell render failed", "path", location, "error", err)
	}
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("path")
	if target == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("N050").WithDetail("missing path query parameter"))
		return
	}
	loc, _, err := routepath.ValidateNavTarget(target)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Classify(err, "N001"))
		return
	}

	view, err := s.resolve(r.Context(), loc.FullPath())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, errors.Classify(err, "N051"))
		return
	}
	writeJSON(w, http.StatusOK, newResolution(s.base, view))
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(clientJS)
}

func (s *Server) writeError(w http.ResponseWriter, status int, e *errors.Error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", e)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(e.FormatJSON()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// requestLogger logs each request at debug level, errors at warn.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}

// Run listens on config.Addr until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Addr, "base", s.base, "routes", s.Table().Len())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return errors.New("N051").Wrap(err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	remotes := make([]*history.Remote, 0, len(s.sessions))
	for r := range s.sessions {
		remotes = append(remotes, r)
	}
	srv := s.httpServer
	s.mu.Unlock()

	for _, r := range remotes {
		r.Close()
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
