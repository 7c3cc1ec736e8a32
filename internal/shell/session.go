package shell

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vango-dev/navroute/internal/errors"
	"github.com/vango-dev/navroute/pkg/history"
	"github.com/vango-dev/navroute/pkg/navigation"
)

// errorFrame reports a rejected client navigation.
type errorFrame struct {
	Op      string `json:"op"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// handleWebSocket runs one remote history session: handshake, initial
// navigation, then client frames until disconnect.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(64 << 10)

	// Navigation outlives the request context, which the server cancels
	// once the handler returns.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	logger := s.logger.With("remote_addr", r.RemoteAddr)

	var (
		ctrl   *navigation.Controller
		remote *history.Remote
	)
	remote = history.NewRemote(conn, s.base,
		history.WithLogger(logger),
		history.WithNavigateHandler(func(location string, replace bool) {
			var opts []navigation.NavigateOption
			if replace {
				opts = append(opts, navigation.WithReplace())
			}
			if _, err := ctrl.Navigate(ctx, location, opts...); err != nil {
				e := errors.Classify(err, "N001")
				logger.Warn("client navigation rejected", "location", location, "error", err)
				sendFrame(remote, errorFrame{Op: "error", Code: e.Code, Message: e.Error()}, logger)
			}
		}),
	)
	if err := remote.Handshake(s.config.HandshakeTimeout); err != nil {
		logger.Warn("handshake failed", "error", err)
		remote.Close()
		return
	}

	outlet := navigation.OutletFunc(func(_ context.Context, v navigation.View) {
		frame := newResolution(s.base, v)
		frame.Op = "render"
		sendFrame(remote, frame, logger)
	})
	ctrl = navigation.NewController(s.Table(), remote, s.controllerOptions(navigation.WithOutlet(outlet))...)

	s.track(remote, true)
	defer s.track(remote, false)
	defer ctrl.Close()

	state, err := ctrl.Start(ctx)
	if err != nil {
		logger.Error("session start failed", "error", err)
		return
	}
	logger.Info("session started", "location", state.FullPath, "status", state.Status.String())

	if err := remote.Run(ctx); err != nil {
		logger.Warn("session ended with error", "error", err)
		return
	}
	logger.Info("session ended")
}

func sendFrame(r *history.Remote, v any, logger *slog.Logger) {
	if err := r.Send(v); err != nil && err != history.ErrClosed {
		logger.Warn("frame send failed", "error", err)
	}
}

func (s *Server) track(r *history.Remote, add bool) {
	s.mu.Lock()
	if add {
		s.sessions[r] = struct{}{}
	} else {
		delete(s.sessions, r)
	}
	s.mu.Unlock()

	if s.metrics == nil {
		return
	}
	if add {
		s.metrics.SessionStarted()
	} else {
		s.metrics.SessionEnded()
	}
}
