package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/navroute/pkg/routepath"
)

// Wire operations exchanged with the browser client.
const (
	// server -> client
	OpPush    = "push"
	OpReplace = "replace"
	OpGo      = "go"

	// client -> server
	OpHello    = "hello"
	OpPop      = "pop"
	OpNavigate = "navigate"
)

// Message is the JSON frame of the remote history protocol.
type Message struct {
	Op       string `json:"op"`
	Href     string `json:"href,omitempty"`
	Delta    int    `json:"delta,omitempty"`
	Position int    `json:"position"`
	Replace  bool   `json:"replace,omitempty"`
}

// NavigateHandler receives navigation requests initiated by the client,
// typically a click on an in-app link.
type NavigateHandler func(location string, replace bool)

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) RemoteOption {
	return func(r *Remote) {
		r.logger = l
	}
}

// WithWriteTimeout bounds each frame write. Defaults to 10s.
func WithWriteTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		r.writeTimeout = d
	}
}

// WithNavigateHandler sets the handler for client navigate requests.
func WithNavigateHandler(fn NavigateHandler) RemoteOption {
	return func(r *Remote) {
		r.onNavigate = fn
	}
}

// Remote mirrors a browser history over a WebSocket connection.
//
// Push and Replace tell the browser to move and update the mirrored
// location once the command is written. Go only sends the command: the browser answers
// with a pop frame once its popstate fires, and that frame is delivered to
// listeners from Run.
type Remote struct {
	conn         *websocket.Conn
	base         string
	logger       *slog.Logger
	writeTimeout time.Duration
	onNavigate   NavigateHandler
	listeners    listeners

	writeMu sync.Mutex

	mu       sync.Mutex
	location string
	pos      int
	outside  bool
	closed   bool

	closeOnce sync.Once
}

var (
	_ History      = (*Remote)(nil)
	_ BaseReporter = (*Remote)(nil)
)

// NewRemote wraps an upgraded connection. The location is "/" until the
// client's hello frame is read by Handshake.
func NewRemote(conn *websocket.Conn, base string, opts ...RemoteOption) *Remote {
	r := &Remote{
		conn:         conn,
		base:         routepath.NormalizeBase(base),
		logger:       slog.Default(),
		writeTimeout: 10 * time.Second,
		location:     "/",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handshake reads the client's hello frame and adopts its href and
// position as the current entry.
func (r *Remote) Handshake(timeout time.Duration) error {
	if timeout > 0 {
		r.conn.SetReadDeadline(time.Now().Add(timeout))
		defer r.conn.SetReadDeadline(time.Time{})
	}

	msg, err := r.read()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if msg.Op != OpHello {
		return fmt.Errorf("%w: expected %q, got %q", ErrHandshake, OpHello, msg.Op)
	}

	loc, ok := r.strip(msg.Href)
	r.mu.Lock()
	r.location = loc
	r.outside = !ok
	r.pos = msg.Position
	r.mu.Unlock()
	return nil
}

// Run reads client frames until the connection closes or ctx is done.
// Pop frames are delivered to listeners on the calling goroutine.
func (r *Remote) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		r.Close()
	})
	defer stop()

	for {
		msg, err := r.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) && ctx.Err() == nil && !r.isClosed() {
				r.logger.Error("history read error", "error", err)
				return err
			}
			return nil
		}

		switch msg.Op {
		case OpPop:
			r.handlePop(msg)
		case OpNavigate:
			loc, ok := r.strip(msg.Href)
			if !ok {
				r.logger.Warn("navigate outside base ignored", "href", msg.Href, "base", r.base)
				continue
			}
			if r.onNavigate != nil {
				r.onNavigate(loc, msg.Replace)
			}
		case OpHello:
			r.logger.Warn("duplicate hello frame ignored")
		default:
			r.logger.Warn("unknown history frame", "op", msg.Op)
		}
	}
}

func (r *Remote) read() (Message, error) {
	var msg Message
	_, data, err := r.conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Warn("malformed history frame", "error", err)
		return Message{Op: ""}, nil
	}
	return msg, nil
}

func (r *Remote) handlePop(msg Message) {
	r.mu.Lock()
	from := r.location
	delta := msg.Delta
	if delta == 0 && msg.Position != r.pos {
		delta = msg.Position - r.pos
	}
	loc, ok := r.strip(msg.Href)
	r.location = loc
	r.outside = !ok
	r.pos = msg.Position
	ev := PopEvent{
		From:        from,
		To:          loc,
		Delta:       delta,
		Direction:   directionOf(delta),
		OutsideBase: !ok,
	}
	r.mu.Unlock()

	r.listeners.emit(ev)
}

// strip converts a browser href into an in-app location. Hrefs outside the
// base are kept as is and reported with ok == false.
func (r *Remote) strip(href string) (loc string, ok bool) {
	loc, ok = routepath.StripBase(r.base, href)
	if !ok {
		r.logger.Debug("href outside base", "href", href, "base", r.base)
	}
	if loc == "" {
		loc = "/"
	}
	return loc, ok
}

// Send writes a frame to the client. Writes are serialized.
func (r *Remote) Send(v any) error {
	if r.isClosed() {
		return ErrClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if r.writeTimeout > 0 {
		r.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	}
	return r.conn.WriteMessage(websocket.TextMessage, data)
}

func (r *Remote) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Remote) Base() string { return r.base }

func (r *Remote) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

func (r *Remote) Position() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// OutsideBase reports whether the browser's current href lies outside the
// base path.
func (r *Remote) OutsideBase() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outside
}

func (r *Remote) Push(to string) error {
	return r.move(OpPush, to)
}

func (r *Remote) Replace(to string) error {
	return r.move(OpReplace, to)
}

// move sends a push or replace command and adopts to as the current entry
// only once the command was written.
func (r *Remote) move(op, to string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	pos := r.pos
	if op == OpPush {
		pos++
	}
	r.mu.Unlock()

	if err := r.Send(Message{Op: op, Href: r.Href(to), Position: pos}); err != nil {
		return err
	}

	r.mu.Lock()
	r.location = to
	r.pos = pos
	r.outside = false
	r.mu.Unlock()
	return nil
}

func (r *Remote) Go(delta int) {
	if delta == 0 {
		return
	}
	if err := r.Send(Message{Op: OpGo, Delta: delta}); err != nil && err != ErrClosed {
		r.logger.Error("history go failed", "delta", delta, "error", err)
	}
}

func (r *Remote) Back()    { r.Go(-1) }
func (r *Remote) Forward() { r.Go(1) }

func (r *Remote) Listen(fn PopHandler) func() {
	return r.listeners.add(fn)
}

func (r *Remote) Href(location string) string {
	return routepath.JoinBase(r.base, location)
}

// Close sends a close frame and closes the connection.
func (r *Remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		r.listeners.clear()

		r.writeMu.Lock()
		r.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		r.writeMu.Unlock()
		err = r.conn.Close()
	})
	return err
}
