package shell

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/navroute/pkg/history"
)

func dial(t *testing.T, url, base string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(url, "http") + base + "/_nav/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	return frame
}

func TestSessionLifecycle(t *testing.T) {
	srv, ts := newTestServer(t, "/app")
	conn := dial(t, ts.URL, "/app")

	conn.WriteJSON(history.Message{Op: history.OpHello, Href: "/app/", Position: 0})
	frame := readFrame(t, conn)
	if frame["op"] != "render" || frame["route"] != "home" {
		t.Fatalf("initial frame = %v", frame)
	}

	conn.WriteJSON(history.Message{Op: history.OpNavigate, Href: "/app/experiment/x"})
	push := readFrame(t, conn)
	if push["op"] != history.OpPush || push["href"] != "/app/experiment/x" || push["position"] != float64(1) {
		t.Fatalf("push frame = %v", push)
	}
	render := readFrame(t, conn)
	props, _ := render["props"].(map[string]any)
	if render["op"] != "render" || render["view"] != "ExperimentView" || props["name"] != "x" {
		t.Fatalf("render frame = %v", render)
	}

	conn.WriteJSON(history.Message{Op: history.OpPop, Href: "/app/", Position: 0})
	back := readFrame(t, conn)
	if back["op"] != "render" || back["route"] != "home" || back["position"] != float64(0) {
		t.Fatalf("pop render frame = %v", back)
	}

	if srv.SessionCount() != 1 {
		t.Errorf("SessionCount() = %d, want 1", srv.SessionCount())
	}
}

func TestSessionCanonicalizesInitialLocation(t *testing.T) {
	_, ts := newTestServer(t, "")
	conn := dial(t, ts.URL, "")

	conn.WriteJSON(history.Message{Op: history.OpHello, Href: "/experiment/x/"})
	replace := readFrame(t, conn)
	if replace["op"] != history.OpReplace || replace["href"] != "/experiment/x" {
		t.Fatalf("replace frame = %v", replace)
	}
	if render := readFrame(t, conn); render["route"] != "experiment" {
		t.Fatalf("render frame = %v", render)
	}
}

func TestSessionRejectsExternalNavigation(t *testing.T) {
	_, ts := newTestServer(t, "")
	conn := dial(t, ts.URL, "")

	conn.WriteJSON(history.Message{Op: history.OpHello, Href: "/"})
	readFrame(t, conn)

	conn.WriteJSON(history.Message{Op: history.OpNavigate, Href: "//evil.example/x"})
	frame := readFrame(t, conn)
	if frame["op"] != "error" || frame["code"] != "N003" {
		t.Fatalf("frame = %v", frame)
	}
}

func TestSessionHandshakeRequired(t *testing.T) {
	_, ts := newTestServer(t, "")
	conn := dial(t, ts.URL, "")

	conn.WriteJSON(history.Message{Op: history.OpPop, Href: "/"})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage() error = %v, want normal close", err)
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	srv, ts := newTestServer(t, "")
	conn := dial(t, ts.URL, "")
	conn.WriteJSON(history.Message{Op: history.OpHello, Href: "/"})
	readFrame(t, conn)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection still open after Shutdown")
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.SessionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d after Shutdown", srv.SessionCount())
	}
}
