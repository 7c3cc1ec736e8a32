package shell

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/navroute/pkg/router"
)

func testTable(t *testing.T) *router.Table {
	t.Helper()
	table, err := router.NewTable(
		router.Route{Path: "/", Name: "home", Target: "HomeView", Meta: map[string]string{"title": "Home"}},
		router.Route{Path: "/experiment/:name", Name: "experiment", Target: "ExperimentView", Props: true},
	)
	if err != nil {
		t.Fatalf("NewTable() error: %v", err)
	}
	return table
}

func newTestServer(t *testing.T, base string) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Base = base
	cfg.NotFound = "NotFoundView"
	cfg.HandshakeTimeout = 2 * time.Second
	srv := New(testTable(t), cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRegistry(prometheus.NewRegistry()),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ts.Close()
	})
	return srv, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, "")
	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestShellFallback(t *testing.T) {
	_, ts := newTestServer(t, "/app")

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "base root",
			path:       "/app/",
			wantStatus: http.StatusOK,
			wantBody:   []string{`data-view="HomeView"`, `"route":"home"`, `/app/_nav/client.js`},
		},
		{
			name:       "base without slash",
			path:       "/app",
			wantStatus: http.StatusOK,
			wantBody:   []string{`"route":"home"`},
		},
		{
			name:       "dynamic route",
			path:       "/app/experiment/foo?tab=2",
			wantStatus: http.StatusOK,
			wantBody:   []string{`data-view="ExperimentView"`, `"props":{"name":"foo"}`, `"fullPath":"/experiment/foo?tab=2"`},
		},
		{
			name:       "unmatched path",
			path:       "/app/experiment",
			wantStatus: http.StatusNotFound,
			wantBody:   []string{`data-view="NotFoundView"`, `"status":"unmatched"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q\n%s", want, body)
				}
			}
		})
	}
}

func TestShellOutsideBase(t *testing.T) {
	_, ts := newTestServer(t, "/app")
	resp, _ := get(t, ts.URL+"/other")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestClientScript(t *testing.T) {
	_, ts := newTestServer(t, "")
	resp, body := get(t, ts.URL+"/_nav/client.js")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "popstate") {
		t.Errorf("client.js = %d", resp.StatusCode)
	}
}

func TestResolveEndpoint(t *testing.T) {
	_, ts := newTestServer(t, "/app")

	resp, body := get(t, ts.URL+"/app/_nav/resolve?path=/experiment/a%2520b/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var res Resolution
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		t.Fatal(err)
	}
	if res.Route != "experiment" || res.Params["name"] != "a b" || res.Props["name"] != "a b" {
		t.Errorf("resolution = %+v", res)
	}
	if res.Path != "/experiment/a%20b" || res.Href != "/app/experiment/a%20b" {
		t.Errorf("path = %q, href = %q", res.Path, res.Href)
	}
	if res.View != "ExperimentView" {
		t.Errorf("view = %v", res.View)
	}
}

func TestResolveEndpointErrors(t *testing.T) {
	_, ts := newTestServer(t, "")

	tests := []struct {
		query    string
		wantCode string
	}{
		{"", "N050"},
		{"?path=//evil.example", "N003"},
		{"?path=/a%5Cb", "N001"},
		{"?path=/../x", "N001"},
	}
	for _, tt := range tests {
		resp, body := get(t, ts.URL+"/_nav/resolve"+tt.query)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q: status = %d", tt.query, resp.StatusCode)
			continue
		}
		var out map[string]any
		json.Unmarshal([]byte(body), &out)
		if out["code"] != tt.wantCode {
			t.Errorf("%q: code = %v, want %s", tt.query, out["code"], tt.wantCode)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, "")
	get(t, ts.URL+"/experiment/a")

	_, body := get(t, ts.URL+"/metrics")
	if !strings.Contains(body, `navroute_navigations_total{mode="initial",route="experiment",status="matched"} 1`) {
		t.Errorf("metrics missing navigation counter:\n%s", body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsPath = ""
	srv := New(testTable(t), cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Without a metrics route, /metrics is an ordinary unmatched app path.
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"status":"unmatched"`) {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSetTable(t *testing.T) {
	srv, ts := newTestServer(t, "")
	next, err := router.NewTable(router.Route{Path: "/only", Name: "only", Target: "OnlyView"})
	if err != nil {
		t.Fatal(err)
	}
	srv.SetTable(next)

	if srv.Table() != next {
		t.Error("Table() did not return the new table")
	}
	resp, body := get(t, ts.URL+"/only")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"route":"only"`) {
		t.Errorf("status = %d, body = %s", resp.StatusCode, body)
	}
	if resp, _ := get(t, ts.URL+"/"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("old route still served: %d", resp.StatusCode)
	}
}
