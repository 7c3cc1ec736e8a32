// Package shell serves a single-page application shell whose navigation is
// driven by a server-side navigation controller.
//
// Every path under the base returns the same HTML shell with the initial
// route resolution embedded. The browser then opens {base}/_nav/ws and
// mirrors its history over the remote history protocol: each connection
// gets its own controller, and every committed navigation is sent back as
// a render frame.
//
// Endpoints:
//
//	GET {base}/*                SPA shell (404 status for unmatched paths)
//	GET {base}/_nav/resolve     ?path=/experiment/a, JSON resolution
//	GET {base}/_nav/ws          remote history WebSocket
//	GET {base}/_nav/client.js   browser client
//	GET /metrics                Prometheus metrics
//	GET /healthz                liveness
package shell
