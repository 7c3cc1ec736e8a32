// Package history abstracts the platform navigation history used by the
// navigation controller.
//
// A History keeps the current location, accepts Push and Replace from the
// application and reports back/forward moves to its listeners as
// PopEvents. Locations handed to and returned from a History never carry
// the deployment base path; Href adds it for links.
//
// Two implementations are provided:
//   - Memory keeps the stack in process. Tests and the CLI use it.
//   - Remote mirrors a browser's history over a WebSocket connection. The
//     browser reports popstate events; the server issues push, replace and
//     go commands.
package history
