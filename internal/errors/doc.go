// Package errors provides structured, actionable error messages for the
// navroute CLI and server.
//
// Each error carries a code (e.g. "N010") registered with a category, a
// short message and a longer explanation. Library packages return plain
// sentinel and typed errors; Classify maps those onto registered codes at
// the program edge.
//
// # Usage
//
//	err := errors.New("N041").
//	    WithLocation("navroute.json", 7, 12).
//	    WithSuggestion("Remove the trailing comma after the last route")
//
//	errors.PrintError(err)
//	// Output:
//	// ERROR N041: Route manifest is not valid JSON
//	//
//	//   navroute.json:7:12
//	//
//	//      5 │     {"name": "home", "path": "/", "view": "HomeView"},
//	//      6 │     {"name": "experiment", "path": "/experiment/:name"},
//	//   →  7 │   ],
//	//        │            ^
//	//  ...
package errors
