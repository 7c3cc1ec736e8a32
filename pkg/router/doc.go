// Package router holds the route table and path matcher of the navigation
// core.
//
// A Table is built once from an ordered list of routes and never changes
// afterwards. Construction validates every pattern and rejects duplicate
// route names, so a Table that exists is always usable.
//
// # Patterns
//
// Patterns are absolute paths whose segments are either literals or
// dynamic segments written as ":name":
//
//	/                    → home
//	/experiment/:name    → experiment, binds params["name"]
//
// A dynamic segment binds exactly one non-empty path segment. It never
// spans a "/" and an empty value does not match.
//
// # Matching
//
// Match canonicalizes the path (trailing slash, repeated slashes, dot
// segments) and walks the routes in table order. The first route that
// matches wins; there is no specificity scoring.
//
//	table, err := router.NewTable(
//	    router.Route{Path: "/", Name: "home", Target: HomeView},
//	    router.Route{Path: "/experiment/:name", Name: "experiment", Target: ExperimentView, Props: true},
//	)
//	m, ok := table.Match("/experiment/alpha-test")
//	// m.Route.Name == "experiment", m.Params["name"] == "alpha-test"
package router
