// Package navigation turns URL changes into render decisions.
//
// A Controller owns the NavigationState of one application instance. It
// is the only writer of that state: programmatic navigation (Navigate,
// Push, Replace, NavigateNamed) and history pops both funnel through the
// same transition path:
//
//	canonicalize → update history → match → commit State → mount View
//
// The controller starts Unresolved and moves to Matched or Unmatched on
// every transition; there is no terminal state.
//
// # Rendering
//
// The rendering layer supplies an Outlet. After each committed transition
// the controller mounts a View carrying the route target and, for routes
// with Props enabled, the extracted params as named inputs. Unmatched
// paths mount a View with NotFound set and the fallback target configured
// with WithNotFound (nil renders nothing).
//
// Targets that load asynchronously are expressed as Lazy. AsyncOutlet
// resolves them in the background and drops results that a later
// navigation has superseded.
//
// # Usage
//
//	ctrl := navigation.NewController(table, history.NewMemory("/app", "/"),
//	    navigation.WithOutlet(outlet),
//	    navigation.WithLogger(logger),
//	)
//	if _, err := ctrl.Start(ctx); err != nil {
//	    return err
//	}
//	ctrl.Push(ctx, "/experiment/alpha-test")
package navigation
