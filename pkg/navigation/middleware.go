package navigation

import "context"

// Middleware wraps every transition. It must call next exactly once for
// the transition to commit; the error returned by next is the transition's
// error. Middleware runs while the controller is locked and must not call
// back into it.
type Middleware interface {
	Handle(ctx context.Context, t *Transition, next func() error) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, t *Transition, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, t *Transition, next func() error) error {
	return f(ctx, t, next)
}

// chain runs final through the middleware list, outermost first.
func chain(ctx context.Context, mw []Middleware, t *Transition, final func() error) error {
	if len(mw) == 0 {
		return final()
	}
	return mw[0].Handle(ctx, t, func() error {
		return chain(ctx, mw[1:], t, final)
	})
}
