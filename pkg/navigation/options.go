package navigation

import (
	"log/slog"
	"net/url"
)

// Option configures a Controller.
type Option func(*Controller)

// WithOutlet sets the mount point views are delivered to.
func WithOutlet(o Outlet) Option {
	return func(c *Controller) {
		c.outlet = o
	}
}

// WithNotFound sets the target mounted for unmatched paths. Without it an
// unmatched path mounts a View with a nil Target.
func WithNotFound(target any) Option {
	return func(c *Controller) {
		c.notFound = target
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMiddleware appends transition middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Controller) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NavigateOptions configures a single navigation.
type NavigateOptions struct {
	// Replace overwrites the current history entry instead of pushing.
	Replace bool

	// Query is merged into the target's query string.
	Query url.Values

	// Hash replaces the target's fragment when non-empty.
	Hash string
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithQuery adds query parameters to the navigation target.
func WithQuery(q url.Values) NavigateOption {
	return func(o *NavigateOptions) {
		o.Query = q
	}
}

// WithHash sets the fragment of the navigation target.
func WithHash(hash string) NavigateOption {
	return func(o *NavigateOptions) {
		o.Hash = hash
	}
}
