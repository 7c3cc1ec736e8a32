package middleware

import (
	"context"
	"fmt"

	"github.com/vango-dev/navroute/pkg/navigation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "navroute"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "navroute").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// IncludeQuery adds the query string to the location attribute.
	// Disabled by default since queries may carry user data.
	IncludeQuery bool

	// Filter determines which transitions to trace. Nil traces all.
	Filter func(t *navigation.Transition) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(t *navigation.Transition) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeQuery records the query string on spans.
func WithIncludeQuery(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeQuery = include
	}
}

// WithTransitionFilter sets a filter function for transitions.
func WithTransitionFilter(filter func(t *navigation.Transition) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(t *navigation.Transition) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every navigation transition.
func OpenTelemetry(opts ...OTelOption) navigation.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return navigation.MiddlewareFunc(func(ctx context.Context, t *navigation.Transition, next func() error) error {
		if config.Filter != nil && !config.Filter(t) {
			return next()
		}

		to := t.To
		if !config.IncludeQuery {
			to = stripQuery(to)
		}
		attrs := []attribute.KeyValue{
			attribute.String("navroute.mode", string(t.Mode)),
			attribute.String("navroute.to", to),
			attribute.String("navroute.from_route", t.From.RouteName()),
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(t)...)
		}

		_, span := tracer.Start(ctx, fmt.Sprintf("navroute %s", t.Mode),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		err := next()

		if t.Committed() {
			span.SetAttributes(
				attribute.String("navroute.status", t.Result.Status.String()),
				attribute.String("navroute.route", t.Result.RouteName()),
				attribute.Int("navroute.position", t.Result.Position),
			)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	})
}

// stripQuery drops query and fragment from a location.
func stripQuery(loc string) string {
	for i := 0; i < len(loc); i++ {
		if loc[i] == '?' || loc[i] == '#' {
			return loc[:i]
		}
	}
	return loc
}
