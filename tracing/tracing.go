// Package tracing wraps fetchers in OpenTelemetry spans. Spans are started
// from the context the cache hands to the fetcher, so a synchronous fetch is a
// child of the caller's span and a background refresh keeps the caller's trace.
package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/source"
)

const instrumentation = "github.com/unkn0wn-root/swrcache/tracing"

// Config holds the tracer used by Fetcher.
type Config struct {
	// TracerProvider supplies the Tracer used to create spans. When nil the
	// global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider

	// SpanName defaults to "swrcache.fetch".
	SpanName string

	// KeyAttribute controls whether the cache key is recorded as
	// "swrcache.key". Off by default; keys may carry user data.
	KeyAttribute bool
}

func (c *Config) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentation)
}

func (c *Config) spanName() string {
	if c.SpanName == "" {
		return "swrcache.fetch"
	}
	return c.SpanName
}

// Fetcher returns f wrapped in a span. If cfg is nil f is returned unchanged.
func Fetcher[V any](cfg *Config, key string, f swrcache.Fetcher[V]) swrcache.Fetcher[V] {
	if cfg == nil || f == nil {
		return f
	}
	return func(ctx context.Context) (V, error) {
		ctx, span := cfg.tracer().Start(ctx, cfg.spanName(), trace.WithSpanKind(trace.SpanKindInternal))
		defer span.End()

		if cfg.KeyAttribute {
			span.SetAttributes(attribute.String("swrcache.key", key))
		}
		v, err := f(ctx)
		recordStatus(span, err)
		return v, err
	}
}

func recordStatus(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	if errors.Is(err, source.ErrNotFound) {
		span.SetAttributes(attribute.Bool("swrcache.not_found", true))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
