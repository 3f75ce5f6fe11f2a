package tracing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/source"
)

func newTestConfig(t *testing.T) (*Config, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return &Config{TracerProvider: tp, KeyAttribute: true}, rec
}

func TestFetcherSpanOnSuccess(t *testing.T) {
	cfg, rec := newTestConfig(t)
	c, err := swrcache.New[string](swrcache.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	f := Fetcher(cfg, "user:1", func(context.Context) (string, error) { return "ada", nil })
	for i := 0; i < 3; i++ {
		if v, err := c.Get(context.Background(), "user:1", f, swrcache.EntryOptions{}); err != nil || v != "ada" {
			t.Fatalf("Get: %q %v", v, err)
		}
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span (later reads are hits), got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "swrcache.fetch" || s.Status().Code != codes.Ok {
		t.Fatalf("span name=%q status=%v", s.Name(), s.Status())
	}
	assertAttr(t, s.Attributes(), "swrcache.key", attribute.StringValue("user:1"))
}

func TestFetcherSpanRecordsError(t *testing.T) {
	cfg, rec := newTestConfig(t)
	cfg.SpanName = "load-user"
	cfg.KeyAttribute = false

	miss := fmt.Errorf("%w: %q", source.ErrNotFound, "1")
	f := Fetcher(cfg, "user:1", func(context.Context) (int, error) { return 0, miss })
	if _, err := f(context.Background()); !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "load-user" || s.Status().Code != codes.Error {
		t.Fatalf("span name=%q status=%v", s.Name(), s.Status())
	}
	if len(s.Events()) == 0 || s.Events()[0].Name != "exception" {
		t.Fatalf("error not recorded: %v", s.Events())
	}
	assertAttr(t, s.Attributes(), "swrcache.not_found", attribute.BoolValue(true))
	for _, kv := range s.Attributes() {
		if kv.Key == "swrcache.key" {
			t.Fatalf("key recorded with KeyAttribute off")
		}
	}
}

func TestNilConfigPassthrough(t *testing.T) {
	called := false
	f := Fetcher[int](nil, "k", func(context.Context) (int, error) { called = true; return 1, nil })
	if v, err := f(context.Background()); err != nil || v != 1 || !called {
		t.Fatalf("passthrough broken: %d %v %v", v, err, called)
	}
}

func assertAttr(t *testing.T, attrs []attribute.KeyValue, key string, want attribute.Value) {
	t.Helper()
	for _, kv := range attrs {
		if string(kv.Key) == key {
			if kv.Value != want {
				t.Fatalf("attribute %q = %v, want %v", key, kv.Value.Emit(), want.Emit())
			}
			return
		}
	}
	t.Fatalf("attribute %q not found", key)
}
