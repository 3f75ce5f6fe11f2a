package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/swrcache"
	c "github.com/unkn0wn-root/swrcache/codec"
	pr "github.com/unkn0wn-root/swrcache/provider"
	"github.com/unkn0wn-root/swrcache/provider/ristretto"
)

type memProvider struct {
	mu     sync.Mutex
	m      map[string][]byte
	reject bool
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string][]byte)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject {
		return false, nil
	}
	p.m[key] = value
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *memProvider) Close(context.Context) error { return nil }

type fixedClock struct{ t time.Time }

func (f *fixedClock) Now() time.Time { return f.t }

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newRemote(t *testing.T, p pr.Provider, clk swrcache.Clock, maxAge time.Duration) *Remote[user] {
	t.Helper()
	r, err := New(Options[user]{Namespace: "user", Provider: p, Codec: c.JSON[user]{}, Clock: clk, MaxAge: maxAge})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNewValidatesRequired(t *testing.T) {
	p := newMemProvider()
	bad := []Options[user]{
		{Provider: p, Codec: c.JSON[user]{}},
		{Namespace: "u", Codec: c.JSON[user]{}},
		{Namespace: "u", Provider: p},
	}
	for i, o := range bad {
		if _, err := New(o); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestPublishFetch(t *testing.T) {
	ctx := context.Background()
	r := newRemote(t, newMemProvider(), nil, 0)

	if _, err := r.Fetch(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	in := user{ID: "1", Name: "Ada"}
	if err := r.Publish(ctx, "1", in, time.Minute); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got, err := r.Fetch(ctx, "1")
	if err != nil || got != in {
		t.Fatalf("Fetch: %+v err=%v", got, err)
	}
}

func TestPublishRejected(t *testing.T) {
	p := newMemProvider()
	p.reject = true
	r := newRemote(t, p, nil, 0)
	if err := r.Publish(context.Background(), "1", user{}, 0); !errors.Is(err, ErrRejected) {
		t.Fatalf("err=%v want ErrRejected", err)
	}
}

func TestCorruptRecordSelfHeals(t *testing.T) {
	ctx := context.Background()
	p := newMemProvider()
	r := newRemote(t, p, nil, 0)

	sk := r.storageKey("1")
	_, _ = p.Set(ctx, sk, []byte(`{"id":"1"}`), 0) // unframed, foreign write
	if _, err := r.Fetch(ctx, "1"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err=%v want ErrCorrupt", err)
	}
	if _, ok, _ := p.Get(ctx, sk); ok {
		t.Fatalf("corrupt record not deleted")
	}
}

func TestMaxAge(t *testing.T) {
	ctx := context.Background()
	clk := &fixedClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := newRemote(t, newMemProvider(), clk, time.Minute)

	if err := r.Publish(ctx, "1", user{ID: "1"}, 0); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	clk.t = clk.t.Add(30 * time.Second)
	if _, err := r.Fetch(ctx, "1"); err != nil {
		t.Fatalf("young record rejected: %v", err)
	}
	clk.t = clk.t.Add(time.Minute)
	if _, err := r.Fetch(ctx, "1"); !errors.Is(err, ErrTooOld) {
		t.Fatalf("err=%v want ErrTooOld", err)
	}
}

// A cache backed by a remote source keeps serving the last good value while
// the remote record is unreadable.
func TestCacheFallsBackWhenRemoteBreaks(t *testing.T) {
	ctx := context.Background()
	p, err := ristretto.New(ristretto.Config{NumCounters: 1000, MaxCost: 1 << 20})
	if err != nil {
		t.Fatalf("ristretto: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(ctx) })
	r := newRemote(t, p, nil, 0)

	cache, err := swrcache.New[user](swrcache.Options{})
	if err != nil {
		t.Fatalf("swrcache.New: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close(ctx) })

	if err := r.Publish(ctx, "1", user{ID: "1", Name: "Ada"}, 0); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	window := swrcache.EntryOptions{FreshFor: time.Millisecond, StaleFor: time.Millisecond}
	got, err := cache.Get(ctx, "user:1", r.Fetcher("1"), window)
	if err != nil || got.Name != "Ada" {
		t.Fatalf("first Get: %+v err=%v", got, err)
	}

	if _, err := p.Set(ctx, r.storageKey("1"), []byte("garbage"), 0); err != nil {
		t.Fatalf("inject: %v", err)
	}
	time.Sleep(5 * time.Millisecond) // entry is expired now

	res, err := cache.Lookup(ctx, "user:1", r.Fetcher("1"), window)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Outcome != swrcache.OutcomeFallback || res.Value.Name != "Ada" || !errors.Is(res.FetchErr, ErrCorrupt) {
		t.Fatalf("res=%+v", res)
	}
}
