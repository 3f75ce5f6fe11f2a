// Package source builds swrcache fetchers that read values other processes
// published into a byte store (Redis, ristretto, bigcache, ...).
//
//	remote, _ := source.New(source.Options[Config]{
//	    Namespace: "cfg",
//	    Provider:  redisProvider,
//	    Codec:     codec.JSON[Config]{},
//	    MaxAge:    time.Hour,
//	})
//	cfg, err := cache.Get(ctx, "flags", remote.Fetcher("flags"), swrcache.EntryOptions{})
//
// Every failure (miss, corrupt record, record too old, decode error) is returned
// as an error, so the cache treats it as a failed fetch and may fall back to the
// value it already holds.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/swrcache"
	c "github.com/unkn0wn-root/swrcache/codec"
	"github.com/unkn0wn-root/swrcache/internal/wire"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

var (
	ErrNotFound = errors.New("source: record not found")
	ErrTooOld   = errors.New("source: record older than max age")
	ErrRejected = errors.New("source: provider rejected write")
	ErrCorrupt  = wire.ErrCorrupt
)

// Options configure a Remote. Namespace, Provider and Codec are required.
type Options[V any] struct {
	Namespace string // e.g. "user", "flags"
	Provider  pr.Provider
	Codec     c.Codec[V]

	MaxAge time.Duration   // 0 => records never too old
	Clock  swrcache.Clock  // nil => wall clock
	Logger swrcache.Logger // nil => NopLogger
}

// Remote reads and writes framed, encoded values under "swr:<ns>:<key>".
type Remote[V any] struct {
	ns       string
	provider pr.Provider
	codec    c.Codec[V]
	maxAge   time.Duration
	now      func() time.Time
	log      swrcache.Logger
}

func New[V any](opts Options[V]) (*Remote[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("source: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("source: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("source: namespace is required")
	}
	r := &Remote[V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
		maxAge:   opts.MaxAge,
		now:      time.Now,
		log:      swrcache.NopLogger{},
	}
	if opts.Clock != nil {
		r.now = opts.Clock.Now
	}
	if opts.Logger != nil {
		r.log = opts.Logger
	}
	return r, nil
}

func (r *Remote[V]) storageKey(key string) string {
	return "swr:" + r.ns + ":" + key
}

// Publish encodes v and stores it with the current time as its stamp.
func (r *Remote[V]) Publish(ctx context.Context, key string, v V, ttl time.Duration) error {
	payload, err := r.codec.Encode(v)
	if err != nil {
		return err
	}
	ok, err := r.provider.Set(ctx, r.storageKey(key), wire.EncodeRecord(r.now(), payload), ttl)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrRejected, key)
	}
	return nil
}

// Fetch reads and decodes the record for key. Corrupt or undecodable records
// are deleted so the next publish starts clean.
func (r *Remote[V]) Fetch(ctx context.Context, key string) (V, error) {
	var zero V
	sk := r.storageKey(key)
	raw, ok, err := r.provider.Get(ctx, sk)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	stamp, payload, err := wire.DecodeRecord(raw)
	if err != nil {
		r.selfHeal(ctx, sk, "corrupt")
		return zero, err
	}
	if r.maxAge > 0 {
		if age := r.now().Sub(stamp); age > r.maxAge {
			return zero, fmt.Errorf("%w: %q is %s old", ErrTooOld, key, age)
		}
	}
	v, err := r.codec.Decode(payload)
	if err != nil {
		r.selfHeal(ctx, sk, "value_decode")
		return zero, fmt.Errorf("source: decode %q: %w", key, err)
	}
	return v, nil
}

// Fetcher binds Fetch to key for use with swrcache.Cache.Get.
func (r *Remote[V]) Fetcher(key string) swrcache.Fetcher[V] {
	return func(ctx context.Context) (V, error) {
		return r.Fetch(ctx, key)
	}
}

func (r *Remote[V]) selfHeal(ctx context.Context, storageKey, reason string) {
	if err := r.provider.Del(ctx, storageKey); err != nil {
		r.log.Warn("self-heal delete failed", swrcache.Fields{"key": storageKey, "reason": reason, "err": err})
		return
	}
	r.log.Debug("deleted unreadable record", swrcache.Fields{"key": storageKey, "reason": reason})
}
