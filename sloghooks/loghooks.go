// Package sloghooks reports cache events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	RefreshSkippedEvery uint64
	EvictedEvery        uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	skippedCtr atomic.Uint64
	evictedCtr atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StaleFallbackUsed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.stale_fallback",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) RefreshFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.refresh_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) RefreshSkipped(key, reason string) {
	if h.l == nil || !sample(h.opts.RefreshSkippedEvery, &h.skippedCtr) {
		return
	}
	h.l.Debug("swrcache.refresh_skipped",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) FetchSuperseded(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.fetch_superseded", "key", h.redact(key))
}

func (h *Hooks) Evicted(key string) {
	if h.l == nil || !sample(h.opts.EvictedEvery, &h.evictedCtr) {
		return
	}
	h.l.Debug("swrcache.evicted", "key", h.redact(key))
}

// Invalidated logs tag names as given; tags are not redacted.
func (h *Hooks) Invalidated(tags []string, n int) {
	if h.l == nil {
		return
	}
	h.l.Info("swrcache.invalidated",
		"tags", tags,
		"removed", n)
}
