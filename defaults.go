package swrcache

import "time"

const (
	defaultCapacity = 100
	defaultFreshFor = 5 * time.Minute
	defaultStaleFor = 10 * time.Minute
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
