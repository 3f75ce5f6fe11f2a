package swrcache

import "time"

// Clock is the time source used for freshness decisions.
// Tests inject a manual clock; production uses the wall clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
