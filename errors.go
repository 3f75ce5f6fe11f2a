package swrcache

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("swrcache: invalid argument")
	ErrFetchFailed     = errors.New("swrcache: fetch failed")
	ErrFetchPanicked   = errors.New("swrcache: fetcher panicked")
	ErrClosed          = errors.New("swrcache: cache closed")
)

// FetchError is returned by Get when the fetcher failed on the expired path
// and no previous value could be served instead.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("swrcache: fetch %q: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports ErrFetchFailed as a match so callers can test the category
// without caring about the fetcher's own error.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}
