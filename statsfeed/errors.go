package statsfeed

import (
	"errors"
	"fmt"
)

var (
	// ErrFeedUnavailable covers network failures, timeouts and non-2xx responses
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrMalformedPayload means the response decoded but lacked expected structure
	ErrMalformedPayload = errors.New("malformed payload")
)

// FeedError describes a failed upstream call. It unwraps to one of the
// sentinels above and to the underlying cause.
type FeedError struct {
	Op         string
	URL        string
	StatusCode int
	Kind       error
	Err        error
}

func (e *FeedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("statsfeed %s: %v (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("statsfeed %s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *FeedError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// retryable reports whether another attempt could plausibly succeed
func (e *FeedError) retryable() bool {
	if e.Kind != ErrFeedUnavailable {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

func malformed(op, url string, format string, args ...any) error {
	return &FeedError{Op: op, URL: url, Kind: ErrMalformedPayload, Err: fmt.Errorf(format, args...)}
}
