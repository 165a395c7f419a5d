package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why a page could not be fetched.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindBlocked    Kind = "blocked"
	KindNavigation Kind = "navigation_failed"
	KindUnknown    Kind = "unknown"
)

// FetchError is the only error type Fetch returns for a failed page, apart
// from context cancellation which is returned as-is.
type FetchError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the classification of err, KindUnknown for anything that
// is not a *FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// StatusFor is the synthetic status recorded for a failed page.
func StatusFor(err error) int {
	switch KindOf(err) {
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindBlocked:
		return http.StatusForbidden
	default:
		return 0
	}
}

// ErrorTitle is the synthetic title recorded for a failed page.
func ErrorTitle(err error) string {
	switch KindOf(err) {
	case KindTimeout:
		return "Error: Timeout"
	case KindBlocked:
		return "Error: Blocked by bot protection"
	case KindNavigation:
		return "Error: Navigation failed"
	default:
		return "Error: Unknown"
	}
}
