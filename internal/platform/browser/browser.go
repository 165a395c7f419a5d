// Package browser is the narrow seam between the crawler and headless
// browser automation. The crawler only ever sees Launcher, Session and Page.
package browser

import (
	"context"
	"errors"
	"time"
)

// ReadyState is the navigation event a Goto waits for.
type ReadyState string

const (
	ReadyNetworkIdle      ReadyState = "networkidle"
	ReadyDOMContentLoaded ReadyState = "domcontentloaded"
	ReadyLoad             ReadyState = "load"
)

var (
	// ErrTimeout marks a navigation or wait that exceeded its deadline.
	ErrTimeout = errors.New("browser timeout")
	// ErrClosed is returned once a session has been released.
	ErrClosed = errors.New("browser session closed")
)

// Page is one rendered document.
type Page interface {
	// Goto navigates and waits for state. It returns the HTTP status of the
	// main document, or 0 when the navigation produced no response (e.g. a
	// same-document hash change).
	Goto(url string, state ReadyState, timeout time.Duration) (int, error)
	URL() string
	Title() (string, error)
	Content() (string, error)
	// Evaluate runs a JS function expression and returns its JSON-decoded
	// result.
	Evaluate(script string, arg ...interface{}) (interface{}, error)
	Close() error
}

// Session is a live browser owned by a single crawl job.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	// Close releases the browser. Safe to call more than once and from any
	// goroutine; in-flight page calls fail once it returns.
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
