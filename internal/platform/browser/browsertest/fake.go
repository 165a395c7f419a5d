// Package browsertest provides scriptable in-memory browser fakes for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sitemapper/internal/platform/browser"
)

// EvalFunc answers one Evaluate call.
type EvalFunc func(page *Page, arg ...interface{}) (interface{}, error)

// Page is a fake browser.Page. Zero values behave like an empty document
// that navigates successfully with status 200.
type Page struct {
	mu sync.Mutex

	// GotoFunc overrides navigation. Calls are recorded in Gotos either way.
	GotoFunc func(url string, state browser.ReadyState) (int, error)
	// TitleSeq is returned by successive Title calls; the last entry repeats.
	TitleSeq []string
	HTML     string
	Location string
	Scripts  map[string]EvalFunc

	Gotos  []browser.ReadyState
	Evals  []string
	titleN int
	closed bool
}

func (p *Page) Goto(url string, state browser.ReadyState, _ time.Duration) (int, error) {
	p.mu.Lock()
	p.Gotos = append(p.Gotos, state)
	fn := p.GotoFunc
	p.mu.Unlock()
	if fn != nil {
		status, err := fn(url, state)
		if err == nil {
			p.SetLocation(url)
		}
		return status, err
	}
	p.SetLocation(url)
	return 200, nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Location
}

// SetLocation changes what URL reports.
func (p *Page) SetLocation(u string) {
	p.mu.Lock()
	p.Location = u
	p.mu.Unlock()
}

func (p *Page) Title() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.TitleSeq) == 0 {
		return "", nil
	}
	i := p.titleN
	if i >= len(p.TitleSeq) {
		i = len(p.TitleSeq) - 1
	}
	p.titleN++
	return p.TitleSeq[i], nil
}

func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HTML, nil
}

func (p *Page) Evaluate(script string, arg ...interface{}) (interface{}, error) {
	p.mu.Lock()
	p.Evals = append(p.Evals, script)
	fn, ok := p.Scripts[script]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("browsertest: no handler for script")
	}
	return fn(p, arg...)
}

func (p *Page) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Session hands out pages built by NewPageFunc.
type Session struct {
	mu          sync.Mutex
	NewPageFunc func(n int) (browser.Page, error)
	pages       int
	closed      bool
}

func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, browser.ErrClosed
	}
	n := s.pages
	s.pages++
	fn := s.NewPageFunc
	s.mu.Unlock()
	if fn == nil {
		return &Page{}, nil
	}
	return fn(n)
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Closed reports whether the session was released.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Launcher returns the same Session on every Launch, or Err.
type Launcher struct {
	Session  *Session
	Err      error
	Launches int
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.Launches++
	if l.Err != nil {
		return nil, l.Err
	}
	if l.Session == nil {
		return nil, errors.New("browsertest: no session configured")
	}
	return l.Session, nil
}

// Strings converts a []string into the []interface{} shape Evaluate returns.
func Strings(v ...string) []interface{} {
	out := make([]interface{}, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}
