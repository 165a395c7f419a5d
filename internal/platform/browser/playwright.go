package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sitemapper/internal/logger"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightOptions configure the Chromium sessions.
type PlaywrightOptions struct {
	UserAgent string
	Headers   map[string]string
	Headless  bool
}

// PlaywrightLauncher starts one Chromium process per session.
type PlaywrightLauncher struct {
	opts PlaywrightOptions
	log  *logger.Logger
}

func NewPlaywrightLauncher(opts PlaywrightOptions) *PlaywrightLauncher {
	return &PlaywrightLauncher{opts: opts, log: logger.New("Browser")}
}

var launchArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-blink-features=AutomationControlled",
	"--disable-features=VizDisplayCompositor",
	"--no-first-run",
	"--disable-default-apps",
	"--disable-extensions",
}

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright run: %w", err)
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
		Args:     launchArgs,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch: %w", err)
	}
	ctxOpts := playwright.BrowserNewContextOptions{ExtraHttpHeaders: l.opts.Headers}
	if l.opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(l.opts.UserAgent)
	}
	bc, err := b.NewContext(ctxOpts)
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("new context: %w", err)
	}
	l.log.LogDebugf("chromium session started")
	return &playwrightSession{pw: pw, browser: b, bctx: bc, log: l.log}, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	log     *logger.Logger

	mu     sync.Mutex
	closed bool
}

func (s *playwrightSession) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	p, err := s.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	return &playwrightPage{page: p}, nil
}

func (s *playwrightSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if err := s.bctx.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	s.log.LogDebugf("chromium session released")
	return errors.Join(errs...)
}

type playwrightPage struct {
	page playwright.Page
}

var waitUntil = map[ReadyState]*playwright.WaitUntilState{
	ReadyNetworkIdle:      playwright.WaitUntilStateNetworkidle,
	ReadyDOMContentLoaded: playwright.WaitUntilStateDomcontentloaded,
	ReadyLoad:             playwright.WaitUntilStateLoad,
}

func (p *playwrightPage) Goto(url string, state ReadyState, timeout time.Duration) (int, error) {
	opts := playwright.PageGotoOptions{Timeout: playwright.Float(float64(timeout.Milliseconds()))}
	if w, ok := waitUntil[state]; ok {
		opts.WaitUntil = w
	}
	resp, err := p.page.Goto(url, opts)
	if err != nil {
		return 0, classify(err)
	}
	if resp == nil {
		return 0, nil
	}
	return resp.Status(), nil
}

func (p *playwrightPage) URL() string { return p.page.URL() }

func (p *playwrightPage) Title() (string, error) { return p.page.Title() }

func (p *playwrightPage) Content() (string, error) { return p.page.Content() }

func (p *playwrightPage) Evaluate(script string, arg ...interface{}) (interface{}, error) {
	v, err := p.page.Evaluate(script, arg...)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

func (p *playwrightPage) Close() error { return p.page.Close() }

func classify(err error) error {
	if errors.Is(err, playwright.ErrTimeout) || strings.Contains(err.Error(), "Timeout") {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
