package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/logger"
	"sitemapper/internal/platform/browser"
	"sitemapper/internal/utils/poll"

	"github.com/PuerkitoBio/goquery"
)

// Result is what a successful fetch yields.
type Result struct {
	URL        string
	FinalURL   string
	Title      string
	StatusCode int
	Links      []string
}

// LinkDiscoverer collects candidate links from a loaded page.
type LinkDiscoverer interface {
	Discover(ctx context.Context, page browser.Page) []string
}

// Options tune navigation and waiting.
type Options struct {
	// Strategies are tried in order; the first that navigates wins.
	Strategies    []browser.ReadyState
	NavTimeout    time.Duration
	Stability     poll.Options
	ChallengeWait time.Duration
}

// DefaultStrategies is network-idle, then DOM-ready, then plain load.
var DefaultStrategies = []browser.ReadyState{
	browser.ReadyNetworkIdle,
	browser.ReadyDOMContentLoaded,
	browser.ReadyLoad,
}

func (o Options) withDefaults() Options {
	if len(o.Strategies) == 0 {
		o.Strategies = DefaultStrategies
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 15 * time.Second
	}
	if o.ChallengeWait <= 0 {
		o.ChallengeWait = 5 * time.Second
	}
	return o
}

// Fetcher loads pages in a job's browser session.
type Fetcher struct {
	session browser.Session
	links   LinkDiscoverer
	opts    Options
	log     *logger.Logger
}

func New(session browser.Session, links LinkDiscoverer, opts Options) *Fetcher {
	return &Fetcher{session: session, links: links, opts: opts.withDefaults(), log: logger.New("Fetcher")}
}

// WithLogger replaces the fetcher's logger.
func (f *Fetcher) WithLogger(l *logger.Logger) *Fetcher {
	f.log = l
	return f
}

const fingerprintScript = `() => ({
	links: document.querySelectorAll('a[href]').length,
	size: document.body ? document.body.innerHTML.length : 0
})`

const bodyTextScript = `() => document.body ? document.body.innerText.slice(0, 8000) : ''`

// fingerprint is the cheap content signature sampled while a page settles.
type fingerprint struct {
	Links int
	Size  int
}

// Fetch loads url, waits for it to settle, and returns its title and links.
// Failures are *FetchError; a cancelled ctx is returned unwrapped.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := f.session.NewPage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{Kind: KindUnknown, URL: url, Err: err}
	}
	defer func() { _ = page.Close() }()

	status, err := f.navigate(ctx, page, url)
	if err != nil {
		return nil, err
	}

	f.settle(ctx, page)
	if err := f.checkChallenge(ctx, page, url); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{Kind: KindUnknown, URL: url, Err: fmt.Errorf("content: %w", err)}
	}
	final := page.URL()
	if final == "" {
		final = url
	}
	docTitle, _ := page.Title()

	var links []string
	if f.links != nil {
		links = f.links.Discover(ctx, page)
	}
	if len(links) == 0 {
		links = AnchorsFromHTML(html, final)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if status == 0 {
		status = 200
	}
	res := &Result{
		URL:        url,
		FinalURL:   final,
		Title:      ResolveTitle(docTitle, html, final),
		StatusCode: status,
		Links:      links,
	}
	f.log.Debug().Str("url", url).Int("status", status).Int("links", len(links)).Msg("fetched")
	return res, nil
}

// navigate tries each readiness strategy in order and accepts the first
// that succeeds.
func (f *Fetcher) navigate(ctx context.Context, page browser.Page, url string) (int, error) {
	var (
		lastErr     error
		allTimeouts = true
	)
	for i, state := range f.opts.Strategies {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		status, err := page.Goto(url, state, f.opts.NavTimeout)
		if err == nil {
			if i > 0 {
				f.log.LogDebugf("navigated %s with fallback strategy %s", url, state)
			}
			return status, nil
		}
		lastErr = err
		if !errors.Is(err, browser.ErrTimeout) {
			allTimeouts = false
		}
		f.log.Debug().Str("url", url).Str("strategy", string(state)).Err(err).Msg("navigation attempt failed")
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	kind := KindNavigation
	if allTimeouts {
		kind = KindTimeout
	}
	return 0, &FetchError{Kind: kind, URL: url, Err: fmt.Errorf("all %d strategies failed: %w", len(f.opts.Strategies), lastErr)}
}

// settle waits until the link count and content size stop changing.
func (f *Fetcher) settle(ctx context.Context, page browser.Page) {
	fp, stable, err := poll.UntilStable(ctx, f.opts.Stability, func() (fingerprint, error) {
		return sampleFingerprint(page)
	})
	if err != nil {
		f.log.LogDebugf("fingerprint sampling failed for %s: %v", page.URL(), err)
		return
	}
	if !stable {
		f.log.LogDebugf("content still changing for %s after wait (links=%d size=%d)", page.URL(), fp.Links, fp.Size)
	}
}

func sampleFingerprint(page browser.Page) (fingerprint, error) {
	v, err := page.Evaluate(fingerprintScript)
	if err != nil {
		return fingerprint{}, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return fingerprint{}, fmt.Errorf("unexpected fingerprint %T", v)
	}
	return fingerprint{Links: toInt(m["links"]), Size: toInt(m["size"])}, nil
}

// checkChallenge detects a bot interstitial and gives it one chance to
// clear on its own before reporting the page as blocked.
func (f *Fetcher) checkChallenge(ctx context.Context, page browser.Page, url string) error {
	if !f.challenged(page) {
		return nil
	}
	f.log.LogInfof("bot challenge detected on %s, waiting %v", url, f.opts.ChallengeWait)
	if err := poll.Sleep(ctx, f.opts.ChallengeWait); err != nil {
		return err
	}
	f.settle(ctx, page)
	if f.challenged(page) {
		return &FetchError{Kind: KindBlocked, URL: url, Err: errors.New("bot challenge did not clear")}
	}
	f.log.LogInfof("bot challenge cleared on %s", url)
	return nil
}

func (f *Fetcher) challenged(page browser.Page) bool {
	title, _ := page.Title()
	body := ""
	if v, err := page.Evaluate(bodyTextScript); err == nil {
		body, _ = v.(string)
	}
	return IsChallenge(title, body)
}

// AnchorsFromHTML is the static fallback used when live DOM discovery
// returns nothing: every a[href] in html resolved against base.
func AnchorsFromHTML(html, base string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, err := urlnorm.Resolve(base, href)
		if err != nil {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})
	return out
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}
