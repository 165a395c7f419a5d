// Package discover finds candidate links on a rendered page. Plain anchors
// are only one source: SPA routers hide most of their views behind
// attributes, router state and hash changes, so every source here runs
// independently and contributes whatever it can.
package discover

import (
	"context"

	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/logger"
	"sitemapper/internal/platform/browser"
	"sitemapper/internal/utils/poll"
)

// Options bound the more expensive sources.
type Options struct {
	// MaxHashClicks caps simulated hash-route navigations per page.
	// Zero disables simulated navigation.
	MaxHashClicks int
	// Stability is used to wait for a view to render after a hash change.
	Stability poll.Options
}

type Discoverer struct {
	extractors []RouteExtractor
	opts       Options
	log        *logger.Logger
}

func New(opts Options, extractors ...RouteExtractor) *Discoverer {
	if extractors == nil {
		extractors = DefaultExtractors()
	}
	return &Discoverer{extractors: extractors, opts: opts, log: logger.New("Discoverer")}
}

// WithLogger replaces the discoverer's logger.
func (d *Discoverer) WithLogger(l *logger.Logger) *Discoverer {
	d.log = l
	return d
}

// Discover returns absolute candidate URLs in discovery order without
// duplicates. It never fails: a broken source is logged and skipped.
func (d *Discoverer) Discover(ctx context.Context, page browser.Page) []string {
	location := page.URL()
	set := newLinkSet()

	anchors, err := collectAnchors(page)
	if err != nil {
		d.log.LogDebugf("anchor source failed on %s: %v", location, err)
	}
	set.add(anchors...)

	attrs, err := collectAttributeLinks(page, location)
	if err != nil {
		d.log.LogDebugf("attribute source failed on %s: %v", location, err)
	}
	set.add(attrs...)

	for _, ex := range d.extractors {
		if ctx.Err() != nil {
			return set.list()
		}
		table, err := ex.Extract(page)
		if err != nil {
			d.log.LogDebugf("%s router introspection failed on %s: %v", ex.Name(), location, err)
			continue
		}
		if table == nil {
			continue
		}
		urls := table.URLs(location)
		if len(urls) > 0 {
			d.log.LogDebugf("%s router exposed %d routes on %s", ex.Name(), len(urls), location)
		}
		set.add(urls...)
	}

	if h := currentHashRoute(location); h != "" {
		set.add(h)
	}

	if d.opts.MaxHashClicks > 0 && ctx.Err() == nil {
		revealed, err := d.simulateHashNavigation(ctx, page, location, set.list())
		if err != nil {
			d.log.LogDebugf("simulated navigation failed on %s: %v", location, err)
		}
		set.add(revealed...)
	}
	return set.list()
}

func currentHashRoute(location string) string {
	if !urlnorm.IsHashRoute(urlnorm.Fragment(location)) {
		return ""
	}
	return location
}

type linkSet struct {
	seen  map[string]struct{}
	order []string
}

func newLinkSet() *linkSet { return &linkSet{seen: make(map[string]struct{})} }

func (s *linkSet) add(links ...string) {
	for _, l := range links {
		if l == "" {
			continue
		}
		if _, ok := s.seen[l]; ok {
			continue
		}
		s.seen[l] = struct{}{}
		s.order = append(s.order, l)
	}
}

func (s *linkSet) list() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
