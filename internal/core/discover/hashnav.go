package discover

import (
	"context"
	"fmt"

	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/platform/browser"
	"sitemapper/internal/utils/poll"
)

const currentHashScript = `() => location.hash`

const setHashScript = `(h) => { location.hash = h; return location.hash; }`

const linkCountScript = `() => document.querySelectorAll('a[href]').length`

// simulateHashNavigation visits up to MaxHashClicks hash routes of the
// current document, collects anchors rendered only after each route change,
// and restores the original hash.
func (d *Discoverer) simulateHashNavigation(ctx context.Context, page browser.Page, location string, candidates []string) ([]string, error) {
	targets := hashTargets(location, candidates, d.opts.MaxHashClicks)
	if len(targets) == 0 {
		return nil, nil
	}
	v, err := page.Evaluate(currentHashScript)
	if err != nil {
		return nil, fmt.Errorf("read hash: %w", err)
	}
	original, _ := v.(string)
	defer func() {
		if _, err := page.Evaluate(setHashScript, original); err != nil {
			d.log.LogDebugf("restoring hash %q on %s failed: %v", original, location, err)
		}
	}()

	var out []string
	for _, h := range targets {
		if ctx.Err() != nil {
			break
		}
		if _, err := page.Evaluate(setHashScript, "#"+h); err != nil {
			d.log.LogDebugf("hash navigation to #%s failed: %v", h, err)
			continue
		}
		_, _, _ = poll.UntilStable(ctx, d.opts.Stability, func() (int, error) {
			v, err := page.Evaluate(linkCountScript)
			if err != nil {
				return 0, err
			}
			n, _ := v.(float64)
			return int(n), nil
		})
		links, err := collectAnchors(page)
		if err != nil {
			d.log.LogDebugf("anchors after #%s failed: %v", h, err)
			continue
		}
		out = append(out, links...)
	}
	return out, nil
}

// hashTargets picks distinct hash routes on the same document as location,
// excluding the route currently shown.
func hashTargets(location string, candidates []string, limit int) []string {
	loc, err := urlnorm.Parse(location)
	if err != nil {
		return nil
	}
	seen := map[string]struct{}{loc.Fragment(): {}}
	var out []string
	for _, c := range candidates {
		if len(out) >= limit {
			break
		}
		u, err := urlnorm.Parse(c)
		if err != nil || !urlnorm.IsHashRoute(u.Fragment()) {
			continue
		}
		if u.Host() != loc.Host() || u.Pathname() != loc.Pathname() {
			continue
		}
		if _, ok := seen[u.Fragment()]; ok {
			continue
		}
		seen[u.Fragment()] = struct{}{}
		out = append(out, u.Fragment())
	}
	return out
}
