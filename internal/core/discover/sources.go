package discover

import (
	"fmt"
	"regexp"
	"strings"

	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/platform/browser"
)

const anchorsScript = `() => {
	const out = [];
	for (const a of document.querySelectorAll('a[href]')) {
		const href = a.getAttribute('href') || '';
		if (!href || href === '#') continue;
		if (href.startsWith('#') && !href.startsWith('#/')) continue;
		try { out.push(new URL(href, document.baseURI).toString()); } catch (_) {}
	}
	return out;
}`

// navAttributes are attributes SPA frameworks and hand-rolled routers use
// in place of a real href.
var navAttributes = []string{
	"data-href",
	"data-url",
	"data-link",
	"data-route",
	"data-to",
	"routerlink",
	"ng-reflect-router-link",
	"to",
}

const attributesScript = `(attrs) => {
	const out = [];
	const sel = attrs.map(a => '[' + a + ']').join(',') + ',[href]:not(a):not(link):not(base),[onclick]';
	for (const el of document.querySelectorAll(sel)) {
		for (const a of attrs.concat(['href'])) {
			const v = el.getAttribute(a);
			if (v) out.push(v);
		}
		const oc = el.getAttribute('onclick');
		if (oc) out.push('onclick:' + oc);
	}
	return out;
}`

// onclickNav matches location assignments and router pushes in inline
// handlers, e.g. location.href='/x' or router.push("/y").
var onclickNav = regexp.MustCompile(`(?:location(?:\.href)?\s*=|location\.(?:assign|replace)\(|\.push\(|navigate\(\[?)\s*['"]([^'"]+)['"]`)

func collectAnchors(page browser.Page) ([]string, error) {
	v, err := page.Evaluate(anchorsScript)
	if err != nil {
		return nil, err
	}
	raw, err := stringList(v)
	if err != nil {
		return nil, err
	}
	base := page.URL()
	out := make([]string, 0, len(raw))
	for _, href := range raw {
		if abs, err := urlnorm.Resolve(base, href); err == nil {
			out = append(out, abs)
		}
	}
	return out, nil
}

func collectAttributeLinks(page browser.Page, location string) ([]string, error) {
	attrs := make([]interface{}, len(navAttributes))
	for i, a := range navAttributes {
		attrs[i] = a
	}
	v, err := page.Evaluate(attributesScript, attrs)
	if err != nil {
		return nil, err
	}
	raw, err := stringList(v)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, val := range raw {
		for _, target := range attributeTargets(val) {
			if abs, err := urlnorm.Resolve(location, target); err == nil {
				out = append(out, abs)
			}
		}
	}
	return out, nil
}

// attributeTargets extracts route targets from one attribute value.
func attributeTargets(val string) []string {
	if strings.HasPrefix(val, "onclick:") {
		var out []string
		for _, m := range onclickNav.FindAllStringSubmatch(val, -1) {
			out = append(out, m[1])
		}
		return out
	}
	v := strings.TrimSpace(val)
	// Angular binds arrays like "['/users', 42]"; only the literal head is usable.
	if strings.HasPrefix(v, "[") {
		v = strings.Trim(v, "[] ")
		if i := strings.Index(v, ","); i >= 0 {
			v = v[:i]
		}
		v = strings.Trim(v, `'" `)
	}
	if v == "" || strings.HasPrefix(v, "{") {
		return nil
	}
	if !strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "#/") && !strings.Contains(v, "://") && !strings.HasPrefix(v, ".") {
		// bare words in "to"/"data-link" are too ambiguous unless they look like paths
		if strings.ContainsAny(v, " =(") {
			return nil
		}
	}
	return []string{v}
}

func stringList(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
