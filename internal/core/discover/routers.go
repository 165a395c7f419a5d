package discover

import (
	"fmt"
	"path"
	"strings"

	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/platform/browser"
)

// Route is one node of a client-side router configuration.
type Route struct {
	Path     string
	Children []Route
}

// RouteTable is what a RouteExtractor reads out of a running app.
type RouteTable struct {
	// Hash is true for routers that keep the view in location.hash.
	Hash   bool
	Routes []Route
}

// RouteExtractor reads the route configuration of one client-side router
// framework. A page that does not run that framework yields (nil, nil).
type RouteExtractor interface {
	Name() string
	Extract(page browser.Page) (*RouteTable, error)
}

// DefaultExtractors covers the routers we know how to introspect.
func DefaultExtractors() []RouteExtractor {
	return []RouteExtractor{
		treeExtractor{name: "vue", script: vueRouterScript},
		treeExtractor{name: "nuxt", script: nuxtRouterScript},
		treeExtractor{name: "react-router", script: reactRouterScript},
		treeExtractor{name: "angular", script: angularRouterScript},
		nextExtractor{},
	}
}

// treeExtractor evaluates a script returning {hash, routes:[{path,children}]}.
type treeExtractor struct {
	name   string
	script string
}

func (e treeExtractor) Name() string { return e.name }

func (e treeExtractor) Extract(page browser.Page) (*RouteTable, error) {
	v, err := page.Evaluate(e.script)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: unexpected router payload %T", e.name, v)
	}
	hash, _ := m["hash"].(bool)
	return &RouteTable{Hash: hash, Routes: decodeRoutes(m["routes"], 0)}, nil
}

// nextExtractor reads the Next.js build manifest, a flat list of page paths.
type nextExtractor struct{}

func (nextExtractor) Name() string { return "next" }

func (nextExtractor) Extract(page browser.Page) (*RouteTable, error) {
	v, err := page.Evaluate(nextPagesScript)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return nil, nil
	}
	t := &RouteTable{}
	for _, p := range list {
		if s, ok := p.(string); ok && !strings.HasPrefix(s, "/_") {
			t.Routes = append(t.Routes, Route{Path: s})
		}
	}
	return t, nil
}

const maxRouteDepth = 10

func decodeRoutes(v interface{}, depth int) []Route {
	list, ok := v.([]interface{})
	if !ok || depth > maxRouteDepth {
		return nil
	}
	out := make([]Route, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		p, _ := m["path"].(string)
		out = append(out, Route{Path: p, Children: decodeRoutes(m["children"], depth+1)})
	}
	return out
}

// Paths flattens the route tree into concrete absolute router paths.
// Parameterized or wildcard routes are skipped since they name no single
// page.
func (t *RouteTable) Paths() []string {
	if t == nil {
		return nil
	}
	var out []string
	walkRoutes(t.Routes, "", 0, &out)
	return out
}

// URLs turns the route paths into crawlable URLs relative to location.
func (t *RouteTable) URLs(location string) []string {
	base, err := urlnorm.Parse(location)
	if err != nil || base.Hostname() == "" {
		return nil
	}
	origin := base.Scheme() + "://" + base.Host()
	var out []string
	for _, p := range t.Paths() {
		if t.Hash {
			out = append(out, origin+base.Pathname()+"#"+p)
			continue
		}
		if abs, err := urlnorm.Resolve(origin+"/", p); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

func walkRoutes(routes []Route, prefix string, depth int, out *[]string) {
	if depth > maxRouteDepth {
		return
	}
	for _, r := range routes {
		full := joinRoute(prefix, r.Path)
		if concrete(full) {
			*out = append(*out, full)
		}
		walkRoutes(r.Children, full, depth+1, out)
	}
}

func joinRoute(prefix, p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	if p == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	return path.Clean(strings.TrimSuffix(prefix, "/") + "/" + p)
}

func concrete(p string) bool {
	return !strings.ContainsAny(p, ":*[]()?")
}

// Route table serialization shared by the tree extractors: keep only
// path/children so the result survives the JSON hop out of the page.
const serializeRoutes = `
	const ser = (rs, d) => (Array.isArray(rs) && d < 10)
		? rs.map(r => ({ path: typeof r.path === 'string' ? r.path : '', children: ser(r.children, d + 1) }))
		: [];`

const vueRouterScript = `() => {` + serializeRoutes + `
	const el = document.querySelector('[data-v-app]') || document.querySelector('#app');
	if (!el) return null;
	if (el.__vue_app__) {
		const r = el.__vue_app__.config.globalProperties.$router;
		if (!r) return null;
		const base = (r.options.history && r.options.history.base) || '';
		return { hash: base.indexOf('#') >= 0, routes: ser(r.options.routes, 0) };
	}
	if (el.__vue__ && el.__vue__.$router) {
		const r = el.__vue__.$router;
		return { hash: r.mode === 'hash', routes: ser(r.options.routes, 0) };
	}
	return null;
}`

const nuxtRouterScript = `() => {` + serializeRoutes + `
	const n = window.$nuxt;
	if (n && n.$router) {
		return { hash: n.$router.mode === 'hash', routes: ser(n.$router.options.routes, 0) };
	}
	const el = document.querySelector('#__nuxt');
	const app = el && el.__vue_app__;
	const r = app && app.config.globalProperties.$router;
	if (!r) return null;
	return { hash: false, routes: ser(r.getRoutes().filter(x => !x.aliasOf), 0) };
}`

const reactRouterScript = `() => {` + serializeRoutes + `
	const dr = window.__reactRouterDataRouter || window.__remixRouter;
	if (dr && Array.isArray(dr.routes)) {
		return { hash: location.hash.startsWith('#/'), routes: ser(dr.routes, 0) };
	}
	const mf = (window.__reactRouterManifest || window.__remixManifest || {}).routes;
	if (!mf) return null;
	const nodes = {};
	Object.keys(mf).forEach(id => { nodes[id] = { path: mf[id].path || '', children: [] }; });
	const roots = [];
	Object.keys(mf).forEach(id => {
		const p = mf[id].parentId;
		if (p && nodes[p]) nodes[p].children.push(nodes[id]); else roots.push(nodes[id]);
	});
	return { hash: false, routes: roots };
}`

const angularRouterScript = `() => {` + serializeRoutes + `
	if (!window.ng || typeof window.getAllAngularRootElements !== 'function') return null;
	for (const root of window.getAllAngularRootElements()) {
		const cmp = window.ng.getComponent(root);
		if (!cmp) continue;
		for (const k of Object.keys(cmp)) {
			const v = cmp[k];
			if (v && Array.isArray(v.config) && typeof v.navigate === 'function') {
				const hash = !!(v.location && v.location._platformStrategy && v.location._platformStrategy.constructor.name === 'HashLocationStrategy');
				return { hash: hash || location.hash.startsWith('#/'), routes: ser(v.config, 0) };
			}
		}
	}
	return null;
}`

const nextPagesScript = `() => {
	const m = window.__BUILD_MANIFEST;
	if (m && Array.isArray(m.sortedPages)) return m.sortedPages;
	return null;
}`
