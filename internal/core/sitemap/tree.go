// Package sitemap turns the flat page records of a crawl into a tree and
// renders it for exporters.
package sitemap

import (
	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/store"
)

type Node struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Depth    int     `json:"depth"`
	Status   int     `json:"status"`
	Children []*Node `json:"children"`
}

// Virtual reports whether n is a synthesized root rather than a page.
func (n *Node) Virtual() bool { return n.URL == "" && n.Depth == -1 }

const (
	virtualRootID    = "root"
	virtualRootTitle = "Sitemap"
)

func virtualRoot(children []*Node) *Node {
	if children == nil {
		children = []*Node{}
	}
	return &Node{ID: virtualRootID, Title: virtualRootTitle, Depth: -1, Children: children}
}

// Build links records into a single-rooted tree. Each record becomes
// exactly one node. A record is attached under the first record carrying
// its ParentURL; records whose parent is missing, is themselves, or would
// close a cycle stay top-level. One top-level node is returned as the
// root, otherwise a virtual root wraps them in input order.
func Build(records []store.PageRecord) *Node {
	if len(records) == 0 {
		return virtualRoot(nil)
	}

	nodes := make([]*Node, len(records))
	index := make(map[string]int, len(records))
	parent := make([]int, len(records))
	for i, r := range records {
		nodes[i] = &Node{
			ID:       r.ID,
			URL:      r.URL,
			Title:    r.Title,
			Depth:    r.Depth,
			Status:   r.StatusCode,
			Children: []*Node{},
		}
		if _, dup := index[r.URL]; !dup {
			index[r.URL] = i
		}
		parent[i] = -1
	}

	var top []*Node
	for i, r := range records {
		p, ok := -1, false
		if r.ParentURL != "" {
			p, ok = index[r.ParentURL]
		}
		if !ok || reaches(parent, p, i) {
			top = append(top, nodes[i])
			continue
		}
		parent[i] = p
		nodes[p].Children = append(nodes[p].Children, nodes[i])
	}

	if len(top) == 1 {
		return top[0]
	}
	return virtualRoot(top)
}

// reaches reports whether walking up from start hits target.
func reaches(parent []int, start, target int) bool {
	for q, steps := start, 0; q != -1 && steps <= len(parent); q, steps = parent[q], steps+1 {
		if q == target {
			return true
		}
	}
	return false
}

// RootCandidate returns the index of the record that represents the site
// root: the first one at path "/" without a hash route, else 0. It returns
// -1 for no records.
func RootCandidate(records []store.PageRecord) int {
	if len(records) == 0 {
		return -1
	}
	for i, r := range records {
		if urlnorm.Path(r.URL) == "/" && !urlnorm.IsHashRoute(urlnorm.Fragment(r.URL)) {
			return i
		}
	}
	return 0
}

// Walk visits n and its descendants depth-first in child order. The parent
// of the top node is nil.
func Walk(n *Node, fn func(n, parent *Node)) {
	var rec func(n, parent *Node)
	rec = func(n, parent *Node) {
		fn(n, parent)
		for _, c := range n.Children {
			rec(c, n)
		}
	}
	if n != nil {
		rec(n, nil)
	}
}

type Stats struct {
	Pages    int `json:"pages"`
	MaxDepth int `json:"max_depth"`
	Leaves   int `json:"leaves"`
	Failed   int `json:"failed"`
}

// Summarize counts page nodes; a virtual root is not a page.
func Summarize(root *Node) Stats {
	var s Stats
	Walk(root, func(n, _ *Node) {
		if n.Virtual() {
			return
		}
		s.Pages++
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
		if len(n.Children) == 0 {
			s.Leaves++
		}
		if n.Status == 0 || n.Status >= 400 {
			s.Failed++
		}
	})
	return s
}
