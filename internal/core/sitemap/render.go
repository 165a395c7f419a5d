package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/store"
)

// Entry is the tuple exporters consume.
type Entry struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Depth     int    `json:"depth"`
	ParentURL string `json:"parent_url,omitempty"`
}

// Flatten lists the page nodes of root in pre-order. ParentURL is the
// node's parent in the tree, empty for top-level pages.
func Flatten(root *Node) []Entry {
	var out []Entry
	Walk(root, func(n, parent *Node) {
		if n.Virtual() {
			return
		}
		e := Entry{URL: n.URL, Title: n.Title, Depth: n.Depth}
		if parent != nil && !parent.Virtual() {
			e.ParentURL = parent.URL
		}
		out = append(out, e)
	})
	return out
}

type CompressOptions struct {
	// MaxSiblings is how many children of one node are listed before the
	// rest are summarized as a count.
	MaxSiblings int
	// MaxDepth stops the outline below this tree level; 0 means no limit.
	MaxDepth int
}

func (o CompressOptions) withDefaults() CompressOptions {
	if o.MaxSiblings <= 0 {
		o.MaxSiblings = 8
	}
	return o
}

// Compress renders root as an indented outline of route labels and titles,
// small enough to hand to a language model.
//
//	/ "Home"
//	  /docs "Docs"
//	    /docs/intro "Intro"
//	    (+12 more)
func Compress(root *Node, opts CompressOptions) string {
	opts = opts.withDefaults()
	var b strings.Builder
	var rec func(n *Node, level int)
	rec = func(n *Node, level int) {
		indent := strings.Repeat("  ", level)
		fmt.Fprintf(&b, "%s%s %q", indent, label(n), n.Title)
		if n.Status != 0 && n.Status != 200 {
			fmt.Fprintf(&b, " [%d]", n.Status)
		} else if n.Status == 0 && !n.Virtual() {
			b.WriteString(" [failed]")
		}
		b.WriteByte('\n')
		if opts.MaxDepth > 0 && level >= opts.MaxDepth {
			if len(n.Children) > 0 {
				fmt.Fprintf(&b, "%s  (+%d below)\n", indent, len(n.Children))
			}
			return
		}
		for i, c := range n.Children {
			if i == opts.MaxSiblings {
				fmt.Fprintf(&b, "%s  (+%d more)\n", indent, len(n.Children)-i)
				break
			}
			rec(c, level+1)
		}
	}
	if root != nil {
		rec(root, 0)
	}
	return b.String()
}

func label(n *Node) string {
	if n.Virtual() {
		return "*"
	}
	p := urlnorm.Path(n.URL)
	if f := urlnorm.Fragment(n.URL); urlnorm.IsHashRoute(f) {
		if p == "/" {
			return "#" + f
		}
		return p + "#" + f
	}
	return p
}

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc      string `xml:"loc"`
	Priority string `xml:"priority"`
}

// WriteXML writes a sitemaps.org urlset of the successfully fetched
// records, in record order.
func WriteXML(w io.Writer, records []store.PageRecord) error {
	set := urlset{XMLNS: sitemapNS}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.StatusCode < 200 || r.StatusCode >= 400 {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		set.URLs = append(set.URLs, xmlURL{Loc: r.URL, Priority: priority(r.Depth)})
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func priority(depth int) string {
	p := 1.0 - 0.2*float64(depth)
	if p < 0.1 {
		p = 0.1
	}
	return fmt.Sprintf("%.1f", p)
}
