package fetch

import (
	"strings"

	"sitemapper/internal/core/urlnorm"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// ResolveTitle picks a human label for a page: the document title, then the
// first h1, then an h2 or meta title, then the humanized last path segment,
// and finally "Home" for the site root or "Page" for anything else.
func ResolveTitle(docTitle, html, pageURL string) string {
	if t := clean(docTitle); t != "" {
		return t
	}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		if t := clean(doc.Find("title").First().Text()); t != "" {
			return t
		}
		if t := clean(doc.Find("h1").First().Text()); t != "" {
			return t
		}
		if t := clean(doc.Find("h2").First().Text()); t != "" {
			return t
		}
		for _, sel := range []string{`meta[property="og:title"]`, `meta[name="title"]`, `meta[name="twitter:title"]`} {
			if v, ok := doc.Find(sel).First().Attr("content"); ok {
				if t := clean(v); t != "" {
					return t
				}
			}
		}
	}
	if t := Humanize(lastSegment(pageURL)); t != "" {
		return t
	}
	if isRoot(pageURL) {
		return "Home"
	}
	return "Page"
}

// Humanize turns a slug like "getting-started" into "Getting Started".
func Humanize(segment string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return titleCaser.String(s)
}

func lastSegment(pageURL string) string {
	path := urlnorm.Path(pageURL)
	if frag := urlnorm.Fragment(pageURL); urlnorm.IsHashRoute(frag) {
		path = frag
	}
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return ""
	}
	seg := parts[len(parts)-1]
	if i := strings.LastIndex(seg, "."); i > 0 {
		seg = seg[:i]
	}
	return seg
}

func isRoot(pageURL string) bool {
	frag := urlnorm.Fragment(pageURL)
	return urlnorm.Path(pageURL) == "/" && (frag == "" || frag == "/")
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
