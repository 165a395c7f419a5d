// Package urlnorm canonicalizes crawl URLs into the identity key used for
// de-duplication. Two URLs name the same page iff their canonical strings
// are equal.
//
// Parsing follows the WHATWG URL standard, the same rules the browser
// applies to the hrefs it reports, so a link the browser can follow is a
// link the crawler can key.
package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

// ErrInvalidURL is returned for input that cannot be a crawlable page.
var ErrInvalidURL = errors.New("invalid url")

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// Parse parses an absolute URL the way a browser does.
func Parse(rawURL string) (*whatwgUrl.Url, error) {
	u, err := urlParser.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return u, nil
}

// Normalize returns the canonical form of rawURL. The query string is
// always dropped, fragments survive only when they are SPA hash routes
// ("#/..."), and a trailing slash is removed from any path but "/".
func Normalize(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return canonical(u)
}

func canonical(u *whatwgUrl.Url) (string, error) {
	scheme := u.Scheme()
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	path := u.Pathname()
	if path != "/" {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(u.Host())
	b.WriteString(path)
	if f := u.Fragment(); IsHashRoute(f) {
		b.WriteByte('#')
		b.WriteString(f)
	}
	return b.String(), nil
}

// IsHashRoute reports whether a fragment (without the leading '#') denotes
// a client-side router view rather than an in-page anchor.
func IsHashRoute(fragment string) bool {
	return strings.HasPrefix(fragment, "/")
}

// SameDomain reports whether a and b are on the same site. Hostnames are
// compared case-insensitively and modulo a leading "www.".
func SameDomain(a, b string) bool {
	ha, hb := Hostname(a), Hostname(b)
	if ha == "" || hb == "" {
		return false
	}
	return strings.TrimPrefix(ha, "www.") == strings.TrimPrefix(hb, "www.")
}

// Hostname returns the lower-cased host of rawURL without port, or "".
func Hostname(rawURL string) string {
	u, err := Parse(EnsureScheme(rawURL))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "blob:", "about:"}

// Resolve turns an href found on a page at base into an absolute URL, with
// the browser's handling of backslashes, stray '%' signs and embedded tabs
// or newlines. Pseudo-links (javascript:, mailto: ...) and bare "#" anchors
// are rejected.
func Resolve(base, href string) (string, error) {
	h := strings.TrimSpace(href)
	if h == "" || h == "#" {
		return "", fmt.Errorf("%w: empty href", ErrInvalidURL)
	}
	lower := strings.ToLower(h)
	for _, s := range skippedSchemes {
		if strings.HasPrefix(lower, s) {
			return "", fmt.Errorf("%w: pseudo link %q", ErrInvalidURL, s)
		}
	}
	u, err := urlParser.ParseRef(base, h)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return u.Href(false), nil
}

// EnsureScheme prefixes bare domains such as "example.com" with https://.
func EnsureScheme(seed string) string {
	s := strings.TrimSpace(seed)
	if s == "" || strings.Contains(s, "://") {
		return s
	}
	return "https://" + s
}

// Path returns the decoded path component of a canonical URL ("/" when
// empty).
func Path(canonical string) string {
	u, err := Parse(canonical)
	if err != nil || u.Pathname() == "" {
		return "/"
	}
	return unescape(u.Pathname())
}

// Fragment returns the decoded fragment of a canonical URL without the '#'.
func Fragment(canonical string) string {
	u, err := Parse(canonical)
	if err != nil {
		return ""
	}
	return unescape(u.Fragment())
}

func unescape(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}
