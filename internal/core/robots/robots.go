// Package robots applies a site's robots.txt on a best-effort basis. Any
// failure to load the file results in a policy that allows everything.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/logger"

	"github.com/temoto/robotstxt"
)

const maxRobotsBytes = 512 << 10

// Policy answers whether a URL may be crawled.
type Policy struct {
	group *robotstxt.Group
}

// AllowAll is the policy used when robots.txt is unavailable.
func AllowAll() *Policy { return &Policy{} }

// Parse builds a policy for agent from a robots.txt body and the HTTP
// status it was served with.
func Parse(status int, body []byte, agent string) (*Policy, error) {
	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil, err
	}
	return &Policy{group: data.FindGroup(agent)}, nil
}

// Allowed reports whether rawURL's path may be fetched.
func (p *Policy) Allowed(rawURL string) bool {
	if p == nil || p.group == nil {
		return true
	}
	u, err := urlnorm.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.Pathname()
	if path == "" {
		path = "/"
	}
	return p.group.Test(path)
}

// CrawlDelay returns the delay requested for the agent, if any.
func (p *Policy) CrawlDelay() time.Duration {
	if p == nil || p.group == nil {
		return 0
	}
	return p.group.CrawlDelay
}

type Loader struct {
	client *http.Client
	agent  string
	log    *logger.Logger
}

func NewLoader(agent string) *Loader {
	return &Loader{
		client: &http.Client{Timeout: 10 * time.Second},
		agent:  agent,
		log:    logger.New("Robots"),
	}
}

// Load fetches robots.txt for seed's origin. It never returns nil.
func (l *Loader) Load(ctx context.Context, seed string) *Policy {
	p, err := l.load(ctx, seed)
	if err != nil {
		l.log.LogDebugf("robots.txt for %s unavailable, allowing all: %v", seed, err)
		return AllowAll()
	}
	return p
}

func (l *Loader) load(ctx context.Context, seed string) (*Policy, error) {
	u, err := urlnorm.Parse(seed)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("bad seed %q", seed)
	}
	robotsURL := u.Scheme() + "://" + u.Host() + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", l.agent)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, err
	}
	return Parse(resp.StatusCode, body, l.agent)
}
