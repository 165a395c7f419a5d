// Package frontier runs the breadth-first traversal of one crawl job. The
// traversal state (queue, visited set, counters) lives in a value owned by
// a single Run call, so any number of jobs can run side by side.
package frontier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitemapper/internal/core/fetch"
	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/logger"
	"sitemapper/internal/store"
	"sitemapper/internal/utils/poll"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidJob = errors.New("invalid crawl job")

// Job describes one traversal.
type Job struct {
	ID       string
	Seed     string
	MaxDepth int
	MaxPages int
}

// Item is a queued URL. URL is always canonical.
type Item struct {
	URL       string
	Depth     int
	ParentURL string
}

// Fetcher loads one page and reports its title and candidate links.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// PageSink persists a visited page and returns its ID.
type PageSink interface {
	InsertPage(ctx context.Context, rec store.PageRecord) (string, error)
}

type Progress struct {
	PagesCrawled int `json:"pages_crawled"`
	Queued       int `json:"queued"`
}

type ProgressSink interface {
	Progress(ctx context.Context, jobID string, p Progress)
}

// RobotsPolicy filters URLs before dispatch.
type RobotsPolicy interface {
	Allowed(url string) bool
}

// delayer is implemented by policies that carry a Crawl-delay.
type delayer interface {
	CrawlDelay() time.Duration
}

// MaxCrawlDelay caps the pause a site's robots.txt can impose between
// batches.
const MaxCrawlDelay = 10 * time.Second

type Options struct {
	// Concurrency is the batch size and the number of fetches in flight.
	Concurrency int
	Robots      RobotsPolicy
	Progress    ProgressSink
}

const DefaultConcurrency = 3

type Manager struct {
	fetcher Fetcher
	sink    PageSink
	opts    Options
	log     *logger.Logger
}

func New(fetcher Fetcher, sink PageSink, opts Options) *Manager {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Manager{fetcher: fetcher, sink: sink, opts: opts, log: logger.New("Frontier")}
}

func (m *Manager) WithLogger(l *logger.Logger) *Manager {
	m.log = l
	return m
}

// traversal is the per-job state. Only Run's goroutine touches it.
type traversal struct {
	job     Job
	seed    string
	queue   []Item
	known   map[string]struct{} // queued or visited
	visited map[string]struct{}
	landed  map[string]struct{} // canonical landing URLs of visited pages
	records []store.PageRecord
}

type outcome struct {
	res *fetch.Result
	err error
}

// Run crawls job and returns the records that were persisted, in visit
// order. Per-page failures are recorded, never returned. A cancelled ctx
// stops the traversal after the in-flight batch; that batch is discarded
// and ctx.Err() is returned along with the records already persisted.
func (m *Manager) Run(ctx context.Context, job Job) ([]store.PageRecord, error) {
	if job.MaxPages < 1 || job.MaxDepth < 0 {
		return nil, fmt.Errorf("%w: max_pages=%d max_depth=%d", ErrInvalidJob, job.MaxPages, job.MaxDepth)
	}
	seed, err := urlnorm.Normalize(urlnorm.EnsureScheme(job.Seed))
	if err != nil {
		return nil, fmt.Errorf("%w: seed: %v", ErrInvalidJob, err)
	}

	t := &traversal{
		job:     job,
		seed:    seed,
		known:   map[string]struct{}{seed: {}},
		visited: make(map[string]struct{}),
		landed:  make(map[string]struct{}),
		queue:   []Item{{URL: seed}},
	}
	m.log.LogInfof("Crawling %s (depth %d, pages %d, concurrency %d)", seed, job.MaxDepth, job.MaxPages, m.opts.Concurrency)

	delay := m.crawlDelay()
	for len(t.queue) > 0 && len(t.visited) < job.MaxPages {
		if err := ctx.Err(); err != nil {
			return t.records, err
		}
		if delay > 0 && len(t.visited) > 0 {
			if err := poll.Sleep(ctx, delay); err != nil {
				return t.records, err
			}
		}
		batch := m.nextBatch(t)
		if len(batch) == 0 {
			continue
		}

		outcomes := m.dispatch(ctx, batch)
		if err := ctx.Err(); err != nil {
			m.log.LogWarnf("Job %s cancelled, discarding %d in-flight pages", job.ID, len(batch))
			return t.records, err
		}

		var links [][]string
		for i, it := range batch {
			links = append(links, m.visit(ctx, t, it, outcomes[i]))
		}
		for i, it := range batch {
			m.enqueue(t, it, links[i])
		}

		if m.opts.Progress != nil {
			m.opts.Progress.Progress(ctx, job.ID, Progress{PagesCrawled: len(t.visited), Queued: len(t.queue)})
		}
	}

	m.log.LogSuccessf("Crawl of %s finished: %d visited, %d recorded", seed, len(t.visited), len(t.records))
	return t.records, nil
}

func (m *Manager) crawlDelay() time.Duration {
	d, ok := m.opts.Robots.(delayer)
	if !ok {
		return 0
	}
	return min(d.CrawlDelay(), MaxCrawlDelay)
}

// nextBatch pops up to Concurrency dispatchable items, never more than the
// remaining page budget.
func (m *Manager) nextBatch(t *traversal) []Item {
	limit := m.opts.Concurrency
	if remaining := t.job.MaxPages - len(t.visited); remaining < limit {
		limit = remaining
	}
	var batch []Item
	for len(t.queue) > 0 && len(batch) < limit {
		it := t.queue[0]
		t.queue = t.queue[1:]
		if it.Depth > t.job.MaxDepth {
			continue
		}
		if _, ok := t.visited[it.URL]; ok {
			continue
		}
		if _, ok := t.landed[it.URL]; ok {
			continue
		}
		if m.opts.Robots != nil && it.URL != t.seed && !m.opts.Robots.Allowed(it.URL) {
			m.log.LogDebugf("robots.txt disallows %s", it.URL)
			continue
		}
		batch = append(batch, it)
	}
	return batch
}

func (m *Manager) dispatch(ctx context.Context, batch []Item) []outcome {
	out := make([]outcome, len(batch))
	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)
	for i, it := range batch {
		g.Go(func() error {
			res, err := m.fetcher.Fetch(ctx, it.URL)
			out[i] = outcome{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// visit marks it visited, emits its record and returns its outgoing links.
func (m *Manager) visit(ctx context.Context, t *traversal, it Item, o outcome) []string {
	t.visited[it.URL] = struct{}{}
	rec := store.PageRecord{
		JobID:     t.job.ID,
		URL:       it.URL,
		Depth:     it.Depth,
		ParentURL: it.ParentURL,
	}
	var links []string
	if o.err != nil || o.res == nil {
		rec.Title = fetch.ErrorTitle(o.err)
		rec.StatusCode = fetch.StatusFor(o.err)
		m.log.LogWarnf("Fetch failed for %s: %v", it.URL, o.err)
	} else {
		rec.Title = o.res.Title
		rec.StatusCode = o.res.StatusCode
		links = o.res.Links
		t.alias(o.res.FinalURL)
	}

	id, err := m.sink.InsertPage(ctx, rec)
	if err != nil {
		m.log.LogErrorf("Persisting %s failed, page left out: %v", it.URL, err)
		return links
	}
	rec.ID = id
	t.records = append(t.records, rec)
	return links
}

// alias records the canonical form of a page's landing URL, so a redirect
// or a router landing on "#/" is not crawled a second time.
func (t *traversal) alias(final string) {
	u, err := urlnorm.Normalize(final)
	if err != nil || !urlnorm.SameDomain(t.seed, u) {
		return
	}
	t.known[u] = struct{}{}
	t.landed[u] = struct{}{}
}

func (m *Manager) enqueue(t *traversal, parent Item, links []string) {
	depth := parent.Depth + 1
	if depth > t.job.MaxDepth {
		return
	}
	for _, raw := range links {
		u, err := urlnorm.Normalize(raw)
		if err != nil {
			continue
		}
		if !urlnorm.SameDomain(t.seed, u) {
			continue
		}
		if _, ok := t.known[u]; ok {
			continue
		}
		t.known[u] = struct{}{}
		t.queue = append(t.queue, Item{URL: u, Depth: depth, ParentURL: parent.URL})
	}
}
