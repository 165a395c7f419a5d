package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sitemapper/internal/config"
	"sitemapper/internal/core/discover"
	"sitemapper/internal/core/fetch"
	"sitemapper/internal/core/frontier"
	"sitemapper/internal/core/job"
	"sitemapper/internal/core/recommend"
	"sitemapper/internal/core/robots"
	"sitemapper/internal/core/sitemap"
	"sitemapper/internal/core/urlnorm"
	"sitemapper/internal/logger"
	"sitemapper/internal/platform/browser"
	"sitemapper/internal/platform/eino"
	tasks "sitemapper/internal/platform/tasks"
	"sitemapper/internal/store"
	"sitemapper/internal/utils/poll"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

var (
	ErrInvalidRequest          = errors.New("invalid crawl request")
	ErrJobNotReady             = errors.New("crawl job has not completed")
	ErrRecommendationsDisabled = errors.New("recommendations are not configured")
)

// Request is the crawl job descriptor. Unset fields take the configured
// crawl defaults.
type Request struct {
	URL           string `json:"url"`
	MaxDepth      *int   `json:"max_depth,omitempty"`
	MaxPages      *int   `json:"max_pages,omitempty"`
	Concurrency   *int   `json:"concurrency,omitempty"`
	RespectRobots *bool  `json:"respect_robots,omitempty"`
	// Render false fetches pages over plain HTTP without a browser.
	Render *bool `json:"render,omitempty"`
}

type TaskPayload struct {
	JobID   string  `json:"job_id"`
	Request Request `json:"request"`
}

// Exporter stores the rendered sitemap XML and returns its location.
type Exporter interface {
	SaveSitemap(ctx context.Context, jobID string, data []byte) (string, error)
}

type CrawlService struct {
	job       *job.JobService
	tasks     *tasks.Client
	pages     store.PageStore
	launcher  browser.Launcher
	robots    *robots.Loader
	exporter  Exporter
	recommend *recommend.Service
	config    config.Config
	log       *logger.Logger
}

type Deps struct {
	Job       *job.JobService
	Tasks     *tasks.Client
	Pages     store.PageStore
	Launcher  browser.Launcher
	Robots    *robots.Loader
	Exporter  Exporter
	Recommend *recommend.Service
}

func NewCrawlService(d Deps, cfg config.Config) *CrawlService {
	return &CrawlService{
		job:       d.Job,
		tasks:     d.Tasks,
		pages:     d.Pages,
		launcher:  d.Launcher,
		robots:    d.Robots,
		exporter:  d.Exporter,
		recommend: d.Recommend,
		config:    cfg,
		log:       logger.New("CrawlService"),
	}
}

// resolved is a Request with every default applied.
type resolved struct {
	seed          string
	maxDepth      int
	maxPages      int
	concurrency   int
	respectRobots bool
	render        bool
}

func (s *CrawlService) resolve(r Request) (resolved, error) {
	seed, err := urlnorm.Normalize(urlnorm.EnsureScheme(r.URL))
	if err != nil {
		return resolved{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	d := s.config.Crawl
	out := resolved{
		seed:          seed,
		maxDepth:      intOr(r.MaxDepth, d.MaxDepth),
		maxPages:      intOr(r.MaxPages, d.MaxPages),
		concurrency:   intOr(r.Concurrency, d.Concurrency),
		respectRobots: d.RespectRobots,
		render:        true,
	}
	if r.RespectRobots != nil {
		out.respectRobots = *r.RespectRobots
	}
	if r.Render != nil {
		out.render = *r.Render
	}
	switch {
	case out.maxDepth < 0:
		return resolved{}, fmt.Errorf("%w: max_depth must be >= 0", ErrInvalidRequest)
	case out.maxPages < 1:
		return resolved{}, fmt.Errorf("%w: max_pages must be >= 1", ErrInvalidRequest)
	case out.concurrency < 1 || out.concurrency > 16:
		return resolved{}, fmt.Errorf("%w: concurrency must be between 1 and 16", ErrInvalidRequest)
	}
	return out, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// Enqueue validates req, records a pending job and queues the crawl task.
func (s *CrawlService) Enqueue(ctx context.Context, req Request) (string, error) {
	r, err := s.resolve(req)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	payload, err := json.Marshal(TaskPayload{JobID: id, Request: req})
	if err != nil {
		return "", err
	}
	if err := s.job.InitPending(ctx, id, job.TypeCrawl, r.seed); err != nil {
		return "", err
	}
	task := asynq.NewTask(tasks.TaskTypeCrawl, payload)
	if _, err := s.tasks.Enqueue(task, tasks.Options{
		Queue:      tasks.QueueDefault,
		MaxRetries: s.config.TaskMaxRetries,
		ID:         id,
		Timeout:    s.config.TaskTimeout(),
	}); err != nil {
		return "", err
	}
	s.log.LogInfof("enqueued crawl job %s for %s (depth %d, pages %d)", id, r.seed, r.maxDepth, r.maxPages)
	return id, nil
}

// HandleCrawlTask is the asynq handler for TaskTypeCrawl.
func (s *CrawlService) HandleCrawlTask(ctx context.Context, task *asynq.Task) error {
	var p TaskPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := s.log.With("job", p.JobID)
	log.LogInfof("processing crawl of %s", p.Request.URL)
	if err := s.job.SetProcessing(ctx, p.JobID); err != nil {
		return err
	}

	summary, err := s.Run(ctx, p.JobID, p.Request)
	if err != nil {
		log.LogError("crawl failed", err)
		if ferr := s.job.Fail(context.WithoutCancel(ctx), p.JobID, err); ferr != nil {
			log.LogError("marking job failed", ferr)
		}
		return err
	}
	return s.job.Complete(ctx, p.JobID, *summary)
}

// Run crawls req and exports the sitemap. Rendered crawls own a browser
// session that is closed on every exit path, and as soon as ctx is
// cancelled so in-flight navigations abort.
func (s *CrawlService) Run(ctx context.Context, jobID string, req Request) (*job.CrawlSummary, error) {
	r, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	var fetcher frontier.Fetcher
	if r.render {
		sess, err := s.launcher.Launch(ctx)
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		defer func() { _ = sess.Close() }()
		stop := context.AfterFunc(ctx, func() { _ = sess.Close() })
		defer stop()

		d := s.config.Crawl
		stability := poll.Options{Interval: d.StableInterval(), Threshold: d.StableSamples, Timeout: d.StableTimeout()}
		disc := discover.New(discover.Options{MaxHashClicks: d.MaxHashClicks, Stability: stability})
		fetcher = fetch.New(sess, disc, fetch.Options{
			NavTimeout:    d.NavTimeout(),
			Stability:     stability,
			ChallengeWait: d.ChallengeWait(),
		})
	} else {
		fetcher = fetch.NewStatic(fetch.StaticOptions{
			UserAgent: browser.Profile(s.config.BrowserProfile).UserAgent,
			Timeout:   s.config.Crawl.NavTimeout(),
		})
	}

	opts := frontier.Options{
		Concurrency: r.concurrency,
		Progress:    &jobProgress{job: s.job, log: s.log},
	}
	if r.respectRobots && s.robots != nil {
		opts.Robots = s.robots.Load(ctx, r.seed)
	}

	records, err := frontier.New(fetcher, s.pages, opts).Run(ctx, frontier.Job{
		ID:       jobID,
		Seed:     r.seed,
		MaxDepth: r.maxDepth,
		MaxPages: r.maxPages,
	})
	if err != nil {
		return nil, err
	}

	root := sitemap.Build(records)
	stats := sitemap.Summarize(root)
	summary := &job.CrawlSummary{Pages: stats.Pages, Failed: stats.Failed, MaxDepth: stats.MaxDepth}
	if i := sitemap.RootCandidate(records); i >= 0 {
		summary.RootURL = records[i].URL
	}
	if s.exporter != nil {
		var buf bytes.Buffer
		if err := sitemap.WriteXML(&buf, records); err != nil {
			s.log.LogWarnf("rendering sitemap for job %s failed: %v", jobID, err)
		} else if loc, err := s.exporter.SaveSitemap(ctx, jobID, buf.Bytes()); err != nil {
			s.log.LogWarnf("exporting sitemap for job %s failed: %v", jobID, err)
		} else {
			summary.SitemapURL = loc
		}
	}
	s.log.LogSuccessf("crawl job %s done: %d pages, %d failed, depth %d", jobID, stats.Pages, stats.Failed, stats.MaxDepth)
	return summary, nil
}

type jobProgress struct {
	job *job.JobService
	log *logger.Logger
}

func (p *jobProgress) Progress(ctx context.Context, jobID string, pr frontier.Progress) {
	if err := p.job.SetProgress(ctx, jobID, pr.PagesCrawled, pr.Queued); err != nil {
		p.log.LogWarnf("progress update for job %s failed: %v", jobID, err)
	}
}

// Pages returns the stored records of a job in visit order.
func (s *CrawlService) Pages(ctx context.Context, jobID string) ([]store.PageRecord, error) {
	if _, err := s.job.GetJobStatus(ctx, jobID); err != nil {
		return nil, err
	}
	return s.pages.ListPages(ctx, jobID)
}

// Sitemap builds the tree of a completed job.
func (s *CrawlService) Sitemap(ctx context.Context, jobID string) (*sitemap.Node, []store.PageRecord, error) {
	j, err := s.job.GetJobStatus(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if j.Status != job.StatusCompleted {
		return nil, nil, fmt.Errorf("%w: status %s", ErrJobNotReady, j.Status)
	}
	records, err := s.pages.ListPages(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	return sitemap.Build(records), records, nil
}

// Recommendations hands the compressed tree of a completed job to the
// recommendation generator.
func (s *CrawlService) Recommendations(ctx context.Context, jobID string) ([]recommend.Recommendation, *eino.TokenUsage, error) {
	if s.recommend == nil {
		return nil, nil, ErrRecommendationsDisabled
	}
	root, records, err := s.Sitemap(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	site := ""
	if i := sitemap.RootCandidate(records); i >= 0 {
		site = urlnorm.Hostname(records[i].URL)
	}
	return s.recommend.Recommend(ctx, site, root)
}
