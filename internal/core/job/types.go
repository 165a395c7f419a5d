package job

import "time"

// Job is the stored state of one crawl.
type Job struct {
	JobID        string        `json:"job_id"`
	Type         Type          `json:"type"`
	Status       Status        `json:"status"`
	URL          string        `json:"url"`
	PagesCrawled int           `json:"pages_crawled"`
	Queued       int           `json:"queued"`
	Error        string        `json:"error,omitempty"`
	Result       *CrawlSummary `json:"result,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type Type string

const (
	TypeCrawl Type = "crawl"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Final reports whether no further updates will follow.
func (s Status) Final() bool { return s == StatusCompleted || s == StatusFailed }

// CrawlSummary is attached to a completed job.
type CrawlSummary struct {
	Pages      int    `json:"pages"`
	Failed     int    `json:"failed"`
	MaxDepth   int    `json:"max_depth"`
	RootURL    string `json:"root_url,omitempty"`
	SitemapURL string `json:"sitemap_url,omitempty"`
}

// Event is published on the job channel for stream listeners.
type Event struct {
	Type         string `json:"type"` // "status" or "progress"
	Status       Status `json:"status"`
	PagesCrawled int    `json:"pages_crawled"`
	Queued       int    `json:"queued"`
	Error        string `json:"error,omitempty"`
}
