// Package store persists the page records a crawl produces.
package store

import (
	"context"
	"errors"
)

// PageRecord is one visited canonical URL. It is written once and never
// updated.
type PageRecord struct {
	ID         string `json:"id"`
	JobID      string `json:"job_id"`
	URL        string `json:"url"`
	Depth      int    `json:"depth"`
	ParentURL  string `json:"parent_url,omitempty"`
	Title      string `json:"title"`
	StatusCode int    `json:"status_code"`
}

// ErrMissingJob is returned when a record has no job to belong to.
var ErrMissingJob = errors.New("page record has no job id")

// PageStore is the persistence sink for crawl results. InsertPage assigns
// the record ID and returns it.
type PageStore interface {
	InsertPage(ctx context.Context, rec PageRecord) (string, error)
	ListPages(ctx context.Context, jobID string) ([]PageRecord, error)
}
