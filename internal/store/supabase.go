package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
)

// Tables is satisfied by *supabase.Client and *postgrest.Client.
type Tables interface {
	From(table string) *postgrest.QueryBuilder
}

// SupabaseStore writes pages to a PostgREST table with columns matching
// PageRecord's JSON tags plus a server-side created_at default.
type SupabaseStore struct {
	db    Tables
	table string
}

func NewSupabaseStore(db Tables, table string) *SupabaseStore {
	if table == "" {
		table = "pages"
	}
	return &SupabaseStore{db: db, table: table}
}

func (s *SupabaseStore) InsertPage(ctx context.Context, rec PageRecord) (string, error) {
	if rec.JobID == "" {
		return "", ErrMissingJob
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec.ID = uuid.NewString()
	if _, _, err := s.db.From(s.table).Insert(rec, false, "", "minimal", "").Execute(); err != nil {
		return "", fmt.Errorf("insert page %s: %w", rec.URL, err)
	}
	return rec.ID, nil
}

func (s *SupabaseStore) ListPages(ctx context.Context, jobID string) ([]PageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []PageRecord
	_, err := s.db.From(s.table).
		Select("id,job_id,url,depth,parent_url,title,status_code", "", false).
		Eq("job_id", jobID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&out)
	if err != nil {
		return nil, fmt.Errorf("list pages for %s: %w", jobID, err)
	}
	return out, nil
}
