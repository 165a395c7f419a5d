package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	rds "sitemapper/internal/platform/redis"

	"github.com/alicebob/miniredis/v2"
	redisv8 "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supabase-community/postgrest-go"
)

func TestRedisStoreKeepsInsertionOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(rds.NewFromClient(redisv8.NewClient(&redisv8.Options{Addr: mr.Addr()})), time.Hour)
	ctx := context.Background()

	recs := []PageRecord{
		{JobID: "j1", URL: "https://a.test/", Depth: 0, Title: "Home", StatusCode: 200},
		{JobID: "j1", URL: "https://a.test/docs", Depth: 1, ParentURL: "https://a.test/", Title: "Docs", StatusCode: 200},
		{JobID: "j1", URL: "https://a.test/slow", Depth: 1, ParentURL: "https://a.test/", Title: "Error: Timeout", StatusCode: 408},
	}
	var ids []string
	for _, r := range recs {
		id, err := s.InsertPage(ctx, r)
		require.NoError(t, err)
		require.NotEmpty(t, id)
		ids = append(ids, id)
	}
	_, err := s.InsertPage(ctx, PageRecord{JobID: "j2", URL: "https://b.test/"})
	require.NoError(t, err)

	got, err := s.ListPages(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range recs {
		want := recs[i]
		want.ID = ids[i]
		assert.Equal(t, want, got[i])
	}
	assert.Equal(t, time.Hour, mr.TTL(pagesKey("j1")))
}

func TestRedisStoreRejectsMissingJob(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(rds.NewFromClient(redisv8.NewClient(&redisv8.Options{Addr: mr.Addr()})), 0)
	_, err := s.InsertPage(context.Background(), PageRecord{URL: "https://a.test/"})
	assert.ErrorIs(t, err, ErrMissingJob)

	got, err := s.ListPages(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

type fakePostgrest struct {
	mu    sync.Mutex
	rows  []PageRecord
	query []string
}

func (f *fakePostgrest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Path != "/pages" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"42P01","message":"relation does not exist"}`)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var rec PageRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":"PGRST102","message":"bad body"}`)
			return
		}
		f.rows = append(f.rows, rec)
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		f.query = append(f.query, r.URL.RawQuery)
		jobID := r.URL.Query().Get("job_id")
		var out []PageRecord
		for _, row := range f.rows {
			if "eq."+row.JobID == jobID {
				out = append(out, row)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func TestSupabaseStore(t *testing.T) {
	fake := &fakePostgrest{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewSupabaseStore(postgrest.NewClient(srv.URL, "public", nil), "")
	ctx := context.Background()

	id, err := s.InsertPage(ctx, PageRecord{JobID: "j1", URL: "https://a.test/", Title: "Home", StatusCode: 200})
	require.NoError(t, err)
	_, err = s.InsertPage(ctx, PageRecord{JobID: "j1", URL: "https://a.test/x", Depth: 1, ParentURL: "https://a.test/", Title: "X", StatusCode: 200})
	require.NoError(t, err)

	got, err := s.ListPages(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "https://a.test/x", got[1].URL)
	require.Len(t, fake.query, 1)
	assert.Contains(t, fake.query[0], "order=created_at.asc")
}

func TestSupabaseStoreSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(&fakePostgrest{})
	defer srv.Close()

	s := NewSupabaseStore(postgrest.NewClient(srv.URL, "public", nil), "missing")
	_, err := s.InsertPage(context.Background(), PageRecord{JobID: "j1", URL: "https://a.test/"})
	assert.Error(t, err)
	_, err = s.ListPages(context.Background(), "j1")
	assert.Error(t, err)
}
