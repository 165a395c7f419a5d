package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sitemapper/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Docs</title></head><body><a href="/guide">Guide</a><a href="https://other.test/">x</a></body></html>`))
	})
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Just a moment...</title></head><body>Checking your browser</body></html>`))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newStatic(timeout time.Duration) *StaticFetcher {
	return NewStatic(StaticOptions{UserAgent: "SitemapperBot/1.0", Timeout: timeout}).WithLogger(logger.Nop())
}

func TestStaticFetch(t *testing.T) {
	srv := staticSite(t)
	res, err := newStatic(time.Second).Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "Docs", res.Title)
	assert.Equal(t, []string{srv.URL + "/guide", "https://other.test/"}, res.Links)
}

func TestStaticFetchErrorStatusIsAResult(t *testing.T) {
	srv := staticSite(t)
	res, err := newStatic(time.Second).Fetch(context.Background(), srv.URL+"/getting-started")
	require.NoError(t, err)
	assert.Equal(t, 404, res.StatusCode)
	assert.Equal(t, "Getting Started", res.Title)
	assert.Empty(t, res.Links)
}

func TestStaticFetchChallengeIsBlocked(t *testing.T) {
	srv := staticSite(t)
	_, err := newStatic(time.Second).Fetch(context.Background(), srv.URL+"/challenge")
	assert.Equal(t, KindBlocked, KindOf(err))
}

func TestStaticFetchTimeout(t *testing.T) {
	srv := staticSite(t)
	_, err := newStatic(50*time.Millisecond).Fetch(context.Background(), srv.URL+"/slow")
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, 408, StatusFor(err))
}

func TestStaticFetchUnreachable(t *testing.T) {
	srv := staticSite(t)
	url := srv.URL + "/"
	srv.Close()
	_, err := newStatic(time.Second).Fetch(context.Background(), url)
	assert.Equal(t, KindNavigation, KindOf(err))
}

func TestStaticFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newStatic(time.Second).Fetch(ctx, "http://127.0.0.1:1/")
	assert.ErrorIs(t, err, context.Canceled)
}
