package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"sitemapper/internal/config"
	"sitemapper/internal/core/crawl"
	"sitemapper/internal/core/job"
	"sitemapper/internal/health"
	rds "sitemapper/internal/platform/redis"

	"github.com/alicebob/miniredis/v2"
	redisv8 "github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRoutes(t *testing.T) {
	mr := miniredis.RunT(t)
	r := rds.NewFromClient(redisv8.NewClient(&redisv8.Options{Addr: mr.Addr()}))
	jobs := job.NewJobService(r)
	require.NoError(t, jobs.InitPending(context.Background(), "j1", job.TypeCrawl, "https://shop.test/"))

	app := fiber.New()
	h := RegisterRoutes(app, Dependencies{
		Job:   jobs,
		Crawl: crawl.NewCrawlService(crawl.Deps{Job: jobs}, config.Defaults()),
		Redis: r,
		Checks: map[string]health.CheckFunc{
			"browser": func(context.Context) error { return errors.New("not installed") },
		},
	})

	for path, want := range map[string]int{
		"/v1/health":              503,
		"/v1/crawl/j1":            200,
		"/v1/crawl/missing":       404,
		"/v1/crawl/j1/sitemap":    409,
		"/v1/crawl/missing/pages": 404,
	} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}

	h.SetReady()
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode, "failing browser check keeps health red")
}
