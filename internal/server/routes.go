package server

import (
	"context"

	"sitemapper/internal/core/crawl"
	"sitemapper/internal/core/job"
	"sitemapper/internal/health"
	"sitemapper/internal/platform/redis"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Job   *job.JobService
	Crawl *crawl.CrawlService
	Redis *redis.Service
	// Checks are probed by /v1/health next to Redis.
	Checks map[string]health.CheckFunc
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	checks := map[string]health.CheckFunc{
		"redis": func(ctx context.Context) error { return d.Redis.HealthCheck(ctx) },
	}
	for name, fn := range d.Checks {
		checks[name] = fn
	}
	healthHandler := health.NewHealthHandler(checks)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	crawlHandler := crawl.NewCrawlHandler(d.Job, d.Crawl)
	api.Post("/crawl", crawlHandler.HandleCreateCrawl)
	api.Get("/crawl/:jobId", crawlHandler.HandleGetCrawl)
	api.Get("/crawl/:jobId/pages", crawlHandler.HandleListPages)
	api.Get("/crawl/:jobId/sitemap", crawlHandler.HandleSitemap)
	api.Get("/crawl/:jobId/stream", crawlHandler.HandleStream)
	api.Post("/crawl/:jobId/recommendations", crawlHandler.HandleRecommendations)

	return healthHandler
}
