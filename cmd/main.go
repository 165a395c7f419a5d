package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"sitemapper/internal/config"
	"sitemapper/internal/core/crawl"
	"sitemapper/internal/core/export"
	"sitemapper/internal/core/job"
	"sitemapper/internal/core/recommend"
	"sitemapper/internal/core/robots"
	"sitemapper/internal/logger"
	"sitemapper/internal/platform/browser"
	"sitemapper/internal/platform/eino"
	rds "sitemapper/internal/platform/redis"
	tasks "sitemapper/internal/platform/tasks"
	"sitemapper/internal/server"
	"sitemapper/internal/store"
	"sitemapper/internal/worker"
)

func main() {
	cfg := config.Load()
	logr := logger.New("main")
	logr.LogInfof("starting at %s (env=%s)", cfg.HTTPAddr, cfg.AppEnv)

	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logr.LogFatalf("redis: %v", err)
	}
	defer redisSvc.Close()

	taskClient := tasks.New(redisSvc)
	defer taskClient.Close()
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{tasks.QueueDefault: 1},
	})

	jobSvc := job.NewJobService(redisSvc)
	exportSvc := export.New(cfg)

	// Page records go to Postgres through Supabase when it is configured.
	var pages store.PageStore = store.NewRedisStore(redisSvc, 0)
	if client := exportSvc.Client(); client != nil {
		pages = store.NewSupabaseStore(client, cfg.SupabasePagesTable)
		logr.LogInfof("page records stored in Supabase table %s", cfg.SupabasePagesTable)
	}

	profile := browser.Profile(cfg.BrowserProfile)
	launcher := browser.NewPlaywrightLauncher(browser.PlaywrightOptions{
		UserAgent: profile.UserAgent,
		Headers:   profile.Headers(),
		Headless:  true,
	})

	var recommender *recommend.Service
	if cfg.GeminiAPIKey != "" {
		einoSvc, err := eino.NewService(eino.Config{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.DefaultLLMModel,
		})
		if err != nil {
			logr.LogFatalf("failed to initialize Eino service: %v", err)
		}
		recommender = recommend.NewService(einoSvc, recommend.Options{})
	} else {
		logr.LogWarnf("GEMINI_API_KEY not set, recommendations disabled")
	}

	crawlSvc := crawl.NewCrawlService(crawl.Deps{
		Job:       jobSvc,
		Tasks:     taskClient,
		Pages:     pages,
		Launcher:  launcher,
		Robots:    robots.NewLoader(browser.BotName),
		Exporter:  exportSvc,
		Recommend: recommender,
	}, cfg)

	mux := worker.NewMux(logger.New("Worker"))
	mux.HandleFunc(tasks.TaskTypeCrawl, crawlSvc.HandleCrawlTask)

	if err := asynqServer.Start(mux.Mux()); err != nil {
		logr.LogFatalf("worker start: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName: "Sitemapper",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})
	// Locally exported sitemaps are served from DATA_DIR under /files.
	app.Static("/files", cfg.DataDir)

	healthHandler := server.RegisterRoutes(app, server.Dependencies{
		Job:   jobSvc,
		Crawl: crawlSvc,
		Redis: redisSvc,
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for ctx.Err() == nil {
			if err := redisSvc.HealthCheck(ctx); err == nil {
				healthHandler.SetReady()
				return
			}
			time.Sleep(time.Second)
		}
		logr.LogErrorf("Redis did not become healthy, staying unready")
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		logr.LogFatalf("server listen: %v", err)
	}
}
