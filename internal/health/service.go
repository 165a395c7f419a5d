package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"sitemapper/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// HealthHandler reports readiness and the state of registered dependencies.
type HealthHandler struct {
	log       *logger.Logger
	checks    map[string]CheckFunc
	startTime time.Time
	ready     atomic.Bool
	timeout   time.Duration
}

func NewHealthHandler(checks map[string]CheckFunc) *HealthHandler {
	if checks == nil {
		checks = map[string]CheckFunc{}
	}
	return &HealthHandler{
		log:       logger.New("HealthCheck"),
		checks:    checks,
		startTime: time.Now(),
		timeout:   8 * time.Second,
	}
}

// SetReady marks the application as ready to receive traffic.
func (h *HealthHandler) SetReady() {
	h.ready.Store(true)
	h.log.LogSuccessf("Application marked as ready for traffic after %v", time.Since(h.startTime))
}

type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type OverallHealth struct {
	OverallStatus string                     `json:"overall_status"`
	Timestamp     string                     `json:"timestamp"`
	Ready         bool                       `json:"ready"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Components    map[string]ComponentStatus `json:"components"`
}

// HandleHealth runs every check concurrently. It answers 200 only when the
// app is ready and every component is healthy.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	started := time.Now()
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	statuses := make(map[string]ComponentStatus, len(h.checks))
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		allOk = true
	)

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := h.checks[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := ComponentStatus{Status: "ok"}
			if err := check(ctx); err != nil {
				st = ComponentStatus{Status: "error", Error: err.Error()}
				h.log.LogErrorf("Health check failed for %s after %v: %v", name, time.Since(started), err)
			}
			mu.Lock()
			statuses[name] = st
			if st.Status != "ok" {
				allOk = false
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	resp := OverallHealth{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Ready:         h.ready.Load(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Components:    statuses,
	}

	switch {
	case !resp.Ready:
		resp.OverallStatus = "starting"
		return c.Status(http.StatusServiceUnavailable).JSON(resp)
	case !allOk:
		resp.OverallStatus = "error"
		h.log.LogWarnf("Health check failed after %v. Statuses: %+v", time.Since(started), statuses)
		return c.Status(http.StatusServiceUnavailable).JSON(resp)
	}
	resp.OverallStatus = "ok"
	return c.Status(http.StatusOK).JSON(resp)
}

func HealthLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "error": "Rate limit exceeded"})
		},
	})
}
