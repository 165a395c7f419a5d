package crawl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sitemapper/internal/core/job"
	"sitemapper/internal/core/recommend"
	"sitemapper/internal/core/sitemap"
	"sitemapper/internal/logger"
	"sitemapper/internal/utils/parser"

	"github.com/gofiber/fiber/v2"
)

const (
	streamKeepAlive = 15 * time.Second
	streamMaxAge    = 30 * time.Minute
)

type Handler struct {
	job   *job.JobService
	crawl *CrawlService
	log   *logger.Logger
}

func NewCrawlHandler(job *job.JobService, crawl *CrawlService) *Handler {
	return &Handler{job: job, crawl: crawl, log: logger.New("CrawlHandler")}
}

type createResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		code = fiber.StatusBadRequest
	case errors.Is(err, job.ErrJobNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, ErrJobNotReady):
		code = fiber.StatusConflict
	case errors.Is(err, recommend.ErrEmptySitemap):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrRecommendationsDisabled):
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}

func (h *Handler) HandleCreateCrawl(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid body"})
	}
	id, err := h.crawl.Enqueue(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(createResponse{Success: true, JobID: id})
}

type statusResponse struct {
	Success bool `json:"success"`
	*job.Job
}

func (h *Handler) HandleGetCrawl(c *fiber.Ctx) error {
	j, err := h.job.GetJobStatus(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(statusResponse{Success: true, Job: j})
}

func (h *Handler) HandleListPages(c *fiber.Ctx) error {
	pages, err := h.crawl.Pages(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "pages": pages})
}

type sitemapQuery struct {
	Format      string `form:"format" default:"tree"`
	MaxSiblings int    `form:"max_siblings"`
	MaxDepth    int    `form:"max_depth"`
}

// HandleSitemap renders a completed job as a tree (default), a flat
// pre-order list, sitemaps.org XML or a compressed text outline.
func (h *Handler) HandleSitemap(c *fiber.Ctx) error {
	var q sitemapQuery
	if err := parser.ParseQuery(c, &q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}
	root, records, err := h.crawl.Sitemap(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return fail(c, err)
	}
	switch q.Format {
	case "tree":
		return c.JSON(fiber.Map{"success": true, "root": root, "stats": sitemap.Summarize(root)})
	case "flat":
		return c.JSON(fiber.Map{"success": true, "entries": sitemap.Flatten(root)})
	case "xml":
		var buf bytes.Buffer
		if err := sitemap.WriteXML(&buf, records); err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
		return c.Send(buf.Bytes())
	case "compressed":
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(sitemap.Compress(root, sitemap.CompressOptions{MaxSiblings: q.MaxSiblings, MaxDepth: q.MaxDepth}))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: fmt.Sprintf("unknown format %q", q.Format)})
	}
}

func (h *Handler) HandleRecommendations(c *fiber.Ctx) error {
	recs, usage, err := h.crawl.Recommendations(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "recommendations": recs, "usage": usage})
}

// HandleStream sends the job's status and progress events as server-sent
// events until the job reaches a final state or the client goes away.
func (h *Handler) HandleStream(c *fiber.Ctx) error {
	id := c.Params("jobId")
	sub := h.job.Subscribe(context.Background(), id)
	// Snapshot after subscribing so no update between the two is lost.
	j, err := h.job.GetJobStatus(c.UserContext(), id)
	if err != nil {
		_ = sub.Close()
		return fail(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	first := job.Event{Type: "status", Status: j.Status, PagesCrawled: j.PagesCrawled, Queued: j.Queued, Error: j.Error}
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() { _ = sub.Close() }()
		if err := writeEvent(w, first); err != nil || first.Status.Final() {
			return
		}
		ch := sub.Channel()
		ping := time.NewTicker(streamKeepAlive)
		defer ping.Stop()
		deadline := time.NewTimer(streamMaxAge)
		defer deadline.Stop()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev job.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					h.log.LogWarnf("dropping malformed event for job %s: %v", id, err)
					continue
				}
				if err := writeEvent(w, ev); err != nil || ev.Status.Final() {
					return
				}
			case <-ping.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-deadline.C:
				return
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, ev job.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, b); err != nil {
		return err
	}
	return w.Flush()
}
