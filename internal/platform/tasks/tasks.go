// Package tasks enqueues background work on the asynq queue.
package tasks

import (
	"time"

	"sitemapper/internal/platform/redis"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeCrawl = "sitemap:crawl"
	QueueDefault  = "default"
)

// Options control how a single task is queued.
type Options struct {
	Queue      string
	MaxRetries int
	// ID makes enqueueing idempotent; a second task with the same ID is
	// rejected while the first is retained.
	ID      string
	Timeout time.Duration
}

func (o Options) asynq() []asynq.Option {
	queue := o.Queue
	if queue == "" {
		queue = QueueDefault
	}
	opts := []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(o.MaxRetries)}
	if o.ID != "" {
		opts = append(opts, asynq.TaskID(o.ID))
	}
	if o.Timeout > 0 {
		opts = append(opts, asynq.Timeout(o.Timeout))
	}
	return opts
}

type Client struct{ c *asynq.Client }

func New(r *redis.Service) *Client { return &Client{c: asynq.NewClient(r.AsynqRedisOpt())} }

// NewWithOpt connects to an explicit Redis, e.g. miniredis in tests.
func NewWithOpt(opt asynq.RedisClientOpt) *Client { return &Client{c: asynq.NewClient(opt)} }

// Enqueue queues task and returns the ID asynq assigned to it.
func (t *Client) Enqueue(task *asynq.Task, o Options) (string, error) {
	info, err := t.c.Enqueue(task, o.asynq()...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (t *Client) Close() error { return t.c.Close() }
