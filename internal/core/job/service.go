package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sitemapper/internal/logger"
	rds "sitemapper/internal/platform/redis"

	redisv8 "github.com/go-redis/redis/v8"
)

var ErrJobNotFound = errors.New("job not found")

const (
	activeTTL = 10 * time.Minute
	finalTTL  = 24 * time.Hour
)

type JobService struct {
	redis *rds.Service
	log   *logger.Logger
	now   func() time.Time
}

func NewJobService(redis *rds.Service) *JobService {
	return &JobService{redis: redis, log: logger.New("JobService"), now: time.Now}
}

func (s *JobService) GetJobStatus(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := s.redis.CacheGet(ctx, key(jobID), &job); err != nil {
		if rds.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, err
	}
	return &job, nil
}

// update applies fn to the stored job (or a fresh one), saves it and
// publishes ev.
func (s *JobService) update(ctx context.Context, jobID string, fn func(*Job), ev func(*Job) Event) error {
	var job Job
	if err := s.redis.CacheGet(ctx, key(jobID), &job); err != nil && !rds.IsNotFound(err) {
		return err
	}
	now := s.now().UTC()
	if job.JobID == "" {
		job.JobID = jobID
		job.CreatedAt = now
	}
	fn(&job)
	job.UpdatedAt = now

	ttl := activeTTL
	if job.Status.Final() {
		ttl = finalTTL
	}
	if err := s.redis.CacheSet(ctx, key(jobID), job, ttl); err != nil {
		return err
	}
	b, err := json.Marshal(ev(&job))
	if err != nil {
		return err
	}
	if err := s.redis.Client().Publish(ctx, key(jobID), b).Err(); err != nil {
		s.log.LogWarnf("publish for job %s failed: %v", jobID, err)
	}
	return nil
}

func statusEvent(j *Job) Event {
	return Event{Type: "status", Status: j.Status, PagesCrawled: j.PagesCrawled, Queued: j.Queued, Error: j.Error}
}

func (s *JobService) InitPending(ctx context.Context, jobID string, jobType Type, url string) error {
	return s.update(ctx, jobID, func(j *Job) {
		j.Type = jobType
		j.Status = StatusPending
		j.URL = url
	}, statusEvent)
}

func (s *JobService) SetProcessing(ctx context.Context, jobID string) error {
	return s.update(ctx, jobID, func(j *Job) { j.Status = StatusProcessing }, statusEvent)
}

// SetProgress records the traversal counters of a running job.
func (s *JobService) SetProgress(ctx context.Context, jobID string, pagesCrawled, queued int) error {
	return s.update(ctx, jobID, func(j *Job) {
		j.PagesCrawled = pagesCrawled
		j.Queued = queued
	}, func(j *Job) Event {
		return Event{Type: "progress", Status: j.Status, PagesCrawled: j.PagesCrawled, Queued: j.Queued}
	})
}

func (s *JobService) Complete(ctx context.Context, jobID string, summary CrawlSummary) error {
	return s.update(ctx, jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.Queued = 0
		j.PagesCrawled = summary.Pages
		j.Result = &summary
	}, statusEvent)
}

func (s *JobService) Fail(ctx context.Context, jobID string, cause error) error {
	return s.update(ctx, jobID, func(j *Job) {
		j.Status = StatusFailed
		j.Error = cause.Error()
	}, statusEvent)
}

// Subscribe listens to the job's update channel. The caller closes it.
func (s *JobService) Subscribe(ctx context.Context, jobID string) *redisv8.PubSub {
	return s.redis.Client().Subscribe(ctx, key(jobID))
}

func key(id string) string { return "job:" + id }
