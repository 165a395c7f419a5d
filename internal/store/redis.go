package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rds "sitemapper/internal/platform/redis"

	"github.com/google/uuid"
)

// RedisStore keeps each job's pages as a Redis list of JSON entries, in
// insertion order.
type RedisStore struct {
	redis *rds.Service
	ttl   time.Duration
}

func NewRedisStore(r *rds.Service, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{redis: r, ttl: ttl}
}

func pagesKey(jobID string) string { return "job:" + jobID + ":pages" }

func (s *RedisStore) InsertPage(ctx context.Context, rec PageRecord) (string, error) {
	if rec.JobID == "" {
		return "", ErrMissingJob
	}
	rec.ID = uuid.NewString()
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	key := pagesKey(rec.JobID)
	pipe := s.redis.Client().TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("insert page %s: %w", rec.URL, err)
	}
	return rec.ID, nil
}

func (s *RedisStore) ListPages(ctx context.Context, jobID string) ([]PageRecord, error) {
	raw, err := s.redis.Client().LRange(ctx, pagesKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list pages for %s: %w", jobID, err)
	}
	out := make([]PageRecord, 0, len(raw))
	for _, item := range raw {
		var rec PageRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode page for %s: %w", jobID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
