package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sitemapper/internal/logger"
	rds "sitemapper/internal/platform/redis"

	"github.com/alicebob/miniredis/v2"
	redisv8 "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*JobService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewJobService(rds.NewFromClient(redisv8.NewClient(&redisv8.Options{Addr: mr.Addr()})))
	s.log = logger.Nop()
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, mr
}

func TestJobLifecycle(t *testing.T) {
	s, mr := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.InitPending(ctx, "j1", TypeCrawl, "https://a.test"))
	require.NoError(t, s.SetProcessing(ctx, "j1"))
	require.NoError(t, s.SetProgress(ctx, "j1", 12, 30))

	j, err := s.GetJobStatus(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, j.Status)
	assert.Equal(t, "https://a.test", j.URL)
	assert.Equal(t, 12, j.PagesCrawled)
	assert.Equal(t, 30, j.Queued)
	assert.Equal(t, activeTTL, mr.TTL(key("j1")))

	require.NoError(t, s.Complete(ctx, "j1", CrawlSummary{Pages: 40, Failed: 2, MaxDepth: 3}))
	j, err = s.GetJobStatus(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, 40, j.PagesCrawled)
	assert.Equal(t, 0, j.Queued)
	require.NotNil(t, j.Result)
	assert.Equal(t, 2, j.Result.Failed)
	assert.Equal(t, finalTTL, mr.TTL(key("j1")))
}

func TestJobFail(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, s.InitPending(ctx, "j2", TypeCrawl, "https://a.test"))
	require.NoError(t, s.Fail(ctx, "j2", errors.New("browser launch failed")))

	j, err := s.GetJobStatus(ctx, "j2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "browser launch failed", j.Error)
	assert.True(t, j.Status.Final())
}

func TestGetMissingJob(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.GetJobStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestProgressIsPublished(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	sub := s.Subscribe(ctx, "j3")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, s.SetProgress(ctx, "j3", 5, 7))
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	assert.Equal(t, Event{Type: "progress", PagesCrawled: 5, Queued: 7}, ev)
}
