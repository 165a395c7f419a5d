package worker

import (
	"context"
	"errors"
	"testing"

	"sitemapper/internal/logger"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestMuxRoutesByType(t *testing.T) {
	m := NewMux(logger.Nop())
	var got []string
	m.HandleFunc("sitemap:crawl", func(_ context.Context, task *asynq.Task) error {
		got = append(got, string(task.Payload()))
		return nil
	})
	boom := errors.New("boom")
	m.HandleFunc("sitemap:fail", func(context.Context, *asynq.Task) error { return boom })

	ctx := context.Background()
	assert.NoError(t, m.Mux().ProcessTask(ctx, asynq.NewTask("sitemap:crawl", []byte("a"))))
	assert.ErrorIs(t, m.Mux().ProcessTask(ctx, asynq.NewTask("sitemap:fail", nil)), boom)
	assert.Error(t, m.Mux().ProcessTask(ctx, asynq.NewTask("sitemap:unknown", nil)))
	assert.Equal(t, []string{"a"}, got)
}
