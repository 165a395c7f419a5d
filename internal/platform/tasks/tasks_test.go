package tasks

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueIsIdempotentPerID(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewWithOpt(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer c.Close()

	task := asynq.NewTask(TaskTypeCrawl, []byte(`{"job_id":"j1"}`))
	id, err := c.Enqueue(task, Options{ID: "j1", Timeout: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, "j1", id)
	assert.True(t, mr.Exists("asynq:{default}:t:j1"))

	_, err = c.Enqueue(task, Options{ID: "j1"})
	assert.ErrorIs(t, err, asynq.ErrTaskIDConflict)
}

func TestOptionsDefaultQueue(t *testing.T) {
	assert.Len(t, Options{}.asynq(), 2)
	assert.Len(t, Options{Queue: "crawl", ID: "x", Timeout: time.Second}.asynq(), 4)
}
