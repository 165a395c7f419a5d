// Package worker routes queued tasks to their handlers.
package worker

import (
	"context"
	"time"

	"sitemapper/internal/logger"

	"github.com/hibiken/asynq"
)

type Mux struct {
	mux *asynq.ServeMux
	log *logger.Logger
}

// NewMux returns a mux that logs the outcome and duration of every task.
func NewMux(log *logger.Logger) *Mux {
	if log == nil {
		log = logger.New("Worker")
	}
	m := &Mux{mux: asynq.NewServeMux(), log: log}
	m.mux.Use(m.logged)
	return m
}

func (m *Mux) HandleFunc(t string, h func(ctx context.Context, task *asynq.Task) error) {
	m.mux.HandleFunc(t, h)
}

func (m *Mux) Mux() *asynq.ServeMux { return m.mux }

func (m *Mux) logged(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		started := time.Now()
		err := next.ProcessTask(ctx, task)
		ev := m.log.Info()
		if err != nil {
			ev = m.log.Error().Err(err)
		}
		ev.Str("task", task.Type()).Dur("took", time.Since(started)).Msg("task finished")
		return err
	})
}
