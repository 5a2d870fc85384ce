package scheduler

import (
	"context"
	"fmt"

	"leaseline_backend/platform/config"
	"leaseline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Executor is the dispatch entry point the worker hands due tasks to.
type Executor interface {
	Execute(ctx context.Context, taskID uuid.UUID) error
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher Executor
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, dispatcher Executor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		dispatcher: dispatcher,
		log:        log,
	}

	mux.HandleFunc(TaskOutreachDue, w.handleOutreachDue)

	return w, nil
}

func (w *Worker) handleOutreachDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutreachDuePayload(task)
	if err != nil {
		return err
	}

	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return err
	}

	return w.dispatcher.Execute(ctx, taskID)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
