package scheduler

import (
	"context"
	"fmt"
	"time"

	"leaseline_backend/internal/outreach/repository"
	"leaseline_backend/platform/config"
	"leaseline_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pollGrace keeps the poller behind the delayed queue: only tasks overdue by
// at least this much are swept, so the normal path stays queue-driven and
// the poller catches only lost jobs.
const pollGrace = 30 * time.Second

// Poller sweeps overdue pending tasks into the queue. Re-enqueueing a task
// that already has a live job is safe; executions converge on the
// conditional claim.
type Poller struct {
	client   *asynq.Client
	queue    string
	repo     *repository.Repository
	interval time.Duration
	batch    int
	log      *logger.Logger
}

func NewPoller(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*Poller, error) {
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

	interval := cfg.GetTaskPollInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}

	batch := cfg.GetTaskPollBatchSize()
	if batch < 1 {
		batch = 50
	}

	return &Poller{
		client:   asynq.NewClient(opt),
		queue:    queue,
		repo:     repository.New(pool),
		interval: interval,
		batch:    batch,
		log:      log,
	}, nil
}

func (p *Poller) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *Poller) Run(ctx context.Context) {
	if p == nil || p.client == nil || p.repo == nil {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tasks, err := p.repo.ListDueTasks(ctx, time.Now(), pollGrace, p.batch)
		if err != nil {
			p.log.Warn("due-task sweep failed", "error", err)
			continue
		}
		if len(tasks) == 0 {
			continue
		}

		for _, task := range tasks {
			job, err := NewOutreachDueTask(OutreachDuePayload{
				TaskID:         task.ID.String(),
				OrganizationID: task.OrganizationID.String(),
			})
			if err != nil {
				p.log.Warn("build sweep job failed", "task_id", task.ID.String(), "error", err)
				continue
			}

			if _, err := p.client.EnqueueContext(ctx, job, asynq.Queue(p.queue)); err != nil {
				p.log.Warn("enqueue sweep job failed", "task_id", task.ID.String(), "error", err)
			}
		}
	}
}
