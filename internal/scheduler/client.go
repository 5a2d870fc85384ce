// Package scheduler queues due outreach tasks through redis/asynq and runs
// the worker that hands them to the dispatcher. A DB poller backstops the
// queue so a lost job cannot strand a pending task.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleTask queues a dispatch job to run at the task's scheduled_for.
// Duplicate jobs are harmless: every execution converges on the task
// store's conditional claim.
func (c *Client) ScheduleTask(ctx context.Context, task domain.Task) error {
	if c == nil || c.client == nil {
		return nil
	}

	job, err := NewOutreachDueTask(OutreachDuePayload{
		TaskID:         task.ID.String(),
		OrganizationID: task.OrganizationID.String(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, job, asynq.ProcessAt(task.ScheduledFor), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
