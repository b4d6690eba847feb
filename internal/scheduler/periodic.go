package scheduler

import (
	"context"
	"fmt"
	"time"

	"hirelocal_backend/platform/config"
	"hirelocal_backend/platform/logger"
	"hirelocal_backend/platform/redisx"

	"github.com/hibiken/asynq"
)

const (
	defaultSweepCron  = "* * * * *"
	defaultExpiryCron = "*/15 * * * *"
)

// Periodic enqueues the batch jobs on their cron schedules. Run it in one
// process only; the worker consumes the tasks.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisx.AsynqOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(log),
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Warn("periodic enqueue failed", "error", err)
			}
		},
	})

	queue := queueName(cfg)
	entries := []struct {
		cron    string
		newTask func(JobPayload) (*asynq.Task, error)
	}{
		{cronOrDefault(cfg.GetMissedLeadSweepCron(), defaultSweepCron), NewSweepMissedLeadsTask},
		{cronOrDefault(cfg.GetSubscriptionExpiryCron(), defaultExpiryCron), NewExpireSubscriptionsTask},
	}
	for _, e := range entries {
		task, err := e.newTask(JobPayload{TriggeredBy: TriggerCron})
		if err != nil {
			return nil, err
		}
		// One run per cron tick even if two schedulers are up by mistake.
		if _, err := s.Register(e.cron, task, asynq.Queue(queue), asynq.Unique(30*time.Second), asynq.MaxRetry(1)); err != nil {
			return nil, fmt.Errorf("register %s: %w", task.Type(), err)
		}
	}

	return &Periodic{scheduler: s, log: log}, nil
}

// Run blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}
	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}

func cronOrDefault(expr, fallback string) string {
	if expr == "" {
		return fallback
	}
	return expr
}
