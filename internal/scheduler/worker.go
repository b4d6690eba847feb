package scheduler

import (
	"context"
	"fmt"

	"hirelocal_backend/internal/leads/tracker"
	"hirelocal_backend/platform/config"
	"hirelocal_backend/platform/logger"
	"hirelocal_backend/platform/redisx"

	"github.com/hibiken/asynq"
)

// MissedLeadSweeper runs one missed-lead sweep.
type MissedLeadSweeper interface {
	SweepMissed(ctx context.Context) (tracker.SweepResult, error)
}

// SubscriptionExpirer closes subscriptions whose end date has passed.
type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Jobs are the batch operations the scheduler drives.
type Jobs struct {
	Sweeper MissedLeadSweeper
	Expirer SubscriptionExpirer
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs Jobs, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisx.AsynqOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		Logger: newAsynqLogger(log),
	})

	return &Worker{
		server: server,
		mux:    newMux(jobs, log),
		log:    log,
	}, nil
}

func newMux(jobs Jobs, log *logger.Logger) *asynq.ServeMux {
	h := &jobHandlers{jobs: jobs, log: log}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSweepMissedLeads, h.handleSweepMissedLeads)
	mux.HandleFunc(TaskExpireSubscriptions, h.handleExpireSubscriptions)
	return mux
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

type jobHandlers struct {
	jobs Jobs
	log  *logger.Logger
}

func (h *jobHandlers) handleSweepMissedLeads(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseJobPayload(task)
	if err != nil {
		return err
	}
	if h.jobs.Sweeper == nil {
		return nil
	}

	res, err := h.jobs.Sweeper.SweepMissed(ctx)
	if err != nil {
		return fmt.Errorf("sweep missed leads: %w", err)
	}
	if res.Missed > 0 || res.Skipped {
		h.log.Info("missed-lead sweep finished",
			"triggeredBy", payload.TriggeredBy,
			"missed", res.Missed,
			"notified", res.Notified,
			"skipped", res.Skipped,
		)
	}
	return nil
}

func (h *jobHandlers) handleExpireSubscriptions(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseJobPayload(task)
	if err != nil {
		return err
	}
	if h.jobs.Expirer == nil {
		return nil
	}

	expired, err := h.jobs.Expirer.ExpireDue(ctx)
	if err != nil {
		return fmt.Errorf("expire subscriptions: %w", err)
	}
	if expired > 0 {
		h.log.Info("subscription expiry finished", "triggeredBy", payload.TriggeredBy, "expired", expired)
	}
	return nil
}

// asynqLogger routes asynq's internal logging through the service logger.
type asynqLogger struct{ log *logger.Logger }

func newAsynqLogger(log *logger.Logger) asynqLogger { return asynqLogger{log: log.With("component", "asynq")} }

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Error(fmt.Sprint(args...)) }
