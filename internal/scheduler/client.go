package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hirelocal_backend/internal/events"
	"hirelocal_backend/platform/config"
	"hirelocal_backend/platform/logger"
	"hirelocal_backend/platform/redisx"

	"github.com/hibiken/asynq"
)

// sweepBucket groups lead windows so a burst of new leads enqueues one
// delayed sweep per bucket instead of one per lead.
const sweepBucket = time.Minute

type Client struct {
	client      *asynq.Client
	queue       string
	leadTimeout time.Duration
	log         *logger.Logger
}

// NewClient connects to the asynq broker. leadTimeout is the missed-lead
// window used to schedule a sweep shortly after each lead expires.
func NewClient(cfg config.SchedulerConfig, leadTimeout time.Duration, log *logger.Logger) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisx.AsynqOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client:      asynq.NewClient(opt),
		queue:       queueName(cfg),
		leadTimeout: leadTimeout,
		log:         log,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleMissedSweep enqueues a sweep to run at least one bucket after
// runAt. Requests landing in the same bucket collapse into one task.
func (c *Client) ScheduleMissedSweep(ctx context.Context, leadID string, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	bucket := sweepBucketFor(runAt)
	task, err := NewSweepMissedLeadsTask(JobPayload{TriggeredBy: TriggerLeadWindow, LeadID: leadID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(bucket),
		asynq.Queue(c.queue),
		asynq.TaskID(fmt.Sprintf("sweep:%d", bucket.Unix())),
		asynq.MaxRetry(3),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Handle schedules the follow-up sweep for every new lead. It implements
// events.Handler.
func (c *Client) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadCreated)
	if !ok {
		return nil
	}
	runAt := e.OccurredAt().Add(c.leadTimeout)
	if err := c.ScheduleMissedSweep(ctx, e.LeadID.String(), runAt); err != nil {
		c.log.Warn("failed to schedule missed-lead sweep", "leadId", e.LeadID, "error", err)
		return err
	}
	return nil
}

// RegisterHandlers subscribes the client to lead creation events.
func (c *Client) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), c)
}

// sweepBucketFor rounds runAt plus one bucket up to a bucket boundary.
// notified_at is written after the event timestamp, so sweeping exactly at
// runAt can miss rows stamped a moment later.
func sweepBucketFor(runAt time.Time) time.Time {
	return runAt.UTC().Add(sweepBucket).Truncate(sweepBucket).Add(sweepBucket)
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}
