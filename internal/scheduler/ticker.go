package scheduler

import (
	"context"
	"time"

	"hirelocal_backend/platform/logger"
)

const (
	defaultTickerSweepInterval  = time.Minute
	defaultTickerExpiryInterval = 15 * time.Minute
)

// Ticker runs the batch jobs in-process when no broker is configured.
type Ticker struct {
	jobs           Jobs
	log            *logger.Logger
	sweepInterval  time.Duration
	expiryInterval time.Duration
}

func NewTicker(jobs Jobs, log *logger.Logger, sweepInterval, expiryInterval time.Duration) *Ticker {
	if sweepInterval <= 0 {
		sweepInterval = defaultTickerSweepInterval
	}
	if expiryInterval <= 0 {
		expiryInterval = defaultTickerExpiryInterval
	}
	return &Ticker{
		jobs:           jobs,
		log:            log,
		sweepInterval:  sweepInterval,
		expiryInterval: expiryInterval,
	}
}

func (t *Ticker) Run(ctx context.Context) {
	if t == nil {
		return
	}

	t.sweep(ctx)
	t.expire(ctx)

	sweepTicker := time.NewTicker(t.sweepInterval)
	defer sweepTicker.Stop()
	expiryTicker := time.NewTicker(t.expiryInterval)
	defer expiryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			t.sweep(ctx)
		case <-expiryTicker.C:
			t.expire(ctx)
		}
	}
}

func (t *Ticker) sweep(ctx context.Context) {
	if t.jobs.Sweeper == nil {
		return
	}
	res, err := t.jobs.Sweeper.SweepMissed(ctx)
	if err != nil {
		t.log.Warn("missed-lead sweep failed", "error", err)
		return
	}
	if res.Missed > 0 {
		t.log.Info("missed-lead sweep marked interactions", "missed", res.Missed, "notified", res.Notified)
	}
}

func (t *Ticker) expire(ctx context.Context) {
	if t.jobs.Expirer == nil {
		return
	}
	expired, err := t.jobs.Expirer.ExpireDue(ctx)
	if err != nil {
		t.log.Warn("subscription expiry failed", "error", err)
		return
	}
	if expired > 0 {
		t.log.Info("subscription expiry closed subscriptions", "expired", expired)
	}
}
