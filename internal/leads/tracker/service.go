// Package tracker records per-(freelancer, lead) interactions and runs the
// missed-lead sweep over them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hirelocal_backend/internal/leads/domain"
	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/internal/leads/repository"
	"hirelocal_backend/platform/apperr"
	"hirelocal_backend/platform/lock"
	"hirelocal_backend/platform/logger"
	"hirelocal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultBatchSize = 200
	maxSweepBatches  = 50
	sweepLockKey     = "leads:sweep_missed"
	sweepLockTTL     = 5 * time.Minute
	maxNotesLength   = 1000
)

// Store is the slice of the interaction repository the tracker needs.
type Store interface {
	InsertNotified(ctx context.Context, freelancerID, leadID uuid.UUID) (bool, error)
	RecordTerminal(ctx context.Context, params repository.TerminalParams) (bool, error)
	SweepStale(ctx context.Context, cutoff time.Time, limit int, notes string) ([]repository.MissedRow, error)
}

// Service is the Interaction Tracker.
type Service struct {
	store     Store
	plans     ports.SubscriptionChecker
	notifier  ports.Notifier
	locker    lock.Locker
	timeout   time.Duration
	batchSize int
	now       func() time.Time
	log       *logger.Logger
}

// SweepResult reports one sweep run.
type SweepResult struct {
	Missed   int  `json:"missed"`
	Notified int  `json:"notified"`
	Skipped  bool `json:"skipped"`
}

// New creates the tracker. timeout is the missed-lead window.
func New(store Store, plans ports.SubscriptionChecker, notifier ports.Notifier, locker lock.Locker, timeout time.Duration, log *logger.Logger) *Service {
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Service{
		store:     store,
		plans:     plans,
		notifier:  notifier,
		locker:    locker,
		timeout:   timeout,
		batchSize: defaultBatchSize,
		now:       time.Now,
		log:       log,
	}
}

// RecordNotified creates a notified row for freelancers holding an active
// lead plan. It returns false without error for unsubscribed freelancers
// and for rows that already exist.
func (s *Service) RecordNotified(ctx context.Context, freelancerID, leadID uuid.UUID) (bool, error) {
	hasPlan, err := s.plans.HasActiveLeadPlan(ctx, freelancerID)
	if err != nil {
		return false, fmt.Errorf("check lead plan: %w", err)
	}
	if !hasPlan {
		return false, nil
	}
	return s.store.InsertNotified(ctx, freelancerID, leadID)
}

// RecordAccepted closes the interaction as accepted.
func (s *Service) RecordAccepted(ctx context.Context, freelancerID, leadID uuid.UUID) error {
	return s.recordTerminal(ctx, repository.TerminalParams{
		FreelancerID: freelancerID,
		LeadID:       leadID,
		Status:       domain.InteractionAccepted,
	})
}

// RecordMissed closes the interaction as missed with a reason.
func (s *Service) RecordMissed(ctx context.Context, freelancerID, leadID uuid.UUID, reason domain.MissedReason, notes *string) error {
	if !reason.Valid() {
		return apperr.Validation("invalid missed reason")
	}
	return s.recordTerminal(ctx, repository.TerminalParams{
		FreelancerID: freelancerID,
		LeadID:       leadID,
		Status:       domain.InteractionMissed,
		MissedReason: &reason,
		Notes:        cleanNotes(notes),
	})
}

// RecordIgnored closes the interaction as ignored.
func (s *Service) RecordIgnored(ctx context.Context, freelancerID, leadID uuid.UUID, notes *string) error {
	return s.recordTerminal(ctx, repository.TerminalParams{
		FreelancerID: freelancerID,
		LeadID:       leadID,
		Status:       domain.InteractionIgnored,
		Notes:        cleanNotes(notes),
	})
}

func (s *Service) recordTerminal(ctx context.Context, p repository.TerminalParams) error {
	applied, err := s.store.RecordTerminal(ctx, p)
	if err != nil {
		return err
	}
	if !applied {
		return domain.ErrInteractionClosed()
	}
	return nil
}

// SweepMissed marks interactions stuck in notified past the timeout as
// missed, when their lead is still pending, and writes a durable
// notification for each. Overlapping runs are harmless: the storage
// statement only touches rows that are still notified.
func (s *Service) SweepMissed(ctx context.Context) (SweepResult, error) {
	lease, err := s.locker.Acquire(ctx, sweepLockKey, sweepLockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		s.log.Info("missed-lead sweep already running elsewhere, skipping")
		return SweepResult{Skipped: true}, nil
	}
	if err != nil {
		// The statement is safe without the lock.
		s.log.Warn("missed-lead sweep lock unavailable, sweeping without it", "error", err)
		lease = nil
	}
	if lease != nil {
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("release missed-lead sweep lock", "error", err)
			}
		}()
	}

	cutoff := s.now().Add(-s.timeout)
	notes := fmt.Sprintf("No response within %d minutes", int(s.timeout.Minutes()))

	var result SweepResult
	for range maxSweepBatches {
		rows, err := s.store.SweepStale(ctx, cutoff, s.batchSize, notes)
		if err != nil {
			return result, err
		}
		result.Missed += len(rows)
		for _, row := range rows {
			if s.notifyMissed(ctx, row) {
				result.Notified++
			}
		}
		if len(rows) < s.batchSize {
			break
		}
	}

	if result.Missed > 0 {
		s.log.Info("missed-lead sweep finished", "missed", result.Missed, "notified", result.Notified, "cutoff", cutoff)
	}
	return result, nil
}

func (s *Service) notifyMissed(ctx context.Context, row repository.MissedRow) bool {
	err := s.notifier.Notify(ctx, ports.Notification{
		UserID:  row.FreelancerUserID,
		Type:    ports.NotificationLeadMissed,
		Title:   "Lead missed",
		Message: fmt.Sprintf("You did not respond to \"%s\" in time.", row.LeadTitle),
		Link:    "/freelancer/leads/history",
	})
	if err != nil {
		s.log.Warn("missed-lead notification failed",
			"freelancerId", row.FreelancerID,
			"leadId", row.LeadID,
			"error", err,
		)
		return false
	}
	return true
}

func cleanNotes(notes *string) *string {
	return sanitize.TextPtr(notes, maxNotesLength)
}
