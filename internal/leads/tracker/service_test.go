package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hirelocal_backend/internal/leads/domain"
	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/internal/leads/repository"
	"hirelocal_backend/platform/apperr"
	"hirelocal_backend/platform/lock"
	"hirelocal_backend/platform/logger"

	"github.com/google/uuid"
)

type key struct{ freelancer, lead uuid.UUID }

type memStore struct {
	mu         sync.Mutex
	rows       map[key]*domain.Interaction
	leadStatus map[uuid.UUID]domain.LeadStatus
	userOf     map[uuid.UUID]uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		rows:       map[key]*domain.Interaction{},
		leadStatus: map[uuid.UUID]domain.LeadStatus{},
		userOf:     map[uuid.UUID]uuid.UUID{},
	}
}

func (m *memStore) InsertNotified(_ context.Context, f, l uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{f, l}
	if _, ok := m.rows[k]; ok {
		return false, nil
	}
	m.rows[k] = &domain.Interaction{FreelancerID: f, LeadID: l, Status: domain.InteractionNotified, NotifiedAt: time.Now()}
	return true, nil
}

func (m *memStore) RecordTerminal(_ context.Context, p repository.TerminalParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{p.FreelancerID, p.LeadID}
	now := time.Now()
	row, ok := m.rows[k]
	if !ok {
		m.rows[k] = &domain.Interaction{FreelancerID: p.FreelancerID, LeadID: p.LeadID, Status: p.Status,
			NotifiedAt: now, RespondedAt: &now, MissedReason: p.MissedReason, Notes: p.Notes}
		return true, nil
	}
	if row.Status != domain.InteractionNotified {
		return false, nil
	}
	row.Status, row.RespondedAt, row.MissedReason, row.Notes = p.Status, &now, p.MissedReason, p.Notes
	return true, nil
}

func (m *memStore) SweepStale(_ context.Context, cutoff time.Time, limit int, notes string) ([]repository.MissedRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.MissedRow, 0)
	for k, row := range m.rows {
		if len(out) >= limit {
			break
		}
		if row.Status != domain.InteractionNotified || !row.NotifiedAt.Before(cutoff) || m.leadStatus[k.lead] != domain.LeadPending {
			continue
		}
		reason := domain.MissedNoResponse
		now := time.Now()
		row.Status, row.MissedReason, row.RespondedAt, row.Notes = domain.InteractionMissed, &reason, &now, &notes
		out = append(out, repository.MissedRow{FreelancerID: k.freelancer, FreelancerUserID: m.userOf[k.freelancer], LeadID: k.lead, LeadTitle: "Fix kitchen sink"})
	}
	return out, nil
}

func (m *memStore) age(f, l uuid.UUID, by time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key{f, l}].NotifiedAt = time.Now().Add(-by)
}

func (m *memStore) status(f, l uuid.UUID) domain.InteractionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key{f, l}].Status
}

type plans map[uuid.UUID]bool

func (p plans) HasActiveLeadPlan(_ context.Context, f uuid.UUID) (bool, error)     { return p[f], nil }
func (p plans) HasActiveSubscription(_ context.Context, f uuid.UUID) (bool, error) { return p[f], nil }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, notif ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notif)
	return nil
}

func TestRecordNotifiedOnlyForSubscribedAndIdempotent(t *testing.T) {
	store := newMemStore()
	paid, unpaid, lead := uuid.New(), uuid.New(), uuid.New()
	svc := New(store, plans{paid: true}, &recordingNotifier{}, nil, 30*time.Minute, logger.Nop())

	created, err := svc.RecordNotified(context.Background(), paid, lead)
	if err != nil || !created {
		t.Fatalf("expected row for subscribed freelancer, got %v, %v", created, err)
	}
	created, err = svc.RecordNotified(context.Background(), paid, lead)
	if err != nil || created {
		t.Fatalf("second call must be a no-op, got %v, %v", created, err)
	}
	created, err = svc.RecordNotified(context.Background(), unpaid, lead)
	if err != nil || created {
		t.Fatalf("unsubscribed freelancer must not get a row, got %v, %v", created, err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected 1 interaction row, got %d", len(store.rows))
	}
}

func TestTerminalTransitionsAreFinal(t *testing.T) {
	store := newMemStore()
	f, l := uuid.New(), uuid.New()
	svc := New(store, plans{f: true}, &recordingNotifier{}, nil, 30*time.Minute, logger.Nop())
	ctx := context.Background()

	if _, err := svc.RecordNotified(ctx, f, l); err != nil {
		t.Fatalf("notified: %v", err)
	}
	if err := svc.RecordIgnored(ctx, f, l, nil); err != nil {
		t.Fatalf("ignored: %v", err)
	}
	err := svc.RecordAccepted(ctx, f, l)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict after terminal state, got %v", err)
	}
	if store.status(f, l) != domain.InteractionIgnored {
		t.Fatalf("terminal row changed to %s", store.status(f, l))
	}
}

func TestRecordMissedCreatesAbsentRowAndValidatesReason(t *testing.T) {
	store := newMemStore()
	f, l := uuid.New(), uuid.New()
	svc := New(store, plans{}, &recordingNotifier{}, nil, 30*time.Minute, logger.Nop())

	if err := svc.RecordMissed(context.Background(), f, l, "lazy", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unknown reason, got %v", err)
	}
	notes := "  on another job  "
	if err := svc.RecordMissed(context.Background(), f, l, domain.MissedBusy, &notes); err != nil {
		t.Fatalf("record missed: %v", err)
	}
	row := store.rows[key{f, l}]
	if row.Status != domain.InteractionMissed || *row.MissedReason != domain.MissedBusy || *row.Notes != "on another job" {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestSweepMarksStaleRowsOnceAndNotifies(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	f, l, user := uuid.New(), uuid.New(), uuid.New()
	store.userOf[f] = user
	store.leadStatus[l] = domain.LeadPending
	svc := New(store, plans{f: true}, notifier, nil, 30*time.Minute, logger.Nop())
	ctx := context.Background()

	if _, err := svc.RecordNotified(ctx, f, l); err != nil {
		t.Fatalf("notified: %v", err)
	}
	store.age(f, l, 31*time.Minute)

	first, err := svc.SweepMissed(ctx)
	if err != nil || first.Missed != 1 || first.Notified != 1 {
		t.Fatalf("first sweep: %+v, %v", first, err)
	}
	second, err := svc.SweepMissed(ctx)
	if err != nil || second.Missed != 0 {
		t.Fatalf("second sweep must be a no-op: %+v, %v", second, err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].UserID != user || notifier.sent[0].Type != ports.NotificationLeadMissed {
		t.Fatalf("unexpected notifications %+v", notifier.sent)
	}
	if *store.rows[key{f, l}].MissedReason != domain.MissedNoResponse {
		t.Fatalf("expected no_response reason")
	}
}

func TestSweepSkipsFreshRowsAndNonPendingLeads(t *testing.T) {
	store := newMemStore()
	fresh, accepted, l1, l2 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	store.leadStatus[l1] = domain.LeadPending
	store.leadStatus[l2] = domain.LeadAccepted
	svc := New(store, plans{fresh: true, accepted: true}, &recordingNotifier{}, nil, 30*time.Minute, logger.Nop())
	ctx := context.Background()

	_, _ = svc.RecordNotified(ctx, fresh, l1)
	_, _ = svc.RecordNotified(ctx, accepted, l2)
	store.age(fresh, l1, 5*time.Minute)
	store.age(accepted, l2, 2*time.Hour)

	res, err := svc.SweepMissed(ctx)
	if err != nil || res.Missed != 0 {
		t.Fatalf("expected nothing swept, got %+v, %v", res, err)
	}
}

func TestConcurrentSweepsCountEachRowOnce(t *testing.T) {
	store := newMemStore()
	lead := uuid.New()
	store.leadStatus[lead] = domain.LeadPending
	svc := New(store, plans{}, &recordingNotifier{}, nil, 30*time.Minute, logger.Nop())
	for range 25 {
		f := uuid.New()
		store.rows[key{f, lead}] = &domain.Interaction{FreelancerID: f, LeadID: lead, Status: domain.InteractionNotified, NotifiedAt: time.Now().Add(-time.Hour)}
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.SweepMissed(context.Background())
			if err != nil {
				t.Errorf("sweep: %v", err)
				return
			}
			mu.Lock()
			total += res.Missed
			mu.Unlock()
		}()
	}
	wg.Wait()
	if total != 25 {
		t.Fatalf("expected 25 rows missed across overlapping sweeps, got %d", total)
	}
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration) (lock.Lease, error) {
	return nil, lock.ErrNotAcquired
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	svc := New(newMemStore(), plans{}, &recordingNotifier{}, busyLocker{}, 30*time.Minute, logger.Nop())
	res, err := svc.SweepMissed(context.Background())
	if err != nil || !res.Skipped {
		t.Fatalf("expected skipped sweep, got %+v, %v", res, err)
	}
}

func TestSweepCountsNotificationFailures(t *testing.T) {
	store := newMemStore()
	f, l := uuid.New(), uuid.New()
	store.leadStatus[l] = domain.LeadPending
	store.rows[key{f, l}] = &domain.Interaction{FreelancerID: f, LeadID: l, Status: domain.InteractionNotified, NotifiedAt: time.Now().Add(-time.Hour)}
	svc := New(store, plans{}, &recordingNotifier{err: errors.New("insert failed")}, nil, 30*time.Minute, logger.Nop())

	res, err := svc.SweepMissed(context.Background())
	if err != nil || res.Missed != 1 || res.Notified != 0 {
		t.Fatalf("expected missed without notification, got %+v, %v", res, err)
	}
}
