package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"hirelocal_backend/internal/subscriptions/domain"
	"hirelocal_backend/internal/subscriptions/repository"

	"github.com/google/uuid"
)

type heldSlot struct {
	subscriptionID uuid.UUID
	expiresAt      time.Time
}

// memStore serializes every call, which is what the row locks and the
// conditional statements give the Postgres store.
type memStore struct {
	mu    sync.Mutex
	now   func() time.Time
	subs  map[uuid.UUID]*domain.Subscription
	slots map[domain.Slot]heldSlot
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{now: now, subs: map[uuid.UUID]*domain.Subscription{}, slots: map[domain.Slot]heldSlot{}}
}

func (m *memStore) Create(_ context.Context, p repository.CreateParams) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := p.PaymentOrderID
	s := domain.Subscription{
		ID: p.ID, FreelancerID: p.FreelancerID, Type: p.Type, Status: domain.StatusPending, ScopeKey: p.ScopeKey,
		Amount: p.Amount, Currency: p.Currency, DurationDays: p.DurationDays, CategoryID: p.CategoryID,
		Area: p.Area, Position: p.Position, BadgeType: p.BadgeType, PaymentOrderID: &order,
		CreatedAt: m.now(), UpdatedAt: m.now(),
	}
	m.subs[s.ID] = &s
	return s, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return domain.Subscription{}, repository.ErrNotFound
	}
	return *s, nil
}

func (m *memStore) HasActive(_ context.Context, freelancerID uuid.UUID, t domain.Type) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.FreelancerID == freelancerID && s.IsLive(m.now()) && (t == "" || s.Type == t) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) HasActiveScope(_ context.Context, freelancerID uuid.UUID, scopeKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.FreelancerID == freelancerID && s.ScopeKey == scopeKey && s.IsLive(m.now()) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SlotHolder(_ context.Context, slot domain.Slot) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.slots[slot]
	if !ok || !h.expiresAt.After(m.now()) {
		return uuid.Nil, false, nil
	}
	return h.subscriptionID, true, nil
}

func (m *memStore) Activate(_ context.Context, id uuid.UUID, paymentID string) (repository.Activation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return repository.Activation{}, repository.ErrNotFound
	}
	switch s.Status {
	case domain.StatusActive:
		return repository.Activation{Outcome: repository.AlreadyActive, Subscription: *s}, nil
	case domain.StatusPending:
	default:
		return repository.Activation{Outcome: repository.NotPending, Subscription: *s}, nil
	}

	now := m.now()
	for _, o := range m.subs {
		if o.FreelancerID != s.FreelancerID || o.ScopeKey != s.ScopeKey || o.Status != domain.StatusActive {
			continue
		}
		if !o.EndDate.After(now) {
			o.Status = domain.StatusExpired
			continue
		}
		return repository.Activation{Outcome: repository.DuplicateScope, Subscription: *s}, nil
	}

	end := now.AddDate(0, 0, s.DurationDays)
	if slot, ok := s.Slot(); ok {
		if h, held := m.slots[slot]; held && h.expiresAt.After(now) && h.subscriptionID != s.ID {
			return repository.Activation{Outcome: repository.SlotTaken, Subscription: *s}, nil
		}
		m.slots[slot] = heldSlot{subscriptionID: s.ID, expiresAt: end}
	}

	s.Status, s.StartDate, s.EndDate, s.PaymentID = domain.StatusActive, &now, &end, &paymentID
	return repository.Activation{Outcome: repository.Activated, Subscription: *s}, nil
}

func (m *memStore) MarkReconciliation(_ context.Context, id uuid.UUID, paymentID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subs[id]
	s.ReconciliationRequired, s.ReconciliationReason = true, &reason
	if s.PaymentID == nil {
		s.PaymentID = &paymentID
	}
	return nil
}

func (m *memStore) releaseLocked(id uuid.UUID) {
	for k, h := range m.slots {
		if h.subscriptionID == id {
			delete(m.slots, k)
		}
	}
}

func (m *memStore) Cancel(_ context.Context, id, freelancerID uuid.UUID) (domain.Subscription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok || s.FreelancerID != freelancerID || (s.Status != domain.StatusPending && s.Status != domain.StatusActive) {
		return domain.Subscription{}, false, nil
	}
	s.Status = domain.StatusCancelled
	m.releaseLocked(id)
	return *s, true, nil
}

func (m *memStore) ExpireDue(_ context.Context, limit int) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Subscription{}
	for _, s := range m.subs {
		if len(out) == limit {
			break
		}
		if s.Status == domain.StatusActive && !s.EndDate.After(m.now()) {
			s.Status = domain.StatusExpired
			m.releaseLocked(s.ID)
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) ListForFreelancer(_ context.Context, freelancerID uuid.UUID) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Subscription{}
	for _, s := range m.subs {
		if s.FreelancerID == freelancerID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListReconciliation(_ context.Context, limit int) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Subscription{}
	for _, s := range m.subs {
		if s.ReconciliationRequired && len(out) < limit {
			out = append(out, *s)
		}
	}
	return out, nil
}

var _ repository.Store = (*memStore)(nil)
