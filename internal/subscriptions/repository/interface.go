package repository

import (
	"context"
	"errors"

	"hirelocal_backend/internal/subscriptions/domain"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("subscription not found")

// CreateParams describes a pending subscription awaiting payment.
type CreateParams struct {
	ID             uuid.UUID
	FreelancerID   uuid.UUID
	Type           domain.Type
	ScopeKey       string
	Amount         int
	Currency       string
	DurationDays   int
	CategoryID     *uuid.UUID
	Area           *string
	Position       *int
	BadgeType      *string
	PaymentOrderID string
}

// Outcome is the result of an activation attempt.
type Outcome int

const (
	// Activated means this call moved the row to active.
	Activated Outcome = iota
	// AlreadyActive means an earlier call activated it.
	AlreadyActive
	// DuplicateScope means another active row holds the same scope.
	DuplicateScope
	// SlotTaken means another subscription holds the position slot.
	SlotTaken
	// NotPending means the row was cancelled or expired before payment.
	NotPending
)

// Activation carries the outcome and the row as it stands afterwards.
type Activation struct {
	Outcome      Outcome
	Subscription domain.Subscription
}

// Store is the persistence surface of the subscription ledger.
type Store interface {
	Create(ctx context.Context, params CreateParams) (domain.Subscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error)
	// HasActive reports a live subscription of type t, or of any type when t is empty.
	HasActive(ctx context.Context, freelancerID uuid.UUID, t domain.Type) (bool, error)
	HasActiveScope(ctx context.Context, freelancerID uuid.UUID, scopeKey string) (bool, error)
	// SlotHolder returns the subscription currently holding an unexpired slot.
	SlotHolder(ctx context.Context, slot domain.Slot) (uuid.UUID, bool, error)
	// Activate re-checks exclusivity and flips pending to active in one
	// transaction, claiming the position slot for position plans.
	Activate(ctx context.Context, id uuid.UUID, paymentID string) (Activation, error)
	MarkReconciliation(ctx context.Context, id uuid.UUID, paymentID, reason string) error
	// Cancel moves a pending or active row to cancelled and frees its slot.
	Cancel(ctx context.Context, id, freelancerID uuid.UUID) (domain.Subscription, bool, error)
	// ExpireDue closes active rows past their end date and frees their slots.
	ExpireDue(ctx context.Context, limit int) ([]domain.Subscription, error)
	ListForFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]domain.Subscription, error)
	ListReconciliation(ctx context.Context, limit int) ([]domain.Subscription, error)
}
