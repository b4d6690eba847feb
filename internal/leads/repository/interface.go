package repository

import (
	"context"
	"errors"
	"time"

	"hirelocal_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lead or interaction row does not exist.
var ErrNotFound = errors.New("not found")

// CreateLeadParams contains the fields a customer supplies for a new lead.
type CreateLeadParams struct {
	CustomerID  uuid.UUID
	CategoryID  uuid.UUID
	Title       string
	Description string
	BudgetMin   int
	BudgetMax   int
	Location    string
	Pincode     *string
}

// TerminalParams describes a move of an interaction row to a terminal state.
type TerminalParams struct {
	FreelancerID uuid.UUID
	LeadID       uuid.UUID
	Status       domain.InteractionStatus
	MissedReason *domain.MissedReason
	Notes        *string
}

// HistoryItem is an interaction row joined with its lead for the
// freelancer's lead-history view.
type HistoryItem struct {
	Interaction domain.Interaction
	LeadTitle   string
	Location    string
	BudgetMin   int
	BudgetMax   int
	LeadStatus  domain.LeadStatus
}

// MissedRow is one interaction the sweeper transitioned to missed.
type MissedRow struct {
	FreelancerID     uuid.UUID
	FreelancerUserID uuid.UUID
	LeadID           uuid.UUID
	LeadTitle        string
}

// LeadReader reads lead rows.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Lead, int, error)
	ListPendingForArea(ctx context.Context, categoryID uuid.UUID, area string, limit int) ([]domain.Lead, error)
}

// LeadWriter mutates lead rows. Every status change is a single conditional
// update; ok is false when the row was not in the expected state.
type LeadWriter interface {
	CreateLead(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
	AcceptPending(ctx context.Context, leadID, freelancerID uuid.UUID) (lead domain.Lead, ok bool, err error)
	CompleteLead(ctx context.Context, leadID, customerID uuid.UUID) (lead domain.Lead, ok bool, err error)
	CancelLead(ctx context.Context, leadID, customerID uuid.UUID) (lead domain.Lead, ok bool, err error)
}

// InteractionStore persists the per-(freelancer, lead) audit trail.
type InteractionStore interface {
	// InsertNotified creates a notified row if none exists.
	InsertNotified(ctx context.Context, freelancerID, leadID uuid.UUID) (created bool, err error)
	// RecordTerminal creates the row in a terminal state, or moves an existing
	// notified row to it. applied is false when the row was already terminal.
	RecordTerminal(ctx context.Context, params TerminalParams) (applied bool, err error)
	GetInteraction(ctx context.Context, freelancerID, leadID uuid.UUID) (domain.Interaction, error)
	ListHistory(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]HistoryItem, int, error)
	// SweepStale marks notified rows older than cutoff whose lead is still
	// pending as missed, in one statement, and returns what it changed.
	SweepStale(ctx context.Context, cutoff time.Time, limit int, notes string) ([]MissedRow, error)
}

// LeadsRepository is the full data access surface of the leads context.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	InteractionStore
}
