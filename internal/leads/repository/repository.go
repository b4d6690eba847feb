// Package repository persists leads and freelancer-lead interactions in
// Postgres through pgx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"hirelocal_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements LeadsRepository.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, customer_id, category_id, title, description, budget_min, budget_max,
	location, pincode, status, accepted_by, accepted_at, created_at, updated_at`

const createLeadQuery = `
INSERT INTO leads (id, customer_id, category_id, title, description, budget_min, budget_max,
	location, pincode, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', now(), now())
RETURNING ` + leadColumns

const getLeadQuery = `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

// acceptPendingQuery is the acceptance gate: only a pending lead flips, so
// exactly one concurrent caller gets a row back.
const acceptPendingQuery = `
UPDATE leads
SET status = 'accepted', accepted_by = $2, accepted_at = now(), updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING ` + leadColumns

const completeLeadQuery = `
UPDATE leads
SET status = 'completed', updated_at = now()
WHERE id = $1 AND customer_id = $2 AND status = 'accepted'
RETURNING ` + leadColumns

const cancelLeadQuery = `
UPDATE leads
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND customer_id = $2 AND status IN ('pending', 'accepted')
RETURNING ` + leadColumns

const listByCustomerQuery = `
SELECT ` + leadColumns + `, count(*) OVER()
FROM leads
WHERE customer_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

const listPendingForAreaQuery = `
SELECT ` + leadColumns + `
FROM leads
WHERE category_id = $1 AND lower(location) = lower($2) AND status = 'pending'
ORDER BY created_at DESC
LIMIT $3`

func scanLead(row pgx.Row, extra ...any) (domain.Lead, error) {
	var (
		lead   domain.Lead
		status string
	)
	dest := []any{
		&lead.ID, &lead.CustomerID, &lead.CategoryID, &lead.Title, &lead.Description,
		&lead.BudgetMin, &lead.BudgetMax, &lead.Location, &lead.Pincode, &status,
		&lead.AcceptedBy, &lead.AcceptedAt, &lead.CreatedAt, &lead.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.LeadStatus(status)
	return lead, nil
}

func (r *Repository) CreateLead(ctx context.Context, p CreateLeadParams) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, createLeadQuery,
		uuid.New(), p.CustomerID, p.CategoryID, p.Title, p.Description,
		p.BudgetMin, p.BudgetMax, p.Location, p.Pincode,
	)
	lead, err := scanLead(row)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, getLeadQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

func (r *Repository) conditionalUpdate(ctx context.Context, op, query string, args ...any) (domain.Lead, bool, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, false, nil
	}
	if err != nil {
		return domain.Lead{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return lead, true, nil
}

func (r *Repository) AcceptPending(ctx context.Context, leadID, freelancerID uuid.UUID) (domain.Lead, bool, error) {
	return r.conditionalUpdate(ctx, "accept lead", acceptPendingQuery, leadID, freelancerID)
}

func (r *Repository) CompleteLead(ctx context.Context, leadID, customerID uuid.UUID) (domain.Lead, bool, error) {
	return r.conditionalUpdate(ctx, "complete lead", completeLeadQuery, leadID, customerID)
}

func (r *Repository) CancelLead(ctx context.Context, leadID, customerID uuid.UUID) (domain.Lead, bool, error) {
	return r.conditionalUpdate(ctx, "cancel lead", cancelLeadQuery, leadID, customerID)
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Lead, int, error) {
	rows, err := r.pool.Query(ctx, listByCustomerQuery, customerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customer leads: %w", err)
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	total := 0
	for rows.Next() {
		lead, err := scanLead(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate customer leads: %w", err)
	}
	return leads, total, nil
}

func (r *Repository) ListPendingForArea(ctx context.Context, categoryID uuid.UUID, area string, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, listPendingForAreaQuery, categoryID, area, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending leads: %w", err)
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

var _ LeadsRepository = (*Repository)(nil)
