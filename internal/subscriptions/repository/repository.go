// Package repository persists subscriptions and position slots in Postgres.
package repository

import (
	"context"
	"errors"
	"fmt"

	"hirelocal_backend/internal/subscriptions/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const subscriptionColumns = `id, freelancer_id, type, status, scope_key, amount, currency, duration_days,
	start_date, end_date, category_id, area, position, badge_type, payment_order_id, payment_id,
	reconciliation_required, reconciliation_reason, created_at, updated_at`

const createQuery = `
INSERT INTO subscriptions (id, freelancer_id, type, status, scope_key, amount, currency, duration_days,
	category_id, area, position, badge_type, payment_order_id)
VALUES ($1, $2, $3, 'pending', $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + subscriptionColumns

const getByIDQuery = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

const hasActiveQuery = `
SELECT EXISTS (
	SELECT 1 FROM subscriptions
	WHERE freelancer_id = $1 AND status = 'active' AND end_date > now()
		AND ($2 = '' OR type = $2)
)`

const hasActiveScopeQuery = `
SELECT EXISTS (
	SELECT 1 FROM subscriptions
	WHERE freelancer_id = $1 AND scope_key = $2 AND status = 'active' AND end_date > now()
)`

const slotHolderQuery = `
SELECT subscription_id FROM position_slots
WHERE category_id = $1 AND area_key = $2 AND position = $3 AND expires_at > now()`

const lockSubscriptionQuery = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`

// Serializes activations of one freelancer so the scope re-check below sees
// every committed activation.
const lockFreelancerQuery = `SELECT id FROM freelancer_profiles WHERE id = $1 FOR UPDATE`

const expireStaleScopeQuery = `
UPDATE subscriptions
SET status = 'expired', updated_at = now()
WHERE freelancer_id = $1 AND scope_key = $2 AND status = 'active' AND end_date <= now()`

// activateQuery flips the row only while no other active row shares its
// scope. Zero rows means the activation lost.
const activateQuery = `
UPDATE subscriptions s
SET status = 'active', payment_id = $2, start_date = now(),
	end_date = now() + make_interval(days => s.duration_days), updated_at = now()
WHERE s.id = $1 AND s.status = 'pending'
	AND NOT EXISTS (
		SELECT 1 FROM subscriptions o
		WHERE o.freelancer_id = s.freelancer_id AND o.scope_key = s.scope_key
			AND o.status = 'active' AND o.id <> s.id
	)
RETURNING ` + subscriptionColumns

// claimSlotQuery takes a position slot when it is free, expired, or already
// ours. Zero rows means another live subscription holds it.
const claimSlotQuery = `
INSERT INTO position_slots (category_id, area_key, position, freelancer_id, subscription_id, expires_at, claimed_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (category_id, area_key, position) DO UPDATE
SET freelancer_id = EXCLUDED.freelancer_id,
	subscription_id = EXCLUDED.subscription_id,
	expires_at = EXCLUDED.expires_at,
	claimed_at = now()
WHERE position_slots.expires_at <= now() OR position_slots.subscription_id = EXCLUDED.subscription_id
RETURNING subscription_id`

const markReconciliationQuery = `
UPDATE subscriptions
SET reconciliation_required = true, reconciliation_reason = $3,
	payment_id = COALESCE(payment_id, NULLIF($2, '')), updated_at = now()
WHERE id = $1`

const cancelQuery = `
UPDATE subscriptions
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND freelancer_id = $2 AND status IN ('pending', 'active')
RETURNING ` + subscriptionColumns

const releaseSlotsQuery = `DELETE FROM position_slots WHERE subscription_id = ANY($1)`

var expireDueQuery = `
WITH due AS (
	SELECT id FROM subscriptions
	WHERE status = 'active' AND end_date <= now()
	ORDER BY end_date
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
UPDATE subscriptions s
SET status = 'expired', updated_at = now()
FROM due
WHERE s.id = due.id AND s.status = 'active'
RETURNING ` + prefixed("s")

const listForFreelancerQuery = `
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE freelancer_id = $1
ORDER BY created_at DESC`

const listReconciliationQuery = `
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE reconciliation_required
ORDER BY updated_at DESC
LIMIT $1`

func prefixed(alias string) string {
	return alias + `.id, ` + alias + `.freelancer_id, ` + alias + `.type, ` + alias + `.status, ` +
		alias + `.scope_key, ` + alias + `.amount, ` + alias + `.currency, ` + alias + `.duration_days, ` +
		alias + `.start_date, ` + alias + `.end_date, ` + alias + `.category_id, ` + alias + `.area, ` +
		alias + `.position, ` + alias + `.badge_type, ` + alias + `.payment_order_id, ` + alias + `.payment_id, ` +
		alias + `.reconciliation_required, ` + alias + `.reconciliation_reason, ` + alias + `.created_at, ` +
		alias + `.updated_at`
}

func scanSubscription(row pgx.Row) (domain.Subscription, error) {
	var (
		s         domain.Subscription
		typ, stat string
		position  *int16
	)
	err := row.Scan(&s.ID, &s.FreelancerID, &typ, &stat, &s.ScopeKey, &s.Amount, &s.Currency, &s.DurationDays,
		&s.StartDate, &s.EndDate, &s.CategoryID, &s.Area, &position, &s.BadgeType, &s.PaymentOrderID, &s.PaymentID,
		&s.ReconciliationRequired, &s.ReconciliationReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.Subscription{}, err
	}
	s.Type, s.Status = domain.Type(typ), domain.Status(stat)
	if position != nil {
		p := int(*position)
		s.Position = &p
	}
	return s, nil
}

func collect(rows pgx.Rows, op string) ([]domain.Subscription, error) {
	defer rows.Close()
	out := make([]domain.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (domain.Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx, createQuery,
		p.ID, p.FreelancerID, string(p.Type), p.ScopeKey, p.Amount, p.Currency, p.DurationDays,
		p.CategoryID, p.Area, p.Position, p.BadgeType, p.PaymentOrderID,
	))
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return s, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx, getByIDQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subscription{}, ErrNotFound
	}
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return s, nil
}

func (r *Repository) HasActive(ctx context.Context, freelancerID uuid.UUID, t domain.Type) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, hasActiveQuery, freelancerID, string(t)).Scan(&ok); err != nil {
		return false, fmt.Errorf("check active subscription: %w", err)
	}
	return ok, nil
}

func (r *Repository) HasActiveScope(ctx context.Context, freelancerID uuid.UUID, scopeKey string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, hasActiveScopeQuery, freelancerID, scopeKey).Scan(&ok); err != nil {
		return false, fmt.Errorf("check active scope: %w", err)
	}
	return ok, nil
}

func (r *Repository) SlotHolder(ctx context.Context, slot domain.Slot) (uuid.UUID, bool, error) {
	var holder uuid.UUID
	err := r.pool.QueryRow(ctx, slotHolderQuery, slot.CategoryID, slot.AreaKey, slot.Position).Scan(&holder)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get slot holder: %w", err)
	}
	return holder, true, nil
}

func (r *Repository) Activate(ctx context.Context, id uuid.UUID, paymentID string) (Activation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Activation{}, fmt.Errorf("begin activation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanSubscription(tx.QueryRow(ctx, lockSubscriptionQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Activation{}, ErrNotFound
	}
	if err != nil {
		return Activation{}, fmt.Errorf("lock subscription: %w", err)
	}
	switch current.Status {
	case domain.StatusActive:
		return Activation{Outcome: AlreadyActive, Subscription: current}, nil
	case domain.StatusPending:
	default:
		return Activation{Outcome: NotPending, Subscription: current}, nil
	}

	if _, err := tx.Exec(ctx, lockFreelancerQuery, current.FreelancerID); err != nil {
		return Activation{}, fmt.Errorf("lock freelancer: %w", err)
	}
	if _, err := tx.Exec(ctx, expireStaleScopeQuery, current.FreelancerID, current.ScopeKey); err != nil {
		return Activation{}, fmt.Errorf("expire stale scope: %w", err)
	}

	activated, err := scanSubscription(tx.QueryRow(ctx, activateQuery, id, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Activation{Outcome: DuplicateScope, Subscription: current}, nil
	}
	if isUniqueViolation(err) {
		return Activation{Outcome: DuplicateScope, Subscription: current}, nil
	}
	if err != nil {
		return Activation{}, fmt.Errorf("activate subscription: %w", err)
	}

	if slot, ok := activated.Slot(); ok {
		var holder uuid.UUID
		err := tx.QueryRow(ctx, claimSlotQuery,
			slot.CategoryID, slot.AreaKey, slot.Position, activated.FreelancerID, activated.ID, activated.EndDate,
		).Scan(&holder)
		if errors.Is(err, pgx.ErrNoRows) {
			return Activation{Outcome: SlotTaken, Subscription: current}, nil
		}
		if err != nil {
			return Activation{}, fmt.Errorf("claim position slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return Activation{Outcome: DuplicateScope, Subscription: current}, nil
		}
		return Activation{}, fmt.Errorf("commit activation: %w", err)
	}
	return Activation{Outcome: Activated, Subscription: activated}, nil
}

func (r *Repository) MarkReconciliation(ctx context.Context, id uuid.UUID, paymentID, reason string) error {
	if _, err := r.pool.Exec(ctx, markReconciliationQuery, id, paymentID, reason); err != nil {
		return fmt.Errorf("mark reconciliation: %w", err)
	}
	return nil
}

func (r *Repository) Cancel(ctx context.Context, id, freelancerID uuid.UUID) (domain.Subscription, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Subscription{}, false, fmt.Errorf("begin cancel: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s, err := scanSubscription(tx.QueryRow(ctx, cancelQuery, id, freelancerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Subscription{}, false, nil
	}
	if err != nil {
		return domain.Subscription{}, false, fmt.Errorf("cancel subscription: %w", err)
	}
	if _, err := tx.Exec(ctx, releaseSlotsQuery, []uuid.UUID{id}); err != nil {
		return domain.Subscription{}, false, fmt.Errorf("release slot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Subscription{}, false, fmt.Errorf("commit cancel: %w", err)
	}
	return s, true, nil
}

func (r *Repository) ExpireDue(ctx context.Context, limit int) ([]domain.Subscription, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin expiry: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, expireDueQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("expire due: %w", err)
	}
	expired, err := collect(rows, "scan expired")
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		ids := make([]uuid.UUID, 0, len(expired))
		for _, s := range expired {
			ids = append(ids, s.ID)
		}
		if _, err := tx.Exec(ctx, releaseSlotsQuery, ids); err != nil {
			return nil, fmt.Errorf("release expired slots: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit expiry: %w", err)
	}
	return expired, nil
}

func (r *Repository) ListForFreelancer(ctx context.Context, freelancerID uuid.UUID) ([]domain.Subscription, error) {
	rows, err := r.pool.Query(ctx, listForFreelancerQuery, freelancerID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return collect(rows, "scan subscription")
}

func (r *Repository) ListReconciliation(ctx context.Context, limit int) ([]domain.Subscription, error) {
	rows, err := r.pool.Query(ctx, listReconciliationQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("list reconciliation: %w", err)
	}
	return collect(rows, "scan subscription")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ Store = (*Repository)(nil)
