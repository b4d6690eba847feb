package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hirelocal_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const insertNotifiedQuery = `
INSERT INTO freelancer_lead_interactions (freelancer_id, lead_id, status, notified_at, updated_at)
VALUES ($1, $2, 'notified', now(), now())
ON CONFLICT (freelancer_id, lead_id) DO NOTHING`

// recordTerminalQuery only overwrites a row that is still notified; a row
// already accepted, missed or ignored is left untouched.
const recordTerminalQuery = `
INSERT INTO freelancer_lead_interactions AS i
	(freelancer_id, lead_id, status, notified_at, responded_at, missed_reason, notes, updated_at)
VALUES ($1, $2, $3, now(), now(), $4, $5, now())
ON CONFLICT (freelancer_id, lead_id) DO UPDATE
SET status = EXCLUDED.status,
	responded_at = EXCLUDED.responded_at,
	missed_reason = EXCLUDED.missed_reason,
	notes = EXCLUDED.notes,
	updated_at = now()
WHERE i.status = 'notified'`

const getInteractionQuery = `
SELECT freelancer_id, lead_id, status, notified_at, responded_at, missed_reason, notes
FROM freelancer_lead_interactions
WHERE freelancer_id = $1 AND lead_id = $2`

const listHistoryQuery = `
SELECT i.freelancer_id, i.lead_id, i.status, i.notified_at, i.responded_at, i.missed_reason, i.notes,
	l.title, l.location, l.budget_min, l.budget_max, l.status, count(*) OVER()
FROM freelancer_lead_interactions i
JOIN leads l ON l.id = i.lead_id
WHERE i.freelancer_id = $1
ORDER BY i.notified_at DESC
LIMIT $2 OFFSET $3`

// sweepStaleQuery decides "missed" and writes it in one statement. The
// stale CTE locks both the interaction and its lead, skipping rows another
// transaction holds (an in-flight acceptance or an overlapping sweep), and
// the UPDATE re-checks both statuses against the locked rows.
const sweepStaleQuery = `
WITH stale AS (
	SELECT i.freelancer_id, i.lead_id
	FROM freelancer_lead_interactions i
	JOIN leads l ON l.id = i.lead_id
	WHERE i.status = 'notified' AND i.notified_at < $1 AND l.status = 'pending'
	ORDER BY i.notified_at
	LIMIT $2
	FOR UPDATE OF i, l SKIP LOCKED
)
UPDATE freelancer_lead_interactions AS i
SET status = 'missed', missed_reason = 'no_response', responded_at = now(), notes = $3, updated_at = now()
FROM stale s, leads l, freelancer_profiles fp
WHERE i.freelancer_id = s.freelancer_id
	AND i.lead_id = s.lead_id
	AND l.id = i.lead_id
	AND fp.id = i.freelancer_id
	AND i.status = 'notified'
	AND l.status = 'pending'
RETURNING i.freelancer_id, fp.user_id, i.lead_id, l.title`

func scanInteraction(row pgx.Row, extra ...any) (domain.Interaction, error) {
	var (
		it     domain.Interaction
		status string
		reason *string
	)
	dest := []any{&it.FreelancerID, &it.LeadID, &status, &it.NotifiedAt, &it.RespondedAt, &reason, &it.Notes}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Interaction{}, err
	}
	it.Status = domain.InteractionStatus(status)
	if reason != nil {
		r := domain.MissedReason(*reason)
		it.MissedReason = &r
	}
	return it, nil
}

func (r *Repository) InsertNotified(ctx context.Context, freelancerID, leadID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, insertNotifiedQuery, freelancerID, leadID)
	if err != nil {
		return false, fmt.Errorf("insert notified interaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) RecordTerminal(ctx context.Context, p TerminalParams) (bool, error) {
	var reason *string
	if p.MissedReason != nil {
		s := string(*p.MissedReason)
		reason = &s
	}
	tag, err := r.pool.Exec(ctx, recordTerminalQuery, p.FreelancerID, p.LeadID, string(p.Status), reason, p.Notes)
	if err != nil {
		return false, fmt.Errorf("record %s interaction: %w", p.Status, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) GetInteraction(ctx context.Context, freelancerID, leadID uuid.UUID) (domain.Interaction, error) {
	it, err := scanInteraction(r.pool.QueryRow(ctx, getInteractionQuery, freelancerID, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Interaction{}, ErrNotFound
	}
	if err != nil {
		return domain.Interaction{}, fmt.Errorf("get interaction: %w", err)
	}
	return it, nil
}

func (r *Repository) ListHistory(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]HistoryItem, int, error) {
	rows, err := r.pool.Query(ctx, listHistoryQuery, freelancerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list lead history: %w", err)
	}
	defer rows.Close()

	items := make([]HistoryItem, 0)
	total := 0
	for rows.Next() {
		var (
			item       HistoryItem
			leadStatus string
		)
		it, err := scanInteraction(rows, &item.LeadTitle, &item.Location, &item.BudgetMin, &item.BudgetMax, &leadStatus, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead history: %w", err)
		}
		item.Interaction = it
		item.LeadStatus = domain.LeadStatus(leadStatus)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate lead history: %w", err)
	}
	return items, total, nil
}

func (r *Repository) SweepStale(ctx context.Context, cutoff time.Time, limit int, notes string) ([]MissedRow, error) {
	rows, err := r.pool.Query(ctx, sweepStaleQuery, cutoff, limit, notes)
	if err != nil {
		return nil, fmt.Errorf("sweep stale interactions: %w", err)
	}
	defer rows.Close()

	missed := make([]MissedRow, 0)
	for rows.Next() {
		var m MissedRow
		if err := rows.Scan(&m.FreelancerID, &m.FreelancerUserID, &m.LeadID, &m.LeadTitle); err != nil {
			return nil, fmt.Errorf("scan swept interaction: %w", err)
		}
		missed = append(missed, m)
	}
	return missed, rows.Err()
}
