// Package repository reads freelancer profiles joined with their user and
// category rows.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no profile matches.
var ErrNotFound = errors.New("freelancer profile not found")

// VerificationApproved is the only verification status that receives leads.
const VerificationApproved = "approved"

// Profile is a freelancer profile with the owning user's display fields.
type Profile struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Name               string
	Phone              string
	CategoryID         uuid.UUID
	CategoryName       string
	Area               string
	VerificationStatus string
	IsAvailable        bool
	Rating             float64
}

// MatchFilter selects candidate profiles for a lead.
type MatchFilter struct {
	CategoryID       uuid.UUID
	Area             string
	RequireAvailable bool
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileSelect = `
SELECT fp.id, fp.user_id, u.name, COALESCE(u.phone, ''), fp.category_id, c.name,
	fp.area, fp.verification_status, fp.is_available, fp.rating::float8
FROM freelancer_profiles fp
JOIN users u ON u.id = fp.user_id
JOIN categories c ON c.id = fp.category_id`

const getByIDQuery = profileSelect + `
WHERE fp.id = $1`

// findMatchingQuery mirrors the matching rule: same category, same area
// ignoring case, approved, and optionally available.
const findMatchingQuery = profileSelect + `
WHERE fp.category_id = $1
	AND lower(fp.area) = lower($2)
	AND fp.verification_status = 'approved'
	AND ($3 = false OR fp.is_available)
ORDER BY fp.rating DESC, fp.created_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Phone, &p.CategoryID, &p.CategoryName,
		&p.Area, &p.VerificationStatus, &p.IsAvailable, &p.Rating)
	return p, err
}

func (r *Repository) get(ctx context.Context, op, query string, id uuid.UUID) (Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetByID loads a profile by its id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	return r.get(ctx, "get freelancer", getByIDQuery, id)
}

// FindMatching returns approved profiles in the category and area.
func (r *Repository) FindMatching(ctx context.Context, f MatchFilter) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, findMatchingQuery, f.CategoryID, f.Area, f.RequireAvailable)
	if err != nil {
		return nil, fmt.Errorf("find matching freelancers: %w", err)
	}
	defer rows.Close()

	out := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan freelancer: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate freelancers: %w", err)
	}
	return out, nil
}
