// Package repository reads user contact data and category names.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

// Contact holds the fields shown to a freelancer who accepted a lead.
type Contact struct {
	ID       uuid.UUID
	Name     string
	Phone    string
	Email    string
	Location string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const getContactQuery = `
SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(location, '')
FROM users
WHERE id = $1`

const listIDsByRoleQuery = `SELECT id FROM users WHERE role = $1 ORDER BY created_at`

const categoryNameQuery = `SELECT name FROM categories WHERE id = $1`

func (r *Repository) GetContact(ctx context.Context, id uuid.UUID) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx, getContactQuery, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Location)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, fmt.Errorf("get user contact: %w", err)
	}
	return c, nil
}

// ListIDsByRole returns every user id holding role.
func (r *Repository) ListIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, listIDsByRoleQuery, role)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect user ids: %w", err)
	}
	return ids, nil
}

func (r *Repository) CategoryName(ctx context.Context, id uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, categoryNameQuery, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get category name: %w", err)
	}
	return name, nil
}
