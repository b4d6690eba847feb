package adapters

import (
	"context"
	"errors"
	"fmt"

	"hirelocal_backend/internal/leads/ports"
	usersrepo "hirelocal_backend/internal/users/repository"
	"hirelocal_backend/platform/apperr"

	"github.com/google/uuid"
)

// UserStore is the narrow view of the users repository.
type UserStore interface {
	GetContact(ctx context.Context, id uuid.UUID) (usersrepo.Contact, error)
	CategoryName(ctx context.Context, id uuid.UUID) (string, error)
}

// CustomerDirectory implements ports.CustomerReader and ports.CategoryReader.
type CustomerDirectory struct {
	users UserStore
}

func NewCustomerDirectory(users UserStore) *CustomerDirectory {
	return &CustomerDirectory{users: users}
}

func (d *CustomerDirectory) GetCustomerContact(ctx context.Context, userID uuid.UUID) (ports.CustomerContact, error) {
	c, err := d.users.GetContact(ctx, userID)
	if errors.Is(err, usersrepo.ErrNotFound) {
		return ports.CustomerContact{}, apperr.NotFound("customer not found")
	}
	if err != nil {
		return ports.CustomerContact{}, fmt.Errorf("look up customer contact: %w", err)
	}
	return ports.CustomerContact{
		ID:       c.ID,
		Name:     c.Name,
		Phone:    c.Phone,
		Email:    c.Email,
		Location: c.Location,
	}, nil
}

func (d *CustomerDirectory) CategoryName(ctx context.Context, categoryID uuid.UUID) (string, error) {
	name, err := d.users.CategoryName(ctx, categoryID)
	if errors.Is(err, usersrepo.ErrNotFound) {
		return "", apperr.NotFound("category not found")
	}
	return name, err
}
