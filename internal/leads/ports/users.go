package ports

import (
	"context"

	"github.com/google/uuid"
)

// CustomerContact is revealed to a freelancer only after a gated acceptance.
type CustomerContact struct {
	ID       uuid.UUID
	Name     string
	Phone    string
	Email    string
	Location string
}

// CustomerReader loads customer contact details.
type CustomerReader interface {
	GetCustomerContact(ctx context.Context, userID uuid.UUID) (CustomerContact, error)
}

// CategoryReader resolves category display names for notification text.
type CategoryReader interface {
	CategoryName(ctx context.Context, categoryID uuid.UUID) (string, error)
}
