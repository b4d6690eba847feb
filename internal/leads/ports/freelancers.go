// Package ports defines consumer-driven interfaces for the leads domain's
// collaborators. They are shaped by what leads needs, not by what the
// freelancer, user, subscription or notification contexts offer.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// Freelancer is the leads view of a freelancer profile.
type Freelancer struct {
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

// MatchQuery selects freelancers eligible for a lead.
type MatchQuery struct {
	CategoryID       uuid.UUID
	Area             string
	RequireAvailable bool
}

// FreelancerReader loads freelancer profiles.
type FreelancerReader interface {
	// GetFreelancer returns the profile or an apperr NotFound.
	GetFreelancer(ctx context.Context, freelancerID uuid.UUID) (Freelancer, error)
}

// FreelancerFinder runs the eligibility query.
type FreelancerFinder interface {
	FindMatching(ctx context.Context, q MatchQuery) ([]Freelancer, error)
}
