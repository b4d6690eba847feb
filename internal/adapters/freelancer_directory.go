package adapters

import (
	"context"
	"errors"
	"fmt"

	freelancersrepo "hirelocal_backend/internal/freelancers/repository"
	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/platform/apperr"

	"github.com/google/uuid"
)

// ProfileStore is the narrow view of the freelancer profile repository.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (freelancersrepo.Profile, error)
	FindMatching(ctx context.Context, f freelancersrepo.MatchFilter) ([]freelancersrepo.Profile, error)
}

// FreelancerDirectory adapts the freelancer repository to the leads ports
// and to the subscription ledger's ownership lookup.
type FreelancerDirectory struct {
	profiles ProfileStore
}

// NewFreelancerDirectory creates a new directory adapter.
func NewFreelancerDirectory(profiles ProfileStore) *FreelancerDirectory {
	return &FreelancerDirectory{profiles: profiles}
}

// GetFreelancer implements ports.FreelancerReader.
func (d *FreelancerDirectory) GetFreelancer(ctx context.Context, freelancerID uuid.UUID) (ports.Freelancer, error) {
	p, err := d.profiles.GetByID(ctx, freelancerID)
	if err != nil {
		return ports.Freelancer{}, mapProfileError(err)
	}
	return toPortFreelancer(p), nil
}

// FindMatching implements ports.FreelancerFinder.
func (d *FreelancerDirectory) FindMatching(ctx context.Context, q ports.MatchQuery) ([]ports.Freelancer, error) {
	profiles, err := d.profiles.FindMatching(ctx, freelancersrepo.MatchFilter{
		CategoryID:       q.CategoryID,
		Area:             q.Area,
		RequireAvailable: q.RequireAvailable,
	})
	if err != nil {
		return nil, err
	}

	out := make([]ports.Freelancer, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toPortFreelancer(p))
	}
	return out, nil
}

// OwnerUserID returns the user that owns the profile. It serves both the
// subscription ledger and the notification module.
func (d *FreelancerDirectory) OwnerUserID(ctx context.Context, freelancerID uuid.UUID) (uuid.UUID, error) {
	p, err := d.profiles.GetByID(ctx, freelancerID)
	if err != nil {
		return uuid.Nil, mapProfileError(err)
	}
	return p.UserID, nil
}

func mapProfileError(err error) error {
	if errors.Is(err, freelancersrepo.ErrNotFound) {
		return apperr.NotFound("freelancer profile not found")
	}
	return fmt.Errorf("look up freelancer profile: %w", err)
}

func toPortFreelancer(p freelancersrepo.Profile) ports.Freelancer {
	return ports.Freelancer{
		ID:                 p.ID,
		UserID:             p.UserID,
		Name:               p.Name,
		Phone:              p.Phone,
		CategoryID:         p.CategoryID,
		CategoryName:       p.CategoryName,
		Area:               p.Area,
		VerificationStatus: p.VerificationStatus,
		IsAvailable:        p.IsAvailable,
		Rating:             p.Rating,
	}
}
