// Package matching computes which freelancers are eligible for a lead.
//
// A freelancer matches when the category is identical, the area equals the
// lead's location ignoring case and surrounding spaces, and the profile is
// approved. Availability is an optional extra filter. There is no ranking
// and no limit: every match is notified whatever its subscription state,
// because subscriptions gate acceptance, not notification.
package matching

import (
	"context"
	"fmt"
	"strings"

	"hirelocal_backend/internal/leads/domain"
	"hirelocal_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// VerificationApproved is the only verification status eligible for leads.
const VerificationApproved = "approved"

// Engine runs the eligibility query.
type Engine struct {
	finder           ports.FreelancerFinder
	requireAvailable bool
}

// New creates a matching engine. requireAvailable adds the isAvailable filter.
func New(finder ports.FreelancerFinder, requireAvailable bool) *Engine {
	return &Engine{finder: finder, requireAvailable: requireAvailable}
}

// Match returns every eligible freelancer for the lead. Zero matches is not
// an error.
func (e *Engine) Match(ctx context.Context, lead domain.Lead) ([]ports.Freelancer, error) {
	return e.MatchArea(ctx, lead.CategoryID, lead.Location)
}

// MatchArea is Match for a bare category and location.
func (e *Engine) MatchArea(ctx context.Context, categoryID uuid.UUID, location string) ([]ports.Freelancer, error) {
	area := strings.TrimSpace(location)
	if area == "" || categoryID == uuid.Nil {
		return []ports.Freelancer{}, nil
	}

	found, err := e.finder.FindMatching(ctx, ports.MatchQuery{
		CategoryID:       categoryID,
		Area:             area,
		RequireAvailable: e.requireAvailable,
	})
	if err != nil {
		return nil, fmt.Errorf("find matching freelancers: %w", err)
	}

	// The finder is expected to filter already; this keeps the contract
	// when an implementation is looser than the SQL one.
	out := make([]ports.Freelancer, 0, len(found))
	for _, f := range found {
		if Eligible(f, categoryID, area, e.requireAvailable) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Eligible reports whether a single freelancer matches.
func Eligible(f ports.Freelancer, categoryID uuid.UUID, location string, requireAvailable bool) bool {
	if f.CategoryID != categoryID {
		return false
	}
	if domain.NormalizeArea(f.Area) != domain.NormalizeArea(location) {
		return false
	}
	if f.VerificationStatus != VerificationApproved {
		return false
	}
	return !requireAvailable || f.IsAvailable
}
