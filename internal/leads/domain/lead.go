// Package domain provides core business rules for the leads bounded context:
// lead lifecycle, interaction states and the typed errors clients branch on.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the lifecycle state of a job request.
type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadAccepted  LeadStatus = "accepted"
	LeadCompleted LeadStatus = "completed"
	LeadCancelled LeadStatus = "cancelled"
)

// leadTransitions lists the allowed moves. A lead never returns to pending.
var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadPending:  {LeadAccepted, LeadCancelled},
	LeadAccepted: {LeadCompleted, LeadCancelled},
}

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadPending, LeadAccepted, LeadCompleted, LeadCancelled:
		return true
	}
	return false
}

// CanTransitionLead reports whether a lead may move from one status to another.
func CanTransitionLead(from, to LeadStatus) bool {
	for _, next := range leadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lead is a customer's job request.
type Lead struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	CategoryID  uuid.UUID
	Title       string
	Description string
	BudgetMin   int
	BudgetMax   int
	Location    string
	Pincode     *string
	Status      LeadStatus
	AcceptedBy  *uuid.UUID
	AcceptedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsPending reports whether the lead can still be accepted.
func (l Lead) IsPending() bool { return l.Status == LeadPending }

// AcceptedByFreelancer reports whether freelancerID won this lead.
func (l Lead) AcceptedByFreelancer(freelancerID uuid.UUID) bool {
	return l.AcceptedBy != nil && *l.AcceptedBy == freelancerID
}

// AcceptanceConsistent checks that acceptedBy is set exactly when the lead
// is accepted. Completed and cancelled leads keep whatever winner they had.
func (l Lead) AcceptanceConsistent() bool {
	switch l.Status {
	case LeadPending:
		return l.AcceptedBy == nil
	case LeadAccepted:
		return l.AcceptedBy != nil && l.AcceptedAt != nil
	default:
		return true
	}
}

// NormalizeArea is the single case normalization used for matching a lead's
// location against a freelancer's area.
func NormalizeArea(area string) string {
	return strings.ToLower(strings.TrimSpace(area))
}
