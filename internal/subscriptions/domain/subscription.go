// Package domain defines subscription types, states and the scope rule
// behind the one-active-plan-per-scope invariant.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeLead     Type = "lead"
	TypePosition Type = "position"
	TypeBadge    Type = "badge"
)

func (t Type) Valid() bool {
	switch t {
	case TypeLead, TypePosition, TypeBadge:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

const (
	MinPosition = 1
	MaxPosition = 3
)

// Subscription is one purchase of a plan by a freelancer.
type Subscription struct {
	ID                     uuid.UUID
	FreelancerID           uuid.UUID
	Type                   Type
	Status                 Status
	ScopeKey               string
	Amount                 int
	Currency               string
	DurationDays           int
	StartDate              *time.Time
	EndDate                *time.Time
	CategoryID             *uuid.UUID
	Area                   *string
	Position               *int
	BadgeType              *string
	PaymentOrderID         *string
	PaymentID              *string
	ReconciliationRequired bool
	ReconciliationReason   *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsLive reports whether the subscription grants its benefit at now.
func (s Subscription) IsLive(now time.Time) bool {
	return s.Status == StatusActive && s.EndDate != nil && s.EndDate.After(now)
}

// Slot returns the position slot a position plan claims.
func (s Subscription) Slot() (Slot, bool) {
	if s.Type != TypePosition || s.CategoryID == nil || s.Area == nil || s.Position == nil {
		return Slot{}, false
	}
	return Slot{CategoryID: *s.CategoryID, AreaKey: AreaKey(*s.Area), Position: *s.Position}, true
}

// Slot is a ranked display position within a category and area.
type Slot struct {
	CategoryID uuid.UUID
	AreaKey    string
	Position   int
}

// AreaKey folds an area name for slot and scope comparison.
func AreaKey(area string) string {
	return strings.ToLower(strings.Join(strings.Fields(area), " "))
}

// ScopeKey identifies the exclusivity scope of a plan. A freelancer holds
// at most one active subscription per scope key.
//
//	lead                       one lead plan
//	badge:<badgeType>          one of each badge
//	position:<category>:<area> one position per category and area
func ScopeKey(t Type, categoryID uuid.UUID, area, badgeType string) string {
	switch t {
	case TypeBadge:
		return fmt.Sprintf("badge:%s", strings.ToLower(strings.TrimSpace(badgeType)))
	case TypePosition:
		return fmt.Sprintf("position:%s:%s", categoryID, AreaKey(area))
	default:
		return string(TypeLead)
	}
}
