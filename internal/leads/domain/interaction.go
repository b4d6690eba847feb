package domain

import (
	"time"

	"github.com/google/uuid"
)

// InteractionStatus is the state of a (freelancer, lead) audit row.
type InteractionStatus string

const (
	InteractionNotified InteractionStatus = "notified"
	InteractionAccepted InteractionStatus = "accepted"
	InteractionMissed   InteractionStatus = "missed"
	InteractionIgnored  InteractionStatus = "ignored"
)

// IsTerminal reports whether no further transition is allowed.
func (s InteractionStatus) IsTerminal() bool {
	return s == InteractionAccepted || s == InteractionMissed || s == InteractionIgnored
}

// MissedReason explains a missed interaction.
type MissedReason string

const (
	MissedExpired       MissedReason = "expired"
	MissedNoResponse    MissedReason = "no_response"
	MissedBusy          MissedReason = "busy"
	MissedNotInterested MissedReason = "not_interested"
)

// Valid reports whether r is a known reason.
func (r MissedReason) Valid() bool {
	switch r {
	case MissedExpired, MissedNoResponse, MissedBusy, MissedNotInterested:
		return true
	}
	return false
}

// Interaction is the per-(freelancer, lead) audit record.
type Interaction struct {
	FreelancerID uuid.UUID
	LeadID       uuid.UUID
	Status       InteractionStatus
	NotifiedAt   time.Time
	RespondedAt  *time.Time
	MissedReason *MissedReason
	Notes        *string
}

// CanTransitionInteraction reports whether an interaction row currently in
// from may move to to. A missing row (from == "") may be created directly
// in any state.
func CanTransitionInteraction(from, to InteractionStatus) bool {
	if from == "" {
		return true
	}
	return from == InteractionNotified && to.IsTerminal()
}
