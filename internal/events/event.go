// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"hirelocal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published after a customer's lead is stored.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CustomerID uuid.UUID `json:"customerId"`
	CategoryID uuid.UUID `json:"categoryId"`
	Location   string    `json:"location"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadAccepted is published once a freelancer wins the acceptance gate.
// It carries the freelancer's public contact summary for the customer.
type LeadAccepted struct {
	BaseEvent
	LeadID           uuid.UUID `json:"leadId"`
	LeadTitle        string    `json:"leadTitle"`
	CustomerID       uuid.UUID `json:"customerId"`
	FreelancerID     uuid.UUID `json:"freelancerId"`
	FreelancerUserID uuid.UUID `json:"freelancerUserId"`
	FreelancerName   string    `json:"freelancerName"`
	FreelancerPhone  string    `json:"freelancerPhone"`
	FreelancerRating float64   `json:"freelancerRating"`
	CategoryName     string    `json:"categoryName"`
}

func (e LeadAccepted) EventName() string { return "leads.lead.accepted" }

// LeadCancelled is published when a customer withdraws a lead.
type LeadCancelled struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	LeadTitle  string     `json:"leadTitle"`
	CustomerID uuid.UUID  `json:"customerId"`
	AcceptedBy *uuid.UUID `json:"acceptedBy,omitempty"`
}

func (e LeadCancelled) EventName() string { return "leads.lead.cancelled" }

// =============================================================================
// Subscription Domain Events
// =============================================================================

// SubscriptionActivated is published after a paid subscription goes live.
type SubscriptionActivated struct {
	BaseEvent
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	FreelancerID   uuid.UUID `json:"freelancerId"`
	Type           string    `json:"type"`
	EndDate        time.Time `json:"endDate"`
}

func (e SubscriptionActivated) EventName() string { return "subscriptions.subscription.activated" }

// SubscriptionReconciliationRequired is published when a payment was
// captured but the subscription could not be activated because a
// conflicting plan became active first.
type SubscriptionReconciliationRequired struct {
	BaseEvent
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	FreelancerID   uuid.UUID `json:"freelancerId"`
	PaymentID      string    `json:"paymentId"`
	ErrorType      string    `json:"errorType"`
}

func (e SubscriptionReconciliationRequired) EventName() string {
	return "subscriptions.subscription.reconciliation_required"
}

// SubscriptionExpired is published for each subscription the expiry job closes.
type SubscriptionExpired struct {
	BaseEvent
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	FreelancerID   uuid.UUID `json:"freelancerId"`
	Type           string    `json:"type"`
}

func (e SubscriptionExpired) EventName() string { return "subscriptions.subscription.expired" }
