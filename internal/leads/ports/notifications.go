package ports

import (
	"context"

	"github.com/google/uuid"
)

// Durable notification types written by the leads domain.
const (
	NotificationLead       = "lead"
	NotificationLeadMissed = "lead_missed"
	NotificationInquiry    = "inquiry"
)

// Real-time message types pushed by the leads domain.
const (
	MessageLeadRing   = "lead_ring"
	MessageNewInquiry = "new_inquiry"
)

// Notification is a durable, user-facing row.
type Notification struct {
	UserID  uuid.UUID
	Type    string
	Title   string
	Message string
	Link    string
}

// Notifier persists durable notifications. This is the source of truth a
// client sees through the notification center and polling.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// RealtimePusher delivers a message over the user's open channel, if any.
// It reports whether the message was handed to a live connection. Delivery
// is fire-and-forget.
type RealtimePusher interface {
	Push(userID uuid.UUID, msgType string, payload any) bool
}
