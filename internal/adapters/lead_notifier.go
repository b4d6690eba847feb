package adapters

import (
	"context"

	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/internal/notification/inapp"

	"github.com/google/uuid"
)

// InAppSender is the narrow view of the in-app notification service.
type InAppSender interface {
	Send(ctx context.Context, p inapp.SendParams) (inapp.Notification, error)
}

// LeadNotifier implements ports.Notifier on top of in-app notifications.
type LeadNotifier struct {
	inapp InAppSender
}

func NewLeadNotifier(sender InAppSender) *LeadNotifier {
	return &LeadNotifier{inapp: sender}
}

func (n *LeadNotifier) Notify(ctx context.Context, notif ports.Notification) error {
	_, err := n.inapp.Send(ctx, inapp.SendParams{
		UserID:  notif.UserID,
		Type:    notif.Type,
		Title:   notif.Title,
		Message: notif.Message,
		Link:    notif.Link,
	})
	return err
}

// Publisher pushes to a live connection.
type Publisher interface {
	Publish(userID uuid.UUID, msgType string, payload any) bool
}

// RealtimePusher implements ports.RealtimePusher on top of the hub.
type RealtimePusher struct {
	pub Publisher
}

func NewRealtimePusher(pub Publisher) *RealtimePusher {
	return &RealtimePusher{pub: pub}
}

func (p *RealtimePusher) Push(userID uuid.UUID, msgType string, payload any) bool {
	if p == nil || p.pub == nil {
		return false
	}
	return p.pub.Publish(userID, msgType, payload)
}
