package email

import (
	"context"

	"hirelocal_backend/platform/config"
)

// Sender delivers transactional emails. Delivery is best-effort; callers
// log failures and carry on.
type Sender interface {
	SendLeadAcceptedEmail(ctx context.Context, toEmail string, data LeadAccepted) error
	SendSubscriptionActivatedEmail(ctx context.Context, toEmail string, data SubscriptionActivated) error
}

// LeadAccepted is shown to the customer once a freelancer takes their lead.
type LeadAccepted struct {
	CustomerName     string
	LeadTitle        string
	CategoryName     string
	FreelancerName   string
	FreelancerPhone  string
	FreelancerRating float64
	LeadURL          string
}

// SubscriptionActivated confirms a paid plan to the freelancer.
type SubscriptionActivated struct {
	FreelancerName string
	PlanLabel      string
	EndDate        string
	DashboardURL   string
}

// NewSender returns an SMTP sender when email is enabled, otherwise a no-op.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetSMTPFrom(), "HireLocal")
}

type NoopSender struct{}

func (NoopSender) SendLeadAcceptedEmail(ctx context.Context, toEmail string, data LeadAccepted) error {
	return nil
}

func (NoopSender) SendSubscriptionActivatedEmail(ctx context.Context, toEmail string, data SubscriptionActivated) error {
	return nil
}
