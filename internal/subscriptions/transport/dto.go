package transport

import (
	"time"

	"hirelocal_backend/internal/subscriptions/domain"
	"hirelocal_backend/internal/subscriptions/payment"

	"github.com/google/uuid"
)

// Request DTOs
type CreateSubscriptionRequest struct {
	FreelancerID uuid.UUID  `json:"freelancerId" validate:"required"`
	Type         string     `json:"type" validate:"required,oneof=lead position badge"`
	CategoryID   *uuid.UUID `json:"categoryId,omitempty"`
	Area         *string    `json:"area,omitempty" validate:"omitempty,notblank,max=200"`
	Position     *int       `json:"position,omitempty" validate:"omitempty,min=1,max=3"`
	BadgeType    *string    `json:"badgeType,omitempty" validate:"omitempty,notblank,max=50"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required,hexadecimal"`
}

// Response DTOs
type SubscriptionResponse struct {
	ID                     uuid.UUID     `json:"id"`
	FreelancerID           uuid.UUID     `json:"freelancerId"`
	Type                   domain.Type   `json:"type"`
	Status                 domain.Status `json:"status"`
	Amount                 int           `json:"amount"`
	Currency               string        `json:"currency"`
	DurationDays           int           `json:"durationDays"`
	StartDate              *time.Time    `json:"startDate,omitempty"`
	EndDate                *time.Time    `json:"endDate,omitempty"`
	CategoryID             *uuid.UUID    `json:"categoryId,omitempty"`
	Area                   *string       `json:"area,omitempty"`
	Position               *int          `json:"position,omitempty"`
	BadgeType              *string       `json:"badgeType,omitempty"`
	PaymentOrderID         *string       `json:"paymentOrderId,omitempty"`
	ReconciliationRequired bool          `json:"reconciliationRequired"`
	ReconciliationReason   *string       `json:"reconciliationReason,omitempty"`
	CreatedAt              time.Time     `json:"createdAt"`
}

type CreateSubscriptionResponse struct {
	Subscription SubscriptionResponse `json:"subscription"`
	Order        payment.Order        `json:"order"`
}

type StatusResponse struct {
	HasLeadPlan           bool `json:"hasLeadPlan"`
	HasActiveSubscription bool `json:"hasActiveSubscription"`
}

func ToSubscriptionResponse(s domain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                     s.ID,
		FreelancerID:           s.FreelancerID,
		Type:                   s.Type,
		Status:                 s.Status,
		Amount:                 s.Amount,
		Currency:               s.Currency,
		DurationDays:           s.DurationDays,
		StartDate:              s.StartDate,
		EndDate:                s.EndDate,
		CategoryID:             s.CategoryID,
		Area:                   s.Area,
		Position:               s.Position,
		BadgeType:              s.BadgeType,
		PaymentOrderID:         s.PaymentOrderID,
		ReconciliationRequired: s.ReconciliationRequired,
		ReconciliationReason:   s.ReconciliationReason,
		CreatedAt:              s.CreatedAt,
	}
}

func ToSubscriptionResponses(subs []domain.Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, ToSubscriptionResponse(s))
	}
	return out
}
