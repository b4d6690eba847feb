package ports

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionChecker answers "does this freelancer hold an active plan now".
type SubscriptionChecker interface {
	HasActiveLeadPlan(ctx context.Context, freelancerID uuid.UUID) (bool, error)
	HasActiveSubscription(ctx context.Context, freelancerID uuid.UUID) (bool, error)
}
