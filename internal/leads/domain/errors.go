package domain

import "hirelocal_backend/platform/apperr"

// Values of the errorType detail for lead outcomes.
const (
	ErrorTypeLeadTaken         = "LEAD_TAKEN"
	ErrorTypeNeedsSubscription = "NEEDS_SUBSCRIPTION"
	ErrorTypeNeedsAcceptance   = "NEEDS_ACCEPTANCE"
	ErrorTypeInteractionClosed = "INTERACTION_CLOSED"
	ErrorTypeNotEligible       = "NOT_ELIGIBLE"
)

// ErrLeadTaken is returned when another freelancer already accepted the lead.
func ErrLeadTaken() *apperr.Error {
	return apperr.Gone("lead already taken by another freelancer").
		WithDetail("errorType", ErrorTypeLeadTaken)
}

// ErrNeedsSubscription is returned when the freelancer has no qualifying plan.
func ErrNeedsSubscription() *apperr.Error {
	return apperr.Forbidden("upgrade required").
		WithDetail("errorType", ErrorTypeNeedsSubscription).
		WithDetail("needsSubscription", true)
}

// ErrNeedsAcceptance is returned when contact details are requested for a
// lead the caller has not accepted.
func ErrNeedsAcceptance() *apperr.Error {
	return apperr.Forbidden("accept the lead to see customer contact details").
		WithDetail("errorType", ErrorTypeNeedsAcceptance).
		WithDetail("needsSubscription", false)
}

// ErrInteractionClosed is returned when an interaction already reached a
// terminal state.
func ErrInteractionClosed() *apperr.Error {
	return apperr.Conflict("lead response already recorded").
		WithDetail("errorType", ErrorTypeInteractionClosed)
}

// ErrNotEligible is returned when the freelancer is not approved or does not
// serve the lead's category and area.
func ErrNotEligible() *apperr.Error {
	return apperr.Forbidden("freelancer is not eligible for this lead").
		WithDetail("errorType", ErrorTypeNotEligible)
}
