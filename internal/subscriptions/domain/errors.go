package domain

import "hirelocal_backend/platform/apperr"

const (
	ErrorTypeDuplicatePlan         = "DUPLICATE_PLAN"
	ErrorTypeDuplicatePositionPlan = "DUPLICATE_POSITION_PLAN"
	ErrorTypeDuplicateBadgePlan    = "DUPLICATE_BADGE_PLAN"
	ErrorTypePositionTaken         = "POSITION_TAKEN"
	ErrorTypeNotPending            = "SUBSCRIPTION_NOT_PENDING"
	ErrorTypeInvalidSignature      = "INVALID_SIGNATURE"
)

// DuplicateErrorType names the duplicate conflict for a plan type.
func DuplicateErrorType(t Type) string {
	switch t {
	case TypePosition:
		return ErrorTypeDuplicatePositionPlan
	case TypeBadge:
		return ErrorTypeDuplicateBadgePlan
	default:
		return ErrorTypeDuplicatePlan
	}
}

func ErrDuplicate(t Type) *apperr.Error {
	return apperr.Conflict("an active " + string(t) + " plan already exists").
		WithDetail("errorType", DuplicateErrorType(t))
}

func ErrPositionTaken() *apperr.Error {
	return apperr.Conflict("position is held by another freelancer").
		WithDetail("errorType", ErrorTypePositionTaken)
}

// ErrActivationConflict is returned when payment was captured but the
// subscription lost an activation race. Operators resolve it manually.
func ErrActivationConflict(errorType string) *apperr.Error {
	return apperr.Conflict("payment captured but subscription could not be activated").
		WithDetails(apperr.Details{
			"errorType":              errorType,
			"paymentCaptured":        true,
			"reconciliationRequired": true,
		})
}

func ErrInvalidSignature() *apperr.Error {
	return apperr.Unauthorized("payment signature is invalid").
		WithDetail("errorType", ErrorTypeInvalidSignature)
}
