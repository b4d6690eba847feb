package email

const (
	subjectLeadAcceptedFmt          = "%s has accepted your request: %s"
	subjectSubscriptionActivatedFmt = "Your %s is active"
)
