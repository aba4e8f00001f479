package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventEarningReleased         = "payments.earning_released"
	EventReleaseApprovalRequired = "payments.release_approval_required"
	EventDealCompleted           = "deals.deal_completed"
	EventReleaseRunCompleted     = "payments.release_run_completed"
	EventReleaseRunAlert         = "payments.release_run_alert"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventEarningReleased, EventReleaseApprovalRequired, EventDealCompleted,
		EventReleaseRunCompleted, EventReleaseRunAlert:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventEarningReleased, EventDealCompleted:
		return CanonicalEventClassDomain
	case EventReleaseRunCompleted:
		return CanonicalEventClassAnalyticsOnly
	case EventReleaseApprovalRequired, EventReleaseRunAlert:
		return CanonicalEventClassOps
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventEarningReleased, EventReleaseApprovalRequired:
		return "data.earning_id"
	case EventDealCompleted:
		return "data.deal_id"
	case EventReleaseRunCompleted, EventReleaseRunAlert:
		return "data.run_id"
	default:
		return ""
	}
}
