package domain

import "time"

// EligibilityClass identifies one of the four independent scan classes. The
// classes are not mutually exclusive; the conditional claim is what keeps a
// doubly eligible earning from releasing twice.
type EligibilityClass string

const (
	ClassCompletedDealGrace   EligibilityClass = "completed_deal_grace"
	ClassMilestoneAutoRelease EligibilityClass = "milestone_auto_release"
	ClassMarketerScheduled    EligibilityClass = "marketer_scheduled"
	ClassOverdueEscrow        EligibilityClass = "overdue_escrow"
)

// AllEligibilityClasses lists the classes in scan order.
func AllEligibilityClasses() []EligibilityClass {
	return []EligibilityClass{
		ClassCompletedDealGrace,
		ClassMilestoneAutoRelease,
		ClassMarketerScheduled,
		ClassOverdueEscrow,
	}
}

// ReleaseType maps a class to the release_type recorded on a claimed earning.
func (c EligibilityClass) ReleaseType() string {
	switch c {
	case ClassCompletedDealGrace:
		return ReleaseTypeAutomaticCompletion
	case ClassMilestoneAutoRelease:
		return ReleaseTypeAutomaticMilestone
	case ClassMarketerScheduled:
		return ReleaseTypeScheduled
	case ClassOverdueEscrow:
		return ReleaseTypeOverdueEscrow
	default:
		return ""
	}
}

// Candidate is one scanner hit: an escrowed earning plus the aggregates the
// transactor needs to resolve policy and update dependents.
type Candidate struct {
	Class     EligibilityClass
	Deal      Deal
	Milestone *Milestone
	Earning   Earning
}

// ClassStats are the per-class counters of one run.
type ClassStats struct {
	Scanned          int `json:"scanned"`
	Released         int `json:"released"`
	AlreadyClaimed   int `json:"already_claimed"`
	AwaitingApproval int `json:"awaiting_approval"`
	Errors           int `json:"errors"`
}

// RunError captures one item-scoped failure without aborting the batch.
type RunError struct {
	Class     EligibilityClass `json:"class"`
	EarningID string           `json:"earning_id"`
	DealID    string           `json:"deal_id"`
	Message   string           `json:"message"`
}

// ApprovalHold is a deliberate non-release outcome surfaced to operators.
type ApprovalHold struct {
	Class     EligibilityClass `json:"class"`
	EarningID string           `json:"earning_id"`
	DealID    string           `json:"deal_id"`
	Amount    float64          `json:"amount"`
	Policy    string           `json:"policy"`
	Reason    string           `json:"reason"`
}

// RunSummary is the ephemeral result of one orchestrator invocation.
type RunSummary struct {
	RunID            string                          `json:"run_id"`
	Trigger          string                          `json:"trigger"`
	StartedAt        time.Time                       `json:"started_at"`
	FinishedAt       time.Time                       `json:"finished_at"`
	Partial          bool                            `json:"partial"`
	Classes          map[EligibilityClass]ClassStats `json:"classes"`
	Released         int                             `json:"released"`
	AmountReleased   float64                         `json:"amount_released"`
	DealsCompleted   int                             `json:"deals_completed"`
	AwaitingApproval []ApprovalHold                  `json:"awaiting_approval,omitempty"`
	Errors           []RunError                      `json:"errors,omitempty"`
}

// NewRunSummary seeds a summary with zeroed counters for every class.
func NewRunSummary(runID, trigger string, startedAt time.Time) RunSummary {
	classes := make(map[EligibilityClass]ClassStats, 4)
	for _, c := range AllEligibilityClasses() {
		classes[c] = ClassStats{}
	}
	return RunSummary{RunID: runID, Trigger: trigger, StartedAt: startedAt, Classes: classes}
}
