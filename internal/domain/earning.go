package domain

import "time"

const (
	EarningStatusEscrowed  = "escrowed"
	EarningStatusCompleted = "completed"
)

const (
	ReleaseTypeAutomaticCompletion = "automatic_completion"
	ReleaseTypeAutomaticMilestone  = "automatic_milestone"
	ReleaseTypeScheduled           = "scheduled"
	ReleaseTypeOverdueEscrow       = "overdue_escrow"
)

// Earning is the creator-side ledger entry for one funded unit of escrow.
// The engine owns exactly one transition on it: escrowed -> completed, taken
// at most once via the conditional claim.
type Earning struct {
	EarningID            string     `json:"earning_id"`
	DealID               string     `json:"deal_id"`
	MilestoneID          string     `json:"milestone_id,omitempty"`
	CreatorID            string     `json:"creator_id"`
	Amount               float64    `json:"amount"`
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	ScheduledReleaseDate *time.Time `json:"scheduled_release_date,omitempty"`
	ApprovedAt           *time.Time `json:"approved_at,omitempty"`
	ApprovedBy           string     `json:"approved_by,omitempty"`
	ReleasedAt           *time.Time `json:"released_at,omitempty"`
	ReleaseType          string     `json:"release_type,omitempty"`
	ReleaseReason        string     `json:"release_reason,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// EscrowAgeDays is the whole number of days the earning has been escrowed,
// used by the overdue-escrow ceiling class.
func (e Earning) EscrowAgeDays(now time.Time) int {
	return int(now.Sub(e.CreatedAt).Hours() / 24)
}

// Approved reports whether an operator has cleared this earning for release
// under an approval-gated policy.
func (e Earning) Approved() bool {
	return e.ApprovedAt != nil
}

// ReleaseDetails carries the fields written by a successful claim.
type ReleaseDetails struct {
	ReleaseType string
	Reason      string
	ReleasedAt  time.Time
}
