package domain

import "time"

const (
	DealStatusActive    = "active"
	DealStatusAccepted  = "accepted"
	DealStatusDisputed  = "disputed"
	DealStatusCompleted = "completed"
	DealStatusCancelled = "cancelled"
)

const (
	MilestoneStatusPending   = "pending"
	MilestoneStatusFunded    = "funded"
	MilestoneStatusApproved  = "approved"
	MilestoneStatusCompleted = "completed"
	MilestoneStatusCancelled = "cancelled"
)

// Deal is the aggregate root. The release engine only reads its business
// fields and writes status/completed_at during finalization; everything else
// is owned by the offer-acceptance and deal-execution services.
type Deal struct {
	DealID        string
	MarketerID    string
	CreatorID     string
	Status        string
	PaymentAmount float64
	Currency      string
	CompletedAt   *time.Time
	Milestones    []Milestone
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Milestone struct {
	MilestoneID      string
	DealID           string
	Name             string
	Status           string
	Amount           float64
	AutoReleaseDate  *time.Time
	ReleaseScheduled bool
	DisputeFlag      bool
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsTerminal reports whether a milestone can no longer move forward.
func (m Milestone) IsTerminal() bool {
	return m.Status == MilestoneStatusCompleted || m.Status == MilestoneStatusCancelled
}

// AllMilestonesTerminal is the finalization precondition: a deal may only be
// promoted to completed once every milestone is completed or cancelled.
func (d Deal) AllMilestonesTerminal() bool {
	for _, m := range d.Milestones {
		if !m.IsTerminal() {
			return false
		}
	}
	return true
}

// MilestoneByID returns the embedded milestone, if present.
func (d Deal) MilestoneByID(milestoneID string) (Milestone, bool) {
	for _, m := range d.Milestones {
		if m.MilestoneID == milestoneID {
			return m, true
		}
	}
	return Milestone{}, false
}

// PaymentTransaction is the mirrored release record kept on the deal's
// payment-info projection for marketer-facing history.
type PaymentTransaction struct {
	EarningID   string    `json:"earning_id"`
	MilestoneID string    `json:"milestone_id,omitempty"`
	Amount      float64   `json:"amount"`
	ReleaseType string    `json:"release_type"`
	Reason      string    `json:"reason"`
	ReleasedAt  time.Time `json:"released_at"`
}
