package postgres

import (
	"time"

	"gorm.io/datatypes"
)

type dealModel struct {
	DealID              string         `gorm:"column:deal_id;primaryKey"`
	MarketerID          string         `gorm:"column:marketer_id"`
	CreatorID           string         `gorm:"column:creator_id"`
	Status              string         `gorm:"column:status"`
	PaymentAmount       float64        `gorm:"column:payment_amount"`
	Currency            string         `gorm:"column:currency"`
	CompletedAt         *time.Time     `gorm:"column:completed_at"`
	PaymentTransactions datatypes.JSON `gorm:"column:payment_transactions"`
	CreatedAt           time.Time      `gorm:"column:created_at"`
	UpdatedAt           time.Time      `gorm:"column:updated_at"`
}

func (dealModel) TableName() string { return "deals" }

type milestoneModel struct {
	MilestoneID      string     `gorm:"column:milestone_id;primaryKey"`
	DealID           string     `gorm:"column:deal_id"`
	Name             string     `gorm:"column:name"`
	Status           string     `gorm:"column:status"`
	Amount           float64    `gorm:"column:amount"`
	AutoReleaseDate  *time.Time `gorm:"column:auto_release_date"`
	ReleaseScheduled bool       `gorm:"column:release_scheduled"`
	DisputeFlag      bool       `gorm:"column:dispute_flag"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (milestoneModel) TableName() string { return "milestones" }

type earningModel struct {
	EarningID            string     `gorm:"column:earning_id;primaryKey"`
	DealID               string     `gorm:"column:deal_id"`
	MilestoneID          string     `gorm:"column:milestone_id"`
	CreatorID            string     `gorm:"column:creator_id"`
	Amount               float64    `gorm:"column:amount"`
	Currency             string     `gorm:"column:currency"`
	Status               string     `gorm:"column:status"`
	ScheduledReleaseDate *time.Time `gorm:"column:scheduled_release_date"`
	ApprovedAt           *time.Time `gorm:"column:approved_at"`
	ApprovedBy           string     `gorm:"column:approved_by"`
	ReleasedAt           *time.Time `gorm:"column:released_at"`
	ReleaseType          string     `gorm:"column:release_type"`
	ReleaseReason        string     `gorm:"column:release_reason"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
}

func (earningModel) TableName() string { return "earnings" }

type releaseOutboxModel struct {
	RecordID       string     `gorm:"column:record_id;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	EventClass     string     `gorm:"column:event_class"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      string     `gorm:"column:last_error"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (releaseOutboxModel) TableName() string { return "release_outbox" }
