package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type EarningReleasedPayload struct {
	EarningID     string  `json:"earning_id"`
	DealID        string  `json:"deal_id"`
	MilestoneID   string  `json:"milestone_id,omitempty"`
	CreatorID     string  `json:"creator_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	ReleaseType   string  `json:"release_type"`
	ReleaseReason string  `json:"release_reason"`
	ReleasedAt    string  `json:"released_at"`
}

type ReleaseApprovalRequiredPayload struct {
	EarningID string  `json:"earning_id"`
	DealID    string  `json:"deal_id"`
	Amount    float64 `json:"amount"`
	Policy    string  `json:"policy"`
	Reason    string  `json:"reason"`
	HeldSince string  `json:"held_since"`
}

type DealCompletedPayload struct {
	DealID      string `json:"deal_id"`
	MarketerID  string `json:"marketer_id"`
	CreatorID   string `json:"creator_id"`
	CompletedAt string `json:"completed_at"`
}

type ReleaseRunCompletedPayload struct {
	RunID          string  `json:"run_id"`
	Trigger        string  `json:"trigger"`
	Released       int     `json:"released"`
	AmountReleased float64 `json:"amount_released"`
	DealsCompleted int     `json:"deals_completed"`
	ErrorCount     int     `json:"error_count"`
	Partial        bool    `json:"partial"`
	StartedAt      string  `json:"started_at"`
	FinishedAt     string  `json:"finished_at"`
}

type ReleaseRunAlertPayload struct {
	RunID      string `json:"run_id"`
	Trigger    string `json:"trigger"`
	ErrorCount int    `json:"error_count"`
	Threshold  int    `json:"threshold"`
	FirstError string `json:"first_error,omitempty"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	DLQTopic      string        `json:"dlq_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}
