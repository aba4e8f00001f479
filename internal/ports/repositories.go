package ports

import (
	"context"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// CandidateRepository exposes one query per eligibility class. Each query is
// structural: it applies the conditions expressible against stored fields
// (statuses, explicit dates, a conservative age floor) and leaves the
// policy-derived date arithmetic to the application layer. Queries tolerate
// empty result sets; malformed rows are skipped by the adapter, not fatal.
type CandidateRepository interface {
	// ListGraceCandidates returns escrowed earnings on completed deals.
	ListGraceCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Candidate, error)
	// ListAutoReleaseCandidates returns escrowed earnings whose milestone is
	// completed with auto_release_date <= now.
	ListAutoReleaseCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Candidate, error)
	// ListScheduledCandidates returns escrowed earnings with an explicit
	// scheduled_release_date <= now.
	ListScheduledCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Candidate, error)
	// ListAgingCandidates returns escrowed earnings created at or before
	// oldestAllowed, regardless of deal or milestone status.
	ListAgingCandidates(ctx context.Context, oldestAllowed time.Time, limit int) ([]domain.Candidate, error)
}

// EarningRepository owns the ledger rows. Claim is the engine's single
// mutation gate: a conditional single-row update that succeeds only while the
// earning is still escrowed.
type EarningRepository interface {
	GetByID(ctx context.Context, earningID string) (domain.Earning, error)
	// Claim atomically transitions escrowed -> completed and stamps the
	// release details. It returns false with a nil error when the row was
	// already claimed by a concurrent run; that is an expected no-op.
	Claim(ctx context.Context, earningID string, release domain.ReleaseDetails) (bool, error)
	// Approve records operator approval on a still-escrowed earning.
	Approve(ctx context.Context, earningID, approvedBy string, at time.Time) error
	// ScheduleRelease records explicit marketer intent to release at a date.
	ScheduleRelease(ctx context.Context, earningID string, releaseAt time.Time) error
	// CountEscrowedByDeal supports the finalizer's zero-escrow precondition.
	CountEscrowedByDeal(ctx context.Context, dealID string) (int64, error)
}

// DealRepository reads aggregates and performs the two writes the engine is
// allowed on them: finalization and the payment-info transaction mirror.
type DealRepository interface {
	GetByID(ctx context.Context, dealID string) (domain.Deal, error)
	// Finalize conditionally promotes the deal to completed, setting
	// completed_at only when unset. Returns false when the deal was already
	// completed or cancelled.
	Finalize(ctx context.Context, dealID string, at time.Time) (bool, error)
	// AppendReleaseTransaction mirrors a successful release onto the deal's
	// payment-info projection.
	AppendReleaseTransaction(ctx context.Context, dealID string, tx domain.PaymentTransaction) error
}

// MilestoneRepository performs the single forward transition the engine is
// allowed on milestones.
type MilestoneRepository interface {
	// Complete marks the milestone completed and clears release_scheduled,
	// only if the milestone is not already terminal. Returns false when the
	// milestone was already completed or cancelled.
	Complete(ctx context.Context, dealID, milestoneID string, at time.Time) (bool, error)
}

// OutboxRecord is one pending notification awaiting dispatch.
type OutboxRecord struct {
	RecordID       string
	EventType      string
	EventClass     string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository decouples persistence from broker delivery. The dispatcher
// claims batches with a token and TTL so overlapping dispatcher instances
// never double-publish within a claim window.
type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, recordID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, recordID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, recordID, claimToken, errMsg string, at time.Time) error
}
