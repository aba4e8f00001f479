package ports

import (
	"context"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// RunHistoryStore keeps the latest run summary and a bounded history for the
// operator API. Failures here are logged and never fail a run.
type RunHistoryStore interface {
	SaveSummary(ctx context.Context, summary domain.RunSummary) error
	LatestSummary(ctx context.Context) (domain.RunSummary, error)
}

// ApprovalNoticeStore suppresses repeat awaiting-approval notifications for
// the same earning inside a dedup window. Best effort: a miss only means a
// duplicate operator notice, never a duplicate release.
type ApprovalNoticeStore interface {
	AlreadyNotified(ctx context.Context, earningID string) (bool, error)
	MarkNotified(ctx context.Context, earningID string, ttl time.Duration) error
}
