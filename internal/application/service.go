package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// Actor identifies the caller of an administrative operation. Service-mesh
// authentication happens upstream; the engine only checks role intent.
type Actor struct {
	SubjectID string
	Role      string
	RequestID string
}

// ApproveEarning records operator approval on a gated earning so the next run
// can claim it. Approving a non-escrowed earning is a conflict.
func (s *Service) ApproveEarning(ctx context.Context, actor Actor, earningID string) (domain.Earning, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Earning{}, domain.ErrUnauthorized
	}
	if actor.Role != "admin" {
		return domain.Earning{}, domain.ErrForbidden
	}
	earningID = strings.TrimSpace(earningID)
	if earningID == "" {
		return domain.Earning{}, domain.ErrInvalidInput
	}
	now := s.nowFn()
	if err := s.earnings.Approve(ctx, earningID, actor.SubjectID, now); err != nil {
		return domain.Earning{}, err
	}
	s.logger.InfoContext(ctx, "earning approved for release",
		"module", "application.service",
		"operation", "approve_earning",
		"outcome", "success",
		"earning_id", earningID,
		"approved_by", actor.SubjectID,
	)
	return s.earnings.GetByID(ctx, earningID)
}

// ScheduleRelease records explicit marketer intent to release an escrowed
// earning at a given date, feeding the marketer-scheduled eligibility class.
func (s *Service) ScheduleRelease(ctx context.Context, actor Actor, earningID string, releaseAt time.Time) (domain.Earning, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Earning{}, domain.ErrUnauthorized
	}
	earningID = strings.TrimSpace(earningID)
	if earningID == "" || releaseAt.IsZero() {
		return domain.Earning{}, domain.ErrInvalidInput
	}
	earning, err := s.earnings.GetByID(ctx, earningID)
	if err != nil {
		return domain.Earning{}, err
	}
	if actor.Role != "admin" {
		deal, dealErr := s.deals.GetByID(ctx, earning.DealID)
		if dealErr != nil {
			return domain.Earning{}, fmt.Errorf("load deal: %w", dealErr)
		}
		if deal.MarketerID != actor.SubjectID {
			return domain.Earning{}, domain.ErrForbidden
		}
	}
	if earning.Status != domain.EarningStatusEscrowed {
		return domain.Earning{}, domain.ErrEarningNotEscrowed
	}
	if err := s.earnings.ScheduleRelease(ctx, earningID, releaseAt.UTC()); err != nil {
		return domain.Earning{}, err
	}
	s.logger.InfoContext(ctx, "earning release scheduled",
		"module", "application.service",
		"operation", "schedule_release",
		"outcome", "success",
		"earning_id", earningID,
		"release_at", releaseAt.UTC(),
	)
	return s.earnings.GetByID(ctx, earningID)
}

// LatestRunSummary returns the most recent persisted summary for operators.
func (s *Service) LatestRunSummary(ctx context.Context) (domain.RunSummary, error) {
	if s.runHistory == nil {
		return domain.RunSummary{}, domain.ErrNotFound
	}
	return s.runHistory.LatestSummary(ctx)
}

// GetEarning is a read-through for the operator API.
func (s *Service) GetEarning(ctx context.Context, earningID string) (domain.Earning, error) {
	earningID = strings.TrimSpace(earningID)
	if earningID == "" {
		return domain.Earning{}, domain.ErrInvalidInput
	}
	return s.earnings.GetByID(ctx, earningID)
}
