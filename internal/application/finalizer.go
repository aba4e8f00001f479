package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// finalizeDeals re-checks every deal touched by this run and promotes it to
// completed once all milestones are terminal and no escrow remains. The check
// is re-entrant: an already-completed deal is a no-op, so overlapping runs
// may both attempt it harmlessly.
func (s *Service) finalizeDeals(ctx context.Context, now time.Time, run *runCollector) {
	for _, dealID := range run.touchedDeals() {
		if ctx.Err() != nil {
			run.markPartial()
			return
		}
		if err := s.finalizeDeal(ctx, dealID, now, run); err != nil {
			run.itemError(domain.RunError{
				DealID:  dealID,
				Message: fmt.Sprintf("finalize deal: %v", err),
			})
		}
	}
}

func (s *Service) finalizeDeal(ctx context.Context, dealID string, now time.Time, run *runCollector) error {
	getCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	deal, err := s.deals.GetByID(getCtx, dealID)
	cancel()
	if err != nil {
		return fmt.Errorf("load deal: %w", err)
	}
	if deal.Status == domain.DealStatusCompleted || deal.Status == domain.DealStatusCancelled {
		return nil
	}
	if deal.Status == domain.DealStatusDisputed {
		return nil
	}
	if !deal.AllMilestonesTerminal() {
		return nil
	}

	countCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	escrowed, err := s.earnings.CountEscrowedByDeal(countCtx, dealID)
	cancel()
	if err != nil {
		return fmt.Errorf("count escrowed earnings: %w", err)
	}
	if escrowed > 0 {
		return nil
	}

	finCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	promoted, err := s.deals.Finalize(finCtx, dealID, now)
	cancel()
	if err != nil {
		return fmt.Errorf("promote deal: %w", err)
	}
	if !promoted {
		return nil
	}

	run.dealCompleted()
	s.logger.InfoContext(ctx, "deal finalized",
		"module", "application.finalizer",
		"operation", "finalize_deal",
		"outcome", "success",
		"deal_id", dealID,
	)
	deal.Status = domain.DealStatusCompleted
	if deal.CompletedAt == nil {
		deal.CompletedAt = &now
	}
	if err := s.enqueueDealCompleted(ctx, deal); err != nil {
		return fmt.Errorf("enqueue completion notification: %w", err)
	}
	return nil
}
