package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// storeAttempts bounds store mutations to one transient retry per item.
// Anything still failing after that lands in the run summary and the
// earning stays escrowed for the next run.
const storeAttempts = 2

// tryStore runs a store mutation under the per-call timeout and retries a
// transient failure once. Definitive outcomes are returned straight away:
// success, a dead run context, or a missing row.
func (s *Service) tryStore(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= storeAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
		err = op(opCtx)
		cancel()
		if err == nil || ctx.Err() != nil || errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return err
}

// processCandidate takes one candidate through the approval gate and the
// conditional claim, then updates the dependent aggregates. Every failure in
// here is item-scoped: it lands in the run summary and the batch moves on. A
// claim that was lost to a concurrent run is not an error and is never
// retried.
func (s *Service) processCandidate(ctx context.Context, cand domain.Candidate, now time.Time, run *runCollector) {
	policy := domain.ResolvePolicy(s.cfg.Policies, cand.Deal)

	if policy.RequiresApproval && !cand.Earning.Approved() {
		hold := domain.ApprovalHold{
			Class:     cand.Class,
			EarningID: cand.Earning.EarningID,
			DealID:    cand.Deal.DealID,
			Amount:    cand.Earning.Amount,
			Policy:    policy.Name,
			Reason:    fmt.Sprintf("%s policy requires manual approval before release", policy.Name),
		}
		run.awaitingApproval(hold)
		s.notifyApprovalHold(ctx, hold, cand.Earning)
		return
	}

	release := domain.ReleaseDetails{
		ReleaseType: cand.Class.ReleaseType(),
		Reason:      releaseReason(cand.Class, policy),
		ReleasedAt:  now,
	}
	var claimed bool
	err := s.tryStore(ctx, func(c context.Context) error {
		var claimErr error
		claimed, claimErr = s.earnings.Claim(c, cand.Earning.EarningID, release)
		return claimErr
	})
	if err != nil {
		run.itemError(domain.RunError{
			Class:     cand.Class,
			EarningID: cand.Earning.EarningID,
			DealID:    cand.Deal.DealID,
			Message:   fmt.Sprintf("claim earning: %v", err),
		})
		return
	}
	if !claimed {
		// Another class or an overlapping run got here first.
		run.alreadyClaimed(cand.Class)
		return
	}

	run.released(cand.Class, cand.Deal.DealID, cand.Earning.Amount)
	s.logger.InfoContext(ctx, "earning released",
		"module", "application.transactor",
		"operation", "claim_earning",
		"outcome", "success",
		"earning_id", cand.Earning.EarningID,
		"deal_id", cand.Deal.DealID,
		"class", string(cand.Class),
		"release_type", release.ReleaseType,
		"amount", cand.Earning.Amount,
	)

	// The claim is already durable; everything below is dependent-aggregate
	// upkeep and reported item-scoped if it fails.
	if cand.Earning.MilestoneID != "" {
		msErr := s.tryStore(ctx, func(c context.Context) error {
			_, err := s.milestones.Complete(c, cand.Deal.DealID, cand.Earning.MilestoneID, now)
			return err
		})
		if msErr != nil {
			run.itemError(domain.RunError{
				Class:     cand.Class,
				EarningID: cand.Earning.EarningID,
				DealID:    cand.Deal.DealID,
				Message:   fmt.Sprintf("complete milestone %s: %v", cand.Earning.MilestoneID, msErr),
			})
		}
	}

	txErr := s.tryStore(ctx, func(c context.Context) error {
		return s.deals.AppendReleaseTransaction(c, cand.Deal.DealID, domain.PaymentTransaction{
			EarningID:   cand.Earning.EarningID,
			MilestoneID: cand.Earning.MilestoneID,
			Amount:      cand.Earning.Amount,
			ReleaseType: release.ReleaseType,
			Reason:      release.Reason,
			ReleasedAt:  now,
		})
	})
	if txErr != nil {
		run.itemError(domain.RunError{
			Class:     cand.Class,
			EarningID: cand.Earning.EarningID,
			DealID:    cand.Deal.DealID,
			Message:   fmt.Sprintf("mirror payment transaction: %v", txErr),
		})
	}

	if err := s.enqueueEarningReleased(ctx, cand, release); err != nil {
		run.itemError(domain.RunError{
			Class:     cand.Class,
			EarningID: cand.Earning.EarningID,
			DealID:    cand.Deal.DealID,
			Message:   fmt.Sprintf("enqueue release notification: %v", err),
		})
	}
}

func releaseReason(class domain.EligibilityClass, policy domain.ReleasePolicy) string {
	switch class {
	case domain.ClassCompletedDealGrace:
		return fmt.Sprintf("Deal completed and %d-day grace period elapsed", policy.GracePeriodDays)
	case domain.ClassMilestoneAutoRelease:
		return "Milestone auto-release date reached"
	case domain.ClassMarketerScheduled:
		return "Marketer-scheduled release date reached"
	case domain.ClassOverdueEscrow:
		return fmt.Sprintf("Maximum escrow period of %d days exceeded", policy.MaxEscrowDays)
	default:
		return "Escrow released"
	}
}

// notifyApprovalHold surfaces an awaiting-approval outcome to operators, at
// most once per earning per dedup window. Best effort: the hold is already in
// the run summary either way.
func (s *Service) notifyApprovalHold(ctx context.Context, hold domain.ApprovalHold, earning domain.Earning) {
	if s.approvalNotices != nil {
		seen, err := s.approvalNotices.AlreadyNotified(ctx, hold.EarningID)
		if err == nil && seen {
			return
		}
	}
	if err := s.enqueueApprovalRequired(ctx, hold, earning); err != nil {
		s.logger.WarnContext(ctx, "approval notice not enqueued",
			"module", "application.transactor",
			"operation", "notify_approval_hold",
			"outcome", "failure",
			"earning_id", hold.EarningID,
			"error", err,
		)
		return
	}
	if s.approvalNotices != nil {
		if err := s.approvalNotices.MarkNotified(ctx, hold.EarningID, s.cfg.ApprovalNoticeTTL); err != nil {
			s.logger.WarnContext(ctx, "approval notice dedup marker not set",
				"module", "application.transactor",
				"operation", "notify_approval_hold",
				"outcome", "failure",
				"earning_id", hold.EarningID,
				"error", err,
			)
		}
	}
}
