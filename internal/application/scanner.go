package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// collectCandidates runs the four eligibility queries and applies the
// policy-derived date filters the store cannot express. The classes are not
// disjoint: the same earning may come back more than once, which is fine
// because only the first claim wins.
func (s *Service) collectCandidates(ctx context.Context, now time.Time, summary *runCollector) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, 0, 64)

	grace, err := s.candidates.ListGraceCandidates(ctx, now, s.cfg.ScanBatchSize)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", domain.ClassCompletedDealGrace, err)
	}
	for _, cand := range grace {
		summary.scanned(domain.ClassCompletedDealGrace)
		if cand.Deal.CompletedAt == nil {
			continue
		}
		policy := domain.ResolvePolicy(s.cfg.Policies, cand.Deal)
		if policy.GraceDeadline(*cand.Deal.CompletedAt).After(now) {
			continue
		}
		cand.Class = domain.ClassCompletedDealGrace
		out = append(out, cand)
	}

	auto, err := s.candidates.ListAutoReleaseCandidates(ctx, now, s.cfg.ScanBatchSize)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", domain.ClassMilestoneAutoRelease, err)
	}
	for _, cand := range auto {
		summary.scanned(domain.ClassMilestoneAutoRelease)
		if cand.Milestone == nil || cand.Milestone.Status != domain.MilestoneStatusCompleted {
			continue
		}
		cand.Class = domain.ClassMilestoneAutoRelease
		out = append(out, cand)
	}

	scheduled, err := s.candidates.ListScheduledCandidates(ctx, now, s.cfg.ScanBatchSize)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", domain.ClassMarketerScheduled, err)
	}
	for _, cand := range scheduled {
		summary.scanned(domain.ClassMarketerScheduled)
		cand.Class = domain.ClassMarketerScheduled
		out = append(out, cand)
	}

	// The store filters by the smallest ceiling in the rule table; the exact
	// per-deal ceiling is enforced here against the resolved policy.
	oldestAllowed := now.Add(-time.Duration(s.cfg.Policies.MinMaxEscrowDays()) * 24 * time.Hour)
	aging, err := s.candidates.ListAgingCandidates(ctx, oldestAllowed, s.cfg.ScanBatchSize)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", domain.ClassOverdueEscrow, err)
	}
	for _, cand := range aging {
		summary.scanned(domain.ClassOverdueEscrow)
		policy := domain.ResolvePolicy(s.cfg.Policies, cand.Deal)
		if cand.Earning.EscrowAgeDays(now) < policy.MaxEscrowDays {
			continue
		}
		cand.Class = domain.ClassOverdueEscrow
		out = append(out, cand)
	}

	return out, nil
}
