package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// runCollector accumulates one run's counters under a mutex so worker
// goroutines can report outcomes without ordering guarantees.
type runCollector struct {
	mu      sync.Mutex
	summary domain.RunSummary
	touched map[string]struct{}
}

func newRunCollector(runID, trigger string, startedAt time.Time) *runCollector {
	return &runCollector{
		summary: domain.NewRunSummary(runID, trigger, startedAt),
		touched: map[string]struct{}{},
	}
}

func (r *runCollector) scanned(class domain.EligibilityClass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.summary.Classes[class]
	stats.Scanned++
	r.summary.Classes[class] = stats
}

func (r *runCollector) released(class domain.EligibilityClass, dealID string, amount float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.summary.Classes[class]
	stats.Released++
	r.summary.Classes[class] = stats
	r.summary.Released++
	r.summary.AmountReleased += amount
	r.touched[dealID] = struct{}{}
}

func (r *runCollector) alreadyClaimed(class domain.EligibilityClass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.summary.Classes[class]
	stats.AlreadyClaimed++
	r.summary.Classes[class] = stats
}

func (r *runCollector) awaitingApproval(hold domain.ApprovalHold) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.summary.Classes[hold.Class]
	stats.AwaitingApproval++
	r.summary.Classes[hold.Class] = stats
	r.summary.AwaitingApproval = append(r.summary.AwaitingApproval, hold)
}

func (r *runCollector) itemError(runErr domain.RunError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.summary.Classes[runErr.Class]
	stats.Errors++
	r.summary.Classes[runErr.Class] = stats
	r.summary.Errors = append(r.summary.Errors, runErr)
}

func (r *runCollector) dealCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.DealsCompleted++
}

func (r *runCollector) markPartial() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Partial = true
}

func (r *runCollector) touchedDeals() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.touched))
	for id := range r.touched {
		out = append(out, id)
	}
	return out
}

func (r *runCollector) snapshot(finishedAt time.Time) domain.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := r.summary
	summary.FinishedAt = finishedAt
	summary.AwaitingApproval = append([]domain.ApprovalHold(nil), r.summary.AwaitingApproval...)
	summary.Errors = append([]domain.RunError(nil), r.summary.Errors...)
	classes := make(map[domain.EligibilityClass]domain.ClassStats, len(r.summary.Classes))
	for k, v := range r.summary.Classes {
		classes[k] = v
	}
	summary.Classes = classes
	return summary
}

// RunOnce is the engine's single entry point, shared by the scheduler, the
// manual HTTP trigger and ad-hoc invocations. Item-scoped failures accumulate
// in the summary; only a failed eligibility scan aborts the run, and claims
// already taken before an abort remain valid.
func (s *Service) RunOnce(ctx context.Context, trigger string) (domain.RunSummary, error) {
	now := s.nowFn()
	run := newRunCollector(uuid.NewString(), trigger, now)
	s.logger.InfoContext(ctx, "release run started",
		"module", "application.run",
		"operation", "run_once",
		"outcome", "start",
		"run_id", run.summary.RunID,
		"trigger", trigger,
	)

	candidates, err := s.collectCandidates(ctx, now, run)
	if err != nil {
		run.markPartial()
		summary := run.snapshot(s.nowFn())
		s.persistSummary(ctx, summary)
		s.logger.ErrorContext(ctx, "release run aborted",
			"module", "application.run",
			"operation", "run_once",
			"outcome", "failure",
			"run_id", summary.RunID,
			"error", err,
		)
		return summary, fmt.Errorf("%w: %v", domain.ErrScanFailed, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WorkerConcurrency)
	for _, cand := range candidates {
		if gctx.Err() != nil {
			run.markPartial()
			break
		}
		cand := cand
		g.Go(func() error {
			s.processCandidate(gctx, cand, now, run)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		run.markPartial()
	}

	s.finalizeDeals(ctx, now, run)
	s.dispatchRunEvents(ctx, run)
	summary := run.snapshot(s.nowFn())
	s.persistSummary(ctx, summary)

	s.logger.InfoContext(ctx, "release run completed",
		"module", "application.run",
		"operation", "run_once",
		"outcome", "success",
		"run_id", summary.RunID,
		"trigger", trigger,
		"released", summary.Released,
		"amount_released", summary.AmountReleased,
		"deals_completed", summary.DealsCompleted,
		"awaiting_approval", len(summary.AwaitingApproval),
		"errors", len(summary.Errors),
		"partial", summary.Partial,
	)
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, nil
}

func (s *Service) persistSummary(ctx context.Context, summary domain.RunSummary) {
	if s.runHistory == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()
	if err := s.runHistory.SaveSummary(saveCtx, summary); err != nil {
		s.logger.WarnContext(ctx, "run summary not persisted",
			"module", "application.run",
			"operation", "persist_summary",
			"outcome", "failure",
			"run_id", summary.RunID,
			"error", err,
		)
	}
}
