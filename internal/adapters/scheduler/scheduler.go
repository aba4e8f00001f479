package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Axees-0/axeesBE-sub017/internal/application"
	"github.com/Axees-0/axeesBE-sub017/internal/domain"
)

// Scheduler drives the release engine on two cadences. The milestone sweep
// runs often so auto-release milestones go out close to their due time; the
// comprehensive sweep runs less often and covers every eligibility class
// including the overdue-escrow backstop.
type Scheduler struct {
	logger                *slog.Logger
	service               *application.Service
	milestoneInterval     time.Duration
	comprehensiveInterval time.Duration
	runOnStart            bool
}

func New(
	logger *slog.Logger,
	service *application.Service,
	milestoneInterval time.Duration,
	comprehensiveInterval time.Duration,
	runOnStart bool,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if milestoneInterval <= 0 {
		milestoneInterval = time.Hour
	}
	if comprehensiveInterval <= 0 {
		comprehensiveInterval = 2 * time.Hour
	}
	return &Scheduler{
		logger:                logger,
		service:               service,
		milestoneInterval:     milestoneInterval,
		comprehensiveInterval: comprehensiveInterval,
		runOnStart:            runOnStart,
	}
}

// Run blocks until the context is cancelled, firing release runs on both
// cadences. Both tickers invoke the same full scan; the trigger label tells
// the run summaries apart for operators.
func (s *Scheduler) Run(ctx context.Context) error {
	milestone := time.NewTicker(s.milestoneInterval)
	defer milestone.Stop()
	comprehensive := time.NewTicker(s.comprehensiveInterval)
	defer comprehensive.Stop()

	if s.runOnStart {
		s.fire(ctx, "startup")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-milestone.C:
			s.fire(ctx, "milestone")
		case <-comprehensive.C:
			s.fire(ctx, "comprehensive")
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, trigger string) {
	summary, err := s.service.RunOnce(ctx, trigger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.ErrorContext(ctx, "scheduled release run failed",
			"module", "scheduler",
			"layer", "adapter",
			"operation", "run_once",
			"outcome", "failure",
			"trigger", trigger,
			"run_id", summary.RunID,
			"partial", errors.Is(err, domain.ErrScanFailed),
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "scheduled release run completed",
		"module", "scheduler",
		"layer", "adapter",
		"operation", "run_once",
		"outcome", "success",
		"trigger", trigger,
		"run_id", summary.RunID,
		"released", summary.Released,
		"errors", len(summary.Errors),
	)
}
