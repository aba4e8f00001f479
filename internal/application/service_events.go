package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Axees-0/axeesBE-sub017/internal/contracts"
	"github.com/Axees-0/axeesBE-sub017/internal/domain"
	"github.com/Axees-0/axeesBE-sub017/internal/ports"
)

func (s *Service) enqueueEvent(ctx context.Context, eventType string, data any, partitionKey string) error {
	if s.outbox == nil {
		return nil
	}
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrUnsupportedEventType
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	now := s.nowFn()
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          uuid.NewString(),
		SchemaVersion:    "v1",
		Data:             payload,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return domain.ErrInvalidInput
	}
	enqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()
	return s.outbox.Enqueue(enqCtx, ports.OutboxRecord{
		RecordID:     uuid.NewString(),
		EventType:    eventType,
		EventClass:   env.EventClass,
		PartitionKey: partitionKey,
		Payload:      raw,
		CreatedAt:    now,
	})
}

func (s *Service) enqueueEarningReleased(ctx context.Context, cand domain.Candidate, release domain.ReleaseDetails) error {
	return s.enqueueEvent(ctx, domain.EventEarningReleased, contracts.EarningReleasedPayload{
		EarningID:     cand.Earning.EarningID,
		DealID:        cand.Deal.DealID,
		MilestoneID:   cand.Earning.MilestoneID,
		CreatorID:     cand.Earning.CreatorID,
		Amount:        cand.Earning.Amount,
		Currency:      cand.Earning.Currency,
		ReleaseType:   release.ReleaseType,
		ReleaseReason: release.Reason,
		ReleasedAt:    release.ReleasedAt.UTC().Format(time.RFC3339),
	}, cand.Earning.EarningID)
}

func (s *Service) enqueueApprovalRequired(ctx context.Context, hold domain.ApprovalHold, earning domain.Earning) error {
	return s.enqueueEvent(ctx, domain.EventReleaseApprovalRequired, contracts.ReleaseApprovalRequiredPayload{
		EarningID: hold.EarningID,
		DealID:    hold.DealID,
		Amount:    hold.Amount,
		Policy:    hold.Policy,
		Reason:    hold.Reason,
		HeldSince: earning.CreatedAt.UTC().Format(time.RFC3339),
	}, hold.EarningID)
}

func (s *Service) enqueueDealCompleted(ctx context.Context, deal domain.Deal) error {
	completedAt := ""
	if deal.CompletedAt != nil {
		completedAt = deal.CompletedAt.UTC().Format(time.RFC3339)
	}
	return s.enqueueEvent(ctx, domain.EventDealCompleted, contracts.DealCompletedPayload{
		DealID:      deal.DealID,
		MarketerID:  deal.MarketerID,
		CreatorID:   deal.CreatorID,
		CompletedAt: completedAt,
	}, deal.DealID)
}

// dispatchRunEvents enqueues the run-level notifications: the analytics
// summary for every run, plus an ops alert when the item-error count reaches
// the configured threshold.
func (s *Service) dispatchRunEvents(ctx context.Context, run *runCollector) {
	summary := run.snapshot(s.nowFn())
	if err := s.enqueueEvent(ctx, domain.EventReleaseRunCompleted, contracts.ReleaseRunCompletedPayload{
		RunID:          summary.RunID,
		Trigger:        summary.Trigger,
		Released:       summary.Released,
		AmountReleased: summary.AmountReleased,
		DealsCompleted: summary.DealsCompleted,
		ErrorCount:     len(summary.Errors),
		Partial:        summary.Partial,
		StartedAt:      summary.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:     summary.FinishedAt.UTC().Format(time.RFC3339),
	}, summary.RunID); err != nil {
		s.logger.WarnContext(ctx, "run summary event not enqueued",
			"module", "application.run",
			"operation", "dispatch_run_events",
			"outcome", "failure",
			"run_id", summary.RunID,
			"error", err,
		)
	}

	if len(summary.Errors) < s.cfg.ErrorAlertThreshold {
		return
	}
	firstError := ""
	if len(summary.Errors) > 0 {
		firstError = summary.Errors[0].Message
	}
	if err := s.enqueueEvent(ctx, domain.EventReleaseRunAlert, contracts.ReleaseRunAlertPayload{
		RunID:      summary.RunID,
		Trigger:    summary.Trigger,
		ErrorCount: len(summary.Errors),
		Threshold:  s.cfg.ErrorAlertThreshold,
		FirstError: firstError,
	}, summary.RunID); err != nil {
		s.logger.ErrorContext(ctx, "run alert not enqueued",
			"module", "application.run",
			"operation", "dispatch_run_events",
			"outcome", "failure",
			"run_id", summary.RunID,
			"error", err,
		)
	}
}
