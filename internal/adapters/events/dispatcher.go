package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Axees-0/axeesBE-sub017/internal/contracts"
	"github.com/Axees-0/axeesBE-sub017/internal/ports"
)

// Dispatcher pulls pending notifications from the outbox and publishes them.
// Separating broker delivery from the release transaction keeps persistence
// success independent of notification success: a failed publish is retried on
// the next tick and dead-lettered once the retry budget is spent.
type Dispatcher struct {
	logger     *slog.Logger
	outbox     ports.OutboxRepository
	publisher  ports.EventPublisher
	dlq        ports.DLQPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
}

func NewDispatcher(
	logger *slog.Logger,
	outbox ports.OutboxRepository,
	publisher ports.EventPublisher,
	dlq ports.DLQPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Dispatcher{
		logger:     logger,
		outbox:     outbox,
		publisher:  publisher,
		dlq:        dlq,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
	}
}

// Run executes the periodic dispatch loop until context cancellation.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.ProcessOnce(ctx); err != nil {
			d.logger.ErrorContext(ctx, "dispatch iteration failed",
				"module", "events.dispatcher",
				"layer", "adapter",
				"operation", "dispatch_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce claims one batch and publishes it. Exported so tests and the
// manual trigger path can drain the outbox without the ticker loop.
func (d *Dispatcher) ProcessOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := d.outbox.ClaimUnpublished(ctx, d.batchSize, claimToken, time.Now().UTC().Add(d.claimTTL))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	published := 0
	failed := 0
	deadLettered := 0
	for _, rec := range records {
		envelope, decodeErr := decodeEnvelope(rec.Payload)
		if decodeErr != nil {
			deadLettered++
			_ = d.outbox.MarkDeadLettered(ctx, rec.RecordID, claimToken, "undecodable envelope: "+decodeErr.Error(), now)
			continue
		}

		if err := d.publisher.Publish(ctx, envelope); err != nil {
			failed++
			retries := rec.RetryCount + 1
			if retries >= d.maxRetries {
				deadLettered++
				d.logger.ErrorContext(ctx, "notification moved to dlq",
					"module", "events.dispatcher",
					"layer", "adapter",
					"operation", "publish_event",
					"outcome", "failure",
					"record_id", rec.RecordID,
					"event_type", rec.EventType,
					"retry_count", retries,
					"error", err,
				)
				if d.dlq != nil {
					_ = d.dlq.PublishDLQ(ctx, contracts.DLQRecord{
						OriginalEvent: envelope,
						ErrorSummary:  err.Error(),
						RetryCount:    retries,
						FirstSeenAt:   rec.CreatedAt,
						LastErrorAt:   now,
						SourceTopic:   rec.EventType,
						TraceID:       envelope.TraceID,
					})
				}
				_ = d.outbox.MarkDeadLettered(ctx, rec.RecordID, claimToken, err.Error(), now)
				continue
			}
			d.logger.WarnContext(ctx, "notification publish failed; retry scheduled",
				"module", "events.dispatcher",
				"layer", "adapter",
				"operation", "publish_event",
				"outcome", "failure",
				"record_id", rec.RecordID,
				"event_type", rec.EventType,
				"retry_count", retries,
				"error", err,
			)
			_ = d.outbox.MarkFailed(ctx, rec.RecordID, claimToken, err.Error(), now)
			continue
		}
		published++
		_ = d.outbox.MarkPublished(ctx, rec.RecordID, claimToken, now)
	}

	if len(records) > 0 {
		d.logger.InfoContext(ctx, "notification batch dispatched",
			"module", "events.dispatcher",
			"layer", "adapter",
			"operation", "dispatch_once",
			"outcome", "success",
			"batch_size", len(records),
			"published_count", published,
			"failed_count", failed,
			"dead_lettered_count", deadLettered,
		)
	}
	return nil
}

func decodeEnvelope(payload []byte) (contracts.EventEnvelope, error) {
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return contracts.EventEnvelope{}, err
	}
	return envelope, nil
}
