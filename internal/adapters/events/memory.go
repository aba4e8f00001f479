package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Axees-0/axeesBE-sub017/internal/contracts"
)

// MemoryPublisher collects published envelopes for tests and local runs.
type MemoryPublisher struct {
	mu        sync.Mutex
	envelopes []contracts.EventEnvelope
	// FailFor returns an error for event types the test wants to fail.
	FailFor func(eventType string) error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, envelope contracts.EventEnvelope) error {
	if p.FailFor != nil {
		if err := p.FailFor(envelope.EventType); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, envelope)
	return nil
}

func (p *MemoryPublisher) Published() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]contracts.EventEnvelope(nil), p.envelopes...)
}

// LoggingPublisher writes envelopes to the log stream instead of a broker.
// Used for local runs where no Kafka brokers are configured.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, envelope contracts.EventEnvelope) error {
	p.logger.InfoContext(ctx, "event published",
		"module", "events.logging_publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"event_class", envelope.EventClass,
		"partition_key", envelope.PartitionKey,
	)
	return nil
}

// LoggingDLQPublisher records dead-lettered events in the log stream only.
// Suitable where no DLQ topic is provisioned.
type LoggingDLQPublisher struct {
	logger *slog.Logger
}

func NewLoggingDLQPublisher(logger *slog.Logger) *LoggingDLQPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingDLQPublisher{logger: logger}
}

func (p *LoggingDLQPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	p.logger.ErrorContext(ctx, "event dead-lettered",
		"module", "events.dlq",
		"layer", "adapter",
		"operation", "publish_dlq",
		"outcome", "failure",
		"event_id", record.OriginalEvent.EventID,
		"event_type", record.OriginalEvent.EventType,
		"retry_count", record.RetryCount,
		"error_summary", record.ErrorSummary,
	)
	return nil
}

// MemoryDLQPublisher collects dead-lettered records for assertions.
type MemoryDLQPublisher struct {
	mu      sync.Mutex
	records []contracts.DLQRecord
}

func NewMemoryDLQPublisher() *MemoryDLQPublisher {
	return &MemoryDLQPublisher{}
}

func (p *MemoryDLQPublisher) PublishDLQ(_ context.Context, record contracts.DLQRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, record)
	return nil
}

func (p *MemoryDLQPublisher) Records() []contracts.DLQRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]contracts.DLQRecord(nil), p.records...)
}
