package ports

import (
	"context"

	"github.com/Axees-0/axeesBE-sub017/internal/contracts"
)

// EventPublisher delivers one canonical event to the broker. Implementations
// are expected to be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, envelope contracts.EventEnvelope) error
}

// DLQPublisher receives events that exhausted their retry budget.
type DLQPublisher interface {
	PublishDLQ(ctx context.Context, record contracts.DLQRecord) error
}
