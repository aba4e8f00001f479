package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Axees-0/axeesBE-sub017/internal/adapters/memory"
	"github.com/Axees-0/axeesBE-sub017/internal/contracts"
	"github.com/Axees-0/axeesBE-sub017/internal/domain"
	"github.com/Axees-0/axeesBE-sub017/internal/ports"
)

func enqueueEnvelope(t *testing.T, outbox *memory.OutboxRepository, eventType string) contracts.EventEnvelope {
	t.Helper()
	env := contracts.EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventClass:    domain.CanonicalEventClass(eventType),
		OccurredAt:    time.Now().UTC(),
		PartitionKey:  "earn-1",
		SourceService: "Escrow-Release-Engine",
		TraceID:       uuid.NewString(),
		SchemaVersion: "v1",
		Data:          json.RawMessage(`{"earning_id":"earn-1"}`),
	}
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, outbox.Enqueue(context.Background(), ports.OutboxRecord{
		RecordID:     uuid.NewString(),
		EventType:    eventType,
		EventClass:   env.EventClass,
		PartitionKey: env.PartitionKey,
		Payload:      raw,
		CreatedAt:    env.OccurredAt,
	}))
	return env
}

func TestDispatcherPublishesClaimedBatch(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	publisher := NewMemoryPublisher()
	d := NewDispatcher(nil, outbox, publisher, NewMemoryDLQPublisher(), 0, 0, 0, 0)

	want := enqueueEnvelope(t, outbox, domain.EventEarningReleased)
	enqueueEnvelope(t, outbox, domain.EventDealCompleted)

	require.NoError(t, d.ProcessOnce(context.Background()))

	published := publisher.Published()
	require.Len(t, published, 2)
	assert.Equal(t, want.EventID, published[0].EventID)
	assert.Empty(t, outbox.Pending())
}

func TestDispatcherRetriesThenDeadLetters(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	publisher := NewMemoryPublisher()
	publisher.FailFor = func(eventType string) error {
		if eventType == domain.EventEarningReleased {
			return fmt.Errorf("broker unavailable")
		}
		return nil
	}
	dlq := NewMemoryDLQPublisher()
	d := NewDispatcher(nil, outbox, publisher, dlq, 0, 0, 0, 3)

	env := enqueueEnvelope(t, outbox, domain.EventEarningReleased)

	// Two failed attempts leave the record pending with retry counts.
	require.NoError(t, d.ProcessOnce(context.Background()))
	require.NoError(t, d.ProcessOnce(context.Background()))
	pending := outbox.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].RetryCount)
	assert.Contains(t, pending[0].LastError, "broker unavailable")
	assert.Empty(t, dlq.Records())

	// The third attempt crosses maxRetries and dead-letters the record.
	require.NoError(t, d.ProcessOnce(context.Background()))
	assert.Empty(t, outbox.Pending())
	records := dlq.Records()
	require.Len(t, records, 1)
	assert.Equal(t, env.EventID, records[0].OriginalEvent.EventID)
	assert.Equal(t, 3, records[0].RetryCount)
	assert.Equal(t, "broker unavailable", records[0].ErrorSummary)

	all := outbox.All()
	require.Len(t, all, 1)
	assert.NotNil(t, all[0].DeadLetteredAt)
	assert.Nil(t, all[0].PublishedAt)
}

func TestDispatcherDeadLettersUndecodablePayload(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	publisher := NewMemoryPublisher()
	d := NewDispatcher(nil, outbox, publisher, NewMemoryDLQPublisher(), 0, 0, 0, 0)

	require.NoError(t, outbox.Enqueue(context.Background(), ports.OutboxRecord{
		RecordID:  uuid.NewString(),
		EventType: domain.EventEarningReleased,
		Payload:   []byte("{not json"),
		CreatedAt: time.Now().UTC(),
	}))

	require.NoError(t, d.ProcessOnce(context.Background()))
	assert.Empty(t, publisher.Published())
	all := outbox.All()
	require.Len(t, all, 1)
	require.NotNil(t, all[0].DeadLetteredAt)
	assert.Contains(t, all[0].LastError, "undecodable envelope")
}

func TestDispatcherLeavesRecordsClaimedWithinTTL(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	enqueueEnvelope(t, outbox, domain.EventEarningReleased)

	claimed, err := outbox.ClaimUnpublished(context.Background(), 10, "other-dispatcher", time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	publisher := NewMemoryPublisher()
	d := NewDispatcher(nil, outbox, publisher, NewMemoryDLQPublisher(), 0, 0, 0, 0)
	require.NoError(t, d.ProcessOnce(context.Background()))
	assert.Empty(t, publisher.Published())
}
