package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Axees-0/axeesBE-sub017/internal/contracts"
)

// KafkaPublisher writes canonical envelopes to the broker, routing each event
// type to its configured topic.
type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
	defaultTopic string
	dlqTopic     string
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string, defaultTopic, dlqTopic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if defaultTopic == "" {
		defaultTopic = "release-engine.events"
	}
	if dlqTopic == "" {
		dlqTopic = "release-engine.dlq"
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topicByEvent: topicByEvent,
		defaultTopic: defaultTopic,
		dlqTopic:     dlqTopic,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, envelope contracts.EventEnvelope) error {
	topic := p.defaultTopic
	if mapped, ok := p.topicByEvent[envelope.EventType]; ok && mapped != "" {
		topic = mapped
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(envelope.PartitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal dlq record: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.dlqTopic,
		Key:   []byte(record.OriginalEvent.PartitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
