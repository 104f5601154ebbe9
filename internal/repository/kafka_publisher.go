package repository

import (
	"context"

	"ZonePulse/internal/domain/models"
	domrepo "ZonePulse/internal/domain/repository"
	pkgkafka "ZonePulse/pkg/kafka"
)

// KafkaSignalSink publishes signals to a Kafka topic keyed by symbol, so one
// symbol's signals always land on one partition in order.
type KafkaSignalSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalSink creates a Kafka-backed sink.
func NewKafkaSignalSink(producer *pkgkafka.Producer, topic string) domrepo.SignalSink {
	return &KafkaSignalSink{producer: producer, topic: topic}
}

func (s *KafkaSignalSink) Push(ctx context.Context, sig *models.TradingSignal) error {
	return s.producer.Publish(ctx, s.topic, []byte(sig.Symbol), sig)
}

func (s *KafkaSignalSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
