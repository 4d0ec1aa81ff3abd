// Package events publishes served quotes to Kafka for downstream
// consumers (billing, analytics).
package events

import (
	"context"
	"encoding/json"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Writer is the subset of the kafka writer the publisher needs. It
// keeps the publisher testable without a broker.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Publisher is the interface the server wires quote events through.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// QuoteEvent is the wire payload for one served quote.
type QuoteEvent struct {
	RequestID      string    `json:"request_id"`
	DistanceKM     float64   `json:"distance_km"`
	WeightKG       float64   `json:"weight_kg"`
	CargoType      string    `json:"cargo_type"`
	UrgencyDays    float64   `json:"urgency_days"`
	PredictedPrice float64   `json:"predicted_price"`
	Cached         bool      `json:"cached"`
	CreatedAt      time.Time `json:"created_at"`
}

// KafkaPublisher wraps a kafka writer implementing Publisher.
type KafkaPublisher struct {
	writer Writer
	log    *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to the given
// broker/topic.
func NewKafkaPublisher(brokerURL, topic string, log *zap.Logger) *KafkaPublisher {
	w := &skafka.Writer{
		Addr:     skafka.TCP(brokerURL),
		Topic:    topic,
		Balancer: &skafka.LeastBytes{},
	}
	return newKafkaPublisher(w, log)
}

// NewKafkaPublisherWithWriter allows injecting a test writer.
func NewKafkaPublisherWithWriter(w Writer, log *zap.Logger) *KafkaPublisher {
	return newKafkaPublisher(w, log)
}

func newKafkaPublisher(w Writer, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, log: log}
}

// Publish marshals the value to JSON and writes one kafka message
// keyed by key.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		p.log.Error("failed to marshal kafka value", zap.Error(err))
		return err
	}
	msg := skafka.Message{Key: []byte(key), Value: b}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("kafka write error", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
