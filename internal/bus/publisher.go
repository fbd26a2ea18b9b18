// Package bus is the event plumbing: a fire-and-forget publisher and an
// ack-after-apply consumer on top of a durable, at-least-once topic.
// Routing keys travel in a message header; the order id is the message key
// so one order's events stay on one partition.
package bus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const routingKeyHeader = "routing_key"

// Publisher is what the orchestrator and consumers publish through.
// Publishing is best-effort: the local state change is already committed,
// so a lost publish delays downstream notification but never corrupts
// order state.
type Publisher interface {
	Publish(ctx context.Context, routingKey, key string, payload any)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher owns its writer explicitly. The writer is established
// lazily on first publish and rebuilt after a write failure, all under one
// mutex.
type KafkaPublisher struct {
	mu      sync.Mutex
	writer  messageWriter
	brokers []string
	topic   string
	logger  *zap.Logger

	// newWriter is swappable in tests
	newWriter func() messageWriter
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		brokers: brokers,
		topic:   topic,
		logger:  logger,
	}
	p.newWriter = func() messageWriter {
		return &kafka.Writer{
			Addr:                   kafka.TCP(p.brokers...),
			Topic:                  p.topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		}
	}
	return p
}

// Publish serializes payload and writes it with the routing key header.
// Failures are logged and swallowed.
func (p *KafkaPublisher) Publish(ctx context.Context, routingKey, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal event payload",
			zap.String("routing_key", routingKey),
			zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: routingKeyHeader, Value: []byte(routingKey)},
		},
	}

	w := p.ensureWriter()
	if err := w.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("routing_key", routingKey),
			zap.String("key", key),
			zap.Error(err))
		p.dropWriter(w)
		return
	}

	p.logger.Info("published event",
		zap.String("routing_key", routingKey),
		zap.String("key", key))
}

func (p *KafkaPublisher) ensureWriter() messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		p.writer = p.newWriter()
	}
	return p.writer
}

// dropWriter discards w so the next publish rebuilds the connection.
// Another goroutine may already have replaced it.
func (p *KafkaPublisher) dropWriter(w messageWriter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == w {
		_ = p.writer.Close()
		p.writer = nil
	}
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}
