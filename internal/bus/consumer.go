package bus

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ErrDrop marks a message that can never become processable: unparseable
// payloads and unrecognized routing keys. The consumer acknowledges and
// logs these instead of requeueing.
var ErrDrop = errors.New("drop message")

type Message struct {
	RoutingKey string
	Key        []byte
	Value      []byte
}

// Handler applies one delivery to local state. A nil return acknowledges
// the message. An ErrDrop-wrapped return acknowledges and logs. Any other
// error leaves the message uncommitted and it is retried after a backoff,
// so delivery stays at-least-once and the handler's own idempotence check
// is the defense against duplicates.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  messageReader
	handler Handler
	logger  *zap.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		reader:  reader,
		handler: handler,
		logger:  logger,
		backoff: 5 * time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing reader", zap.Error(err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Error("error fetching message", zap.Error(err))
		return
	}

	msg := Message{
		RoutingKey: headerValue(m, routingKeyHeader),
		Key:        m.Key,
		Value:      m.Value,
	}

	for {
		handleErr := c.handler.Handle(ctx, msg)
		if handleErr == nil {
			break
		}
		if errors.Is(handleErr, ErrDrop) {
			c.logger.Warn("dropping unprocessable message",
				zap.String("routing_key", msg.RoutingKey),
				zap.ByteString("key", msg.Key),
				zap.Error(handleErr))
			break
		}

		// Transient failure: hold the offset and retry the same delivery
		// after a backoff. A message whose handler keeps erroring is
		// retried indefinitely; there is no dead-letter route.
		c.logger.Error("error handling message, will retry",
			zap.String("routing_key", msg.RoutingKey),
			zap.ByteString("key", msg.Key),
			zap.Error(handleErr))

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff):
		}
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		// The transition already applied; a redelivery is absorbed by the
		// handler's idempotence check.
		c.logger.Error("error committing message", zap.Error(err))
	}
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
