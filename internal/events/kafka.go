package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// KafkaPublisher writes events keyed by order id so one order's events stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.OrderID.String()),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Handler processes one consumed event.
type Handler func(ctx context.Context, e Event) error

// KafkaConsumer reads events in a consumer group and hands them to a Handler.
type KafkaConsumer struct {
	reader *kafka.Reader
	handle Handler
	log    *zap.Logger
}

func NewKafkaConsumer(brokers []string, groupID, topic string, handle Handler, log *zap.Logger) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return &KafkaConsumer{reader: r, handle: handle, log: log}
}

// Run blocks until ctx is cancelled. Handler failures are logged and skipped.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	c.log.Info("kafka consumer started", zap.String("topic", c.reader.Config().Topic))
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.log.Error("read message", zap.Error(err))
			continue
		}
		var e Event
		if err := json.Unmarshal(m.Value, &e); err != nil {
			c.log.Error("unmarshal event", zap.ByteString("value", m.Value), zap.Error(err))
			continue
		}
		if err := c.handle(ctx, e); err != nil {
			c.log.Error("handle event",
				zap.String("type", e.Type),
				zap.String("order_number", e.OrderNumber),
				zap.Error(err))
			continue
		}
	}
}

func (c *KafkaConsumer) Close() error { return c.reader.Close() }
