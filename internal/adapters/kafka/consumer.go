package kafka

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"

	"github.com/JozefStefanInstitute/StreamStory/internal/ports"
)

// Consumer reads the inbound topic and hands every message to the handler.
type Consumer struct {
	reader  *kafka.Reader
	handler func([]byte)
	obs     ports.Observability
}

func NewConsumer(brokers []string, topic, groupID string, handler func([]byte), obs ports.Observability) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})
	return &Consumer{
		reader:  reader,
		handler: handler,
		obs:     obs,
	}
}

// Run consumes until the context is canceled. Handler panics are not
// recovered; handler-level classification errors are its own concern.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		c.handler(msg.Value)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
