// Package kafka publishes outbound event envelopes. Two clients are
// offered behind the same Publisher shape: segmentio/kafka-go and
// IBM/sarama.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher sends one keyed message and blocks until the broker
// acknowledged it.
type Publisher interface {
	Send(ctx context.Context, key, value []byte) error
	Close() error
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
