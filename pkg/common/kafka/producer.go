package kafka

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openmobility/tripflow/pkg/common/logger"
	"github.com/segmentio/kafka-go"
)

// Producer publishes re-encoded realtime feeds for downstream consumers.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

// PublishFeed sends one serialized feed payload under a fresh delivery key,
// tagged with the contributor it came from.
func (p *Producer) PublishFeed(ctx context.Context, contributorID string, payload []byte) error {
	message := kafka.Message{
		Key:   []byte(uuid.New().String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "contributor", Value: []byte(contributorID)},
			{Key: "content-type", Value: []byte("application/x-protobuf")},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"contributor": contributorID,
			"topic":       p.writer.Topic,
		}).Error("Failed to publish feed")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"contributor": contributorID,
		"topic":       p.writer.Topic,
		"bytes":       len(payload),
	}).Info("Feed published")

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
