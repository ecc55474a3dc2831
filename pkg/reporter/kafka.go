package reporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	dm "github.com/andrej220/hamagent/pkg/shared-models"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaReporter writes each record to a topic, keyed by device id so a
// device's results stay in one partition.
type KafkaReporter struct {
	writer messageWriter
	topic  string
}

func NewKafkaReporter(brokers []string, topic string) *KafkaReporter {
	return &KafkaReporter{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			Async:                  false,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

func (k *KafkaReporter) Report(ctx context.Context, rec dm.ResultRecord) error {
	payload, err := Encode(rec)
	if err != nil {
		return err
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.DeviceID),
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		if errors.Is(err, kafka.UnknownTopicOrPartition) {
			return fmt.Errorf("kafka topic %q does not exist: %w", k.topic, err)
		}
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaReporter) Close() error {
	return k.writer.Close()
}
