package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/shrimpsizemoose/trekker/logger"
)

type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaNotifier(brokers []string, topic string, timeout time.Duration) (*KafkaNotifier, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	if timeout > 0 {
		config.Producer.Timeout = timeout
	}

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info.Printf("Kafka notifier initialized, brokers=%v topic=%s", brokers, topic)

	return newKafkaNotifier(producer, topic), nil
}

func newKafkaNotifier(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

// Notify sends inv keyed by student id so one student's messages stay ordered.
func (n *KafkaNotifier) Notify(ctx context.Context, inv Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invitation: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(inv.StudentID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := n.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to kafka: %w", err)
	}
	logger.Debug.Printf("Invitation for %s sent to %s/%d@%d", inv.StudentID, n.topic, partition, offset)
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
