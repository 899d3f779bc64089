// Package events exports finished run records to Kafka so downstream
// analytics can track posting history without reading the state store.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/IBM/sarama"

	"stoicbot/types"
)

// Producer publishes one message per finished run, keyed by run ID.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// NewProducer connects to the brokers. Callers should treat a nil producer
// as "export disabled" rather than failing startup.
func NewProducer(config ProducerConfig) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	log.Printf("Kafka run exporter connected (topic: %s)", config.Topic)
	return &Producer{producer: producer, topic: config.Topic}, nil
}

// PublishRun sends the run record as JSON. The orchestrator treats failures
// as warnings; the durable copy lives in the state store.
func (p *Producer) PublishRun(ctx context.Context, rec types.RunRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(rec.RunID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("send run event: %w", err)
	}

	log.Printf("run event sent: partition=%d, offset=%d, run=%s", partition, offset, rec.RunID)
	return nil
}

// Close flushes and shuts down the producer.
func (p *Producer) Close() error {
	return p.producer.Close()
}
