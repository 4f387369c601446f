package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// kafkaSender implements queueSender on a synchronous sarama producer.
type kafkaSender struct {
	topic    string
	producer sarama.SyncProducer
	log      Logger
}

func newKafkaSender(cfg *KafkaConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kafka configuration is missing")
	}

	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = 3
	sc.Producer.Timeout = 10 * time.Second
	if cfg.Version != "" {
		v, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return nil, fmt.Errorf("parse kafka version: %w", err)
		}
		sc.Version = v
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newKafkaSenderWithProducer(cfg.Topic, producer, log), nil
}

func newKafkaSenderWithProducer(topic string, producer sarama.SyncProducer, log Logger) *kafkaSender {
	return &kafkaSender{topic: topic, producer: producer, log: ensureLogger(log)}
}

// Send writes the event keyed by article URL so updates to one article land
// on the same partition.
func (s *kafkaSender) Send(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(evt.Article.URL),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("source"), Value: []byte(evt.Source)},
			{Key: []byte("event_type"), Value: []byte(evt.Type)},
		},
	}

	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		s.log.ErrorObj("kafka publisher send failed", "publisher_kafka_error", map[string]any{
			"error": err.Error(),
		})
		return fmt.Errorf("send message to kafka: %w", err)
	}
	s.log.DebugObj("kafka publisher delivered event", "publisher_kafka_delivery", map[string]any{
		"partition": partition,
		"offset":    offset,
		"event_id":  evt.ID,
	})
	return nil
}

func (s *kafkaSender) Close() error { return s.producer.Close() }
