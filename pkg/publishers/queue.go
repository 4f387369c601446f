package publishers

import (
	"context"
	"fmt"
)

// queueSender delivers events to one broker or cloud queue.
type queueSender interface {
	Send(ctx context.Context, evt Event) error
	Close() error
}

type openSender func(ctx context.Context, cfg *QueueConfig, log Logger) (queueSender, error)

// queueFactory adapts a sender constructor into a Factory.
func queueFactory(open openSender) Factory {
	return func(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
		if cfg.Queue == nil {
			return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
		}
		if ctx == nil {
			ctx = context.Background()
		}
		sender, err := open(ctx, cfg.Queue, log)
		if err != nil {
			return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
		}
		return &queuePublisher{id: cfg.ID, provider: cfg.Queue.Provider, sender: sender}, nil
	}
}

func openSQS(ctx context.Context, q *QueueConfig, log Logger) (queueSender, error) {
	return newAWSSQSSender(ctx, q.SQS, log)
}

func openSNS(ctx context.Context, q *QueueConfig, log Logger) (queueSender, error) {
	return newAWSSNSSender(ctx, q.SNS, log)
}

func openPubSub(ctx context.Context, q *QueueConfig, log Logger) (queueSender, error) {
	return newGCPPubSubSender(ctx, q.PubSub, log)
}

func openKafka(_ context.Context, q *QueueConfig, log Logger) (queueSender, error) {
	return newKafkaSender(q.Kafka, log)
}

type queuePublisher struct {
	id       string
	provider string
	sender   queueSender
}

func (p *queuePublisher) ID() string   { return p.id }
func (p *queuePublisher) Type() string { return TypeQueue }

func (p *queuePublisher) Publish(ctx context.Context, evt Event) error {
	if err := p.sender.Send(ctx, evt); err != nil {
		return fmt.Errorf("%s send: %w", p.provider, err)
	}
	return nil
}

func (p *queuePublisher) Close() error { return p.sender.Close() }
