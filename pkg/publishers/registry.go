package publishers

import (
	"context"
	"errors"
	"fmt"
)

// Factory builds the publisher for one sink.
type Factory func(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error)

// Factories maps a sink kind to its factory. An http sink's kind is "http";
// a queue sink's kind is its provider.
type Factories map[string]Factory

// DefaultFactories knows every sink this package ships.
func DefaultFactories() Factories {
	return Factories{
		TypeHTTP:            newHTTPPublisher,
		QueueProviderAWSSQS: queueFactory(openSQS),
		QueueProviderAWSSNS: queueFactory(openSNS),
		QueueProviderGCP:    queueFactory(openPubSub),
		QueueProviderKafka:  queueFactory(openKafka),
	}
}

// kind returns the factory key of cfg.
func kind(cfg SinkConfig) string {
	if cfg.Type == TypeQueue && cfg.Queue != nil {
		return cfg.Queue.Provider
	}
	return cfg.Type
}

// Build creates the publisher for a single sink.
func (f Factories) Build(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	k := kind(cfg)
	factory, ok := f[k]
	if !ok {
		return nil, fmt.Errorf("publisher %q: no factory for %q", cfg.ID, k)
	}
	return factory(ctx, cfg, ensureLogger(log))
}

// BuildAll creates a publisher for every active sink. On failure the
// publishers built so far are closed.
func (f Factories) BuildAll(ctx context.Context, cfgs []SinkConfig, log Logger) ([]Publisher, error) {
	log = ensureLogger(log)

	var pubs []Publisher
	for _, cfg := range cfgs {
		if !cfg.Active() {
			continue
		}
		pub, err := f.Build(ctx, cfg, log)
		if err != nil {
			for _, built := range pubs {
				err = errors.Join(err, built.Close())
			}
			return nil, err
		}
		log.InfoObj("publisher ready", "publisher_ready", map[string]any{
			"publisher": cfg.ID,
			"kind":      kind(cfg),
		})
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
