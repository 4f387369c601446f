package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// httpPublisher posts events as JSON to a webhook.
type httpPublisher struct {
	id     string
	typ    string
	url    string
	method string
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.HTTP.Headers)

	return &httpPublisher{
		id:     cfg.ID,
		typ:    cfg.Type,
		url:    cfg.HTTP.URL,
		method: cfg.HTTP.Method,
		client: client,
		log:    ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return p.typ }

// Publish sends the event and treats any non-2xx status as a failure.
func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("X-Event-Type", evt.Type).
		SetHeader("X-Event-Source", evt.Source).
		SetBody(evt).
		Execute(p.method, p.url)
	if err != nil {
		return fmt.Errorf("http publisher %s request: %w", p.id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("http publisher %s returned status %d body: %s", p.id, resp.StatusCode(), responseSnippet(resp.Body()))
	}
	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"status":   resp.StatusCode(),
		"event_id": evt.ID,
	})
	return nil
}

func (p *httpPublisher) Close() error { return nil }

func responseSnippet(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
