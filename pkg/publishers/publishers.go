package publishers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"

	"github.com/google/uuid"
)

// Article lifecycle event types.
const (
	EventArticleCreated   = "article.created"
	EventArticleUpdated   = "article.updated"
	EventArticlePublished = "article.published"
)

// Event is the message delivered to every configured publisher.
type Event struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Source     string               `json:"source"`
	OccurredAt time.Time            `json:"occurred_at"`
	Article    domain.StoredArticle `json:"article"`
}

// NewEvent stamps a new event for the article.
func NewEvent(typ string, article domain.StoredArticle) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Source:     article.Source,
		OccurredAt: time.Now().UTC(),
		Article:    article,
	}
}

// Publisher delivers events to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Logger is the subset of the application logger publishers need.
type Logger interface {
	DebugObj(msg, event string, fields map[string]any)
	InfoObj(msg, event string, fields map[string]any)
	WarnObj(msg, event string, fields map[string]any)
	ErrorObj(msg, event string, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) DebugObj(string, string, map[string]any) {}
func (nopLogger) InfoObj(string, string, map[string]any)  {}
func (nopLogger) WarnObj(string, string, map[string]any)  {}
func (nopLogger) ErrorObj(string, string, map[string]any) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}

// Dispatcher fans an event out to every publisher. Delivery is best effort:
// a failing sink is logged and does not stop the others.
type Dispatcher struct {
	pubs []Publisher
	log  Logger
}

// NewDispatcher wraps the publishers. A dispatcher with none is a no-op.
func NewDispatcher(pubs []Publisher, log Logger) *Dispatcher {
	return &Dispatcher{pubs: pubs, log: ensureLogger(log)}
}

// Len reports how many publishers are attached.
func (d *Dispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.pubs)
}

// Publish delivers evt to all publishers and joins their errors.
func (d *Dispatcher) Publish(ctx context.Context, evt Event) error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, p := range d.pubs {
		if err := p.Publish(ctx, evt); err != nil {
			d.log.WarnObj("publisher delivery failed", "publisher_delivery_failed", map[string]any{
				"publisher":  p.ID(),
				"type":       p.Type(),
				"event_type": evt.Type,
				"url":        evt.Article.URL,
				"error":      err.Error(),
			})
			errs = append(errs, fmt.Errorf("publisher %s: %w", p.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, p := range d.pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher %s: %w", p.ID(), err))
		}
	}
	return errors.Join(errs...)
}
