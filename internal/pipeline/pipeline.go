package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/classify"
	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
	"github.com/Adda-Baaj/arthik-khobor/internal/store"
	"github.com/Adda-Baaj/arthik-khobor/pkg/providers"
	"github.com/Adda-Baaj/arthik-khobor/pkg/publishers"
)

// Source is one runnable source adapter.
type Source interface {
	ID() string
	BatchRewrite() bool
	Fetch(ctx context.Context) ([]domain.Stub, error)
}

// Catalog resolves source ids to adapters.
type Catalog interface {
	Source(id string) (Source, bool)
	IDs() []string
}

// Rewriter is the rewrite client. Its methods never fail.
type Rewriter interface {
	RewriteOne(ctx context.Context, s domain.Stub) domain.RewrittenArticle
	RewriteBatch(ctx context.Context, stubs []domain.Stub) []domain.RewrittenArticle
	Fallback(s domain.Stub) domain.RewrittenArticle
}

// EventPublisher receives an event after every create and update.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) error
}

// Result is the outcome of one source run.
type Result struct {
	Count    int                    `json:"count"`
	Articles []domain.StoredArticle `json:"articles"`
}

// SourceResult is one line of a RunAll summary.
type SourceResult struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

// Summary is the outcome of a RunAll pass.
type Summary struct {
	Total   int            `json:"total"`
	Sources []SourceResult `json:"sources"`
}

// Options tunes a Pipeline. Zero values use the defaults.
type Options struct {
	Gate       Gate
	Classifier *classify.Classifier
	Events     EventPublisher
	Now        func() time.Time
}

// Pipeline runs fetch, gate, rewrite, normalize and upsert for one source at a time.
type Pipeline struct {
	catalog    Catalog
	rewriter   Rewriter
	store      store.Store
	gate       Gate
	classifier *classify.Classifier
	events     EventPublisher
	now        func() time.Time
	log        logger.Logger
}

// New wires a Pipeline.
func New(catalog Catalog, rewriter Rewriter, st store.Store, opts Options, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NopLogger{}
	}
	if opts.Gate == (Gate{}) {
		opts.Gate = DefaultGate
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		catalog:    catalog,
		rewriter:   rewriter,
		store:      st,
		gate:       opts.Gate,
		classifier: opts.Classifier,
		events:     opts.Events,
		now:        opts.Now,
		log:        log,
	}
}

// Sources lists the ids RunAll visits, in order.
func (p *Pipeline) Sources() []string { return p.catalog.IDs() }

// Run processes one source. Unknown ids fail with an *InvalidSourceError and
// adapter failures with an *AdapterFetchError, both before anything is stored.
// Store failures do not stop the run: the partial result is returned together
// with the joined *PersistenceError values.
func (p *Pipeline) Run(ctx context.Context, sourceID string) (Result, error) {
	src, ok := p.catalog.Source(sourceID)
	if !ok {
		return Result{}, &domain.InvalidSourceError{Source: sourceID}
	}

	started := p.now()
	stubs, err := src.Fetch(ctx)
	if err != nil {
		p.log.ErrorObj("source fetch failed", "pipeline_fetch_failed", map[string]any{
			"source": src.ID(),
			"error":  err.Error(),
		})
		return Result{}, &domain.AdapterFetchError{Source: src.ID(), Err: err}
	}

	eligible := p.admit(stubs)
	p.log.InfoObj("stubs gated", "pipeline_gated", map[string]any{
		"source":   src.ID(),
		"fetched":  len(stubs),
		"eligible": len(eligible),
	})

	articles := p.rewrite(ctx, src, eligible)

	res := Result{Articles: []domain.StoredArticle{}}
	var errs []error
	for _, item := range articles {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		stored, err := p.upsert(ctx, toStored(item.article, item.stub, p.now()))
		if err != nil {
			p.log.ErrorObj("article upsert failed", "pipeline_upsert_failed", map[string]any{
				"source": src.ID(),
				"url":    item.stub.URL,
				"error":  err.Error(),
			})
			errs = append(errs, err)
			continue
		}
		res.Articles = append(res.Articles, stored)
	}
	res.Count = len(res.Articles)

	p.log.InfoObj("source run finished", "pipeline_run_finished", map[string]any{
		"source":      src.ID(),
		"stored":      res.Count,
		"failed":      len(errs),
		"duration_ms": p.now().Sub(started).Milliseconds(),
	})
	return res, errors.Join(errs...)
}

// RunAll runs the given sources, or every enabled source when ids is empty,
// strictly one after another. A failing source is recorded and skipped.
func (p *Pipeline) RunAll(ctx context.Context, ids []string) (Summary, error) {
	if len(ids) == 0 {
		ids = p.catalog.IDs()
	}

	sum := Summary{Sources: make([]SourceResult, 0, len(ids))}
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := p.Run(ctx, id)
		line := SourceResult{Source: id, Count: res.Count}
		if err != nil {
			line.Error = err.Error()
			errs = append(errs, fmt.Errorf("source %s: %w", id, err))
		}
		sum.Total += res.Count
		sum.Sources = append(sum.Sources, line)
	}

	p.log.InfoObj("all sources finished", "pipeline_run_all_finished", map[string]any{
		"sources": len(sum.Sources),
		"stored":  sum.Total,
		"failed":  len(errs),
	})
	return sum, errors.Join(errs...)
}

// admit tags untagged stubs, drops the ones without a category and applies the
// content gate. Input order is kept.
func (p *Pipeline) admit(stubs []domain.Stub) []domain.Stub {
	out := make([]domain.Stub, 0, len(stubs))
	for _, s := range stubs {
		if s.Category == "" {
			s = p.classifier.Stub(s)
		}
		if s.Category == "" {
			continue
		}
		if !p.gate.Pass(s.Title, s.Description, s.URL) {
			continue
		}
		out = append(out, s)
	}
	return out
}

type rewritten struct {
	stub    domain.Stub
	article domain.RewrittenArticle
}

// rewrite sends the stubs through the rewriter and re-gates the output. An
// article that fails the gate is replaced by its original stub, which is gated
// again.
func (p *Pipeline) rewrite(ctx context.Context, src Source, stubs []domain.Stub) []rewritten {
	if len(stubs) == 0 {
		return nil
	}

	var articles []domain.RewrittenArticle
	if src.BatchRewrite() {
		articles = p.rewriter.RewriteBatch(ctx, stubs)
	} else {
		articles = make([]domain.RewrittenArticle, 0, len(stubs))
		for _, s := range stubs {
			if ctx.Err() != nil {
				break
			}
			articles = append(articles, p.rewriter.RewriteOne(ctx, s))
		}
	}

	byURL := make(map[string]domain.Stub, len(stubs))
	for _, s := range stubs {
		byURL[s.URL] = s
	}

	out := make([]rewritten, 0, len(articles))
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		stub, ok := byURL[a.URL]
		if !ok {
			continue
		}
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}

		if !p.gate.Pass(a.Headline, a.Description, a.URL) {
			p.log.DebugObj("rewrite below gate, using original", "pipeline_regate_fallback", map[string]any{
				"source": stub.Source,
				"url":    stub.URL,
			})
			a = p.rewriter.Fallback(stub)
			if !p.gate.Pass(a.Headline, a.Description, a.URL) {
				continue
			}
		}
		out = append(out, rewritten{stub: stub, article: a})
	}
	return out
}

// upsert creates the record for a new URL or fully replaces the existing one,
// then emits the matching event.
func (p *Pipeline) upsert(ctx context.Context, a domain.StoredArticle) (domain.StoredArticle, error) {
	url := a.URL
	eventType := publishers.EventArticleUpdated

	_, err := p.store.FindByURL(ctx, url)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		eventType = publishers.EventArticleCreated
		a, err = p.store.Create(ctx, a)
		if err != nil {
			return domain.StoredArticle{}, &domain.PersistenceError{Op: "create", Key: url, Err: err}
		}
	case err != nil:
		return domain.StoredArticle{}, &domain.PersistenceError{Op: "find", Key: url, Err: err}
	default:
		a, err = p.store.Replace(ctx, url, a)
		if err != nil {
			return domain.StoredArticle{}, &domain.PersistenceError{Op: "replace", Key: url, Err: err}
		}
	}

	p.emit(ctx, eventType, a)
	return a, nil
}

func (p *Pipeline) emit(ctx context.Context, typ string, a domain.StoredArticle) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, publishers.NewEvent(typ, a)); err != nil {
		p.log.WarnObj("article event not delivered", "pipeline_event_failed", map[string]any{
			"type":  typ,
			"url":   a.URL,
			"error": err.Error(),
		})
	}
}

// catalog adapts providers.Sources to Catalog.
type catalog struct {
	sources *providers.Sources
}

// FromSources exposes the provider catalog to the pipeline.
func FromSources(s *providers.Sources) Catalog { return catalog{sources: s} }

func (c catalog) Source(id string) (Source, bool) {
	a, ok := c.sources.Lookup(id)
	if !ok {
		return nil, false
	}
	return a, true
}

func (c catalog) IDs() []string { return c.sources.IDs() }
