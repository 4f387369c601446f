package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Adda-Baaj/arthik-khobor/internal/classify"
	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
	"github.com/Adda-Baaj/arthik-khobor/pkg/browser"

	"github.com/PuerkitoBio/goquery"
)

const maxListingBodyBytes = 8 << 20 // 8 MiB

// pageLoader returns the HTML of a listing page.
type pageLoader func(ctx context.Context, cfg Provider) ([]byte, error)

// htmlFetcher is the configurable extraction engine shared by static and
// rendered providers. Only the page loader differs between the two.
type htmlFetcher struct {
	typ        string
	load       pageLoader
	enricher   Enricher
	classifier *classify.Classifier
	log        logger.Logger
}

// NewStaticFetcher builds the engine for providers fetched with a plain GET.
func NewStaticFetcher(client HTTPClient, enricher Enricher, classifier *classify.Classifier, log logger.Logger) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return newHTMLFetcher(ProviderTypeStatic, staticLoader(client), enricher, classifier, log)
}

// NewRenderedFetcher builds the engine for providers that need a headless browser.
func NewRenderedFetcher(renderer browser.Renderer, enricher Enricher, classifier *classify.Classifier, log logger.Logger) Fetcher {
	return newHTMLFetcher(ProviderTypeRendered, renderedLoader(renderer), enricher, classifier, log)
}

func newHTMLFetcher(typ string, load pageLoader, enricher Enricher, classifier *classify.Classifier, log logger.Logger) *htmlFetcher {
	if classifier == nil {
		classifier = classify.Default()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &htmlFetcher{typ: typ, load: load, enricher: enricher, classifier: classifier, log: log}
}

func (f *htmlFetcher) ID() string { return f.typ }

// Fetch loads the listing page, extracts and classifies stubs, then runs the
// detail step when the provider configures one.
func (f *htmlFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Stub, error) {
	if !strings.EqualFold(cfg.Type, f.typ) {
		return nil, fmt.Errorf("%s fetcher received incompatible provider type %q", f.typ, cfg.Type)
	}
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("provider %q source_url is empty", cfg.ID)
	}
	if strings.TrimSpace(cfg.Listing.Container) == "" {
		return nil, fmt.Errorf("provider %q listing.container is empty", cfg.ID)
	}

	body, err := f.load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s listing: %w", cfg.ID, err)
	}

	extracted := ExtractStubs(doc, cfg)
	stubs := classifyStubs(f.classifier, extracted)

	f.log.InfoObj("listing extracted", "listing_extracted", map[string]any{
		"provider_id": cfg.ID,
		"extracted":   len(extracted),
		"relevant":    len(stubs),
	})

	if cfg.Detail != nil && f.enricher != nil && len(stubs) > 0 {
		stubs = f.enricher.Enrich(ctx, cfg, stubs)
	}
	return stubs, nil
}

// classifyStubs tags stubs and drops those without a finance category.
func classifyStubs(c *classify.Classifier, stubs []domain.Stub) []domain.Stub {
	out := make([]domain.Stub, 0, len(stubs))
	for _, s := range stubs {
		s = c.Stub(s)
		if s.Category == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func staticLoader(client HTTPClient) pageLoader {
	return func(ctx context.Context, cfg Provider) ([]byte, error) {
		return fetchPage(ctx, client, cfg.SourceURL, cfg.ID, Headers(cfg))
	}
}

func renderedLoader(renderer browser.Renderer) pageLoader {
	return func(ctx context.Context, cfg Provider) ([]byte, error) {
		if renderer == nil {
			return nil, fmt.Errorf("provider %q needs a browser renderer", cfg.ID)
		}
		html, err := renderer.Render(ctx, browser.Request{
			URL:          cfg.SourceURL,
			WaitSelector: firstNonEmpty(cfg.Listing.WaitSelector, cfg.Listing.Container),
			WaitTimeout:  waitTimeout(cfg.Listing.WaitTimeoutMS),
			Headers:      Headers(cfg),
		})
		if err != nil {
			return nil, fmt.Errorf("render %s listing: %w", cfg.ID, err)
		}
		return []byte(html), nil
	}
}

// fetchPage performs a GET and rejects non-200 answers.
func fetchPage(ctx context.Context, client HTTPClient, url, providerID string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s page: %w", providerID, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s page returned status %d body: %s", providerID, resp.StatusCode(), responseSnippet(body))
	}
	if len(body) > maxListingBodyBytes {
		body = body[:maxListingBodyBytes]
	}
	return body, nil
}
