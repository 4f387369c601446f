package providers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/classify"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
	"github.com/Adda-Baaj/arthik-khobor/pkg/browser"
	"github.com/Adda-Baaj/arthik-khobor/pkg/httpclient"
)

type fetcherRegistry struct {
	fetchers map[string]Fetcher
	mu       sync.RWMutex
}

// NewFetcherRegistry builds a registry for the provided fetcher implementations.
func NewFetcherRegistry(fetchers ...Fetcher) FetcherRegistry {
	reg := &fetcherRegistry{
		fetchers: make(map[string]Fetcher, len(fetchers)),
	}

	for _, f := range fetchers {
		if f == nil {
			continue
		}
		reg.fetchers[strings.ToLower(strings.TrimSpace(f.ID()))] = f
	}

	return reg
}

// FetcherFor selects the fetcher for the given provider based on its type.
func (r *fetcherRegistry) FetcherFor(cfg Provider) (Fetcher, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("provider %q type is empty", cfg.ID)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(cfg.Type)
	if f, ok := r.fetchers[key]; ok {
		return f, nil
	}

	return nil, fmt.Errorf("no fetcher registered for provider type %q", cfg.Type)
}

// DefaultHTTPClient returns a resty client tuned for provider fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(30 * time.Second) }

// Deps bundles what the default fetchers need.
type Deps struct {
	Client     HTTPClient
	Renderer   browser.Renderer
	Enricher   Enricher
	Classifier *classify.Classifier
	Log        logger.Logger
}

// DefaultFetcherRegistry wires up the fetcher for every supported provider type.
func DefaultFetcherRegistry(deps Deps) FetcherRegistry {
	if deps.Client == nil {
		deps.Client = DefaultHTTPClient()
	}

	return NewFetcherRegistry(
		NewStaticFetcher(deps.Client, deps.Enricher, deps.Classifier, deps.Log),
		NewRenderedFetcher(deps.Renderer, deps.Enricher, deps.Classifier, deps.Log),
		NewRSSFetcher(deps.Client, deps.Classifier, deps.Log),
		NewGoogleNewsFetcher(deps.Client, deps.Enricher, deps.Classifier),
	)
}

// ClientFor returns a dedicated client for providers that pin TLS settings
// and the shared client otherwise.
func ClientFor(cfg Provider, shared HTTPClient, timeout time.Duration) (HTTPClient, error) {
	if cfg.TLS.Empty() {
		return shared, nil
	}
	c, err := httpclient.NewRestyClientE(timeout, httpclient.WithTLS(cfg.TLS))
	if err != nil {
		return nil, fmt.Errorf("provider %q tls: %w", cfg.ID, err)
	}
	return c, nil
}
