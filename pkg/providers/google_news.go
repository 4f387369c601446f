package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/arthik-khobor/internal/classify"
	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
)

const maxSitemapDepth = 3

// googleNewsFetcher implements Fetcher for Google News sitemap providers.
type googleNewsFetcher struct {
	client     HTTPClient
	enricher   Enricher
	classifier *classify.Classifier
}

// NewGoogleNewsFetcher builds a Fetcher for Google News sitemap providers.
func NewGoogleNewsFetcher(client HTTPClient, enricher Enricher, classifier *classify.Classifier) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if classifier == nil {
		classifier = classify.Default()
	}
	return &googleNewsFetcher{client: client, enricher: enricher, classifier: classifier}
}

// ID returns the provider type for the Google News fetcher.
func (f *googleNewsFetcher) ID() string {
	return ProviderTypeGoogleNews
}

// Fetch retrieves stubs from a Google News sitemap provider.
func (f *googleNewsFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Stub, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeGoogleNews) {
		return nil, fmt.Errorf("google news fetcher received incompatible provider type %q", cfg.Type)
	}
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("provider %q source_url is empty", cfg.ID)
	}

	headers := Headers(cfg)
	headers["Accept"] = "application/xml,text/xml;q=0.9,*/*;q=0.8"

	urls, err := f.fetchGoogleNewsURLs(ctx, cfg, cfg.SourceURL, headers, nil, 0)
	if err != nil {
		return nil, err
	}

	stubs := buildStubsFromSitemap(cfg, f.classifier, urls)
	if cfg.Detail != nil && f.enricher != nil && len(stubs) > 0 {
		stubs = f.enricher.Enrich(ctx, cfg, stubs)
	}
	return stubs, nil
}

// fetchGoogleNewsURLs resolves the given sitemap URL into article entries, following sitemap indexes if necessary.
func (f *googleNewsFetcher) fetchGoogleNewsURLs(ctx context.Context, cfg Provider, url string, headers map[string]string, visited map[string]struct{}, depth int) ([]googleNewsURL, error) {
	if visited == nil {
		visited = make(map[string]struct{})
	}
	if _, seen := visited[url]; seen || depth > maxSitemapDepth {
		return nil, nil
	}
	visited[url] = struct{}{}

	raw, err := fetchPage(ctx, f.client, url, cfg.ID, headers)
	if err != nil {
		return nil, err
	}

	urls, err := parseGoogleNewsSitemap(raw)
	if err != nil {
		return nil, fmt.Errorf("decode google news sitemap: %w", err)
	}
	if len(urls) > 0 {
		return urls, nil
	}

	indexURLs, err := parseSitemapIndex(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sitemap index: %w", err)
	}
	if len(indexURLs) == 0 {
		return nil, nil
	}

	var all []googleNewsURL
	for _, indexURL := range indexURLs {
		indexURL = strings.TrimSpace(indexURL)
		if indexURL == "" {
			continue
		}

		nested, err := f.fetchGoogleNewsURLs(ctx, cfg, indexURL, headers, visited, depth+1)
		if err != nil {
			return nil, err
		}
		all = append(all, nested...)
	}
	return all, nil
}
