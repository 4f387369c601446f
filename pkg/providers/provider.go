package providers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/pkg/httpclient"
)

const (
	// Supported provider types.
	ProviderTypeStatic     = "static"
	ProviderTypeRendered   = "rendered"
	ProviderTypeRSS        = "rss"
	ProviderTypeGoogleNews = "google-news"

	// Rewrite modes.
	RewriteModeSingle = "single"
	RewriteModeBatch  = "batch"

	// DefaultUserAgent is a desktop Chrome identifier; several sources reject default client ids.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultDetailDelay = time.Second
)

// HTTPClient is the client used by fetchers.
type HTTPClient = httpclient.Client

// Fetcher extracts stubs for one provider type.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Provider) ([]domain.Stub, error)
}

// FetcherRegistry resolves the fetcher for a provider.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (Fetcher, error)
}

// Enricher completes stubs from their detail pages.
type Enricher interface {
	Enrich(ctx context.Context, cfg Provider, stubs []domain.Stub) []domain.Stub
}

// Provider is the configuration of a single news source.
type Provider struct {
	ID             string                `yaml:"id" json:"id"`
	Name           string                `yaml:"name" json:"name"`
	Type           string                `yaml:"type" json:"type"`
	Enabled        *bool                 `yaml:"enabled" json:"enabled"`
	SourceURL      string                `yaml:"source_url" json:"source_url"`
	BaseURL        string                `yaml:"base_url" json:"base_url"`
	Author         string                `yaml:"author" json:"author"`
	Headers        map[string]string     `yaml:"headers" json:"headers"`
	TLS            httpclient.TLSOptions `yaml:"tls" json:"tls"`
	RewriteMode    string                `yaml:"rewrite_mode" json:"rewrite_mode"`
	RequestDelayMS int                   `yaml:"request_delay_ms" json:"request_delay_ms"`
	MaxItems       int                   `yaml:"max_items" json:"max_items"`
	Listing        ListingConfig         `yaml:"listing" json:"listing"`
	Detail         *DetailConfig         `yaml:"detail" json:"detail"`
	Feeds          []string              `yaml:"feeds" json:"feeds"`
}

// ListingConfig describes how story containers are read from a listing page.
type ListingConfig struct {
	Container            string   `yaml:"container" json:"container"`
	TitleSelectors       []string `yaml:"title_selectors" json:"title_selectors"`
	DescriptionSelectors []string `yaml:"description_selectors" json:"description_selectors"`
	LinkSelector         string   `yaml:"link_selector" json:"link_selector"`
	ImageSelector        string   `yaml:"image_selector" json:"image_selector"`
	TimeSelector         string   `yaml:"time_selector" json:"time_selector"`
	TimeAttr             string   `yaml:"time_attr" json:"time_attr"`
	AuthorSelector       string   `yaml:"author_selector" json:"author_selector"`
	RequireDescription   bool     `yaml:"require_description" json:"require_description"`
	WaitSelector         string   `yaml:"wait_selector" json:"wait_selector"`
	WaitTimeoutMS        int      `yaml:"wait_timeout_ms" json:"wait_timeout_ms"`
}

// DetailConfig enables the per-article detail page step.
type DetailConfig struct {
	Rendered          bool   `yaml:"rendered" json:"rendered"`
	BodySelector      string `yaml:"body_selector" json:"body_selector"`
	KeyPointsSelector string `yaml:"key_points_selector" json:"key_points_selector"`
	AuthorSelector    string `yaml:"author_selector" json:"author_selector"`
	WaitSelector      string `yaml:"wait_selector" json:"wait_selector"`
	WaitTimeoutMS     int    `yaml:"wait_timeout_ms" json:"wait_timeout_ms"`
	Readability       bool   `yaml:"readability" json:"readability"`
	Meta              bool   `yaml:"meta" json:"meta"`
	Workers           int    `yaml:"workers" json:"workers"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (p Provider) EnabledValue() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// RequestDelay is the pause between detail page requests.
func (p Provider) RequestDelay() time.Duration {
	if p.RequestDelayMS < 0 {
		return 0
	}
	if p.RequestDelayMS == 0 {
		return defaultDetailDelay
	}
	return time.Duration(p.RequestDelayMS) * time.Millisecond
}

// Batch reports whether the provider's stubs are rewritten in a single batch call.
func (p Provider) Batch() bool { return p.RewriteMode == RewriteModeBatch }

// ResolveBase returns the base used for relative links.
func (p Provider) ResolveBase() string {
	if strings.TrimSpace(p.BaseURL) != "" {
		return p.BaseURL
	}
	return p.SourceURL
}

// DefaultAuthor is the byline used when a stub carries none.
func (p Provider) DefaultAuthor() string {
	return firstNonEmpty(p.Author, p.Name, p.ID)
}

// Headers returns browser-like request headers merged with provider overrides.
func Headers(cfg Provider) map[string]string {
	headers := map[string]string{
		"User-Agent":      DefaultUserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
	for k, v := range cfg.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		headers[http.CanonicalHeaderKey(strings.TrimSpace(k))] = v
	}
	return headers
}

func waitTimeout(ms int) time.Duration {
	if ms <= 0 {
		return 15 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}
