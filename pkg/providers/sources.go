package providers

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed providers.yaml
var embeddedProviders []byte

// catalogFile represents the structure of the providers configuration file.
type catalogFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// LoadProviders reads provider definitions from path, or the embedded catalog when path is empty.
func LoadProviders(path string) ([]Provider, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ParseProviders(embeddedProviders, ".yaml")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	return ParseProviders([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

// ParseProviders decodes, sanitizes and validates a providers document.
func ParseProviders(data []byte, ext string) ([]Provider, error) {
	var file catalogFile
	var err error
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".json":
		err = json.Unmarshal(data, &file)
	default:
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode providers: %w", err)
	}
	if len(file.Providers) == 0 {
		return nil, errors.New("providers file contains no providers entries")
	}

	seen := make(map[string]struct{}, len(file.Providers))
	out := make([]Provider, 0, len(file.Providers))
	for i := range file.Providers {
		cfg := sanitizeProvider(file.Providers[i])
		if err := validateProvider(cfg); err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}

func sanitizeProvider(cfg Provider) Provider {
	cfg.ID = strings.ToLower(strings.TrimSpace(cfg.ID))
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	cfg.SourceURL = strings.TrimSpace(cfg.SourceURL)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.RewriteMode = strings.ToLower(strings.TrimSpace(cfg.RewriteMode))
	if cfg.RewriteMode == "" {
		cfg.RewriteMode = RewriteModeSingle
	}
	feeds := make([]string, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		if f = strings.TrimSpace(f); f != "" {
			feeds = append(feeds, f)
		}
	}
	cfg.Feeds = feeds
	return cfg
}

func validateProvider(cfg Provider) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Type {
	case ProviderTypeStatic, ProviderTypeRendered:
		if cfg.SourceURL == "" {
			return fmt.Errorf("source_url is required for provider %q", cfg.ID)
		}
		if strings.TrimSpace(cfg.Listing.Container) == "" {
			return fmt.Errorf("listing.container is required for provider %q", cfg.ID)
		}
	case ProviderTypeRSS:
		if len(cfg.Feeds) == 0 && cfg.SourceURL == "" {
			return fmt.Errorf("feeds are required for provider %q", cfg.ID)
		}
	case ProviderTypeGoogleNews:
		if cfg.SourceURL == "" {
			return fmt.Errorf("source_url is required for provider %q", cfg.ID)
		}
	case "":
		return fmt.Errorf("type is required for provider %q", cfg.ID)
	default:
		return fmt.Errorf("type %q not supported for provider %q", cfg.Type, cfg.ID)
	}
	if cfg.RewriteMode != RewriteModeSingle && cfg.RewriteMode != RewriteModeBatch {
		return fmt.Errorf("rewrite_mode %q not supported for provider %q", cfg.RewriteMode, cfg.ID)
	}
	return nil
}

// Adapter binds a provider to its fetcher. Fetch takes no source arguments.
type Adapter struct {
	cfg     Provider
	fetcher Fetcher
}

// NewAdapter pairs a provider with a fetcher.
func NewAdapter(cfg Provider, fetcher Fetcher) *Adapter {
	return &Adapter{cfg: cfg, fetcher: fetcher}
}

func (a *Adapter) ID() string         { return a.cfg.ID }
func (a *Adapter) Config() Provider   { return a.cfg }
func (a *Adapter) BatchRewrite() bool { return a.cfg.Batch() }

// Fetch runs the provider's extraction.
func (a *Adapter) Fetch(ctx context.Context) ([]domain.Stub, error) {
	return a.fetcher.Fetch(ctx, a.cfg)
}

// Sources is the set of runnable adapters, in catalog order.
type Sources struct {
	order    []string
	adapters map[string]*Adapter
}

// NewSources resolves a fetcher for every provider. Providers that pin TLS get
// a registry built around their own client.
func NewSources(providers []Provider, deps Deps, timeout time.Duration) (*Sources, error) {
	if deps.Client == nil {
		deps.Client = DefaultHTTPClient()
	}
	shared := DefaultFetcherRegistry(deps)

	s := &Sources{adapters: make(map[string]*Adapter, len(providers))}
	for _, cfg := range providers {
		reg := shared
		if !cfg.TLS.Empty() {
			client, err := ClientFor(cfg, deps.Client, timeout)
			if err != nil {
				return nil, err
			}
			scoped := deps
			scoped.Client = client
			reg = DefaultFetcherRegistry(scoped)
		}

		fetcher, err := reg.FetcherFor(cfg)
		if err != nil {
			return nil, err
		}
		s.adapters[cfg.ID] = NewAdapter(cfg, fetcher)
		s.order = append(s.order, cfg.ID)
	}
	return s, nil
}

// Lookup finds an adapter by case-insensitive id.
func (s *Sources) Lookup(id string) (*Adapter, bool) {
	if s == nil {
		return nil, false
	}
	a, ok := s.adapters[strings.ToLower(strings.TrimSpace(id))]
	return a, ok
}

// IDs returns the ids of enabled providers in catalog order.
func (s *Sources) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if s.adapters[id].cfg.EnabledValue() {
			out = append(out, id)
		}
	}
	return out
}
