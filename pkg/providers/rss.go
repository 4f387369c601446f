package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/classify"
	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"

	"github.com/mmcdole/gofeed"
)

// rssFetcher reads a list of feeds; a failing feed is logged and skipped.
type rssFetcher struct {
	client     HTTPClient
	classifier *classify.Classifier
	log        logger.Logger
}

// NewRSSFetcher builds the fetcher for rss providers.
func NewRSSFetcher(client HTTPClient, classifier *classify.Classifier, log logger.Logger) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if classifier == nil {
		classifier = classify.Default()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &rssFetcher{client: client, classifier: classifier, log: log}
}

func (f *rssFetcher) ID() string { return ProviderTypeRSS }

func (f *rssFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Stub, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeRSS) {
		return nil, fmt.Errorf("rss fetcher received incompatible provider type %q", cfg.Type)
	}
	feeds := cfg.Feeds
	if len(feeds) == 0 && strings.TrimSpace(cfg.SourceURL) != "" {
		feeds = []string{cfg.SourceURL}
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("provider %q has no feeds", cfg.ID)
	}

	headers := Headers(cfg)
	headers["Accept"] = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"

	seen := make(map[string]struct{})
	var stubs []domain.Stub
	failed := 0

	for _, feedURL := range feeds {
		if ctx.Err() != nil {
			return stubs, ctx.Err()
		}

		items, err := f.fetchFeed(ctx, cfg, feedURL, headers)
		if err != nil {
			failed++
			f.log.WarnObj("rss feed skipped", "rss_feed_error", map[string]any{
				"provider_id": cfg.ID,
				"feed":        feedURL,
				"error":       err.Error(),
			})
			continue
		}

		for _, s := range items {
			if _, dup := seen[s.URL]; dup {
				continue
			}
			seen[s.URL] = struct{}{}
			stubs = append(stubs, s)
			if cfg.MaxItems > 0 && len(stubs) >= cfg.MaxItems {
				return stubs, nil
			}
		}
	}

	if failed == len(feeds) {
		f.log.ErrorObj("every rss feed failed", "rss_all_failed", map[string]any{
			"provider_id": cfg.ID,
			"feeds":       len(feeds),
		})
	}
	return stubs, nil
}

// fetchFeed downloads and parses one feed into classified stubs.
func (f *rssFetcher) fetchFeed(ctx context.Context, cfg Provider, feedURL string, headers map[string]string) ([]domain.Stub, error) {
	body, err := fetchPage(ctx, f.client, feedURL, cfg.ID, headers)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	author := firstNonEmpty(CleanText(feed.Title), cfg.DefaultAuthor())
	stubs := make([]domain.Stub, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		title := CleanText(item.Title)
		link := ResolveURL(item.Link, firstNonEmpty(feed.Link, feedURL))
		if title == "" || link == "" {
			continue
		}

		description := firstNonEmpty(PlainText(item.Description), PlainText(item.Content), title)

		stub := f.classifier.Stub(domain.Stub{
			Title:           title,
			Description:     description,
			URL:             link,
			Source:          cfg.ID,
			Author:          author,
			PublishedAtHint: itemTime(item),
			Image:           itemImage(item),
		})
		if stub.Category == "" {
			continue
		}
		stubs = append(stubs, stub)
	}
	return stubs, nil
}

func itemTime(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	}
	return strings.TrimSpace(item.Published)
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && strings.TrimSpace(item.Image.URL) != "" {
		return strings.TrimSpace(item.Image.URL)
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}
