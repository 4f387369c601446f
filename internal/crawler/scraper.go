package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
	"github.com/Adda-Baaj/arthik-khobor/pkg/browser"
	"github.com/Adda-Baaj/arthik-khobor/pkg/httpclient"
	"github.com/Adda-Baaj/arthik-khobor/pkg/providers"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const (
	maxHTMLBodyBytes  = 2 << 20 // 2 MiB
	maxArticleWorkers = 4

	// FailedContent replaces the description of a stub whose detail page could not be read.
	FailedContent = "Failed to retrieve article content"
)

// Scraper completes stubs from their article pages.
type Scraper struct {
	client   httpclient.Client
	renderer browser.Renderer
	log      logger.Logger
}

// NewScraper creates a new Scraper. The renderer is only needed for providers
// whose detail pages are rendered client side.
func NewScraper(client httpclient.Client, renderer browser.Renderer, log logger.Logger) *Scraper {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scraper{client: client, renderer: renderer, log: log}
}

// Enrich visits the detail page of every stub. Each worker waits the
// provider's request delay between the end of one request and the start of
// the next. One worker is used unless the provider asks for more. On cancel
// the stubs not yet visited are returned unchanged.
func (s *Scraper) Enrich(ctx context.Context, cfg providers.Provider, stubs []domain.Stub) []domain.Stub {
	out := make([]domain.Stub, len(stubs))
	copy(out, stubs) // default to originals so partial results are returned on cancel

	if len(stubs) == 0 || cfg.Detail == nil {
		return out
	}

	workerCount := 1
	if cfg.Detail.Workers > 1 {
		workerCount = min(cfg.Detail.Workers, maxArticleWorkers, len(stubs))
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := range workerCount {
		wg.Add(1)
		go s.articleWorker(ctx, cfg, stubs, cfg.RequestDelay(), jobCh, out, &wg, workerID)
	}

dispatch:
	for idx := range stubs {
		select {
		case jobCh <- idx:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobCh)

	wg.Wait()

	return out
}

// articleWorker processes stubs from the job channel, pausing for delay
// between consecutive requests.
func (s *Scraper) articleWorker(
	ctx context.Context,
	cfg providers.Provider,
	stubs []domain.Stub,
	delay time.Duration,
	jobCh <-chan int,
	out []domain.Stub,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	first := true
	for idx := range jobCh {
		if !first && !pause(ctx, delay) {
			return
		}
		first = false
		if ctx.Err() != nil {
			return
		}

		stub := stubs[idx]
		enriched, err := s.fetchAndParse(ctx, cfg, stub, workerID)
		if err != nil {
			s.log.WarnObj("article detail scrape failed", "detail_error", map[string]any{
				"worker_id":   workerID,
				"provider_id": cfg.ID,
				"url":         stub.URL,
				"error":       err.Error(),
			})
			stub.Description = FailedContent
			out[idx] = stub
			continue
		}
		out[idx] = enriched
	}
}

// pause sleeps for d and reports false when ctx ends first.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// fetchAndParse loads the article page and fills description, author and image.
func (s *Scraper) fetchAndParse(ctx context.Context, cfg providers.Provider, stub domain.Stub, workerID int) (domain.Stub, error) {
	s.log.DebugObj("scraping article detail", "scrape_start", map[string]any{
		"worker_id":   workerID,
		"provider_id": cfg.ID,
		"url":         stub.URL,
	})

	body, err := s.load(ctx, cfg, stub.URL)
	if err != nil {
		return stub, err
	}

	if len(body) > maxHTMLBodyBytes {
		s.log.InfoObj("html body truncated", "truncation", map[string]any{
			"worker_id":   workerID,
			"provider_id": cfg.ID,
			"url":         stub.URL,
			"original":    len(body),
			"kept":        maxHTMLBodyBytes,
		})
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return stub, fmt.Errorf("parse html: %w", err)
	}

	detail := cfg.Detail
	text := joinText(doc, detail.BodySelector, " ")
	if text == "" && detail.Readability {
		text = readableText(body, stub.URL)
	}
	keyPoints := joinText(doc, detail.KeyPointsSelector, "; ")

	var meta pageMeta
	if detail.Meta {
		meta = parseMeta(doc)
	}

	updated := stub
	updated.Description = firstNonEmpty(text, keyPoints, meta.Description, stub.Description)
	if author := joinText(doc, detail.AuthorSelector, ", "); author != "" {
		updated.Author = author
	}
	if updated.Image == "" && meta.ImageURL != "" {
		updated.Image = resolveURL(meta.ImageURL, stub.URL)
	}

	return updated, nil
}

// load fetches the detail page through the browser or a plain GET.
func (s *Scraper) load(ctx context.Context, cfg providers.Provider, pageURL string) ([]byte, error) {
	if cfg.Detail.Rendered {
		if s.renderer == nil {
			return nil, fmt.Errorf("provider %q needs a browser renderer", cfg.ID)
		}
		timeout := 15 * time.Second
		if cfg.Detail.WaitTimeoutMS > 0 {
			timeout = time.Duration(cfg.Detail.WaitTimeoutMS) * time.Millisecond
		}
		html, err := s.renderer.Render(ctx, browser.Request{
			URL:          pageURL,
			WaitSelector: cfg.Detail.WaitSelector,
			WaitTimeout:  timeout,
			Headers:      providers.Headers(cfg),
		})
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		return []byte(html), nil
	}

	resp, err := s.client.Get(ctx, pageURL, providers.Headers(cfg))
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return nil, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}
	return resp.Body(), nil
}

// joinText concatenates the cleaned text of every node matching sel.
func joinText(doc *goquery.Document, sel, sep string) string {
	if strings.TrimSpace(sel) == "" {
		return ""
	}
	var parts []string
	doc.Find(sel).Each(func(_ int, node *goquery.Selection) {
		if txt := providers.CleanText(node.Text()); txt != "" {
			parts = append(parts, txt)
		}
	})
	return strings.Join(parts, sep)
}

// readableText runs readability over the page and returns its plain text.
func readableText(body []byte, pageURL string) string {
	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return ""
	}
	return providers.CleanText(article.TextContent)
}

// parseMeta extracts page metadata from the document head.
func parseMeta(doc *goquery.Document) pageMeta {
	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: extract(`meta[property="og:image"]`),
	}
}

// pageMeta holds metadata extracted from an HTML page.
type pageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func resolveURL(raw, base string) string {
	if resolved := providers.ResolveURL(raw, base); resolved != "" {
		return resolved
	}
	return raw
}
