package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/pkg/browser"

	"github.com/PuerkitoBio/goquery"
)

const listingHTML = `<html><body>
<div class="story">
  <h2>Second level heading</h2>
  <h1>Sensex jumps 800 points as banks rally</h1>
  <p>Benchmark indices closed at record highs.</p>
  <a href="/markets/sensex-jumps">read</a>
  <img data-src="/img/sensex.jpg">
</div>
<div class="story">
  <h2>Monsoon reaches Kerala two days early</h2>
  <p>Weather office update.</p>
  <a href="/weather/monsoon">read</a>
</div>
<div class="story">
  <h2>Fed signals interest rate pause</h2>
  <a href="https://example.org/world/fed">read</a>
</div>
<div class="story">
  <h2>IPO market heats up</h2>
  <p>No link in this card.</p>
</div>
<div class="story">
  <h1>Sensex jumps 800 points as banks rally</h1>
  <a href="/markets/sensex-jumps">duplicate</a>
</div>
</body></html>`

func TestStaticFetcherExtractsClassifiedStubs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("User-Agent"), "Mozilla/5.0") {
			http.Error(w, "bot", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	cfg := Provider{
		ID:        "example",
		Name:      "Example News",
		Type:      ProviderTypeStatic,
		SourceURL: srv.URL + "/latest",
		Listing:   ListingConfig{Container: ".story"},
	}

	stubs, err := NewStaticFetcher(nil, nil, nil, nil).Fetch(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(stubs) != 2 {
		t.Fatalf("expected 2 stubs, got %d: %+v", len(stubs), stubs)
	}

	first := stubs[0]
	if first.Title != "Sensex jumps 800 points as banks rally" {
		t.Fatalf("h1 should win over h2, got %q", first.Title)
	}
	if first.URL != srv.URL+"/markets/sensex-jumps" {
		t.Fatalf("unexpected url %q", first.URL)
	}
	if first.Image != srv.URL+"/img/sensex.jpg" {
		t.Fatalf("unexpected image %q", first.Image)
	}
	if first.Category != "sensex" || first.Zone != domain.ZoneIndia {
		t.Fatalf("unexpected classification %q/%q", first.Category, first.Zone)
	}
	if first.Author != "Example News" || first.Source != "example" {
		t.Fatalf("unexpected author/source %q/%q", first.Author, first.Source)
	}

	second := stubs[1]
	if second.Description != second.Title {
		t.Fatalf("description should default to title, got %q", second.Description)
	}
	if second.Category != "interest rate" || second.Zone != domain.ZoneWorld {
		t.Fatalf("unexpected classification %q/%q", second.Category, second.Zone)
	}
}

func TestExtractStubsRequireDescription(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<ul>
<li><a href="/a">Stocks to buy today</a></li>
<li><h2>Nifty outlook</h2><span>Analysts expect range-bound trade.</span><a href="/b">more</a></li>
</ul>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	stubs := ExtractStubs(doc, Provider{
		ID:      "list",
		BaseURL: "https://news.example.com",
		Listing: ListingConfig{Container: "li", RequireDescription: true},
	})
	if len(stubs) != 1 {
		t.Fatalf("expected 1 stub, got %d", len(stubs))
	}
	if stubs[0].Description != "Analysts expect range-bound trade." {
		t.Fatalf("span should be the description fallback, got %q", stubs[0].Description)
	}
	if stubs[0].URL != "https://news.example.com/b" {
		t.Fatalf("unexpected url %q", stubs[0].URL)
	}
}

func TestStaticFetcherRejectsNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewStaticFetcher(nil, nil, nil, nil).Fetch(context.Background(), Provider{
		ID:        "blocked",
		Type:      ProviderTypeStatic,
		SourceURL: srv.URL,
		Listing:   ListingConfig{Container: ".story"},
	})
	if err == nil || !strings.Contains(err.Error(), "status 403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

type fakeRenderer struct {
	html string
	reqs []browser.Request
}

func (f *fakeRenderer) Render(_ context.Context, req browser.Request) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.html, nil
}

type recordingEnricher struct {
	calls int
}

func (e *recordingEnricher) Enrich(_ context.Context, _ Provider, stubs []domain.Stub) []domain.Stub {
	e.calls++
	out := make([]domain.Stub, len(stubs))
	for i, s := range stubs {
		s.Description = "full body for " + s.URL
		out[i] = s
	}
	return out
}

func TestRenderedFetcherUsesRendererAndDetail(t *testing.T) {
	t.Parallel()

	r := &fakeRenderer{html: `<div class="card"><span class="hl"><a href="/story/1">Stocks slump on weak global cues</a></span></div>`}
	enricher := &recordingEnricher{}
	cfg := Provider{
		ID:        "rendered",
		Type:      ProviderTypeRendered,
		SourceURL: "https://www.example.com/world",
		Listing: ListingConfig{
			Container:      ".card",
			TitleSelectors: []string{".hl"},
			LinkSelector:   ".hl a",
			WaitSelector:   "#list",
			WaitTimeoutMS:  10000,
		},
		Detail: &DetailConfig{Rendered: true},
	}

	stubs, err := NewRenderedFetcher(r, enricher, nil, nil).Fetch(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(r.reqs) != 1 || r.reqs[0].WaitSelector != "#list" || r.reqs[0].WaitTimeout.Seconds() != 10 {
		t.Fatalf("unexpected render requests %+v", r.reqs)
	}
	if enricher.calls != 1 || len(stubs) != 1 {
		t.Fatalf("expected one enrich call and one stub, got %d/%d", enricher.calls, len(stubs))
	}
	if stubs[0].Description != "full body for https://www.example.com/story/1" {
		t.Fatalf("unexpected description %q", stubs[0].Description)
	}
}

func TestRenderedFetcherWithoutRenderer(t *testing.T) {
	t.Parallel()

	_, err := NewRenderedFetcher(nil, nil, nil, nil).Fetch(context.Background(), Provider{
		ID:        "rendered",
		Type:      ProviderTypeRendered,
		SourceURL: "https://www.example.com",
		Listing:   ListingConfig{Container: ".card"},
	})
	if err == nil {
		t.Fatalf("expected error without renderer")
	}
}
