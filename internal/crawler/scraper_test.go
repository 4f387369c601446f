package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/pkg/browser"
	"github.com/Adda-Baaj/arthik-khobor/pkg/providers"
)

const articleHTML = `<html><head>
<meta property="og:description" content="Meta summary of the story">
<meta property="og:image" content="/media/lead.jpg">
</head><body>
<div class="storyBy"><span>Asha Rao</span></div>
<div class="body"><p>First paragraph.</p><p>Second   paragraph.</p></div>
</body></html>`

func TestEnrichFillsBodyAndPlaceholderOnFailure(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		times []time.Time
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte(articleHTML))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		http.NotFound(w, nil)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := providers.Provider{
		ID:             "detail",
		RequestDelayMS: 50,
		Detail: &providers.DetailConfig{
			BodySelector:   ".body p",
			AuthorSelector: ".storyBy span",
			Meta:           true,
		},
	}
	stubs := []domain.Stub{
		{Title: "one", Description: "one", URL: srv.URL + "/ok"},
		{Title: "two", Description: "two", URL: srv.URL + "/gone"},
	}

	out := NewScraper(nil, nil, nil).Enrich(context.Background(), cfg, stubs)
	if len(out) != 2 {
		t.Fatalf("expected 2 stubs, got %d", len(out))
	}

	if out[0].Description != "First paragraph. Second paragraph." {
		t.Fatalf("unexpected body %q", out[0].Description)
	}
	if out[0].Author != "Asha Rao" {
		t.Fatalf("unexpected author %q", out[0].Author)
	}
	if out[0].Image != srv.URL+"/media/lead.jpg" {
		t.Fatalf("unexpected image %q", out[0].Image)
	}
	if out[1].Description != FailedContent {
		t.Fatalf("failed page should degrade to placeholder, got %q", out[1].Description)
	}
	if out[1].Title != "two" {
		t.Fatalf("failed stub should keep its title")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(times) != 2 {
		t.Fatalf("expected 2 detail requests, got %d", len(times))
	}
	if gap := times[1].Sub(times[0]); gap < 40*time.Millisecond {
		t.Fatalf("detail requests not throttled, gap %s", gap)
	}
}

func TestEnrichFallsBackToMetaDescription(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	cfg := providers.Provider{
		ID:             "meta",
		RequestDelayMS: -1,
		Detail:         &providers.DetailConfig{BodySelector: ".missing p", Meta: true},
	}
	out := NewScraper(nil, nil, nil).Enrich(context.Background(), cfg, []domain.Stub{
		{Title: "t", Description: "t", URL: srv.URL + "/story", Image: "https://cdn.example.com/keep.jpg"},
	})

	if out[0].Description != "Meta summary of the story" {
		t.Fatalf("unexpected description %q", out[0].Description)
	}
	if out[0].Image != "https://cdn.example.com/keep.jpg" {
		t.Fatalf("existing image should be kept, got %q", out[0].Image)
	}
}

type keyPointsRenderer struct{}

func (keyPointsRenderer) Render(_ context.Context, req browser.Request) (string, error) {
	return `<ul class="kp"><li>Point one</li><li>Point two</li></ul>`, nil
}

func TestEnrichRenderedKeyPoints(t *testing.T) {
	t.Parallel()

	cfg := providers.Provider{
		ID:             "cnbc",
		RequestDelayMS: -1,
		Detail: &providers.DetailConfig{
			Rendered:          true,
			BodySelector:      ".ArticleBody p",
			KeyPointsSelector: ".kp li",
		},
	}
	out := NewScraper(nil, keyPointsRenderer{}, nil).Enrich(context.Background(), cfg, []domain.Stub{
		{Title: "t", Description: "t", URL: "https://www.example.com/a"},
	})
	if out[0].Description != "Point one; Point two" {
		t.Fatalf("unexpected description %q", out[0].Description)
	}
}

func TestEnrichRenderedWithoutRenderer(t *testing.T) {
	t.Parallel()

	cfg := providers.Provider{ID: "cnbc", RequestDelayMS: -1, Detail: &providers.DetailConfig{Rendered: true}}
	out := NewScraper(nil, nil, nil).Enrich(context.Background(), cfg, []domain.Stub{
		{Title: "t", Description: "t", URL: "https://www.example.com/a"},
	})
	if out[0].Description != FailedContent {
		t.Fatalf("expected placeholder, got %q", out[0].Description)
	}
}

func TestEnrichReturnsWhenCancelledDuringDelay(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	cfg := providers.Provider{
		ID:             "slow",
		RequestDelayMS: 1000,
		Detail:         &providers.DetailConfig{BodySelector: ".body p"},
	}
	stubs := []domain.Stub{
		{Title: "one", Description: "one", URL: srv.URL + "/1"},
		{Title: "two", Description: "two", URL: srv.URL + "/2"},
		{Title: "three", Description: "three", URL: srv.URL + "/3"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	done := make(chan []domain.Stub, 1)
	go func() { done <- NewScraper(nil, nil, nil).Enrich(ctx, cfg, stubs) }()

	select {
	case out := <-done:
		if len(out) != 3 {
			t.Fatalf("expected 3 stubs, got %d", len(out))
		}
		if out[0].Description != "First paragraph. Second paragraph." {
			t.Fatalf("first stub should be enriched, got %q", out[0].Description)
		}
		if out[2].Description != "three" {
			t.Fatalf("unvisited stub should be unchanged, got %q", out[2].Description)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Enrich did not return after cancel")
	}
}

func TestEnrichDelayFollowsSlowRequests(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		starts []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(80 * time.Millisecond)
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	cfg := providers.Provider{
		ID:             "paced",
		RequestDelayMS: 50,
		Detail:         &providers.DetailConfig{BodySelector: ".body p"},
	}
	NewScraper(nil, nil, nil).Enrich(context.Background(), cfg, []domain.Stub{
		{Title: "a", Description: "a", URL: srv.URL + "/a"},
		{Title: "b", Description: "b", URL: srv.URL + "/b"},
		{Title: "c", Description: "c", URL: srv.URL + "/c"},
	})

	mu.Lock()
	defer mu.Unlock()
	if len(starts) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < 120*time.Millisecond {
			t.Fatalf("request %d started %s after the previous one", i, gap)
		}
	}
}
