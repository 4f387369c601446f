package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
)

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func sampleStub(url string) domain.Stub {
	return domain.Stub{
		Title:       "Sensex climbs 600 points as banks lead a broad based rally on Dalal Street",
		Description: strings.Repeat("Markets closed higher on Monday. ", 5),
		URL:         url,
		Source:      "moneycontrol",
		Image:       "https://img.example.com/a.jpg",
		Category:    "sensex",
		Zone:        domain.ZoneIndia,
	}
}

func TestRewriteOneMergesModelOutput(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{text: "Here you go:\n```json\n" + `{
		"headline": "Banks power Sensex to a 600 point gain",
		"description": "<p>Long form body</p>",
		"impactSummary": "Positive for lenders.",
		"sentiment": "3.5",
		"weightage": "High",
		"category": "bank",
		"zone": "mars",
		"createdDate": "06-10-2025-10:30",
		"url": "https://evil.example.com/other",
		"image": "https://evil.example.com/x.png"
	}` + "\n```"}
	r := New(gen, Options{FallbackAuthor: "Desk"}, nil)

	got := r.RewriteOne(context.Background(), sampleStub("https://news.example.com/a"))

	if !got.Rewritten {
		t.Fatalf("expected rewritten article")
	}
	if got.Headline != "Banks power Sensex to a 600 point gain" {
		t.Fatalf("unexpected headline %q", got.Headline)
	}
	if got.URL != "https://news.example.com/a" || got.Image != "https://img.example.com/a.jpg" {
		t.Fatalf("url and image must come from the stub, got %q %q", got.URL, got.Image)
	}
	if got.Category != "bank" {
		t.Fatalf("expected allowed model category, got %q", got.Category)
	}
	if got.Zone != domain.ZoneIndia {
		t.Fatalf("invalid model zone must keep stub zone, got %q", got.Zone)
	}
	if got.Sentiment == nil || *got.Sentiment != 3.5 {
		t.Fatalf("expected raw sentiment 3.5, got %v", got.Sentiment)
	}
	if got.CreatedDate != "06-10-2025-10:30" {
		t.Fatalf("unexpected created date %q", got.CreatedDate)
	}
	if got.Author != "Desk" {
		t.Fatalf("unexpected author %q", got.Author)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "https://news.example.com/a") {
		t.Fatalf("prompt should embed the stub")
	}
}

func TestRewriteOneFallsBack(t *testing.T) {
	t.Parallel()

	cases := map[string]*fakeGenerator{
		"generator error": {err: errors.New("quota exceeded")},
		"no json":         {text: "I am unable to do that."},
		"missing fields":  {text: `{"headline":"Only a headline"}`},
		"array for one":   {text: `[{"headline":"h","description":"d"}]`},
		"truncated":       {text: `{"headline":"h","description":"d`},
	}

	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			stub := sampleStub("https://news.example.com/b")
			got := New(gen, Options{}, nil).RewriteOne(context.Background(), stub)
			if got.Rewritten {
				t.Fatalf("expected fallback")
			}
			if got.Author != DefaultFallbackAuthor {
				t.Fatalf("expected fallback author, got %q", got.Author)
			}
			if got.Headline != stub.Title || got.Description != stub.Description || got.URL != stub.URL {
				t.Fatalf("fallback must keep the stub: %+v", got)
			}
		})
	}
}

func TestRewriteOneWithoutGenerator(t *testing.T) {
	t.Parallel()

	got := New(nil, Options{}, nil).RewriteOne(context.Background(), sampleStub("https://news.example.com/c"))
	if got.Rewritten || got.Author != DefaultFallbackAuthor {
		t.Fatalf("expected fallback, got %+v", got)
	}
}

func TestRewriteBatchMatchesByURL(t *testing.T) {
	t.Parallel()

	stubs := []domain.Stub{
		sampleStub("https://news.example.com/1"),
		sampleStub("https://news.example.com/2"),
		sampleStub("https://news.example.com/3"),
	}
	items := []map[string]any{
		{"headline": "Second rewritten", "description": "body two", "url": "https://news.example.com/2", "sentiment": -2},
		{"headline": "First rewritten", "description": "body one", "url": "https://news.example.com/1"},
		{"headline": "", "description": "no headline", "url": "https://news.example.com/3"},
	}
	raw, _ := json.Marshal(items)

	got := New(&fakeGenerator{text: string(raw)}, Options{}, nil).RewriteBatch(context.Background(), stubs)
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	if got[0].Headline != "First rewritten" || !got[0].Rewritten {
		t.Fatalf("unexpected first article %+v", got[0])
	}
	if got[1].Headline != "Second rewritten" || got[1].Sentiment == nil || *got[1].Sentiment != -2 {
		t.Fatalf("unexpected second article %+v", got[1])
	}
	if got[2].Rewritten || got[2].Headline != stubs[2].Title || got[2].Author != DefaultFallbackAuthor {
		t.Fatalf("incomplete item must fall back to the stub, got %+v", got[2])
	}
}

func TestRewriteBatchPositionalMatch(t *testing.T) {
	t.Parallel()

	stubs := []domain.Stub{sampleStub("https://news.example.com/1"), sampleStub("https://news.example.com/2")}
	text := `[{"headline":"A","description":"a"},{"headline":"B","description":"b"}]`

	got := New(&fakeGenerator{text: text}, Options{}, nil).RewriteBatch(context.Background(), stubs)
	if len(got) != 2 || got[0].Headline != "A" || got[1].Headline != "B" {
		t.Fatalf("unexpected positional match %+v", got)
	}
	if got[1].URL != "https://news.example.com/2" {
		t.Fatalf("url must come from the stub")
	}
}

func TestRewriteBatchFailures(t *testing.T) {
	t.Parallel()

	stubs := []domain.Stub{sampleStub("https://news.example.com/1")}

	wrong := New(&fakeGenerator{text: `{"headline":"h","description":"d"}`}, Options{}, nil).RewriteBatch(context.Background(), stubs)
	if wrong == nil || len(wrong) != 0 {
		t.Fatalf("wrong shape must yield an empty list, got %v", wrong)
	}

	for name, gen := range map[string]*fakeGenerator{
		"error":     {err: errors.New("boom")},
		"no json":   {text: "nothing"},
		"truncated": {text: `[{"headline":"h"`},
	} {
		got := New(gen, Options{}, nil).RewriteBatch(context.Background(), stubs)
		if len(got) != 1 || got[0].Rewritten || got[0].Author != DefaultFallbackAuthor {
			t.Fatalf("%s: expected tagged originals, got %+v", name, got)
		}
	}
}

func TestGeminiGenerator(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test-model:generateContent" {
			http.Error(w, "bad path "+r.URL.Path, http.StatusNotFound)
			return
		}
		if r.Header.Get("x-goog-api-key") != "k" {
			http.Error(w, "no key", http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "hello") {
			http.Error(w, "prompt missing", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"ok\":"},{"text":"true}"}]}}]}`)
	}))
	defer srv.Close()

	gen, err := NewGenerator(GeneratorConfig{Provider: "gemini", Endpoint: srv.URL, Model: "test-model", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	text, err := gen.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != `{"ok":true}` {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestOpenAIGenerator(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer k" {
			http.Error(w, "denied", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"[1,2]"}}]}`)
	}))
	defer srv.Close()

	gen, err := NewGenerator(GeneratorConfig{Provider: "openai", Endpoint: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	text, err := gen.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "[1,2]" {
		t.Fatalf("unexpected text %q", text)
	}

	bad, _ := NewGenerator(GeneratorConfig{Provider: "openai", Endpoint: srv.URL, APIKey: "wrong"})
	if _, err := bad.Generate(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error status to surface")
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator(GeneratorConfig{Provider: "gemini"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewGenerator(GeneratorConfig{Provider: "llama", APIKey: "k"}); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
}
