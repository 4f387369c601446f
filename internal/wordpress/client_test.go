package wordpress

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
)

func newTestSite(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "editor" || pass != "app pass" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", Username: "editor", AppPassword: "app pass", Categories: map[string]int{"market": 615, "ipo": 700}}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestPublishWithFeaturedMedia(t *testing.T) {
	t.Parallel()

	image := "https://site.example.com/wp-content/uploads/2025/10/chart.png"
	var got postRequest
	c := newTestSite(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wp-json/wp/v2/media":
			if r.URL.Query().Get("search") != "chart.png" || r.URL.Query().Get("per_page") != "100" {
				http.Error(w, "bad search", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `[{"id":3,"source_url":"https://other/chart.png"},{"id":9,"source_url":"`+image+`"}]`)
		case "/wp-json/wp/v2/posts":
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":42,"link":"https://site.example.com/p/42","status":"publish"}`)
		default:
			http.NotFound(w, r)
		}
	})

	post, err := c.Publish(context.Background(), domain.StoredArticle{
		Headline:    "IPO market heats up",
		Description: strings.Repeat("d", 250),
		Image:       image,
		Category:    "ipo",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if post.ID != 42 {
		t.Fatalf("unexpected post %+v", post)
	}
	if got.FeaturedMedia != 9 || got.Status != "publish" || len(got.Categories) != 1 || got.Categories[0] != 700 {
		t.Fatalf("unexpected post request %+v", got)
	}
	if len(got.Excerpt) != 200 {
		t.Fatalf("expected 200 char excerpt, got %d", len(got.Excerpt))
	}
	if !strings.HasPrefix(got.Content, "<img src='"+image+"' style='max-width:100%;height:auto' /><br/>") {
		t.Fatalf("unexpected content prefix %q", got.Content[:80])
	}
}

func TestPublishSkipsExternalImageLookup(t *testing.T) {
	t.Parallel()

	var got postRequest
	c := newTestSite(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wp-json/wp/v2/media" {
			t.Errorf("media search must not run for external images")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":1}`)
	})

	if _, err := c.Publish(context.Background(), domain.StoredArticle{Headline: "h", Image: "https://cdn.example.com/x.jpg", Category: "crypto"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got.FeaturedMedia != 0 || got.Categories[0] != 615 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestPublishErrorStatus(t *testing.T) {
	t.Parallel()

	c := newTestSite(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"rest_cannot_create"}`, http.StatusForbidden)
	})
	if _, err := c.Publish(context.Background(), domain.StoredArticle{Headline: "h"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestUploadMedia(t *testing.T) {
	t.Parallel()

	c := newTestSite(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(file)
		if header.Filename != "chart.png" || string(body) != "png-bytes" {
			http.Error(w, "bad file", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":77,"source_url":"https://site.example.com/wp-content/uploads/chart.png"}`)
	})

	media, err := c.UploadMedia(context.Background(), "chart.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if media.ID != 77 || !strings.HasSuffix(media.SourceURL, "chart.png") {
		t.Fatalf("unexpected media %+v", media)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Username: "u", AppPassword: "p"}, nil); err == nil {
		t.Fatalf("expected base url error")
	}
	if _, err := NewClient(Config{BaseURL: "https://site.example.com"}, nil); err == nil {
		t.Fatalf("expected credentials error")
	}
}
