package newsroom

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/internal/store"
	"github.com/Adda-Baaj/arthik-khobor/internal/wordpress"
	"github.com/Adda-Baaj/arthik-khobor/pkg/publishers"
)

type fakeWordPress struct {
	err      error
	posted   []domain.StoredArticle
	uploaded string
}

func (f *fakeWordPress) Publish(_ context.Context, a domain.StoredArticle) (wordpress.Post, error) {
	if f.err != nil {
		return wordpress.Post{}, f.err
	}
	f.posted = append(f.posted, a)
	return wordpress.Post{ID: 11, Status: "publish"}, nil
}

func (f *fakeWordPress) UploadMedia(_ context.Context, name string, r io.Reader) (wordpress.Media, error) {
	body, _ := io.ReadAll(r)
	f.uploaded = name + ":" + string(body)
	return wordpress.Media{ID: 5, SourceURL: "https://site/wp-content/" + name}, nil
}

type eventLog struct{ types []string }

func (e *eventLog) Publish(_ context.Context, evt publishers.Event) error {
	e.types = append(e.types, evt.Type)
	return nil
}

func newService(t *testing.T, wp WordPress) (*Service, *eventLog) {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "news.db"), time.Second)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	events := &eventLog{}
	svc := NewService(st, wp, events, nil)
	svc.now = func() time.Time { return time.Date(2025, 10, 6, 4, 0, 0, 0, time.UTC) }
	return svc, events
}

func TestCreateManual(t *testing.T) {
	t.Parallel()
	svc, events := newService(t, nil)
	ctx := context.Background()

	if _, err := svc.CreateManual(ctx, ManualArticle{Headline: "only headline"}); !errors.Is(err, ErrInvalidArticle) {
		t.Fatalf("expected invalid article, got %v", err)
	}

	sentiment := 9
	a, err := svc.CreateManual(ctx, ManualArticle{
		Headline:    "Nifty Bank hits a fresh all time high today",
		Description: "Banks rallied across India.",
		Sentiment:   &sentiment,
	})
	if err != nil {
		t.Fatalf("CreateManual: %v", err)
	}
	if a.URL != "nifty-bank-hits-a-fr" {
		t.Fatalf("unexpected url %q", a.URL)
	}
	if a.Published || a.Time == "" || a.ID == "" {
		t.Fatalf("unexpected record %+v", a)
	}
	if a.Category != "nifty" || a.Zone != domain.ZoneIndia {
		t.Fatalf("expected classified record, got %q %q", a.Category, a.Zone)
	}
	if *a.Sentiment != 5 || a.Weightage != domain.WeightageHigh || a.CreatedDate != "06-10-2025-09:30" {
		t.Fatalf("unexpected derived fields %+v", a)
	}

	if _, err := svc.CreateManual(ctx, ManualArticle{Headline: "Nifty Bank hits a fresh record", Description: "d"}); !errors.Is(err, ErrDuplicateURL) {
		t.Fatalf("expected duplicate url, got %v", err)
	}

	b, err := svc.CreateManual(ctx, ManualArticle{Headline: "Other", Description: "d", ShortURL: " my-short-url "})
	if err != nil || b.URL != "my-short-url" {
		t.Fatalf("expected short url, got %q %v", b.URL, err)
	}
	if len(events.types) != 2 || events.types[0] != publishers.EventArticleCreated {
		t.Fatalf("unexpected events %v", events.types)
	}
}

func TestPatchAndDelete(t *testing.T) {
	t.Parallel()
	svc, events := newService(t, nil)
	ctx := context.Background()

	a, err := svc.CreateManual(ctx, ManualArticle{Headline: "Gold prices slip", Description: "d"})
	if err != nil {
		t.Fatalf("CreateManual: %v", err)
	}

	headline := "Gold prices slip for a third day"
	updated, err := svc.Patch(ctx, a.ID, domain.ArticlePatch{Headline: &headline})
	if err != nil || updated.Headline != headline || updated.URL != a.URL {
		t.Fatalf("Patch: %v %+v", err, updated)
	}
	if _, err := svc.Patch(ctx, "", domain.ArticlePatch{Headline: &headline}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for empty id, got %v", err)
	}

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := strings.Join(events.types, ","); got != "article.created,article.updated" {
		t.Fatalf("unexpected events %s", got)
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()
	wp := &fakeWordPress{}
	svc, events := newService(t, wp)
	ctx := context.Background()

	a, _ := svc.CreateManual(ctx, ManualArticle{Headline: "Rupee gains against the dollar", Description: "d"})

	res, err := svc.Publish(ctx, a.ID)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Article.Published || res.Post.ID != 11 || len(wp.posted) != 1 {
		t.Fatalf("unexpected publish result %+v", res)
	}
	if events.types[len(events.types)-1] != publishers.EventArticlePublished {
		t.Fatalf("expected published event, got %v", events.types)
	}

	if _, err := svc.Publish(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	wp.err = errors.New("wordpress down")
	b, _ := svc.CreateManual(ctx, ManualArticle{Headline: "Another story", Description: "d"})
	if _, err := svc.Publish(ctx, b.ID); err == nil {
		t.Fatalf("expected publish error")
	}
	stored, _ := svc.Get(ctx, b.ID)
	if stored.Published {
		t.Fatalf("failed publish must not flip the flag")
	}
}

func TestPublishingDisabled(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, nil)
	if _, err := svc.Publish(context.Background(), "x"); !errors.Is(err, ErrPublishingDisabled) {
		t.Fatalf("expected disabled, got %v", err)
	}
	if _, err := svc.UploadMedia(context.Background(), "a.png", strings.NewReader("x")); !errors.Is(err, ErrPublishingDisabled) {
		t.Fatalf("expected disabled, got %v", err)
	}
}

func TestUploadMedia(t *testing.T) {
	t.Parallel()
	wp := &fakeWordPress{}
	svc, _ := newService(t, wp)
	m, err := svc.UploadMedia(context.Background(), "a.png", strings.NewReader("bytes"))
	if err != nil || m.ID != 5 || wp.uploaded != "a.png:bytes" {
		t.Fatalf("UploadMedia: %v %+v %q", err, m, wp.uploaded)
	}
}
