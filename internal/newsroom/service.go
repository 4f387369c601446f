package newsroom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/classify"
	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
	"github.com/Adda-Baaj/arthik-khobor/internal/pipeline"
	"github.com/Adda-Baaj/arthik-khobor/internal/store"
	"github.com/Adda-Baaj/arthik-khobor/internal/wordpress"
	"github.com/Adda-Baaj/arthik-khobor/pkg/publishers"
)

const manualURLRunes = 20

var (
	// ErrInvalidArticle reports a manual article without headline or description.
	ErrInvalidArticle = errors.New("headline and description are required")
	// ErrDuplicateURL reports a manual article whose url is already stored.
	ErrDuplicateURL = errors.New("an article with this url already exists")
	// ErrPublishingDisabled is returned when no WordPress site is configured.
	ErrPublishingDisabled = errors.New("wordpress publishing is not configured")
)

// WordPress is the CMS the newsroom publishes to.
type WordPress interface {
	Publish(ctx context.Context, a domain.StoredArticle) (wordpress.Post, error)
	UploadMedia(ctx context.Context, filename string, r io.Reader) (wordpress.Media, error)
}

// EventPublisher receives article lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) error
}

// ManualArticle is an editor-written article.
type ManualArticle struct {
	Headline      string           `json:"headline"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	ImpactSummary string           `json:"impactSummary"`
	Image         string           `json:"image"`
	Category      string           `json:"category"`
	Author        string           `json:"author"`
	Source        string           `json:"source"`
	Zone          domain.Zone      `json:"zone"`
	Sentiment     *int             `json:"sentiment"`
	Weightage     domain.Weightage `json:"weightage"`
	CreatedDate   string           `json:"createddate"`
	ShortURL      string           `json:"shortUrl"`
}

// PublishResult pairs the updated record with the created post.
type PublishResult struct {
	Article domain.StoredArticle `json:"article"`
	Post    wordpress.Post       `json:"post"`
}

// Service implements the editorial operations over the article store.
type Service struct {
	store      store.Store
	wp         WordPress
	events     EventPublisher
	classifier *classify.Classifier
	now        func() time.Time
	log        logger.Logger
}

// NewService wires a Service. wp and events may be nil.
func NewService(st store.Store, wp WordPress, events EventPublisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		store:      st,
		wp:         wp,
		events:     events,
		classifier: classify.Default(),
		now:        time.Now,
		log:        log,
	}
}

// List returns every stored article.
func (s *Service) List(ctx context.Context) ([]domain.StoredArticle, error) {
	return s.store.ListAll(ctx)
}

// Get returns one article by id.
func (s *Service) Get(ctx context.Context, id string) (domain.StoredArticle, error) {
	return s.store.FindByID(ctx, id)
}

// CreateManual stores an editor-written article. Its url is ShortURL when set
// and otherwise a slug of the first 20 headline characters.
func (s *Service) CreateManual(ctx context.Context, in ManualArticle) (domain.StoredArticle, error) {
	headline := strings.TrimSpace(in.Headline)
	if headline == "" || strings.TrimSpace(in.Description) == "" {
		return domain.StoredArticle{}, ErrInvalidArticle
	}

	url := strings.TrimSpace(in.ShortURL)
	if url == "" {
		url = pipeline.SlugifyN(headline, manualURLRunes)
	}
	if url == "" {
		return domain.StoredArticle{}, fmt.Errorf("%w: headline yields an empty url", ErrInvalidArticle)
	}

	switch _, err := s.store.FindByURL(ctx, url); {
	case err == nil:
		return domain.StoredArticle{}, ErrDuplicateURL
	case !errors.Is(err, domain.ErrNotFound):
		return domain.StoredArticle{}, &domain.PersistenceError{Op: "find", Key: url, Err: err}
	}

	a := domain.StoredArticle{
		Headline:      headline,
		Title:         firstNonEmpty(in.Title, headline),
		Author:        strings.TrimSpace(in.Author),
		Description:   in.Description,
		ImpactSummary: in.ImpactSummary,
		Image:         strings.TrimSpace(in.Image),
		Category:      strings.ToLower(strings.TrimSpace(in.Category)),
		Source:        firstNonEmpty(in.Source, "manual"),
		URL:           url,
		Zone:          in.Zone,
		Sentiment:     in.Sentiment,
		Weightage:     in.Weightage,
		CreatedDate:   strings.TrimSpace(in.CreatedDate),
		Slug:          pipeline.Slugify(headline),
	}
	if a.Category == "" {
		a.Category = s.classifier.Category(headline + " " + in.Description)
	}
	if !a.Zone.Valid() {
		a.Zone = s.classifier.Zone(headline + " " + in.Description)
	}
	if a.Sentiment != nil {
		v := min(max(*a.Sentiment, 0), 5)
		a.Sentiment = &v
	}
	if !a.Weightage.Valid() {
		a.Weightage = ""
		if a.Sentiment != nil {
			a.Weightage = pipeline.WeightageFor(*a.Sentiment)
		}
	}
	if a.CreatedDate == "" {
		a.CreatedDate = s.now().In(pipeline.IST).Format(pipeline.CreatedDateLayout)
	}

	created, err := s.store.Create(ctx, a)
	if err != nil {
		return domain.StoredArticle{}, &domain.PersistenceError{Op: "create", Key: url, Err: err}
	}
	s.log.InfoObj("manual article created", "newsroom_article_created", map[string]any{
		"id":  created.ID,
		"url": created.URL,
	})
	s.emit(ctx, publishers.EventArticleCreated, created)
	return created, nil
}

// Patch applies an editorial update. A missing id yields domain.ErrNotFound.
func (s *Service) Patch(ctx context.Context, id string, p domain.ArticlePatch) (domain.StoredArticle, error) {
	if strings.TrimSpace(id) == "" {
		return domain.StoredArticle{}, domain.ErrNotFound
	}
	updated, err := s.store.Patch(ctx, id, p)
	if err != nil {
		return domain.StoredArticle{}, err
	}
	if !p.Empty() {
		s.emit(ctx, publishers.EventArticleUpdated, updated)
	}
	return updated, nil
}

// Delete removes an article by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrNotFound
	}
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.log.InfoObj("article deleted", "newsroom_article_deleted", map[string]any{"id": id})
	return nil
}

// Publish posts the article to WordPress and marks it published.
func (s *Service) Publish(ctx context.Context, id string) (PublishResult, error) {
	if s.wp == nil {
		return PublishResult{}, ErrPublishingDisabled
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return PublishResult{}, err
	}

	post, err := s.wp.Publish(ctx, a)
	if err != nil {
		return PublishResult{}, err
	}

	published := true
	updated, err := s.store.Patch(ctx, a.ID, domain.ArticlePatch{Published: &published})
	if err != nil {
		return PublishResult{}, &domain.PersistenceError{Op: "patch", Key: a.ID, Err: err}
	}
	s.emit(ctx, publishers.EventArticlePublished, updated)
	return PublishResult{Article: updated, Post: post}, nil
}

// UploadMedia forwards a file to the WordPress media library.
func (s *Service) UploadMedia(ctx context.Context, filename string, r io.Reader) (wordpress.Media, error) {
	if s.wp == nil {
		return wordpress.Media{}, ErrPublishingDisabled
	}
	return s.wp.UploadMedia(ctx, filename, r)
}

// SEO scores a headline and description.
func (s *Service) SEO(req SEORequest) SEOReport { return CheckSEO(req) }

func (s *Service) emit(ctx context.Context, typ string, a domain.StoredArticle) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, publishers.NewEvent(typ, a)); err != nil {
		s.log.WarnObj("article event not delivered", "newsroom_event_failed", map[string]any{
			"type":  typ,
			"id":    a.ID,
			"error": err.Error(),
		})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
