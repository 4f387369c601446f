package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/arthik-khobor/internal/classify"
	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
)

// DefaultFallbackAuthor tags articles that could not be rewritten.
const DefaultFallbackAuthor = "Harshit Sharma"

// ServiceError describes a failed or unusable model response. It is logged
// and never returned to callers of the Rewriter.
type ServiceError struct {
	Stage string
	Err   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("rewrite %s: %v", e.Stage, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

var (
	errMissingFields = errors.New("response lacks headline or description")
	errWrongShape    = errors.New("response has the wrong json shape")
)

// Options configures a Rewriter.
type Options struct {
	FallbackAuthor string
	Classifier     *classify.Classifier
}

// Rewriter turns stubs into rewritten articles through a Generator. It never
// fails: errors resolve to the original stub tagged with the fallback author.
// Only a batch reply of the wrong JSON shape yields an empty list.
type Rewriter struct {
	gen        Generator
	author     string
	classifier *classify.Classifier
	categories []string
	log        logger.Logger
}

// New creates a Rewriter. A nil generator makes every call fall back.
func New(gen Generator, opts Options, log logger.Logger) *Rewriter {
	if log == nil {
		log = logger.NopLogger{}
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.Default()
	}
	author := strings.TrimSpace(opts.FallbackAuthor)
	if author == "" {
		author = DefaultFallbackAuthor
	}
	return &Rewriter{
		gen:        gen,
		author:     author,
		classifier: opts.Classifier,
		categories: opts.Classifier.Keywords(),
		log:        log,
	}
}

// Fallback returns the stub unchanged, tagged with the fallback author.
func (r *Rewriter) Fallback(s domain.Stub) domain.RewrittenArticle {
	return domain.RewrittenArticle{
		Headline:        s.Title,
		Description:     s.Description,
		Author:          r.author,
		URL:             s.URL,
		Image:           s.Image,
		Category:        s.Category,
		Zone:            s.Zone,
		Source:          s.Source,
		PublishedAtHint: s.PublishedAtHint,
	}
}

// RewriteOne rewrites a single stub.
func (r *Rewriter) RewriteOne(ctx context.Context, s domain.Stub) domain.RewrittenArticle {
	raw, err := r.call(ctx, func() (string, error) { return r.singlePrompt(s) })
	if err != nil {
		r.logFailure(s.Source, 1, err)
		return r.Fallback(s)
	}

	var obj modelArticle
	if err := decodeShape(raw, '{', &obj); err != nil {
		r.logFailure(s.Source, 1, err)
		return r.Fallback(s)
	}
	if !obj.complete() {
		r.logFailure(s.Source, 1, &ServiceError{Stage: "validate", Err: errMissingFields})
		return r.Fallback(s)
	}
	return r.merge(s, obj)
}

// RewriteBatch rewrites stubs with one model call and returns results in input
// order. Output items are matched to inputs by URL first and by position
// second. A stub without a usable item falls back to the original, as does the
// whole batch when the call fails or the response holds no JSON. A response of
// the wrong shape (an object instead of an array) yields an empty list.
func (r *Rewriter) RewriteBatch(ctx context.Context, stubs []domain.Stub) []domain.RewrittenArticle {
	if len(stubs) == 0 {
		return []domain.RewrittenArticle{}
	}
	source := stubs[0].Source

	raw, err := r.call(ctx, func() (string, error) { return r.batchPrompt(stubs) })
	if err != nil {
		r.logFailure(source, len(stubs), err)
		return r.fallbackAll(stubs)
	}

	var items []modelArticle
	if err := decodeShape(raw, '[', &items); err != nil {
		r.logFailure(source, len(stubs), err)
		if errors.Is(err, errWrongShape) {
			return []domain.RewrittenArticle{}
		}
		return r.fallbackAll(stubs)
	}

	matched := matchItems(stubs, items)
	out := make([]domain.RewrittenArticle, 0, len(stubs))
	fallbacks := 0
	for i, s := range stubs {
		if m := matched[i]; m != nil && m.complete() {
			out = append(out, r.merge(s, *m))
			continue
		}
		fallbacks++
		out = append(out, r.Fallback(s))
	}

	if fallbacks > 0 {
		r.log.WarnObj("batch rewrite incomplete, originals kept", "rewrite_batch_partial", map[string]any{
			"source":    source,
			"inputs":    len(stubs),
			"returned":  len(items),
			"fallbacks": fallbacks,
		})
	}
	return out
}

func (r *Rewriter) fallbackAll(stubs []domain.Stub) []domain.RewrittenArticle {
	out := make([]domain.RewrittenArticle, 0, len(stubs))
	for _, s := range stubs {
		out = append(out, r.Fallback(s))
	}
	return out
}

// matchItems pairs model items with stubs, by URL and then by position for
// items whose URL matched nothing.
func matchItems(stubs []domain.Stub, items []modelArticle) []*modelArticle {
	byURL := make(map[string]int, len(stubs))
	for i, s := range stubs {
		byURL[s.URL] = i
	}

	matched := make([]*modelArticle, len(stubs))
	var leftovers []int
	for pos := range items {
		idx, ok := byURL[strings.TrimSpace(items[pos].URL)]
		if ok && matched[idx] == nil {
			matched[idx] = &items[pos]
			continue
		}
		leftovers = append(leftovers, pos)
	}
	for _, pos := range leftovers {
		if pos < len(stubs) && matched[pos] == nil {
			matched[pos] = &items[pos]
		}
	}
	return matched
}

func (r *Rewriter) call(ctx context.Context, build func() (string, error)) (string, error) {
	if r.gen == nil {
		return "", &ServiceError{Stage: "generate", Err: errors.New("no generator configured")}
	}
	prompt, err := build()
	if err != nil {
		return "", &ServiceError{Stage: "prompt", Err: err}
	}
	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return "", &ServiceError{Stage: "generate", Err: err}
	}
	return text, nil
}

func (r *Rewriter) logFailure(source string, count int, err error) {
	r.log.WarnObj("rewrite failed, using original", "rewrite_fallback", map[string]any{
		"source": source,
		"count":  count,
		"error":  err.Error(),
	})
}

// merge overlays model output on the stub. URL and image always come from the
// stub; category and zone only when the model returned an allowed value.
func (r *Rewriter) merge(s domain.Stub, m modelArticle) domain.RewrittenArticle {
	out := domain.RewrittenArticle{
		Headline:        m.headline(),
		Description:     strings.TrimSpace(m.Description),
		ImpactSummary:   strings.TrimSpace(m.ImpactSummary),
		Weightage:       domain.Weightage(strings.TrimSpace(m.Weightage)),
		CreatedDate:     strings.TrimSpace(m.CreatedDate),
		Author:          r.author,
		Slug:            strings.TrimSpace(m.Slug),
		URL:             s.URL,
		Image:           s.Image,
		Category:        s.Category,
		Zone:            s.Zone,
		Source:          s.Source,
		PublishedAtHint: s.PublishedAtHint,
		Rewritten:       true,
	}
	if m.Sentiment != nil {
		v := float64(*m.Sentiment)
		out.Sentiment = &v
	}
	if cat := strings.ToLower(strings.TrimSpace(m.Category)); cat != "" && r.classifier.Allowed(cat) {
		out.Category = cat
	}
	if z := domain.Zone(strings.ToLower(strings.TrimSpace(m.Zone))); z.Valid() {
		out.Zone = z
	}
	if !out.Weightage.Valid() {
		out.Weightage = ""
	}
	return out
}

// decodeShape extracts the JSON span from text and decodes it into v, which
// must be an object when open is '{' and an array when open is '['.
func decodeShape(text string, open byte, v any) error {
	span, err := ExtractJSON(text)
	if err != nil {
		return &ServiceError{Stage: "extract", Err: err}
	}
	if span[0] != open {
		return &ServiceError{Stage: "decode", Err: errWrongShape}
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return &ServiceError{Stage: "decode", Err: err}
	}
	return nil
}

// modelArticle is the tolerant shape of one article in a model response.
type modelArticle struct {
	Headline      string      `json:"headline"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	ImpactSummary string      `json:"impactSummary"`
	Sentiment     *flexNumber `json:"sentiment"`
	Weightage     string      `json:"weightage"`
	Category      string      `json:"category"`
	Zone          string      `json:"zone"`
	CreatedDate   string      `json:"createddate"`
	CreatedDateCC string      `json:"createdDate"`
	Slug          string      `json:"slug"`
	URL           string      `json:"url"`
}

func (m *modelArticle) UnmarshalJSON(data []byte) error {
	type plain modelArticle
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.CreatedDate == "" {
		p.CreatedDate = p.CreatedDateCC
	}
	*m = modelArticle(p)
	return nil
}

func (m modelArticle) headline() string {
	return firstNonEmpty(m.Headline, m.Title)
}

func (m modelArticle) complete() bool {
	return m.headline() != "" && strings.TrimSpace(m.Description) != ""
}

// flexNumber accepts a JSON number or a numeric string.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("sentiment %q is not a number", s)
		}
		*f = flexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexNumber(v)
	return nil
}
