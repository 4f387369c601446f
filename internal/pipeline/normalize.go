package pipeline

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
)

const (
	// CreatedDateLayout is DD-MM-YYYY-hh:mm.
	CreatedDateLayout = "02-01-2006-15:04"

	slugMaxRunes = 25
)

// IST is the zone createddate values are written in.
var IST = loadIST()

func loadIST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*60*60+30*60)
}

// Slugify takes the first 25 runes of s, lowercases them, turns whitespace
// runs into "-" and drops everything outside [a-z0-9-].
func Slugify(s string) string { return SlugifyN(s, slugMaxRunes) }

// SlugifyN is Slugify with a custom rune limit.
func SlugifyN(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > n {
		s = string([]rune(s)[:n])
	}

	var b strings.Builder
	inSpace := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}

// RescaleSentiment maps a model score in -5..5 onto the stored 0..5 band.
// It must be applied once; values already in 0..5 would shift upwards.
func RescaleSentiment(s float64) int {
	if math.IsNaN(s) {
		s = 0
	}
	s = math.Max(-5, math.Min(5, s))
	return int(math.Floor(((s+5)/10)*5 + 0.5))
}

// WeightageFor derives a label from a rescaled sentiment by its distance from
// neutral: the extremes are High, the next step Moderate, the middle Low.
func WeightageFor(sentiment int) domain.Weightage {
	switch sentiment {
	case 0, 5:
		return domain.WeightageHigh
	case 1, 4:
		return domain.WeightageModerate
	default:
		return domain.WeightageLow
	}
}

// createdDate keeps a well formed model value and otherwise formats the
// publication hint, or now, in IST.
func createdDate(model, hint string, now time.Time) string {
	if _, err := time.ParseInLocation(CreatedDateLayout, strings.TrimSpace(model), IST); err == nil {
		return strings.TrimSpace(model)
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(hint)); err == nil {
		return t.In(IST).Format(CreatedDateLayout)
	}
	return now.In(IST).Format(CreatedDateLayout)
}

// toStored builds the record persisted for a rewritten article. Sentiment is
// rescaled here and nowhere else.
func toStored(a domain.RewrittenArticle, original domain.Stub, now time.Time) domain.StoredArticle {
	out := domain.StoredArticle{
		Headline:      strings.TrimSpace(a.Headline),
		Title:         strings.TrimSpace(original.Title),
		Author:        a.Author,
		Description:   a.Description,
		ImpactSummary: a.ImpactSummary,
		Image:         a.Image,
		Category:      a.Category,
		Source:        a.Source,
		URL:           a.URL,
		Zone:          a.Zone,
		Weightage:     a.Weightage,
		CreatedDate:   createdDate(a.CreatedDate, a.PublishedAtHint, now),
		Slug:          Slugify(a.Headline),
	}
	if out.Slug == "" {
		out.Slug = Slugify(original.Title)
	}
	if out.Source == "" {
		out.Source = original.Source
	}
	if !out.Zone.Valid() {
		out.Zone = domain.ZoneWorld
	}
	if a.Sentiment != nil {
		v := RescaleSentiment(*a.Sentiment)
		out.Sentiment = &v
		if !out.Weightage.Valid() {
			out.Weightage = WeightageFor(v)
		}
	}
	if !out.Weightage.Valid() {
		out.Weightage = ""
	}
	return out
}
