package domain

// Domain contains core models and interfaces.

// Zone is the coarse geographic classification of an article.
type Zone string

const (
	ZoneIndia Zone = "india"
	ZoneWorld Zone = "world"
)

// Valid reports whether z is one of the known zones.
func (z Zone) Valid() bool { return z == ZoneIndia || z == ZoneWorld }

// Weightage is the market impact label attached to an article.
type Weightage string

const (
	WeightageHigh     Weightage = "High"
	WeightageModerate Weightage = "Moderate"
	WeightageLow      Weightage = "Low"
)

// Valid reports whether w is one of the known labels.
func (w Weightage) Valid() bool {
	return w == WeightageHigh || w == WeightageModerate || w == WeightageLow
}

// Stub is an in-flight article produced by a source adapter.
type Stub struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	URL             string `json:"url"`
	Source          string `json:"source"`
	Author          string `json:"author,omitempty"`
	PublishedAtHint string `json:"publishedAt,omitempty"`
	Image           string `json:"image"`
	Category        string `json:"category,omitempty"`
	Zone            Zone   `json:"zone"`
}

// RewrittenArticle is the output of the rewrite step, before persistence.
// Sentiment holds the raw model score (-5..5) and is rescaled exactly once
// when converted into a StoredArticle.
type RewrittenArticle struct {
	Headline        string
	Description     string
	ImpactSummary   string
	Sentiment       *float64
	Weightage       Weightage
	CreatedDate     string
	Author          string
	Slug            string
	URL             string
	Image           string
	Category        string
	Zone            Zone
	Source          string
	PublishedAtHint string
	Rewritten       bool
}

// StoredArticle is the persisted, authoritative article record.
type StoredArticle struct {
	ID            string    `json:"_id"`
	Headline      string    `json:"headline"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Time          string    `json:"time"`
	Description   string    `json:"description"`
	ImpactSummary string    `json:"impactSummary,omitempty"`
	Image         string    `json:"image"`
	Category      string    `json:"category"`
	Source        string    `json:"source"`
	URL           string    `json:"url"`
	Published     bool      `json:"published"`
	Zone          Zone      `json:"zone"`
	Sentiment     *int      `json:"sentiment,omitempty"`
	Weightage     Weightage `json:"weightage,omitempty"`
	CreatedDate   string    `json:"createddate"`
	Slug          string    `json:"slug,omitempty"`
}

// ArticlePatch carries a partial editorial update. Nil fields are left untouched.
type ArticlePatch struct {
	Headline      *string    `json:"headline,omitempty"`
	Title         *string    `json:"title,omitempty"`
	Author        *string    `json:"author,omitempty"`
	Description   *string    `json:"description,omitempty"`
	ImpactSummary *string    `json:"impactSummary,omitempty"`
	Image         *string    `json:"image,omitempty"`
	Category      *string    `json:"category,omitempty"`
	Source        *string    `json:"source,omitempty"`
	Published     *bool      `json:"published,omitempty"`
	Zone          *Zone      `json:"zone,omitempty"`
	Sentiment     *int       `json:"sentiment,omitempty"`
	Weightage     *Weightage `json:"weightage,omitempty"`
	CreatedDate   *string    `json:"createddate,omitempty"`
	Slug          *string    `json:"slug,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ArticlePatch) Empty() bool {
	return p.Headline == nil && p.Title == nil && p.Author == nil && p.Description == nil &&
		p.ImpactSummary == nil && p.Image == nil && p.Category == nil && p.Source == nil &&
		p.Published == nil && p.Zone == nil && p.Sentiment == nil && p.Weightage == nil &&
		p.CreatedDate == nil && p.Slug == nil
}

// Apply copies the non-nil patch fields onto a.
func (p ArticlePatch) Apply(a *StoredArticle) {
	if p.Headline != nil {
		a.Headline = *p.Headline
	}
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Author != nil {
		a.Author = *p.Author
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.ImpactSummary != nil {
		a.ImpactSummary = *p.ImpactSummary
	}
	if p.Image != nil {
		a.Image = *p.Image
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Source != nil {
		a.Source = *p.Source
	}
	if p.Published != nil {
		a.Published = *p.Published
	}
	if p.Zone != nil {
		a.Zone = *p.Zone
	}
	if p.Sentiment != nil {
		v := *p.Sentiment
		a.Sentiment = &v
	}
	if p.Weightage != nil {
		a.Weightage = *p.Weightage
	}
	if p.CreatedDate != nil {
		a.CreatedDate = *p.CreatedDate
	}
	if p.Slug != nil {
		a.Slug = *p.Slug
	}
}
