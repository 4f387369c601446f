// Package classify maps free text to a finance category and a geographic zone.
package classify

import (
	"strings"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
)

// DefaultKeywords is the category priority list. The first keyword found in
// the text wins, so compound terms sit ahead of the words they contain
// (banknifty before nifty, share market before market, rbi policy before rbi).
var DefaultKeywords = []string{
	"stocks",
	"banknifty",
	"nifty",
	"sensex",
	"ipo",
	"dividend",
	"share market",
	"market",
	"investment",
	"mutual fund",
	"commodity",
	"futures",
	"options",
	"bond",
	"interest rate",
	"inflation",
	"bank",
	"sebi",
	"rbi policy",
	"rbi",
	"fintech",
	"startup",
	"business",
	"economy",
	"gdp",
	"recession",
	"fiscal",
	"revenue",
	"profit",
	"merger",
	"acquisition",
	"funding",
	"valuation",
	"finance",
	"fii",
	"dii",
	"gst",
	"monetary policy",
	"rupee",
	"dollar",
	"forex",
	"trade",
	"budget",
	"taxation",
	"corporate",
	"msme",
	"nbfc",
	"insurance",
	"infrastructure",
	"disinvestment",
	"psu",
}

// DefaultIndiaTokens flip the zone to india when any of them occurs.
var DefaultIndiaTokens = []string{"india", "nifty", "sensex", "bse", "nse", "rupee", "rbi"}

// Classifier is a pure keyword matcher. It is safe for concurrent use.
type Classifier struct {
	keywords    []string
	indiaTokens []string
}

// New builds a classifier from an ordered keyword list and the india token set.
// Empty inputs fall back to the defaults.
func New(keywords, indiaTokens []string) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if len(indiaTokens) == 0 {
		indiaTokens = DefaultIndiaTokens
	}
	return &Classifier{
		keywords:    normalize(keywords),
		indiaTokens: normalize(indiaTokens),
	}
}

var defaultClassifier = New(nil, nil)

// Default returns the shared classifier built from the default lists.
func Default() *Classifier { return defaultClassifier }

// Keywords returns a copy of the priority list.
func (c *Classifier) Keywords() []string {
	out := make([]string, len(c.keywords))
	copy(out, c.keywords)
	return out
}

// Category returns the first keyword found in text, or "" when nothing matches.
func (c *Classifier) Category(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// Zone returns india when the text carries an India-identifying token, world otherwise.
func (c *Classifier) Zone(text string) domain.Zone {
	if text == "" {
		return domain.ZoneWorld
	}
	lower := strings.ToLower(text)
	for _, tok := range c.indiaTokens {
		if strings.Contains(lower, tok) {
			return domain.ZoneIndia
		}
	}
	return domain.ZoneWorld
}

// Stub tags the stub with category and zone. The title is tried before the
// description for the category; the zone looks at both.
func (c *Classifier) Stub(s domain.Stub) domain.Stub {
	s.Category = c.Category(s.Title)
	if s.Category == "" {
		s.Category = c.Category(s.Description)
	}
	s.Zone = c.Zone(s.Title + " " + s.Description)
	return s
}

// Allowed reports whether category is one of the classifier's keywords.
func (c *Classifier) Allowed(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, kw := range c.keywords {
		if kw == category {
			return true
		}
	}
	return false
}

// Category classifies text with the default classifier.
func Category(text string) string { return defaultClassifier.Category(text) }

// Zone classifies text with the default classifier.
func Zone(text string) domain.Zone { return defaultClassifier.Zone(text) }

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
