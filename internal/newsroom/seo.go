package newsroom

import (
	"strings"
	"unicode/utf8"

	"github.com/Adda-Baaj/arthik-khobor/pkg/providers"
)

// SEORequest is the input of an SEO check. Description may hold HTML.
type SEORequest struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Keyword     string `json:"keyword"`
}

// SEOChecks are the individual results behind the score.
type SEOChecks struct {
	TitleLength       int  `json:"titleLength"`
	DescLength        int  `json:"descLength"`
	HasKeywordInTitle bool `json:"hasKeywordInTitle"`
	HasKeywordInDesc  bool `json:"hasKeywordInDesc"`
	TitleOK           bool `json:"titleOk"`
	DescOK            bool `json:"descOk"`
}

// SEOReport is a 0-100 score with one suggestion per failed check.
type SEOReport struct {
	Score       int       `json:"score"`
	Checks      SEOChecks `json:"checks"`
	Suggestions []string  `json:"suggestions"`
}

// CheckSEO scores a headline and description against length and keyword rules.
func CheckSEO(req SEORequest) SEOReport {
	plain := providers.PlainText(req.Description)
	keyword := strings.ToLower(strings.TrimSpace(req.Keyword))

	c := SEOChecks{
		TitleLength: utf8.RuneCountInString(req.Headline),
		DescLength:  utf8.RuneCountInString(plain),
	}
	if keyword != "" {
		c.HasKeywordInTitle = strings.Contains(strings.ToLower(req.Headline), keyword)
		c.HasKeywordInDesc = strings.Contains(strings.ToLower(plain), keyword)
	}
	c.TitleOK = c.TitleLength >= 40 && c.TitleLength <= 70
	c.DescOK = c.DescLength >= 120 && c.DescLength <= 180

	r := SEOReport{Checks: c, Suggestions: []string{}}
	if c.TitleOK {
		r.Score += 30
	} else {
		r.Suggestions = append(r.Suggestions, "Title should be 40-70 characters.")
	}
	if c.DescOK {
		r.Score += 30
	} else {
		r.Suggestions = append(r.Suggestions, "Description should be 120-180 characters.")
	}
	if c.HasKeywordInTitle {
		r.Score += 20
	} else {
		r.Suggestions = append(r.Suggestions, "Keyword missing in title.")
	}
	if c.HasKeywordInDesc {
		r.Score += 20
	} else {
		r.Suggestions = append(r.Suggestions, "Keyword missing in description.")
	}
	return r
}
