package rewrite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
)

const outputRules = `Rules for every article object:
- "headline": a new, unique and engaging headline between 50 and 110 characters.
- "description": a detailed, well structured rewrite between 300 and 500 words. Use <p> paragraphs and at most one <ul> list. No <html>, <body> or <h1> tags.
- "impactSummary": two sentences on what the news means for Indian investors.
- "sentiment": a number from -5 (very negative for markets) to 5 (very positive).
- "weightage": one of "High", "Moderate", "Low".
- "category": one of %s. Keep the original value when it is already one of these.
- "zone": "india" or "world".
- "createddate": the publication time as DD-MM-YYYY-hh:mm (24 hour, IST).
- "author": %q.
- "url": copy the original url exactly.
Answer with JSON only. Do not add any text before or after the JSON.`

type promptArticle struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	Category    string      `json:"category,omitempty"`
	Zone        domain.Zone `json:"zone,omitempty"`
	PublishedAt string      `json:"publishedAt,omitempty"`
}

func toPromptArticle(s domain.Stub) promptArticle {
	return promptArticle{
		Title:       s.Title,
		Description: s.Description,
		URL:         s.URL,
		Category:    s.Category,
		Zone:        s.Zone,
		PublishedAt: s.PublishedAtHint,
	}
}

func (r *Rewriter) rules() string {
	quoted := make([]string, 0, len(r.categories))
	for _, c := range r.categories {
		quoted = append(quoted, fmt.Sprintf("%q", c))
	}
	return fmt.Sprintf(outputRules, strings.Join(quoted, ", "), r.author)
}

func (r *Rewriter) singlePrompt(s domain.Stub) (string, error) {
	payload, err := json.Marshal(toPromptArticle(s))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("You are a professional financial news editor. Rewrite the following news article.\n")
	sb.WriteString("Output exactly one JSON object.\n\n")
	sb.WriteString(r.rules())
	sb.WriteString("\n\nORIGINAL ARTICLE:\n")
	sb.Write(payload)
	return sb.String(), nil
}

func (r *Rewriter) batchPrompt(stubs []domain.Stub) (string, error) {
	items := make([]promptArticle, 0, len(stubs))
	for _, s := range stubs {
		items = append(items, toPromptArticle(s))
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("You are a professional financial news editor. Rewrite each of the following news articles.\n")
	fmt.Fprintf(&sb, "Output exactly one JSON array with %d objects, one per input article, in the same order.\n\n", len(stubs))
	sb.WriteString(r.rules())
	sb.WriteString("\n\nORIGINAL ARTICLES:\n")
	sb.Write(payload)
	return sb.String(), nil
}
