package newsroom

import (
	"strings"
	"testing"
)

func TestCheckSEOPerfectScore(t *testing.T) {
	t.Parallel()

	report := CheckSEO(SEORequest{
		Headline:    "Sensex climbs 600 points as bank stocks lead the rally",
		Description: "<p>" + strings.Repeat("Sensex gains. ", 10) + "</p>",
		Keyword:     "SENSEX",
	})
	if report.Score != 100 || len(report.Suggestions) != 0 {
		t.Fatalf("expected perfect score, got %+v", report)
	}
	if report.Checks.DescLength != 139 {
		t.Fatalf("expected html stripped length 139, got %d", report.Checks.DescLength)
	}
}

func TestCheckSEONoKeyword(t *testing.T) {
	t.Parallel()

	report := CheckSEO(SEORequest{Headline: "Short", Description: "tiny"})
	if report.Score != 0 {
		t.Fatalf("expected zero score, got %d", report.Score)
	}
	want := []string{
		"Title should be 40-70 characters.",
		"Description should be 120-180 characters.",
		"Keyword missing in title.",
		"Keyword missing in description.",
	}
	if strings.Join(report.Suggestions, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected suggestions %v", report.Suggestions)
	}
	if report.Checks.HasKeywordInTitle || report.Checks.HasKeywordInDesc {
		t.Fatalf("keyword checks must be false without a keyword")
	}
}
