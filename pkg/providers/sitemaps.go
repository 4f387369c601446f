package providers

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/Adda-Baaj/arthik-khobor/internal/classify"
	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
)

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

type googleNewsSitemap struct {
	URLs []googleNewsURL `xml:"url"`
}

type googleNewsURL struct {
	Loc    string            `xml:"loc"`
	News   googleNewsDetail  `xml:"news"`
	Images []googleNewsImage `xml:"image"`
}

type sitemapIndex struct {
	Sitemaps []sitemapIndexEntry `xml:"sitemap"`
}

type sitemapIndexEntry struct {
	Loc string `xml:"loc"`
}

type googleNewsDetail struct {
	PublicationDate string `xml:"publication_date"`
	Keywords        string `xml:"keywords"`
	Title           string `xml:"title"`
}

type googleNewsImage struct {
	Loc   string `xml:"loc"`
	Title string `xml:"title"`
}

// parseGoogleNewsSitemap parses the XML data into a slice of googleNewsURL structs.
func parseGoogleNewsSitemap(data []byte) ([]googleNewsURL, error) {
	var sitemap googleNewsSitemap
	if err := xml.Unmarshal(data, &sitemap); err != nil {
		return nil, err
	}
	return sitemap.URLs, nil
}

// parseSitemapIndex parses an XML sitemap index file and returns the nested sitemap URLs.
func parseSitemapIndex(data []byte) ([]string, error) {
	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(index.Sitemaps))
	for _, entry := range index.Sitemaps {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

// buildStubsFromSitemap turns sitemap entries into classified stubs. The
// sitemap keywords take part in classification; the description starts as the
// title and is expected to be replaced by the detail step.
func buildStubsFromSitemap(cfg Provider, c *classify.Classifier, urls []googleNewsURL) []domain.Stub {
	stubs := make([]domain.Stub, 0, len(urls))
	for _, entry := range urls {
		loc := ResolveURL(entry.Loc, cfg.ResolveBase())
		title := CleanText(entry.News.Title)
		if loc == "" || title == "" {
			continue
		}

		keywords := strings.Join(parseKeywords(entry.News.Keywords), " ")
		category := c.Category(title)
		if category == "" {
			category = c.Category(keywords)
		}
		if category == "" {
			continue
		}

		stubs = append(stubs, domain.Stub{
			Title:           title,
			Description:     title,
			URL:             loc,
			Source:          cfg.ID,
			Author:          cfg.DefaultAuthor(),
			PublishedAtHint: parsePublicationDate(entry.News.PublicationDate),
			Image:           firstImageURL(entry.Images),
			Category:        category,
			Zone:            c.Zone(title + " " + keywords),
		})
		if cfg.MaxItems > 0 && len(stubs) >= cfg.MaxItems {
			break
		}
	}
	return stubs
}

// firstImageURL returns the first non-empty image URL from the list.
func firstImageURL(images []googleNewsImage) string {
	for _, img := range images {
		if loc := strings.TrimSpace(img.Loc); loc != "" {
			return loc
		}
	}
	return ""
}

// parseKeywords splits a comma-separated string of keywords into a slice of trimmed strings.
func parseKeywords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	if len(keywords) == 0 {
		return nil
	}
	return keywords
}

// parsePublicationDate normalizes the publication date to RFC3339 when possible.
func parsePublicationDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return raw
}
