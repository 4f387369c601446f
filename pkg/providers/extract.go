package providers

import (
	"strings"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

var (
	defaultTitleSelectors       = []string{"h1", "h2", "a"}
	defaultDescriptionSelectors = []string{"p", "span"}
	imageAttrs                  = []string{"src", "data-src", "data-original", "data-lazy-src"}
)

// ExtractStubs applies the provider's listing configuration to a parsed page.
// Stubs come back in document order, de-duplicated by URL. Classification is
// left to the caller.
func ExtractStubs(doc *goquery.Document, cfg Provider) []domain.Stub {
	if doc == nil {
		return nil
	}

	listing := cfg.Listing
	titleSels := listing.TitleSelectors
	if len(titleSels) == 0 {
		titleSels = defaultTitleSelectors
	}
	descSels := listing.DescriptionSelectors
	if len(descSels) == 0 {
		descSels = defaultDescriptionSelectors
	}
	linkSel := firstNonEmpty(listing.LinkSelector, "a")
	base := cfg.ResolveBase()

	seen := make(map[string]struct{})
	var stubs []domain.Stub

	doc.Find(listing.Container).EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if cfg.MaxItems > 0 && len(stubs) >= cfg.MaxItems {
			return false
		}

		title := firstMatchText(node, titleSels)
		if title == "" {
			return true
		}

		description := firstMatchText(node, descSels)
		if description == "" {
			if listing.RequireDescription {
				return true
			}
			description = title
		}

		link := ResolveURL(linkHref(node, linkSel), base)
		if link == "" {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		stub := domain.Stub{
			Title:       title,
			Description: description,
			URL:         link,
			Source:      cfg.ID,
			Author:      firstNonEmpty(selectionText(node, listing.AuthorSelector), cfg.DefaultAuthor()),
			Image:       ResolveURL(imageSrc(node, listing.ImageSelector), base),
		}
		if listing.TimeSelector != "" {
			stub.PublishedAtHint = timeHint(node.Find(listing.TimeSelector).First(), listing.TimeAttr)
		}
		stubs = append(stubs, stub)
		return true
	})

	return stubs
}

// firstMatchText returns the text of the first selector that yields non-empty text.
func firstMatchText(node *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if txt := selectionText(node, sel); txt != "" {
			return txt
		}
	}
	return ""
}

func selectionText(node *goquery.Selection, sel string) string {
	if strings.TrimSpace(sel) == "" {
		return ""
	}
	var out string
	node.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = CleanText(s.Text())
		return out == ""
	})
	return out
}

func linkHref(node *goquery.Selection, sel string) string {
	if goquery.NodeName(node) == "a" {
		if href, ok := node.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return href
		}
	}
	var href string
	node.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		a := s
		if goquery.NodeName(s) != "a" {
			a = s.Find("a").First()
		}
		if v, ok := a.Attr("href"); ok && strings.TrimSpace(v) != "" {
			href = v
			return false
		}
		return true
	})
	return href
}

func imageSrc(node *goquery.Selection, sel string) string {
	img := node.Find(firstNonEmpty(sel, "img")).First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range imageAttrs {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(strings.TrimSpace(v), "data:") {
			return v
		}
	}
	return ""
}

func timeHint(s *goquery.Selection, attr string) string {
	if s.Length() == 0 {
		return ""
	}
	for _, a := range []string{attr, "datetime", "data-expandedtime"} {
		if a == "" {
			continue
		}
		if v, ok := s.Attr(a); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return CleanText(s.Text())
}
