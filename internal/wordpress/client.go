package wordpress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"

	"github.com/go-resty/resty/v2"
)

const (
	defaultCategoryID = 615
	excerptRunes      = 200
	mediaSearchLimit  = 100
)

// DefaultCategoryIDs maps stored categories to WordPress category ids.
var DefaultCategoryIDs = map[string]int{"market": defaultCategoryID}

// Config holds the site location and application password credentials.
type Config struct {
	BaseURL     string
	Username    string
	AppPassword string
	Categories  map[string]int
	Timeout     time.Duration
}

// Post is the subset of a created WordPress post the harvester keeps.
type Post struct {
	ID     int    `json:"id"`
	Link   string `json:"link"`
	Status string `json:"status"`
}

// Media is an item of the WordPress media library.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

type postRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Status        string `json:"status"`
	Categories    []int  `json:"categories"`
	Excerpt       string `json:"excerpt"`
	FeaturedMedia int    `json:"featured_media,omitempty"`
}

// Client talks to the WordPress REST API under /wp-json/wp/v2.
type Client struct {
	http       *resty.Client
	categories map[string]int
	log        logger.Logger
}

// NewClient validates cfg and builds a client with basic auth.
func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("wordpress base url is empty")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("wordpress base url: %w", err)
	}
	if cfg.Username == "" || cfg.AppPassword == "" {
		return nil, errors.New("wordpress credentials are not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategoryIDs
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	hc := resty.New().
		SetBaseURL(base+"/wp-json/wp/v2").
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.Username, cfg.AppPassword).
		SetHeader("Accept", "application/json")

	return &Client{http: hc, categories: cfg.Categories, log: log}, nil
}

// CategoryID maps a stored category, falling back to the market id.
func (c *Client) CategoryID(category string) int {
	if id, ok := c.categories[strings.ToLower(strings.TrimSpace(category))]; ok {
		return id
	}
	if id, ok := c.categories["market"]; ok {
		return id
	}
	return defaultCategoryID
}

// Publish creates a live post for the article. The image is inlined at the top
// of the content and, when it already lives in the media library, also set as
// the featured image.
func (c *Client) Publish(ctx context.Context, a domain.StoredArticle) (Post, error) {
	req := postRequest{
		Title:      firstNonEmpty(a.Headline, a.Title),
		Content:    fmt.Sprintf("<img src='%s' style='max-width:100%%;height:auto' /><br/>%s", a.Image, a.Description),
		Status:     "publish",
		Categories: []int{c.CategoryID(a.Category)},
		Excerpt:    excerpt(a.Description),
	}

	if id, ok, err := c.FindMediaID(ctx, a.Image); err != nil {
		c.log.WarnObj("featured media lookup failed", "wordpress_media_lookup_failed", map[string]any{
			"image": a.Image,
			"error": err.Error(),
		})
	} else if ok {
		req.FeaturedMedia = id
	}

	var post Post
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&post).
		Post("/posts")
	if err != nil {
		return Post{}, fmt.Errorf("wordpress create post: %w", err)
	}
	if resp.IsError() {
		return Post{}, fmt.Errorf("wordpress create post returned status %d body: %s", resp.StatusCode(), snippet(resp.Body()))
	}

	c.log.InfoObj("article published to wordpress", "wordpress_post_created", map[string]any{
		"post_id": post.ID,
		"url":     a.URL,
	})
	return post, nil
}

// FindMediaID looks up an image hosted under /wp-content/ in the media library
// by file name and requires an exact source_url match.
func (c *Client) FindMediaID(ctx context.Context, imageURL string) (int, bool, error) {
	if !strings.Contains(imageURL, "/wp-content/") {
		return 0, false, nil
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return 0, false, nil
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return 0, false, nil
	}

	var items []Media
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("per_page", fmt.Sprint(mediaSearchLimit)).
		SetQueryParam("search", name).
		SetResult(&items).
		Get("/media")
	if err != nil {
		return 0, false, fmt.Errorf("wordpress media search: %w", err)
	}
	if resp.IsError() {
		return 0, false, fmt.Errorf("wordpress media search returned status %d", resp.StatusCode())
	}

	for _, m := range items {
		if m.SourceURL == imageURL {
			return m.ID, true, nil
		}
	}
	return 0, false, nil
}

// UploadMedia sends a file to the media library.
func (c *Client) UploadMedia(ctx context.Context, filename string, r io.Reader) (Media, error) {
	if strings.TrimSpace(filename) == "" {
		return Media{}, errors.New("file name is empty")
	}

	var media Media
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		SetResult(&media).
		Post("/media")
	if err != nil {
		return Media{}, fmt.Errorf("wordpress upload media: %w", err)
	}
	if resp.IsError() {
		return Media{}, fmt.Errorf("wordpress upload media returned status %d body: %s", resp.StatusCode(), snippet(resp.Body()))
	}
	return media, nil
}

func excerpt(description string) string {
	if utf8.RuneCountInString(description) <= excerptRunes {
		return description
	}
	return string([]rune(description)[:excerptRunes])
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
