package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Adda-Baaj/arthik-khobor/internal/domain"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
	"github.com/Adda-Baaj/arthik-khobor/internal/newsroom"
	"github.com/Adda-Baaj/arthik-khobor/internal/pipeline"
	"github.com/Adda-Baaj/arthik-khobor/internal/wordpress"
)

// Scraper runs the ingestion pipeline for one source.
type Scraper interface {
	Run(ctx context.Context, sourceID string) (pipeline.Result, error)
	Sources() []string
}

// Newsroom is the editorial surface behind /api/news.
type Newsroom interface {
	List(ctx context.Context) ([]domain.StoredArticle, error)
	CreateManual(ctx context.Context, in newsroom.ManualArticle) (domain.StoredArticle, error)
	Patch(ctx context.Context, id string, p domain.ArticlePatch) (domain.StoredArticle, error)
	Delete(ctx context.Context, id string) error
	Publish(ctx context.Context, id string) (newsroom.PublishResult, error)
	UploadMedia(ctx context.Context, filename string, r io.Reader) (wordpress.Media, error)
	SEO(req newsroom.SEORequest) newsroom.SEOReport
}

type Handler struct {
	scraper  Scraper
	newsroom Newsroom
	log      logger.Logger
}

func NewHandler(scraper Scraper, nr Newsroom, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Handler{scraper: scraper, newsroom: nr, log: log}
}

// NewRouter returns a gin engine with recovery, request logging and every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.log))
	RegisterRoutes(r, h)
	return r
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.POST("/scrape", h.Scrape)
		api.GET("/sources", h.Sources)
		api.GET("/news", h.ListNews)
		api.POST("/news", h.CreateNews)
		api.PATCH("/news", h.PatchNews)
		api.DELETE("/news", h.DeleteNews)
		api.POST("/news/seo", h.SEO)
		api.POST("/publish", h.Publish)
		api.POST("/upload-media", h.UploadMedia)
	}
}

// Health: GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type scrapeRequest struct {
	Source string `json:"source"`
}

// Scrape: POST /api/scrape
// Body: {"source": "moneycontrol"}
// Store failures on single articles only reduce the count.
func (h *Handler) Scrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing source"})
		return
	}

	res, err := h.scraper.Run(c.Request.Context(), req.Source)
	if err != nil {
		var fetchErr *domain.AdapterFetchError
		if errors.Is(err, domain.ErrInvalidSource) || errors.As(err, &fetchErr) {
			h.fail(c, err)
			return
		}
		h.log.WarnObj("scrape finished with store errors", "api_scrape_partial", map[string]any{
			"source": req.Source,
			"stored": res.Count,
			"error":  err.Error(),
		})
	}
	c.JSON(http.StatusOK, res)
}

// Sources: GET /api/sources
func (h *Handler) Sources(c *gin.Context) {
	ids := h.scraper.Sources()
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(ids)},
		"data": ids,
	})
}

// ListNews: GET /api/news
func (h *Handler) ListNews(c *gin.Context) {
	articles, err := h.newsroom.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, articles)
}

// CreateNews: POST /api/news
func (h *Handler) CreateNews(c *gin.Context) {
	var in newsroom.ManualArticle
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	a, err := h.newsroom.CreateManual(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

type patchRequest struct {
	ID string `json:"_id"`
	domain.ArticlePatch
}

// PatchNews: PATCH /api/news
// Body: {"_id": "...", "headline": "...", ...}
func (h *Handler) PatchNews(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing _id"})
		return
	}
	a, err := h.newsroom.Patch(c.Request.Context(), req.ID, req.ArticlePatch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type deleteRequest struct {
	ID string `json:"_id"`
}

// DeleteNews: DELETE /api/news
// Body: {"_id": "..."}
func (h *Handler) DeleteNews(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing _id"})
		return
	}
	if err := h.newsroom.Delete(c.Request.Context(), req.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SEO: POST /api/news/seo
func (h *Handler) SEO(c *gin.Context) {
	var req newsroom.SEORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.newsroom.SEO(req))
}

type publishRequest struct {
	ID string `json:"id"`
}

// Publish: POST /api/publish
// Body: {"id": "..."}
func (h *Handler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return
	}
	res, err := h.newsroom.Publish(c.Request.Context(), req.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    res,
	})
}

// UploadMedia: POST /api/upload-media (multipart field "file")
func (h *Handler) UploadMedia(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open upload: " + err.Error()})
		return
	}
	defer f.Close()

	media, err := h.newsroom.UploadMedia(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": media.ID, "url": media.SourceURL})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorObj("request failed", "api_request_failed", map[string]any{
			"path":   c.FullPath(),
			"status": status,
			"error":  err.Error(),
		})
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var fetchErr *domain.AdapterFetchError
	switch {
	case errors.Is(err, domain.ErrInvalidSource), errors.Is(err, newsroom.ErrInvalidArticle):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, newsroom.ErrDuplicateURL):
		return http.StatusConflict
	case errors.Is(err, newsroom.ErrPublishingDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
