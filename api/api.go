// Package api exposes the parsers, the transformer and the stores over
// HTTP.
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pevans/pressfeed/anf"
	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/output"
	"github.com/pevans/pressfeed/parsers"
	"github.com/pevans/pressfeed/scraper"
	"github.com/pevans/pressfeed/state"
)

// Limits for request bodies and list pagination.
const (
	MaxBodyBytes = 10 << 20
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Server is the HTTP API server. Only the registry is required; routes
// backed by an absent store or scraper answer 503.
type Server struct {
	registry *parsers.Registry
	scraper  *scraper.Scraper
	state    *state.Store
	output   *output.Store
	logger   zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithScraper lets parse and discover requests fetch a URL when no HTML
// is supplied.
func WithScraper(s *scraper.Scraper) Option {
	return func(srv *Server) {
		srv.scraper = s
	}
}

// WithStateStore enables GET /api/v1/tracked.
func WithStateStore(s *state.Store) Option {
	return func(srv *Server) {
		srv.state = s
	}
}

// WithOutputStore enables the /api/v1/articles routes.
func WithOutputStore(s *output.Store) Option {
	return func(srv *Server) {
		srv.output = s
	}
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(srv *Server) {
		srv.logger = l
	}
}

// NewServer creates a new API server.
func NewServer(registry *parsers.Registry, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetupRouter configures the Gin router with all routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.GET("/parsers", s.HandleListParsers)
	api.POST("/parse", s.HandleParse)
	api.POST("/discover", s.HandleDiscover)
	api.POST("/validate", s.HandleValidate)
	api.POST("/transform", s.HandleTransform)
	api.GET("/articles", s.HandleListArticles)
	api.GET("/articles/:identifier", s.HandleGetArticle)
	api.DELETE("/articles/:identifier", s.HandleDeleteArticle)
	api.GET("/tracked", s.HandleListTracked)

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// ParserInfo describes one registered parser.
type ParserInfo struct {
	Name string `json:"name"`
	CMS  string `json:"cms"`
}

// ListParsersResponse represents the response for GET /api/v1/parsers.
type ListParsersResponse struct {
	Parsers    []ParserInfo        `json:"parsers"`
	Publishers []parsers.Publisher `json:"publishers"`
}

// PageRequest is the body of POST /api/v1/parse and /api/v1/discover.
// When HTML is empty the server fetches URL, if it has a scraper.
type PageRequest struct {
	URL  string `json:"url" binding:"required"`
	HTML string `json:"html"`
	CMS  string `json:"cms"`
}

// DiscoverResponse represents the response for POST /api/v1/discover.
type DiscoverResponse struct {
	Articles []article.DiscoveredArticle `json:"articles"`
	Total    int                         `json:"total"`
}

// ValidateResponse represents a successful POST /api/v1/validate.
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// TransformResponse represents a successful POST /api/v1/transform.
type TransformResponse struct {
	Document *anf.Document `json:"document"`
	Warnings []anf.Warning `json:"warnings"`
}

// ListArticlesResponse represents the response for GET /api/v1/articles.
type ListArticlesResponse struct {
	Articles []output.Summary `json:"articles"`
	Total    int              `json:"total"`
	Errors   []string         `json:"errors,omitempty"`
}

// ListTrackedResponse represents the response for GET /api/v1/tracked.
type ListTrackedResponse struct {
	Records []state.Record `json:"records"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *Server) handleError(c *gin.Context, err error) {
	var (
		transformErr *anf.TransformError
		statusErr    *scraper.StatusError
	)

	switch {
	case errors.As(err, &transformErr):
		resp := errorResponse("invalid_document", err.Error())
		resp["warnings"] = transformErr.Warnings
		c.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(err, article.ErrInvalid):
		c.JSON(http.StatusUnprocessableEntity, errorResponse("invalid_article", err.Error()))
	case errors.Is(err, parsers.ErrStructure):
		c.JSON(http.StatusUnprocessableEntity, errorResponse("parse_error", err.Error()))
	case errors.Is(err, output.ErrBundleNotFound), errors.Is(err, state.ErrArticleNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, output.ErrInvalidIdentifier), errors.Is(err, state.ErrInvalidStatus),
		errors.Is(err, scraper.ErrUnsupportedScheme):
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
	case errors.As(err, &statusErr), errors.Is(err, scraper.ErrBodyTooLarge):
		c.JSON(http.StatusBadGateway, errorResponse("fetch_error", err.Error()))
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, errorResponse("unavailable", what+" is not configured"))
}

// HandleListParsers handles GET /api/v1/parsers.
func (s *Server) HandleListParsers(c *gin.Context) {
	registered := s.registry.Parsers()
	infos := make([]ParserInfo, 0, len(registered))
	for _, p := range registered {
		infos = append(infos, ParserInfo{Name: p.Name(), CMS: p.CMS()})
	}

	c.JSON(http.StatusOK, ListParsersResponse{
		Parsers:    infos,
		Publishers: s.registry.Publishers(),
	})
}

// HandleParse handles POST /api/v1/parse.
func (s *Server) HandleParse(c *gin.Context) {
	var req PageRequest
	if !bindPage(c, &req) {
		return
	}

	var (
		a   *article.Article
		err error
	)
	switch {
	case req.HTML != "":
		a, err = s.registry.ParseArticle(req.HTML, req.URL, req.CMS)
		if err == nil {
			err = article.Validate(a)
		}
	case s.scraper != nil:
		a, err = s.scraper.ScrapeArticle(c.Request.Context(), req.URL, req.CMS)
	default:
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "html is required"))
		return
	}
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// HandleDiscover handles POST /api/v1/discover.
func (s *Server) HandleDiscover(c *gin.Context) {
	var req PageRequest
	if !bindPage(c, &req) {
		return
	}

	var (
		found []article.DiscoveredArticle
		err   error
	)
	switch {
	case req.HTML != "":
		found, err = s.registry.Discover(req.HTML, req.URL, req.CMS)
	case s.scraper != nil:
		found, err = s.scraper.DiscoverURL(c.Request.Context(), req.URL, req.CMS)
	default:
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "html is required"))
		return
	}
	if err != nil {
		s.handleError(c, err)
		return
	}
	if found == nil {
		found = []article.DiscoveredArticle{}
	}

	c.JSON(http.StatusOK, DiscoverResponse{Articles: found, Total: len(found)})
}

// HandleValidate handles POST /api/v1/validate. The body is an
// intermediary document.
func (s *Server) HandleValidate(c *gin.Context) {
	if _, ok := s.decodeArticle(c); !ok {
		return
	}
	c.JSON(http.StatusOK, ValidateResponse{Valid: true})
}

// HandleTransform handles POST /api/v1/transform. The body is an
// intermediary document; the response is the ANF document plus warnings.
func (s *Server) HandleTransform(c *gin.Context) {
	a, ok := s.decodeArticle(c)
	if !ok {
		return
	}

	result, err := anf.Transform(a)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, TransformResponse{Document: result.Document, Warnings: result.Warnings})
}

// HandleListArticles handles GET /api/v1/articles.
func (s *Server) HandleListArticles(c *gin.Context) {
	if s.output == nil {
		unavailable(c, "output store")
		return
	}

	result, err := s.output.List()
	if err != nil {
		s.handleError(c, err)
		return
	}

	resp := ListArticlesResponse{
		Articles: result.Bundles,
		Total:    len(result.Bundles),
	}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	c.JSON(http.StatusOK, resp)
}

// HandleGetArticle handles GET /api/v1/articles/:identifier.
func (s *Server) HandleGetArticle(c *gin.Context) {
	if s.output == nil {
		unavailable(c, "output store")
		return
	}

	bundle, err := s.output.Get(c.Param("identifier"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, bundle)
}

// HandleDeleteArticle handles DELETE /api/v1/articles/:identifier.
func (s *Server) HandleDeleteArticle(c *gin.Context) {
	if s.output == nil {
		unavailable(c, "output store")
		return
	}

	if err := s.output.Delete(c.Param("identifier")); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleListTracked handles GET /api/v1/tracked.
func (s *Server) HandleListTracked(c *gin.Context) {
	if s.state == nil {
		unavailable(c, "state store")
		return
	}

	filter := state.Filter{Limit: DefaultLimit}

	if publisher := c.Query("publisher"); publisher != "" {
		filter.PublisherID = &publisher
	}
	if statusParam := c.Query("status"); statusParam != "" {
		status := state.Status(statusParam)
		filter.Status = &status
	}

	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Invalid limit parameter"))
			return
		}
		filter.Limit = min(limit, MaxLimit)
	}
	if offsetParam := c.Query("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "Invalid offset parameter"))
			return
		}
		filter.Offset = offset
	}

	records, err := s.state.List(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListTrackedResponse{
		Records: records,
		Total:   len(records),
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

func bindPage(c *gin.Context, req *PageRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid request body: "+err.Error()))
		return false
	}
	if !article.ValidURL(req.URL) {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "url must be an absolute http(s) URL"))
		return false
	}
	return true
}

// decodeArticle reads and validates an intermediary document from the
// request body, writing the error response itself on failure.
func (s *Server) decodeArticle(c *gin.Context) (*article.Article, bool) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Failed to read request body"))
		return nil, false
	}
	if len(data) > MaxBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse("too_large", "Request body is too large"))
		return nil, false
	}

	a, err := article.Decode(data)
	if err != nil {
		s.handleError(c, err)
		return nil, false
	}
	return a, true
}
