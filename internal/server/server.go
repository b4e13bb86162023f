// Package server exposes the storefront view over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gauthierbraillon/catalogmix/internal/aggregator"
	"github.com/gauthierbraillon/catalogmix/internal/catalog"
	"github.com/gauthierbraillon/catalogmix/internal/logger"
	"github.com/gauthierbraillon/catalogmix/internal/metrics"
	"github.com/gauthierbraillon/catalogmix/internal/storefront"
)

// Catalog is the storefront behavior the HTTP surface needs.
type Catalog interface {
	Query(q catalog.Query) storefront.Page
	Categories() []string
	State() storefront.State
	Refresh(ctx context.Context) (bool, error)
}

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics serves the registry on /metrics.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

type Server struct {
	catalog Catalog
	logger  *zap.Logger
	metrics *metrics.Registry
	router  *gin.Engine
}

func New(c Catalog, opts ...Option) *Server {
	s := &Server{
		catalog: c,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), requestLogger(s.logger), recovery(s.logger))

	r.GET("/healthz", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/trending", s.trending)
	v1.GET("/categories", s.categories)
	v1.POST("/refresh", s.refresh)

	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": s.catalog.State()})
}

func (s *Server) trending(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	page := s.catalog.Query(q)
	status := http.StatusOK
	if page.State == storefront.StateLoading {
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "5")
	}
	c.JSON(status, page)
}

func (s *Server) categories(c *gin.Context) {
	state := s.catalog.State()
	status := http.StatusOK
	if state == storefront.StateLoading {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"state": state, "categories": s.catalog.Categories()})
}

func (s *Server) refresh(c *gin.Context) {
	applied, err := s.catalog.Refresh(c.Request.Context())
	switch {
	case errors.Is(err, aggregator.ErrTotalAggregationFailure):
		abortWithError(c, http.StatusBadGateway, "TOTAL_AGGREGATION_FAILURE", err.Error())
		return
	case err != nil:
		logger.FromContext(c.Request.Context()).Error("refresh failed", zap.Error(err))
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "REFRESH_FAILED", "catalog refresh failed")
		return
	}

	page := s.catalog.Query(catalog.Query{})
	c.JSON(http.StatusOK, gin.H{
		"applied":  applied,
		"state":    page.State,
		"items":    len(page.Items),
		"warnings": page.Warnings,
	})
}

// parseQuery reads the filter and ranking controls. Unknown sort keys and
// directions fall back to their defaults; malformed numbers are rejected.
func parseQuery(c *gin.Context) (catalog.Query, error) {
	q := catalog.Query{
		Category:  catalog.CategoryFromToken(c.Query("category")),
		Key:       catalog.ParseSortKey(c.Query("sort")),
		Direction: catalog.ParseDirection(c.Query("direction")),
	}

	var err error
	if q.MinPrice, err = nonNegativeInt(c, "min_price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = nonNegativeInt(c, "max_price"); err != nil {
		return q, err
	}
	limit, err := nonNegativeInt(c, "limit")
	if err != nil {
		return q, err
	}
	q.Limit = int(limit)
	return q, nil
}

func nonNegativeInt(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, &queryError{param: name, value: raw}
	}
	return v, nil
}

type queryError struct {
	param string
	value string
}

func (e *queryError) Error() string {
	return e.param + " must be a non-negative integer, got " + strconv.Quote(e.value)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: getRequestID(c),
	}})
}
