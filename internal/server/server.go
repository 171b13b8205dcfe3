// Package server exposes completion ranking and body enrichment over HTTP.
//
// Endpoints:
//   - POST   /v1/complete                          rank emote completions
//   - POST   /v1/enrich                            render and enrich a message body
//   - POST   /v1/trees/:tree/blocks/:node/toggle   collapse or expand a code block
//   - DELETE /v1/trees/:tree                       dispose an enriched body
//   - GET    /v1/logs                              recent log lines
//   - GET    /health                               liveness
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sst/chatbody/internal/body"
	"github.com/sst/chatbody/internal/completions"
	"github.com/sst/chatbody/internal/enrich"
	"github.com/sst/chatbody/internal/format"
	"github.com/sst/chatbody/internal/logging"
	"github.com/sst/chatbody/internal/render"
	"maunium.net/go/mautrix/event"
)

const (
	DefaultAddress = "127.0.0.1:8448"

	maxRequestBody  = "1M"
	shutdownTimeout = 5 * time.Second
	defaultLogLimit = 100
)

// Deps are the services the server routes to.
type Deps struct {
	Completions *completions.CompletionManager
	Pipeline    *enrich.Pipeline
	Cache       *enrich.Cache
	Options     enrich.Options
	Logs        *logging.Store
}

type Server struct {
	echo *echo.Echo
	deps Deps

	// Trees are single-threaded; requests touching them are serialized.
	mu sync.Mutex
}

func New(deps Deps) *Server {
	if deps.Cache == nil {
		deps.Cache = enrich.NewCache()
	}
	if deps.Options.Layout == nil {
		deps.Options.Layout = enrich.DefaultOptions().Layout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxRequestBody))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Debug("request", attrs...)
			return nil
		},
	}))

	s := &Server{echo: e, deps: deps}
	e.GET("/health", s.health)
	v1 := e.Group("/v1")
	v1.POST("/complete", s.complete)
	v1.POST("/enrich", s.enrich)
	v1.POST("/trees/:tree/blocks/:node/toggle", s.toggle)
	v1.DELETE("/trees/:tree", s.dispose)
	v1.GET("/logs", s.logs)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// disposes every cached body.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddress
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.echo.Shutdown(shutdownCtx)
	<-errCh

	s.mu.Lock()
	s.deps.Cache.Clear()
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type completeRequest struct {
	Query     string                `json:"query"`
	Selection completions.Selection `json:"selection"`
	Force     bool                  `json:"force"`
	Limit     *int                  `json:"limit,omitempty"`
}

func (s *Server) complete(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	limit := -1
	if req.Limit != nil {
		limit = *req.Limit
	}
	groups := s.deps.Completions.GetCompletions(req.Query, req.Selection, req.Force, limit)
	if groups == nil {
		groups = []completions.ProviderCompletions{}
	}
	return c.JSON(http.StatusOK, groups)
}

type enrichRequest struct {
	Content *event.MessageEventContent `json:"content"`
	Options render.Options             `json:"options"`
}

type enrichResponse struct {
	format.Body
	Cached bool `json:"cached"`
}

func (s *Server) enrich(c echo.Context) error {
	var req enrichRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tree, cached, err := s.deps.Pipeline.Display(s.deps.Cache, req.Content, req.Options, s.deps.Options, nil)
	if err != nil {
		return fmt.Errorf("enriching body: %w", err)
	}
	s.deps.Pipeline.Queue().Drain()

	out, err := format.NewBody("", tree)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, enrichResponse{Body: out, Cached: cached})
}

func (s *Server) toggle(c echo.Context) error {
	node, err := strconv.ParseInt(c.Param("node"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid node id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.deps.Cache.Lookup(c.Param("tree"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown tree")
	}
	collapsed, ok := s.deps.Pipeline.Toggle(tree, body.NodeID(node))
	if !ok {
		return echo.NewHTTPError(http.StatusConflict, "code block has no toggle")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"collapsed": collapsed,
		"html":      tree.HTML(),
	})
}

func (s *Server) dispose(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.deps.Cache.EvictTree(c.Param("tree")) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown tree")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) logs(c echo.Context) error {
	if s.deps.Logs == nil {
		return c.JSON(http.StatusOK, []logging.Log{})
	}
	limit := defaultLogLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	logs := s.deps.Logs.Recent(limit)
	if logs == nil {
		logs = []logging.Log{}
	}
	return c.JSON(http.StatusOK, logs)
}
