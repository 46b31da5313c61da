// Package api exposes the quotation engine, the product catalog and the
// conversational assistant over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bmc-uruguay/panelin-server/internal/agent/graph"
	"github.com/bmc-uruguay/panelin-server/internal/catalog"
	"github.com/bmc-uruguay/panelin-server/internal/core"
	"github.com/bmc-uruguay/panelin-server/internal/quote"
	logx "github.com/bmc-uruguay/panelin-server/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Server wires the HTTP routes to the domain services. The chat runner is
// optional; without it the chat endpoint reports unavailable.
type Server struct {
	catalog *catalog.Catalog
	engine  *quote.Engine
	runner  graph.Runner
	router  *gin.Engine
}

// New builds the server with all routes registered.
func New(env core.Environment, cat *catalog.Catalog, engine *quote.Engine, runner graph.Runner) *Server {
	if env == core.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		catalog: cat,
		engine:  engine,
		runner:  runner,
		router:  gin.New(),
	}
	s.router.Use(gin.Recovery(), RequestID(), RequestLogger())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealthz)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/quotes", s.handleCreateQuote)
		v1.GET("/products", s.handleListProducts)
		v1.GET("/products/:sku", s.handleGetProduct)
		v1.POST("/chat", s.handleChat)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quitCh:
		logx.Info().Str("signal", sig.String()).Msg("shutting down http server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	logx.Info().Msg("http server stopped")
	return nil
}
