package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/config"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/llm"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/memory"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/stream"
)

// HealthCheck reports whether the model backend can serve requests.
type HealthCheck func(ctx context.Context) error

// Server is the chat backend: it stores conversations and streams model
// replies as server-sent events.
type Server struct {
	cfg      config.ServerConfig
	gen      llm.Generator
	store    memory.Store
	index    *memory.Index
	health   HealthCheck
	inflight *stream.Registry
	now      func() time.Time
	router   *gin.Engine
	log      *logger.ComponentLogger
}

// Option configures a Server
type Option func(*Server)

// WithIndex enables /search and indexes every saved message.
func WithIndex(ix *memory.Index) Option {
	return func(s *Server) {
		s.index = ix
	}
}

// WithHealthCheck makes /health probe the model backend.
func WithHealthCheck(fn HealthCheck) Option {
	return func(s *Server) {
		s.health = fn
	}
}

// WithClock replaces time.Now in system prompts.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(cfg config.ServerConfig, gen llm.Generator, store memory.Store, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		gen:      gen,
		store:    store,
		inflight: stream.NewRegistry(),
		now:      time.Now,
		log:      logger.WithComponent("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestLogger(s.log))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))

	router.GET("/health", s.handleHealth)
	router.POST("/conversation", s.handleCreateConversation)
	router.DELETE("/conversation/:conv_id", s.handleClearConversation)
	router.GET("/conversations", s.handleListConversations)
	router.GET("/chat_stream", s.handleChatStream)
	router.POST("/chat_stream", s.handleChatStream)
	router.POST("/search", s.handleSearch)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// requestLogger logs each request through the component logger instead of
// gin's stdout writer.
func requestLogger(log *logger.ComponentLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Streaming returns the conversations with a generation in flight
func (s *Server) Streaming() []string {
	return s.inflight.List()
}

// ListenAndServe serves until ctx is cancelled, then cancels running
// generations and shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", "addr", s.cfg.Addr, "provider", s.gen.Name(), "model", s.gen.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Server shutting down")
	s.inflight.CancelAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
