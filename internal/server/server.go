package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"ask-ai/internal/chat"
	"ask-ai/internal/metrics"
	"ask-ai/internal/tokens"
)

// TokenCounter reports a count together with the method that produced it.
type TokenCounter interface {
	Count(ctx context.Context, text string) (int, tokens.Method)
}

type Server struct {
	svc      *chat.Service
	counter  TokenCounter
	sessions *SessionStore
	metrics  *metrics.Metrics
	router   *gin.Engine
}

func New(svc *chat.Service, counter TokenCounter, sessions *SessionStore, m *metrics.Metrics) *Server {
	s := &Server{svc: svc, counter: counter, sessions: sessions, metrics: m}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/token-count", s.handleTokenCount)
	api.POST("/format", s.handleFormat)
	api.POST("/intent", s.handleIntent)

	sessions := api.Group("/sessions")
	sessions.POST("", s.handleCreateSession)
	sessions.PUT("/:id/document", s.handleLoadDocument)
	sessions.POST("/:id/ask", s.handleAsk)
	sessions.GET("/:id/questions", s.handleQuestions)
	sessions.GET("/:id/history", s.handleHistory)
	sessions.DELETE("/:id", s.handleDeleteSession)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}
	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Dur("elapsed", time.Since(start)).
			Msg("Request")
	}
}
