// Package health serves liveness, readiness and counter endpoints.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/keepmind9/shelfbot/internal/stats"
	"github.com/sirupsen/logrus"
)

// Server exposes /health, /ready and /metrics
type Server struct {
	addr   string
	source stats.Source
	r      *gin.Engine
	log    *logrus.Entry

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewServer creates a health server listening on addr
func NewServer(addr string, source stats.Source) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		addr:   addr,
		source: source,
		r:      r,
		log:    logger.ForComponent("health"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/health", func(c *gin.Context) {
		snap := s.source()
		status := "ok"
		if !snap.Connected {
			status = "disconnected"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     status,
			"connected":  snap.Connected,
			"latency_ms": snap.LatencyMS,
			"uptime":     snap.Uptime,
		})
	})
	s.r.GET("/ready", func(c *gin.Context) {
		snap := s.source()
		code := http.StatusOK
		if !snap.Ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"ready": snap.Ready, "guilds": snap.Guilds})
	})
	s.r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.source())
	})
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.r
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("health server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{Handler: s.r}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithField("error", err).Error("health-server-failed")
		}
	}(s.srv)

	s.log.WithField("addr", ln.Addr().String()).Info("health-server-started")
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down health server: %w", err)
	}
	s.log.Info("health-server-stopped")
	return nil
}
