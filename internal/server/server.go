// Package server is the development server: it serves the output directory
// and tells open pages to reload after every successful build pass.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/conneroisu/sitepack/internal/build"
	"github.com/conneroisu/sitepack/internal/config"
	"github.com/conneroisu/sitepack/internal/logging"
	"github.com/conneroisu/sitepack/internal/websocket"
)

const (
	// ReloadPath is the websocket endpoint the reload client connects to.
	ReloadPath = "/__sitepack/reload"
	// StatusPath reports the outcome of the last pass as JSON.
	StatusPath = "/__sitepack/status"
)

// Server serves the built site with live reload
type Server struct {
	cfg       *config.Config
	outputDir string
	logger    logging.Logger
	reload    *websocket.Manager
	router    chi.Router

	httpServer  *http.Server
	serverMutex sync.RWMutex

	statusMutex sync.RWMutex
	lastReport  *build.Report
	lastErr     error
	passes      int
}

// New creates a dev server for cfg's output directory.
func New(cfg *config.Config, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Server{
		cfg:       cfg,
		outputDir: cfg.OutputDir(),
		logger:    logger.WithComponent("server"),
		reload: websocket.NewManager(websocket.LocalOrigins{
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		}, logger),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get(ReloadPath, s.reload.HandleWebSocket)
	r.Get(StatusPath, s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Handle("/*", s.fileServer())

	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// OnPass records a pass outcome and reloads open pages when it succeeded.
// It has the build.PassFunc signature.
func (s *Server) OnPass(report *build.Report, err error) {
	s.statusMutex.Lock()
	s.passes++
	s.lastErr = err
	if err == nil {
		s.lastReport = report
	}
	s.statusMutex.Unlock()

	if err == nil {
		s.reload.Reload()
	}
}

// Clients returns the number of connected reload clients.
func (s *Server) Clients() int {
	return s.reload.GetConnectedClients()
}

// Start listens on the configured address until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "server shutdown failed")
		}
	}()

	s.logger.Info(ctx, "serving", "addr", "http://"+ln.Addr().String(), "dir", s.outputDir)
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes reload connections and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.reload.Shutdown()

	s.serverMutex.RLock()
	server := s.httpServer
	s.serverMutex.RUnlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	})
}
