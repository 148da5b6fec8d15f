// Package server is the development server: it serves the built site, falls
// back to the source root for files the build does not produce, and pushes
// reloads to connected browsers whenever a build finishes.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/conneroisu/jaff/internal/build"
	"github.com/conneroisu/jaff/internal/config"
	"github.com/conneroisu/jaff/internal/errors"
	"github.com/conneroisu/jaff/internal/eventbus"
	"github.com/conneroisu/jaff/internal/logging"
	"github.com/conneroisu/jaff/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Server serves a site with live reload.
type Server struct {
	config   *config.Config
	pipeline *build.Pipeline
	bus      *eventbus.Bus
	hub      *Hub
	logger   logging.Logger

	httpServer  *http.Server
	serverMutex sync.Mutex

	lastErrors *errors.Collector
	errorMutex sync.RWMutex

	shutdownOnce sync.Once
}

// New creates a server for the site built by pipeline. It subscribes to
// the pipeline's build events straight away.
func New(cfg *config.Config, pipeline *build.Pipeline, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("server")

	port := fmt.Sprintf(":%d", cfg.Server.Port)
	s := &Server{
		config:   cfg,
		pipeline: pipeline,
		bus:      pipeline.Bus(),
		hub: NewHub(logger,
			"localhost"+port,
			"127.0.0.1"+port,
			cfg.Server.Host+port,
		),
		logger:     logger,
		lastErrors: errors.NewCollector(),
	}

	s.bus.Subscribe(eventbus.EventBuildFailed, eventbus.NewHandler(s.onBuildFailed))
	s.bus.Subscribe(eventbus.EventBuildFinished, eventbus.NewHandler(s.onBuildFinished))
	s.bus.Subscribe(eventbus.EventPageReady, eventbus.NewHandler(func(any) {
		s.logger.Debug(context.Background(), "Browser page ready")
	}))
	return s
}

// Hub returns the live-reload hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// the websocket needs the raw connection, so it skips request logging
	if s.config.Server.LiveReload {
		r.Get(LiveReloadPath, s.hub.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.GetHead)
		r.Use(Headers(DevelopmentHeaderPolicy()))
		r.Use(requestLogger(s.logger))
		r.Get("/health", s.handleHealth)
		if s.config.Server.LiveReload {
			r.Get(LiveReloadScript, serveClientScript)
		}
		r.Get("/*", s.handleStatic)
	})
	return r
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.bus.BridgeLoad(s.hub.Loads())

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMutex.Lock()
	s.httpServer = srv
	s.serverMutex.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				s.logger.Error(context.Background(), err, "Shutdown failed")
			}
		case <-done:
		}
	}()

	addr := "http://" + ln.Addr().String()
	s.logger.Info(ctx, "Serving site", "url", addr, "dist", s.config.Paths.Dist)
	if s.config.Server.Open {
		go s.openBrowser(ctx, addr)
	}

	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown disconnects live-reload clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")
		s.hub.Close()

		s.serverMutex.Lock()
		srv := s.httpServer
		s.serverMutex.Unlock()
		if srv != nil {
			err = srv.Shutdown(ctx)
		}
	})
	return err
}

// LastErrors returns the failures of the most recent full build.
func (s *Server) LastErrors() *errors.Collector {
	s.errorMutex.RLock()
	defer s.errorMutex.RUnlock()
	return s.lastErrors
}

func (s *Server) onBuildFailed(data any) {
	pr, ok := data.(build.PageResult)
	if !ok || pr.Err == nil {
		return
	}
	s.hub.Broadcast(Message{
		Type:    MessageBuildError,
		Content: fmt.Sprintf("%s: %v", pr.Source, pr.Err),
	})
}

func (s *Server) onBuildFinished(data any) {
	if result, ok := data.(*build.Result); ok && result.Errors != nil {
		s.errorMutex.Lock()
		s.lastErrors = result.Errors
		s.errorMutex.Unlock()
	}
	s.hub.Broadcast(Message{Type: MessageReload})
}

// handleStatic serves the request path from dist, then from the source
// root. HTML gets the live-reload script and, after a failed build, the
// error overlay.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	rel := path.Clean("/" + r.URL.Path)

	for _, root := range []string{s.config.Paths.Dist, s.config.Paths.Src} {
		file, ok := resolveFile(root, rel)
		if !ok {
			continue
		}
		if strings.EqualFold(filepath.Ext(file), ".html") {
			s.serveHTML(w, r, file)
			return
		}
		http.ServeFile(w, r, file)
		return
	}
	http.NotFound(w, r)
}

// resolveFile maps a cleaned URL path to a file under root. Directories
// resolve to their index.html.
func resolveFile(root, rel string) (string, bool) {
	if root == "" {
		return "", false
	}
	file := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(file)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		file = filepath.Join(file, "index.html")
		if info, err = os.Stat(file); err != nil || info.IsDir() {
			return "", false
		}
	}
	return file, true
}

func (s *Server) serveHTML(w http.ResponseWriter, r *http.Request, file string) {
	page, err := os.ReadFile(file)
	if err != nil {
		http.Error(w, "could not read page", http.StatusInternalServerError)
		return
	}

	var snippet strings.Builder
	if s.config.Server.LiveReload {
		snippet.WriteString(scriptTag)
	}
	snippet.WriteString(s.LastErrors().Overlay())
	page = InjectBeforeBodyEnd(page, snippet.String())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics := s.pipeline.Metrics().Snapshot()
	lastErrors := s.LastErrors()

	status := "healthy"
	if lastErrors.HasErrors() {
		status = "degraded"
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   version.Get().Short(),
		"clients":   s.hub.Clients(),
		"build": map[string]interface{}{
			"builds":           metrics.Builds,
			"pages_rendered":   metrics.PagesRendered,
			"pages_failed":     metrics.PagesFailed,
			"average_duration": metrics.AverageDuration.String(),
			"last_build":       metrics.LastBuild,
			"errors":           lastErrors.Len(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Error(r.Context(), err, "Failed to encode health response")
	}
}

func (s *Server) openBrowser(ctx context.Context, target string) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		s.logger.Warn(ctx, err, "Refusing to open browser", "url", target)
		return
	}

	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", u.String()).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", u.String()).Start()
	case "darwin":
		err = exec.Command("open", u.String()).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	if err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser", "url", target)
	}
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
