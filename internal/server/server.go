// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server serves converted MOC documents to the sky viewer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pdiddy/moc-converter/internal/convert"
	"github.com/pdiddy/moc-converter/internal/metrics"
	"github.com/pdiddy/moc-converter/pkg/types"
)

const (
	defaultAddr            = ":8080"
	defaultPrefix          = "/moc_json"
	defaultShutdownTimeout = 10 * time.Second
)

// Server serves the documents in one directory.
type Server struct {
	cfg     types.ServeConfig
	log     zerolog.Logger
	metrics *metrics.Recorder
}

// New returns a Server for cfg. With a non-nil rec every request is
// recorded in it and /metrics serves its registry.
func New(cfg types.ServeConfig, log zerolog.Logger, rec *metrics.Recorder) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	cfg.Prefix = "/" + strings.Trim(cfg.Prefix, "/")
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Server{cfg: cfg, log: log, metrics: rec}
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route(s.cfg.Prefix, func(r chi.Router) {
		r.Get("/"+convert.ManifestName, s.manifest)
		r.Get("/{name}", s.document)
	})
	return r
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Str("dir", s.cfg.Dir).Msg("serving MOC documents")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// manifest serves moc_manifest.json from disk, or builds it from the
// directory listing when the converter did not write one.
func (s *Server) manifest(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.cfg.Dir, convert.ManifestName)
	if _, err := os.Stat(path); err == nil {
		s.serveJSONFile(w, r, path)
		return
	}

	names, err := convert.ListDocuments(s.cfg.Dir)
	if err != nil {
		s.log.Error().Err(err).Msg("listing documents")
		http.Error(w, "listing documents failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(names)
}

func (s *Server) document(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !strings.HasSuffix(name, ".json") || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}
	s.serveJSONFile(w, r, filepath.Join(s.cfg.Dir, name))
}

func (s *Server) serveJSONFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		s.log.Error().Err(err).Str("path", path).Msg("opening document")
		http.Error(w, "reading document failed", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.metrics != nil {
			s.metrics.Request(r.Method, routePattern(r), status, elapsed)
		}
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

// routePattern returns the chi pattern that matched r, or "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
