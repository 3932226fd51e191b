// Package api implements the HTTP server exposing the unfolding pipeline.
//
// Routes:
//
//	GET  /healthz             liveness probe
//	POST /v1/unfold           unfold a model and return the report
//	POST /v1/render           unfold a model and return one rendered artifact
//	GET  /v1/models           list stored models
//	POST /v1/models           save a model to the store
//	GET  /v1/models/{id}      fetch a stored model
//	DELETE /v1/models/{id}    delete a stored model
//
// The model endpoints are registered only when a store is configured.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rnshah9/root/pkg/pipeline"
	"github.com/rnshah9/root/pkg/store"
)

// Server wires the pipeline runner and model store into an HTTP handler.
type Server struct {
	runner *pipeline.Runner
	store  *store.Store
	logger *log.Logger
}

// NewServer creates an API server. The store may be nil, in which case
// the model endpoints are not registered.
func NewServer(runner *pipeline.Runner, st *store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: st, logger: logger}
}

// Router builds the chi router with standard middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/unfold", s.handleUnfold)
		r.Post("/render", s.handleRender)

		if s.store != nil {
			r.Route("/models", func(r chi.Router) {
				r.Get("/", s.handleListModels)
				r.Post("/", s.handleSaveModel)
				r.Get("/{id}", s.handleGetModel)
				r.Delete("/{id}", s.handleDeleteModel)
			})
		}
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// logRequests logs each request with its chi request ID.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
