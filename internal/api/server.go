package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"priceparser/internal/metrics"
	"priceparser/internal/usecase"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 30 * time.Second

type Deps struct {
	Submitter usecase.Submitter
	Query     usecase.ProductQuery
	// Registry receives the HTTP request metrics and is served on /metrics.
	// Nil leaves both out.
	Registry *prometheus.Registry
}

type Server struct {
	router    *chi.Mux
	submitter usecase.Submitter
	query     usecase.ProductQuery
	validate  *validator.Validate
}

func NewServer(deps Deps) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		submitter: deps.Submitter,
		query:     deps.Query,
		validate:  validator.New(),
	}

	r := s.router
	if deps.Registry != nil {
		r.Use(metrics.NewMiddleware(deps.Registry).Handler)
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	r.Get("/healthz", s.health)
	r.Post("/parse", s.createTask)
	r.Get("/tasks/{id}", s.getTask)
	r.Get("/products", s.listProducts)
	r.Get("/products/filtered", s.filterProducts)
	return s
}

// Handler is the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return chainMiddleware(
		s.router,
		recoverHandler,
		loggerHandler(func(w http.ResponseWriter, r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		}),
		realIPHandler,
		requestIDHandler,
		corsHandler,
	)
}

// Run serves on port until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	httpServer := http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("server serving on port %d", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Server is shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return <-errCh
}
