// Package server exposes the job control surface over HTTP.
//
// Routes (all /v1 routes require an X-Client-ID header naming the owner):
//
//	POST /v1/jobs                      create a job
//	PUT  /v1/jobs/{id}/chunks/{index}  upload a chunk of pages
//	POST /v1/jobs/{id}/start           start processing
//	GET  /v1/jobs/{id}                 job status
//	GET  /v1/jobs/{id}/events          progress and completion (SSE)
//	GET  /healthz                      liveness
//	GET  /metrics                      Prometheus metrics
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simp-lee/pagebind/jobs"
	"github.com/simp-lee/pagebind/logger"
)

// ClientHeader names the job owner on every /v1 request.
const ClientHeader = "X-Client-ID"

// Options configures a Server.
type Options struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	Gatherer        prometheus.Gatherer
	Logger          *log.Logger

	// Heartbeat is the SSE keep-alive interval (default 15s).
	Heartbeat time.Duration
}

// Server serves the job API.
type Server struct {
	coord    *jobs.Coordinator
	broker   *jobs.Broker
	opts     Options
	logger   *log.Logger
	validate *validator.Validate
	router   chi.Router
}

// New returns a Server for coord. broker must be the Notifier, or one of
// the Notifiers, given to coord.
func New(coord *jobs.Coordinator, broker *jobs.Broker, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.NewRegistry()
	}
	s := &Server{
		coord:    coord,
		broker:   broker,
		opts:     opts,
		logger:   opts.Logger,
		validate: validator.New(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Use(requireClient)
		r.Get("/{id}/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			if s.opts.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.opts.RequestTimeout))
			}
			if s.opts.MaxBodyBytes > 0 {
				r.Use(middleware.RequestSize(s.opts.MaxBodyBytes))
			}
			r.Post("/", s.handleInit)
			r.Put("/{id}/chunks/{index}", s.handleChunk)
			r.Post("/{id}/start", s.handleStart)
			r.Get("/{id}", s.handleStatus)
		})
	})
	return r
}

// Run serves on opts.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.opts.Addr)
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

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type clientKey struct{}

func requireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.Header.Get(ClientHeader)
		if client == "" {
			writeMessage(w, http.StatusUnauthorized, "missing "+ClientHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey{}, client)))
	})
}

func clientID(r *http.Request) string {
	id, _ := r.Context().Value(clientKey{}).(string)
	return id
}
