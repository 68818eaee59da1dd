package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-logr/logr"
	"github.com/heysubinoy/kvgate/internal"
)

const (
	// shutdownTimeout is the time given for outstanding requests to finish
	// before shutdown.
	shutdownTimeout = 5 * time.Second

	// pingTimeout bounds the store check made by the health endpoint.
	pingTimeout = 2 * time.Second
)

type (
	// Pinger checks connectivity to the store.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Handlers registers routes on a router.
	Handlers interface {
		AddHandlers(r *mux.Router)
	}

	// HTTPConfig is the http server config
	HTTPConfig struct {
		EnableRequestLogging bool

		Handlers []Handlers
		// Pinger, if set, is consulted by /healthz.
		Pinger Pinger
		// Gatherer serves /metrics. Defaults to the prometheus default
		// gatherer.
		Gatherer prometheus.Gatherer
	}

	// HTTPServer is the http server for kvgate
	HTTPServer struct {
		logr.Logger

		server *http.Server
	}

	healthz struct {
		Version string
		Commit  string
		Built   string
		Store   string
	}
)

// NewHTTPServer constructs the http server
func NewHTTPServer(logger logr.Logger, cfg HTTPConfig) *HTTPServer {
	return &HTTPServer{
		Logger: logger,
		server: &http.Server{
			Handler:           NewRouter(logger, cfg),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter builds the router serving every kvgate route.
func NewRouter(logger logr.Logger, cfg HTTPConfig) *mux.Router {
	r := mux.NewRouter()
	r.UseEncodedPath()

	// Catch panics and return 500s
	r.Use(gorillaHandlers.RecoveryHandler(gorillaHandlers.PrintRecoveryStack(true)))

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		payload := healthz{
			Version: internal.Version,
			Commit:  internal.Commit,
			Built:   internal.Built,
			Store:   "ok",
		}
		status := http.StatusOK
		if cfg.Pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := cfg.Pinger.Ping(ctx); err != nil {
				logger.Error(err, "health check")
				payload.Store = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(payload)
	}).Methods(http.MethodGet)

	for _, h := range cfg.Handlers {
		h.AddHandlers(r)
	}

	// Optionally log every request
	if cfg.EnableRequestLogging {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				m := httpsnoop.CaptureMetrics(next, w, r)
				logger.Info("request",
					"duration", fmt.Sprintf("%dms", m.Duration.Milliseconds()),
					"status", m.Code,
					"method", r.Method,
					"path", r.URL.Path)
			})
		})
	}

	return r
}

// Start starts serving http traffic on the given listener and waits until
// the server exits due to error or the context is cancelled.
func (s *HTTPServer) Start(ctx context.Context, ln net.Listener) error {
	errch := make(chan error, 1)

	go func() {
		errch <- s.server.Serve(ln)
	}()

	s.Info("started http server", "address", ln.Addr().String())

	// Block until server stops listening or context is cancelled.
	select {
	case err := <-errch:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Info("gracefully shutting down http server...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return s.server.Close()
		}

		return nil
	}
}
