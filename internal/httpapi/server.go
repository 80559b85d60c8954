// Package httpapi exposes the collection read surface and indexer control
// over HTTP for a host process.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/G-grbz/monwui/internal/domain"
	"github.com/G-grbz/monwui/internal/indexer"
	"github.com/G-grbz/monwui/internal/metrics"
	"github.com/G-grbz/monwui/internal/service"
)

// Indexer is the control surface of an indexer.Handle.
type Indexer interface {
	Start(ctx context.Context, opts indexer.Options) bool
	Stop()
	Running() bool
	Progress() domain.IndexProgress
}

// Server holds the handlers' dependencies.
type Server struct {
	collections *service.CollectionService
	indexer     Indexer
	indexerOpts indexer.Options
	logger      *slog.Logger

	// baseCtx outlives requests; indexer runs started over HTTP use it.
	baseCtx context.Context
}

func New(ctx context.Context, collections *service.CollectionService, idx Indexer, opts indexer.Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		collections: collections,
		indexer:     idx,
		indexerOpts: opts,
		logger:      logger,
		baseCtx:     ctx,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/healthz", s.health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/collections", s.findCollections).Methods("GET")
	api.HandleFunc("/collections/movie/{id}", s.collectionForMovie).Methods("GET")
	api.HandleFunc("/collections/{id}/members", s.membersOfCollection).Methods("GET")
	api.HandleFunc("/indexer", s.indexerStatus).Methods("GET")
	api.HandleFunc("/indexer/start", s.startIndexer).Methods("POST")
	api.HandleFunc("/indexer/stop", s.stopIndexer).Methods("POST")

	// A subrouter reports a method mismatch only through its own handler.
	notAllowed := http.HandlerFunc(methodNotAllowed)
	r.MethodNotAllowedHandler = notAllowed
	api.MethodNotAllowedHandler = notAllowed
	return r
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// NewHTTPServer wraps the router with conservative timeouts.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records request metrics labelled by route template.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if route == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		wrapped := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(wrapped, r)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
