package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/hub/pkg/assembly"
	"github.com/platinummonkey/hub/pkg/httputil"
	"github.com/platinummonkey/hub/pkg/observability"
)

// ErrNotAssembled is reported while no container has been built yet
var ErrNotAssembled = errors.New("container not assembled")

// RebuildFunc assembles a fresh container
type RebuildFunc func(ctx context.Context) (*assembly.Result, error)

// Server exposes the current assembly over HTTP
type Server struct {
	router   *mux.Router
	handler  http.Handler
	log      *observability.Logger
	metrics  *observability.Metrics
	registry *prometheus.Registry
	health   *observability.HealthChecker
	rebuild  RebuildFunc

	mu      sync.RWMutex
	current *assembly.Result
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request and server logger
func WithLogger(logger *observability.Logger) Option {
	return func(s *Server) { s.log = logger }
}

// WithMetrics records request metrics and serves registry on /metrics
func WithMetrics(metrics *observability.Metrics, registry *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = metrics
		s.registry = registry
	}
}

// WithHealthChecker replaces the default health checker. The server adds its
// own container check to it.
func WithHealthChecker(checker *observability.HealthChecker) Option {
	return func(s *Server) { s.health = checker }
}

// WithRebuild enables POST /api/v1/assembly
func WithRebuild(fn RebuildFunc) Option {
	return func(s *Server) { s.rebuild = fn }
}

// NewServer creates an inspection server. It serves 503 until Update is called.
func NewServer(opts ...Option) *Server {
	s := &Server{router: mux.NewRouter()}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = observability.Discard()
	}
	if s.health == nil {
		s.health = observability.NewHealthChecker("")
	}
	s.health.AddCheck("container", func(context.Context) error {
		if s.Current() == nil {
			return ErrNotAssembled
		}
		return nil
	}, true)

	s.setupRoutes()

	middlewares := []httputil.Middleware{
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(s.log),
		httputil.LoggingMiddleware(s.log),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(s.metrics, routeTemplate(s.router)))
	}
	s.handler = otelhttp.NewHandler(httputil.Chain(middlewares...)(s.router), "hub.api")
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/assembly", s.getAssembly).Methods(http.MethodGet)
	api.HandleFunc("/assembly", s.rebuildAssembly).Methods(http.MethodPost)

	api.HandleFunc("/plugins", s.listPlugins).Methods(http.MethodGet)
	api.HandleFunc("/plugins/{name}", s.getPlugin).Methods(http.MethodGet)
	api.HandleFunc("/levels", s.getLevels).Methods(http.MethodGet)
	api.HandleFunc("/graph", s.getGraph).Methods(http.MethodGet)

	api.HandleFunc("/namespaces", s.listNamespaces).Methods(http.MethodGet)
	api.HandleFunc("/rules", s.getRules).Methods(http.MethodGet)
	api.HandleFunc("/resolve/{id}", s.resolve).Methods(http.MethodGet)

	observability.RegisterHealthRoutes(s.router, s.health)
	if s.registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(s.registry)).Methods(http.MethodGet)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Update publishes a newly built assembly
func (s *Server) Update(res *assembly.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = res
}

// Current returns the published assembly or nil
func (s *Server) Current() *assembly.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// routeTemplate labels requests by their route so metrics stay low-cardinality
func routeTemplate(router *mux.Router) func(*http.Request) string {
	return func(r *http.Request) string {
		var match mux.RouteMatch
		if router.Match(r, &match) && match.Route != nil {
			if tpl, err := match.Route.GetPathTemplate(); err == nil {
				return tpl
			}
		}
		return "unmatched"
	}
}
