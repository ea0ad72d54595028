package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/packbazaar/bazaar/pkg/catalog"
	"github.com/packbazaar/bazaar/pkg/middleware"
	"github.com/packbazaar/bazaar/pkg/observability"
	"github.com/packbazaar/bazaar/pkg/uploads"
)

// Options carries the collaborators the server composes
type Options struct {
	Logger        *observability.Logger
	Metrics       *observability.Metrics
	TokenResolver middleware.TokenResolver
	Uploads       *uploads.Handlers
	Catalog       *catalog.Handlers

	// TracingEnabled wraps the handler chain in otelhttp
	TracingEnabled bool
}

// Server is the public API server
type Server struct {
	router  *mux.Router
	handler http.Handler
}

// NewServer builds the router and middleware chain. Request logging and
// actor resolution run inside mux routing so metrics see route templates;
// panic recovery and tracing wrap the whole chain.
func NewServer(opts Options) *Server {
	router := mux.NewRouter()

	router.Use(
		middleware.RequestLogging(opts.Logger, opts.Metrics),
		middleware.Auth(opts.TokenResolver),
	)

	opts.Uploads.RegisterRoutes(router)
	opts.Catalog.RegisterRoutes(router)

	var handler http.Handler = middleware.Recovery(opts.Logger)(router)
	if opts.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "bazaar-api")
	}

	return &Server{router: router, handler: handler}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router for additional registrations
func (s *Server) Router() *mux.Router {
	return s.router
}

// NewHealthHandler builds the internal health/metrics endpoint mux,
// served on a separate port for probes and scrapers
func NewHealthHandler(checker *observability.HealthChecker, metrics *observability.Metrics) http.Handler {
	internal := http.NewServeMux()
	internal.HandleFunc("/healthz", checker.Liveness)
	internal.HandleFunc("/readyz", checker.Readiness)
	if metrics != nil {
		internal.Handle("/metrics", metrics.Handler())
	}
	return internal
}
