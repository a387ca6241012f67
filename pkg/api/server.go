package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seamed/tracker/pkg/auth"
	"github.com/seamed/tracker/pkg/httputil"
	"github.com/seamed/tracker/pkg/inventory"
	"github.com/seamed/tracker/pkg/observability"
	"github.com/seamed/tracker/pkg/templates"
	"github.com/seamed/tracker/pkg/users"
)

// maxBodyBytes bounds request payloads; photos are URLs, not inline images
const maxBodyBytes = 1 << 20

// TemplateSource provides the reference kits
type TemplateSource interface {
	List() []*templates.Template
	Get(id string) (*templates.Template, error)
}

// Middleware is a standard net/http middleware
type Middleware func(http.Handler) http.Handler

// Deps are the collaborators of the API server. Gateway is required; the
// optional fields may be left nil.
type Deps struct {
	Inventory inventory.Store
	Users     users.Store
	Templates TemplateSource
	Gateway   Middleware
	RateLimit Middleware
	Health    *observability.HealthChecker
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry
	Audit     *auth.AuditLogger
	Logger    *observability.Logger

	RequestTimeout time.Duration
	CORSOrigins    []string
}

// Server routes HTTP requests to the inventory, settings and template handlers
type Server struct {
	deps    Deps
	router  *mux.Router
	handler http.Handler
	now     func() time.Time
	newID   func() string
}

// NewServer creates the API server and registers all routes
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if deps.RequestTimeout == 0 {
		deps.RequestTimeout = 30 * time.Second
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}

	s := &Server{
		deps:   deps,
		router: mux.NewRouter(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	s.setupRoutes()

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(deps.Logger),
		httputil.CORSMiddleware(deps.CORSOrigins),
	)(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(httputil.LoggingMiddleware(s.deps.Logger))
	if s.deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	}

	// Unauthenticated probes
	if s.deps.Health != nil {
		observability.RegisterHealthRoutes(s.router, s.deps.Health)
	}
	if s.deps.Registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(s.deps.Registry)).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(
		mux.MiddlewareFunc(httputil.TimeoutMiddleware(s.deps.RequestTimeout)),
		mux.MiddlewareFunc(httputil.MaxBytesMiddleware(maxBodyBytes)),
		mux.MiddlewareFunc(s.deps.Gateway),
	)
	if s.deps.RateLimit != nil {
		api.Use(mux.MiddlewareFunc(s.deps.RateLimit))
	}

	// Inventory routes; fixed paths before {id}
	api.HandleFunc("/inventory", s.listItems).Methods(http.MethodGet)
	api.HandleFunc("/inventory", s.createItem).Methods(http.MethodPost)
	api.HandleFunc("/inventory/ping", s.ping).Methods(http.MethodGet)
	api.HandleFunc("/inventory/stats", s.getStats).Methods(http.MethodGet)
	api.HandleFunc("/inventory/alerts", s.getAlerts).Methods(http.MethodGet)
	api.HandleFunc("/inventory/{id}", s.getItem).Methods(http.MethodGet)
	api.HandleFunc("/inventory/{id}", s.updateItem).Methods(http.MethodPut)
	api.HandleFunc("/inventory/{id}", s.deleteItem).Methods(http.MethodDelete)

	// Settings routes
	api.HandleFunc("/settings", s.getSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.updateSettings).Methods(http.MethodPut)

	// Template routes
	if s.deps.Templates != nil {
		api.HandleFunc("/templates", s.listTemplates).Methods(http.MethodGet)
		api.HandleFunc("/templates/{id}", s.getTemplate).Methods(http.MethodGet)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router so callers can mount extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}

// identity returns the caller attached by the gateway. Handlers are only
// reachable through the gateway, so a miss is treated as unauthenticated.
func identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "No token provided")
		return nil, false
	}
	return id, true
}
