package adapthttp

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"storefront/internal/app"
)

// DefaultRequestTimeout bounds every request when no timeout is configured.
const DefaultRequestTimeout = 10 * time.Second

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth     *app.AuthService
	clients  *app.ClientService
	products *app.ProductService
	orders   *app.OrderService

	oidc    OIDCConfig
	checks  map[string]Pinger
	timeout time.Duration
	log     zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithOIDC enables single sign-on.
func WithOIDC(cfg OIDCConfig) Option {
	return func(s *Server) { s.oidc = cfg }
}

// WithHealthCheck adds a dependency to /health.
func WithHealthCheck(name string, p Pinger) Option {
	return func(s *Server) { s.checks[name] = p }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the base logger for access logs and errors.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a Server wired to the given application services.
func New(auth *app.AuthService, clients *app.ClientService, products *app.ProductService, orders *app.OrderService, opts ...Option) *Server {
	s := &Server{
		auth:     auth,
		clients:  clients,
		products: products,
		orders:   orders,
		checks:   make(map[string]Pinger),
		timeout:  DefaultRequestTimeout,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /health", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.route(mux, "POST /auth/register", http.HandlerFunc(s.handleRegister))
	s.route(mux, "POST /auth/login", http.HandlerFunc(s.handleLogin))
	s.route(mux, "GET /auth/sso/login", http.HandlerFunc(s.handleSSOLogin))
	s.route(mux, "GET /auth/sso/callback", http.HandlerFunc(s.handleSSOCallback))

	s.route(mux, "GET /clients/{$}", s.admin(s.handleListClients))
	s.route(mux, "POST /clients/{$}", s.admin(s.handleCreateClient))
	s.route(mux, "PUT /clients/{id}/role", s.admin(s.handleSetClientRole))

	s.route(mux, "GET /products/{$}", s.authenticated(http.HandlerFunc(s.handleListProducts)))
	s.route(mux, "POST /products/{$}", s.admin(s.handleCreateProduct))
	s.route(mux, "PUT /products/{id}/{$}", s.admin(s.handleUpdateProduct))
	s.route(mux, "DELETE /products/{id}/{$}", s.admin(s.handleDeleteProduct))

	s.route(mux, "GET /orders/{$}", s.admin(s.handleListOrders))
	s.route(mux, "POST /orders/{$}", s.admin(s.handlePlaceOrder))
	s.route(mux, "DELETE /orders/{id}/{$}", s.admin(s.handleCancelOrder))

	return s.requestID(s.accessLog(s.deadline(mux)))
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, instrument(pattern, h))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true
	for name, p := range s.checks {
		if err := p.Ping(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("check", name).Msg("health check failed")
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"ok": healthy, "checks": status})
}
