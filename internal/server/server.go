package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/config"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/handlers"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/http/respond"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/middleware"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
)

// Sessions is what the HTTP layer needs from the session authority.
type Sessions interface {
	handlers.SessionAuthority
	middleware.PrincipalResolver
}

// Deps are the services behind the routes.
type Deps struct {
	Sessions Sessions
	Users    handlers.UserAdmin
	Records  handlers.ClinicalRecords
	Lookup   handlers.PatientLookup
	DB       handlers.Pinger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps, logger zerolog.Logger) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewRouter(cfg, deps, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer}
}

// NewRouter builds the route tree. Role-scoped endpoints are gated before
// any action handler runs.
func NewRouter(cfg config.Config, deps Deps, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins()))
	r.Use(middleware.Session(deps.Sessions, logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.DB, time.Now(), logger))

	auth := handlers.NewAuthHandler(deps.Sessions, cfg.CookieSecure, logger).Routes()
	limiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)
	r.With(limiter.Middleware).Post("/api/auth", auth.ServeHTTP)
	r.Get("/api/auth", auth.ServeHTTP)

	r.With(middleware.RequireRole(models.RoleAdmin, logger)).
		Handle("/api/admin", handlers.NewAdminHandler(deps.Users, logger).Routes())
	r.With(middleware.RequireRole(models.RoleClinician, logger)).
		Handle("/api/clinician", handlers.NewClinicianHandler(deps.Records, deps.Lookup, logger).Routes())
	r.With(middleware.RequireRole(models.RolePatient, logger)).
		Handle("/api/patient", handlers.NewPatientHandler(deps.Records, logger).Routes())

	return r
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
