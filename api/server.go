/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Logger:     slog request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Prometheus request counter and latency (if enabled)
  6. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/auth/login        Public
  /api/*                 Bearer token required when auth is enabled
  /health                Liveness
  /metrics               Prometheus scrape endpoint (if enabled)

SEE ALSO:
  - handlers.go: Handler implementations
  - ../auth/middleware.go: Bearer token check
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/zoxknez/bidon/auth"
)

// RouterOptions tunes NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	if h.Metrics != nil {
		r.Use(instrument(h.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			if h.Issuer != nil {
				r.Use(auth.Middleware(h.Issuer))
			}

			r.Get("/dashboard", h.GetDashboard)

			// Container routes
			r.Route("/containers", func(r chi.Router) {
				r.Get("/", h.ListContainers)
				r.Post("/", h.CreateContainer)
				r.Get("/{id}", h.GetContainer)
				r.Put("/{id}", h.UpdateContainer)
				r.Delete("/{id}", h.DeleteContainer)
				r.Get("/{id}/additions", h.ListAdditions)
				r.Post("/{id}/additions", h.AddFuel)
				r.Get("/{id}/last-price", h.GetLastPrice)
				r.Get("/{id}/audit", h.AuditContainer)
			})

			// Transaction routes
			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Post("/", h.DispenseFuel)
				r.Delete("/{id}", h.DeleteTransaction)
			})

			// Vehicle routes
			r.Route("/vehicles", func(r chi.Router) {
				r.Get("/", h.ListVehicles)
				r.Post("/", h.CreateVehicle)
				r.Get("/{id}", h.GetVehicle)
				r.Put("/{id}", h.UpdateVehicle)
				r.Delete("/{id}", h.DeleteVehicle)
				r.Get("/{id}/transactions", h.ListVehicleTransactions)
			})

			// Vehicle type routes
			r.Route("/vehicle-types", func(r chi.Router) {
				r.Get("/", h.ListVehicleTypes)
				r.Post("/", h.CreateVehicleType)
				r.Delete("/{id}", h.DeleteVehicleType)
			})

			// Sector routes
			r.Route("/sectors", func(r chi.Router) {
				r.Get("/", h.ListSectors)
				r.Post("/", h.CreateSector)
				r.Get("/{id}", h.GetSector)
				r.Put("/{id}", h.UpdateSector)
				r.Delete("/{id}", h.DeleteSector)
			})

			// Report routes
			r.Route("/reports", func(r chi.Router) {
				r.Get("/vehicles", h.ReportByVehicle)
				r.Get("/sectors", h.ReportBySector)
				r.Get("/containers", h.ReportByContainer)
				r.Get("/costs", h.ReportTotalCosts)
				r.Get("/time", h.ReportTime)
				r.Get("/export", h.ExportReport)
			})
		})
	})

	return r
}
