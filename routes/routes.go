package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/audit-trail/app"
	"github.com/upb/audit-trail/handlers"
	"github.com/upb/audit-trail/middleware"
	"github.com/upb/audit-trail/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(chimw.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.ActorHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.Backend(), deps.HealthChecks, deps.Logger)
	users := handlers.NewUserHandler(deps.Users, deps.Logger)
	audits := handlers.NewAuditHandler(deps.Audits, deps.Logger)
	reports := handlers.NewReportHandler(deps.Reports, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", users.HandleCreateUser)
			r.Get("/exists/{userId}", users.HandleUserExists)
			r.Get("/{userId}", users.HandleGetUser)
			r.Put("/{userId}/role", users.HandleUpdateRole)
			r.Delete("/{userId}", users.HandleDeactivateUser)
		})

		// Static segments are matched before {auditId}
		r.Route("/audit", func(r chi.Router) {
			r.Post("/", audits.HandleLogAudit)
			r.Get("/", audits.HandleListAudits)
			r.Get("/user/{userId}", audits.HandleListByUser)
			r.Get("/action/{action}", audits.HandleListByAction)
			r.Get("/daterange", audits.HandleListByDateRange)
			r.Get("/stats", audits.HandleStats)
			r.Get("/exists/{auditId}", audits.HandleAuditExists)
			r.Get("/{auditId}", audits.HandleGetAudit)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", reports.HandleGenerateReport)
			r.Get("/", reports.HandleListReports)
			r.Get("/{reportId}", reports.HandleGetReport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
