package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/civic-report/internal/auth"
	"github.com/frahmantamala/civic-report/internal/category"
	"github.com/frahmantamala/civic-report/internal/issue"
	"github.com/frahmantamala/civic-report/internal/stats"
	"github.com/frahmantamala/civic-report/internal/transport/middleware"
	"github.com/frahmantamala/civic-report/internal/user"
	"github.com/frahmantamala/civic-report/internal/view"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

const OpenAPIPath = "./api/openapi.yml"

// Handlers groups everything the router mounts. Nil handlers leave their routes out.
type Handlers struct {
	Health      *HealthHandler
	Auth        *auth.Handler
	RBAC        *auth.RBACAuthorization
	User        *user.Handler
	Issue       *issue.Handler
	Category    *category.Handler
	Stats       *stats.Handler
	View        *view.Handler
	RateLimiter *middleware.IssueRateLimiter
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, allowedOrigins string, logger *slog.Logger) {
	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, OpenAPIPath)
	})
	router.Handle("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yml")))

	// Mount API under /api/v1 to match OpenAPI servers
	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Category != nil {
			r.Get("/categories", h.Category.GetCategories)
		}

		// Public issue reads
		if h.Issue != nil {
			r.Get("/issues", h.Issue.ListIssues)
			r.Get("/issues/{id}", h.Issue.GetIssue)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", h.Auth.Login)
			ar.Post("/register", h.Auth.Register)
			ar.Post("/logout", h.Auth.Logout)
		})

		rbac := h.RBAC
		if rbac == nil {
			rbac = auth.NewRBACAuthorization(logger)
		}

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.With(rbac.Require(auth.CapListAdmins)).Get("/admin/admins", h.User.ListAdmins)
			}

			if h.Issue != nil {
				pr.With(rbac.Require(auth.CapViewOwnReports)).Get("/issues/mine", h.Issue.ListMyIssues)

				pr.Group(func(sr chi.Router) {
					sr.Use(rbac.Require(auth.CapSubmitIssue))
					if h.RateLimiter != nil {
						sr.Use(h.RateLimiter.Limit)
					}
					sr.Post("/issues", h.Issue.CreateIssue)
				})

				pr.With(rbac.Require(auth.CapChangeStatus)).Put("/issues/{id}", h.Issue.UpdateIssue)
				pr.With(rbac.Require(auth.CapAssign)).Put("/issues/{id}/assign", h.Issue.AssignIssue)
				pr.With(rbac.Require(auth.CapUpvote)).Post("/issues/{id}/upvote", h.Issue.UpvoteIssue)
				pr.With(rbac.Require(auth.CapViewAdminIssues)).Get("/admin/issues", h.Issue.AdminIssues)
			}

			if h.Stats != nil {
				pr.With(rbac.Require(auth.CapViewStats)).Get("/stats/dashboard", h.Stats.GetDashboardStats)
			}

			if h.View != nil {
				pr.Get("/dashboard", h.View.GetDashboard)
			}
		})
	})
}
