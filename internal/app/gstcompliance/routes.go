// Package gstcompliance предоставляет маршруты для основного приложения.
package gstcompliance

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/admin/setstatus"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/admin/userlist"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/admin/userremove"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/auth/profile"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/document/create"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/document/generateewb"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/document/generateirn"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/document/list"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/document/read"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/document/remove"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/document/summary"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/health"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/subscription/update"
	"github.com/magabrotheeeer/gst-compliance/internal/http/handlers/tax/preview"
	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/jwt"
	authservice "github.com/magabrotheeeer/gst-compliance/internal/services/auth"
	complianceservice "github.com/magabrotheeeer/gst-compliance/internal/services/compliance"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, jwtMaker jwt.Maker,
	authService *authservice.AuthService, complianceService *complianceservice.ComplianceService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New().ServeHTTP)

		// Группа для любого вошедшего пользователя: подписка не требуется
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, authService, logger))
			r.Use(middlewarectx.AccessMiddleware(logger, false, false))
			r.Post("/logout", logout.New(logger, authService).ServeHTTP)
			r.Get("/profile", profile.New(logger).ServeHTTP)
			r.Put("/subscription", update.New(logger, authService).ServeHTTP)
		})

		// Группа с требованием активной подписки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, authService, logger))
			r.Use(middlewarectx.AccessMiddleware(logger, true, false))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/tax/preview", preview.New(logger).ServeHTTP)
			r.Post("/documents", create.New(logger, complianceService).ServeHTTP)
			r.Get("/documents", list.New(logger, complianceService).ServeHTTP)
			r.Get("/documents/summary", summary.New(logger, complianceService).ServeHTTP)
			r.Get("/documents/{id}", read.New(logger, complianceService).ServeHTTP)
			r.Delete("/documents/{id}", remove.New(logger, complianceService).ServeHTTP)
			r.Post("/documents/{id}/irn", generateirn.New(logger, complianceService).ServeHTTP)
			r.Post("/documents/{id}/ewaybill", generateewb.New(logger, complianceService).ServeHTTP)
		})

		// Административная группа
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, authService, logger))
			r.Use(middlewarectx.AccessMiddleware(logger, false, true))
			r.Get("/admin/users", userlist.New(logger, authService).ServeHTTP)
			r.Delete("/admin/users/{uid}", userremove.New(logger, authService).ServeHTTP)
			r.Put("/admin/users/{uid}/subscription", setstatus.New(logger, authService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
