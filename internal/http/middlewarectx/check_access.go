package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	access "github.com/magabrotheeeer/gst-compliance/internal/services/access"
)

// AccessMiddleware применяет политику доступа к маршруту: требование
// активной подписки и/или роли администратора. Пользователь ожидается
// в контексте запроса после JWTMiddleware.
func AccessMiddleware(log *slog.Logger, requiresSubscription, requiresAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())

			decision := access.Check(user, requiresSubscription, requiresAdmin)
			if !decision.Allowed {
				status := http.StatusForbidden
				if decision.RedirectTo == access.RedirectWelcome {
					status = http.StatusUnauthorized
				}
				log.Warn("access denied",
					slog.String("path", r.URL.Path),
					slog.String("redirect_to", decision.RedirectTo))
				w.WriteHeader(status)
				render.JSON(w, r, response.Redirect("access denied", decision.RedirectTo))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
