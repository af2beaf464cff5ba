// Package middlewarectx содержит HTTP middleware для обработки и проверки JWT токенов
// и для применения политики доступа к защищённым маршрутам.
//
// JWTMiddleware проверяет наличие и валидность JWT токена в заголовке Authorization,
// восстанавливает сессию пользователя и кладёт её снимок в контекст запроса.
//
// В случае ошибки проверки возвращает HTTP 401 Unauthorized с сообщением об ошибке.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/jwt"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User — ключ для снимка пользователя в контексте.
const User Key = "user"

// SessionResolver описывает интерфейс восстановления сессии по UID
// из валидного токена.
type SessionResolver interface {
	Resolve(ctx context.Context, userUID string) (*models.User, error)
}

// UserFromContext возвращает снимок пользователя из контекста запроса.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(User).(*models.User)
	return user, ok && user != nil
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, восстанавливает сессию и добавляет пользователя в контекст
// запроса, иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(maker jwt.Maker, resolver SessionResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			authHeader := r.Header.Get("Authorization")

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Redirect("missing or invalid authorization header", "/welcome"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := maker.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Redirect("invalid or expired token", "/welcome"))
				return
			}

			user, err := resolver.Resolve(r.Context(), claims.UserUID)
			if err != nil {
				log.Error("failed to resolve session", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Redirect("session could not be restored", "/welcome"))
				return
			}

			ctx := context.WithValue(r.Context(), User, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
