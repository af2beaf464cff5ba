// Package profile реализует HTTP-обработчик чтения профиля текущего пользователя.
package profile

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
)

// Handler обрабатывает HTTP-запросы чтения профиля.
type Handler struct {
	log *slog.Logger
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Профиль текущего пользователя
// @Description Возвращает снимок пользователя из восстановленной сессии.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Профиль пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /profile [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.profile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"uid":                   user.UID,
		"name":                  user.Name,
		"email":                 user.Email,
		"phone":                 user.Phone,
		"business_name":         user.BusinessName,
		"gstin":                 user.GSTIN,
		"role":                  user.Role,
		"subscription_status":   user.SubscriptionStatus,
		"subscription_end_date": user.SubscriptionEndDate,
	}))
}
