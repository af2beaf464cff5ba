// Package logout реализует HTTP-обработчик завершения сессии пользователя.
//
// Выход тотален: обработчик всегда отвечает успехом, даже если снимок
// сессии не удалось удалить из хранилища.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
)

// Handler обрабатывает HTTP-запросы завершения сессии.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики завершения сессии.
type Service interface {
	Logout(ctx context.Context, userUID string)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Завершение сессии
// @Description Удаляет сессию текущего пользователя. Всегда завершается успехом.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Сессия завершена"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

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

	h.service.Logout(r.Context(), user.UID)

	log.Info("logout success", slog.String("user_uid", user.UID))
	render.JSON(w, r, response.OK())
}
