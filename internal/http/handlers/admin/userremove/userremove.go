// Package userremove реализует HTTP-обработчик удаления пользователя
// администратором. Документы пользователя удаляются каскадно.
package userremove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/storage/repository"
)

// Handler управляет HTTP-запросами удаления пользователей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления пользователей.
type Service interface {
	RemoveUser(ctx context.Context, userUID string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить пользователя
// @Description Удаляет пользователя вместе с его документами и сессией. Доступно только администратору.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param uid path string true "UID пользователя"
// @Success 200 {object} response.Response "Пользователь удалён"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Нельзя удалить собственную учётную запись"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users/{uid} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.userremove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	admin, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	uid := chi.URLParam(r, "uid")
	if uid == admin.UID {
		log.Warn("attempt to remove own account", slog.String("uid", uid))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("cannot remove own account"))
		return
	}

	if err := h.service.RemoveUser(r.Context(), uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to remove user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not remove user"))
		return
	}

	log.Info("user removed", slog.String("uid", uid))
	render.JSON(w, r, response.OK())
}
