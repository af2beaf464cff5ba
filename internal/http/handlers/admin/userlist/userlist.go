// Package userlist реализует HTTP-обработчик списка пользователей
// для администратора.
package userlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

// Handler управляет HTTP-запросами списка пользователей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка пользователей.
type Service interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// userView — снимок пользователя для ответа без хэша пароля.
type userView struct {
	UID                 string `json:"uid"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	BusinessName        string `json:"business_name"`
	GSTIN               string `json:"gstin"`
	Role                string `json:"role"`
	SubscriptionStatus  string `json:"subscription_status"`
	SubscriptionEndDate any    `json:"subscription_end_date"`
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Description Возвращает пользователей с пагинацией. Доступно только администратору.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Максимум записей"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]any "Список пользователей"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.userlist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list users"))
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			UID:                 u.UID,
			Name:                u.Name,
			Email:               u.Email,
			BusinessName:        u.BusinessName,
			GSTIN:               u.GSTIN,
			Role:                u.Role,
			SubscriptionStatus:  u.SubscriptionStatus,
			SubscriptionEndDate: u.SubscriptionEndDate,
		})
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"users": views,
		"count": len(views),
	}))
}
