// Package update реализует HTTP-обработчик обновления подписки текущего
// пользователя: активацию после оплаты и смену статуса.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
	"github.com/magabrotheeeer/gst-compliance/internal/storage/repository"
)

// Request — структура входных данных обновления подписки.
// Дата окончания передаётся строкой в формате 2006-01-02.
type Request struct {
	Status  string `json:"status" validate:"required,oneof=active expired pending"`
	EndDate string `json:"end_date" validate:"omitempty"`
}

// Handler обрабатывает HTTP-запросы обновления подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики обновления подписки.
type Service interface {
	UpdateSubscription(ctx context.Context, userUID, status string, endDate *time.Time) (*models.User, error)
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновить подписку текущего пользователя
// @Description Меняет статус подписки и дату окончания. Сессия пересоздаётся с новым снимком.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Новый статус подписки"
// @Success 200 {object} map[string]any "Обновлённый снимок пользователя"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.update"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			log.Error("failed to parse end date", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("end_date must be in format 2006-01-02"))
			return
		}
		endDate = &parsed
	}

	updated, err := h.service.UpdateSubscription(r.Context(), user.UID, req.Status, endDate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to update subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update subscription"))
		return
	}

	log.Info("subscription updated",
		slog.String("user_uid", user.UID), slog.String("status", updated.SubscriptionStatus))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription_status":   updated.SubscriptionStatus,
		"subscription_end_date": updated.SubscriptionEndDate,
	}))
}
