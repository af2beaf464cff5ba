// Package summary реализует HTTP-обработчик агрегатов по документам учёта
// для слоя отчётов: количество документов и суммы за период.
package summary

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

// Handler управляет HTTP-запросами агрегатов по документам.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики агрегатов.
type Service interface {
	Summary(ctx context.Context, user *models.User, filter models.DocumentFilter) (*models.DocumentSummary, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Агрегат по документам
// @Description Возвращает количество документов и суммы по фильтру.
// @Tags Documents
// @Produce  json
// @Security BearerAuth
// @Param kind query string false "Вид документа: sale или purchase"
// @Param from query string false "Начало периода, 2006-01-02"
// @Param to query string false "Конец периода (исключительно), 2006-01-02"
// @Param status query string false "Статус: no_irn, has_irn, has_ewaybill, ewaybill_pending"
// @Success 200 {object} map[string]any "Агрегат"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Нечитаемый фильтр"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /documents/summary [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.document.summary"

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

	q := r.URL.Query()
	filter := models.DocumentFilter{
		Kind:   q.Get("kind"),
		Status: q.Get("status"),
	}
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("from must be in format 2006-01-02"))
			return
		}
		filter.PeriodFrom = &parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("to must be in format 2006-01-02"))
			return
		}
		filter.PeriodTo = &parsed
	}

	result, err := h.service.Summary(r.Context(), user, filter)
	if err != nil {
		log.Error("failed to summarize documents", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not summarize documents"))
		return
	}

	render.JSON(w, r, response.OKWithData(result))
}
