// Package list реализует HTTP-обработчик выборки документов учёта по фильтру.
//
// Фильтр передаётся query-параметрами: kind, counterparty, from, to, status,
// limit, offset. Пользователь видит только собственные документы,
// администратор — документы всех пользователей.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

// Handler управляет HTTP-запросами на выборку документов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выборки документов.
type Service interface {
	List(ctx context.Context, user *models.User, filter models.DocumentFilter) ([]*models.ComplianceDocument, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список документов
// @Description Возвращает документы по фильтру, отсортированные по дате по убыванию.
// @Tags Documents
// @Produce  json
// @Security BearerAuth
// @Param kind query string false "Вид документа: sale или purchase"
// @Param counterparty query string false "Контрагент"
// @Param from query string false "Начало периода, 2006-01-02"
// @Param to query string false "Конец периода (исключительно), 2006-01-02"
// @Param status query string false "Статус: no_irn, has_irn, has_ewaybill, ewaybill_pending"
// @Param limit query int false "Максимум записей"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]any "Список документов"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Нечитаемый фильтр"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /documents [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.document.list"

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

	filter, err := filterFromQuery(r)
	if err != nil {
		log.Error("failed to parse filter", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	docs, err := h.service.List(r.Context(), user, filter)
	if err != nil {
		log.Error("failed to list documents", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list documents"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"documents": docs,
		"count":     len(docs),
	}))
}

// filterFromQuery разбирает DocumentFilter из query-параметров запроса.
func filterFromQuery(r *http.Request) (models.DocumentFilter, error) {
	q := r.URL.Query()
	filter := models.DocumentFilter{
		UserUID:      q.Get("user_uid"),
		Kind:         q.Get("kind"),
		Counterparty: q.Get("counterparty"),
		Status:       q.Get("status"),
	}

	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		filter.PeriodFrom = &parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		filter.PeriodTo = &parsed
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Offset = offset
	}
	return filter, nil
}
