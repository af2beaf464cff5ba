// Package create реализует HTTP-обработчик создания документов учёта.
//
// Handler принимает JSON с данными счёта, валидирует их, извлекает пользователя
// из контекста и делегирует создание бизнес-сервису. Суммы налога в запросе
// не принимаются: они всегда пересчитываются на сервере.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
	compliance "github.com/magabrotheeeer/gst-compliance/internal/services/compliance"
)

// Handler управляет HTTP-запросами на создание документов.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики документов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания документа.
type Service interface {
	Create(ctx context.Context, user *models.User, req models.DummyDocument) (*models.ComplianceDocument, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать документ учёта
// @Description Сохраняет счёт продажи или закупки. Налог пересчитывается на сервере.
// @Tags Documents
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyDocument true "Данные нового документа"
// @Success 200 {object} map[string]any "Созданный документ"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании документа"
// @Router /documents [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.document.create"

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

	var req models.DummyDocument
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

	doc, err := h.service.Create(r.Context(), user, req)
	if err != nil {
		if errors.Is(err, compliance.ErrInvalidInput) {
			log.Error("invalid document data", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		log.Error("failed to create document", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create document"))
		return
	}

	log.Info("document created", slog.String("document_id", doc.ID))
	render.JSON(w, r, response.OKWithData(doc))
}
