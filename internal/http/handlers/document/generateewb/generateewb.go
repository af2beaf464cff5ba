// Package generateewb реализует HTTP-обработчик выпуска E-Way Bill
// по документу учёта с уже выпущенным IRN.
package generateewb

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gst-compliance/internal/gstn"
	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
	compliance "github.com/magabrotheeeer/gst-compliance/internal/services/compliance"
	"github.com/magabrotheeeer/gst-compliance/internal/storage/repository"
)

// Request — данные перевозки для выпуска E-Way Bill.
type Request struct {
	DistanceKm    int    `json:"distance_km" validate:"required,gt=0"`
	VehicleNumber string `json:"vehicle_number" validate:"required,min=4,max=20"`
}

// Handler управляет HTTP-запросами на выпуск E-Way Bill.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики выпуска E-Way Bill.
type Service interface {
	GenerateEWayBill(ctx context.Context, user *models.User, id string, distanceKm int, vehicleNumber string) (*models.ComplianceDocument, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выпустить E-Way Bill по документу
// @Description Выпускает E-Way Bill. Требуется выпущенный IRN, положительное расстояние и номер транспорта.
// @Tags Documents
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор документа"
// @Param request body Request true "Данные перевозки"
// @Success 200 {object} map[string]any "Документ с выпущенным E-Way Bill"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Документ не найден"
// @Failure 409 {object} response.ErrorResponse "E-Way Bill уже выпущен или IRN отсутствует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Внешний орган недоступен"
// @Router /documents/{id}/ewaybill [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.document.generateewb"

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

	id := chi.URLParam(r, "id")
	doc, err := h.service.GenerateEWayBill(r.Context(), user, id, req.DistanceKm, req.VehicleNumber)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("document not found"))
		case errors.Is(err, compliance.ErrPrecursorMissing):
			log.Warn("irn missing", slog.String("document_id", id))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("irn must be issued before e-way bill"))
		case errors.Is(err, compliance.ErrAlreadyIssued):
			log.Warn("e-way bill already issued", slog.String("document_id", id))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("e-way bill already issued"))
		case errors.Is(err, compliance.ErrInvalidInput):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
		case errors.Is(err, gstn.ErrAuthorityUnavailable):
			log.Error("authority unavailable", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("e-invoicing authority unavailable, try again later"))
		default:
			log.Error("failed to generate e-way bill", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not generate e-way bill"))
		}
		return
	}

	log.Info("e-way bill issued", slog.String("document_id", id), slog.String("ewb_number", doc.EWBNumber))
	render.JSON(w, r, response.OKWithData(doc))
}
