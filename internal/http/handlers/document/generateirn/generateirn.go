// Package generateirn реализует HTTP-обработчик выпуска IRN (e-invoice)
// по документу учёта через внешний орган.
package generateirn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/gstn"
	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
	compliance "github.com/magabrotheeeer/gst-compliance/internal/services/compliance"
	"github.com/magabrotheeeer/gst-compliance/internal/storage/repository"
)

// Handler управляет HTTP-запросами на выпуск IRN.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики выпуска IRN.
type Service interface {
	GenerateIRN(ctx context.Context, user *models.User, id string) (*models.ComplianceDocument, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выпустить IRN по документу
// @Description Регистрирует документ у внешнего органа. Повторный выпуск отклоняется.
// @Tags Documents
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор документа"
// @Success 200 {object} map[string]any "Документ с выпущенным IRN"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Документ не найден"
// @Failure 409 {object} response.ErrorResponse "IRN уже выпущен"
// @Failure 502 {object} response.ErrorResponse "Внешний орган недоступен"
// @Router /documents/{id}/irn [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.document.generateirn"

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

	id := chi.URLParam(r, "id")
	doc, err := h.service.GenerateIRN(r.Context(), user, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("document not found"))
		case errors.Is(err, compliance.ErrAlreadyIssued):
			log.Warn("irn already issued", slog.String("document_id", id))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("irn already issued"))
		case errors.Is(err, gstn.ErrAuthorityUnavailable):
			log.Error("authority unavailable", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("e-invoicing authority unavailable, try again later"))
		default:
			log.Error("failed to generate irn", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not generate irn"))
		}
		return
	}

	log.Info("irn issued", slog.String("document_id", id), slog.String("irn", doc.IRN))
	render.JSON(w, r, response.OKWithData(doc))
}
