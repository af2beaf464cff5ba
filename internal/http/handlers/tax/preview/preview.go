// Package preview реализует HTTP-обработчик предварительного расчёта налога
// по списку позиций без сохранения документа.
package preview

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/gst"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

// Request — список позиций для расчёта.
type Request struct {
	Items []models.DummyLineItem `json:"items" validate:"required,min=1,dive"`
}

// Handler обрабатывает HTTP-запросы предварительного расчёта налога.
// Расчёт чистый и не требует бизнес-сервиса.
type Handler struct {
	log      *slog.Logger
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{
		log:      log,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Предварительный расчёт налога
// @Description Считает CGST, SGST и итог по списку позиций без сохранения документа.
// @Tags Tax
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Позиции для расчёта"
// @Success 200 {object} map[string]any "Расчёт налога"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /tax/preview [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tax.preview"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	items := make([]models.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.LineItem{
			Name:     it.Name,
			HSNCode:  it.HSNCode,
			Quantity: it.Quantity,
			Rate:     it.Rate,
		})
	}

	render.JSON(w, r, response.OKWithData(gst.Calculate(items)))
}
