// Package health реализует HTTP-обработчик проверки живости сервиса.
package health

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gst-compliance/internal/http/response"
)

// Handler отвечает на запросы проверки живости.
type Handler struct{}

// New создает новый Handler.
func New() *Handler {
	return &Handler{}
}

// ServeHTTP godoc
// @Summary Проверка живости
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Сервис работает"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OK())
}
