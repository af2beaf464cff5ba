// Package gst реализует расчёт налога GST по списку позиций счёта.
//
// Сервис работает в предположении внутриштатной продажи: налог делится
// поровну на CGST и SGST по фиксированной ставке 9% + 9% (18% суммарно).
// Ставка по кодам HSN не дифференцируется.
package gst

import (
	"math"

	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

// Ставки CGST и SGST. Суммарная ставка налога — CGSTRate + SGSTRate.
const (
	CGSTRate = 0.09
	SGSTRate = 0.09
)

// Calculate вычисляет налоговую раскладку по списку позиций.
//
// Функция чистая: не имеет побочных эффектов и детерминирована.
// Отрицательные, NaN и бесконечные количества или цены учитываются как 0 —
// это зафиксированная политика обработки некорректного числового ввода,
// а не скрытое поведение: такая позиция не вносит вклад в сумму.
func Calculate(items []models.LineItem) models.TaxBreakdown {
	var taxable float64
	for _, item := range items {
		qty := sanitize(item.Quantity)
		rate := sanitize(item.Rate)
		taxable += qty * rate
	}

	cgst := taxable * CGSTRate
	sgst := taxable * SGSTRate
	return models.TaxBreakdown{
		TaxableAmount: taxable,
		CGST:          cgst,
		SGST:          sgst,
		Total:         taxable + cgst + sgst,
	}
}

// Round2 округляет сумму до двух знаков (до пайсы).
// Используется при сохранении и выводе, сам расчёт ведётся без округления.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
