package models

// LineItem представляет одну позицию счёта. Позиции принадлежат
// только своему документу и не разделяются между документами.
type LineItem struct {
	Name     string  `json:"name"`     // Наименование товара или услуги
	HSNCode  string  `json:"hsn_code"` // Код HSN позиции
	Quantity float64 `json:"quantity"` // Количество, неотрицательное
	Rate     float64 `json:"rate"`     // Цена за единицу, неотрицательная
}

// TaxBreakdown — производный расчёт налога по списку позиций.
// Никогда не хранится отдельно: всегда пересчитывается из позиций.
// Инвариант: Total = TaxableAmount + CGST + SGST, при этом CGST == SGST.
type TaxBreakdown struct {
	TaxableAmount float64 `json:"taxable_amount"` // Налогооблагаемая сумма
	CGST          float64 `json:"cgst"`           // Центральная часть налога
	SGST          float64 `json:"sgst"`           // Региональная часть налога
	Total         float64 `json:"total"`          // Итог с налогом
}

// DummyLineItem используется для приёма позиции из JSON-запроса
// до валидации и преобразования в LineItem.
type DummyLineItem struct {
	Name     string  `json:"name" validate:"required"`
	HSNCode  string  `json:"hsn_code" validate:"omitempty,max=8"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Rate     float64 `json:"rate" validate:"gte=0"`
}
