package models

import "time"

// Виды документов учёта.
const (
	DocumentSale     = "sale"
	DocumentPurchase = "purchase"
)

// ComplianceDocument представляет сохранённый счёт продажи или закупки
// вместе с его состоянием по IRN и E-Way Bill.
//
// Инвариант состояния: HasEWayBill => HasIRN. Оба флага переходят только
// из false в true и никогда не откатываются за время жизни записи.
type ComplianceDocument struct {
	ID            string     // Уникальный идентификатор документа
	Seq           int64      // Порядковый номер вставки, используется при сортировке
	UserUID       string     // Владелец документа
	Kind          string     // Вид: sale или purchase
	DocNumber     string     // Номер счёта, например INV-2026-0001
	Counterparty  string     // Контрагент: покупатель или поставщик
	DocDate       time.Time  // Дата документа
	Items         []LineItem // Позиции счёта
	TaxableAmount float64    // Налогооблагаемая сумма
	CGSTAmount    float64    // Сумма CGST
	SGSTAmount    float64    // Сумма SGST
	TotalAmount   float64    // Итоговая сумма с налогом
	HasIRN        bool       // Выпущен ли IRN (e-invoice)
	IRN           string     // Значение IRN, присвоенное внешним органом
	AckNumber     string     // Номер подтверждения от внешнего органа
	AckAt         *time.Time // Время подтверждения
	HasEWayBill   bool       // Выпущен ли E-Way Bill
	EWBNumber     string     // Номер E-Way Bill
	EWBValidUntil *time.Time // Срок действия E-Way Bill
	DistanceKm    int        // Расстояние перевозки, км
	VehicleNumber string     // Номер транспортного средства
	CreatedAt     time.Time  // Время создания записи
}

// DummyDocument используется для приёма данных нового документа
// из JSON-запроса до валидации. Дата приходит строкой в формате 2006-01-02.
type DummyDocument struct {
	Kind         string          `json:"kind" validate:"required,oneof=sale purchase"`
	DocNumber    string          `json:"doc_number" validate:"omitempty,max=50"`
	Counterparty string          `json:"counterparty" validate:"required,min=2,max=150"`
	DocDate      string          `json:"doc_date" validate:"required"`
	Items        []DummyLineItem `json:"items" validate:"required,min=1,dive"`
}

// DocumentSummary — агрегат по набору документов для слоя отчётов.
type DocumentSummary struct {
	Count         int     `json:"count"`
	TaxableAmount float64 `json:"taxable_amount"`
	GSTAmount     float64 `json:"gst_amount"`
	TotalAmount   float64 `json:"total_amount"`
}
