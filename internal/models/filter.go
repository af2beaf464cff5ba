package models

import "time"

// Статусы документов для фильтрации списка.
const (
	StatusFilterAll        = ""
	StatusFilterNoIRN      = "no_irn"
	StatusFilterHasIRN     = "has_irn"
	StatusFilterHasEWB     = "has_ewaybill"
	StatusFilterEWBPending = "ewaybill_pending" // IRN есть, E-Way Bill ещё нет
)

// DocumentFilter описывает параметры выборки документов,
// передаваемые в слой доступа к данным. Нулевые значения означают
// отсутствие фильтра по соответствующему полю.
type DocumentFilter struct {
	UserUID      string     // Владелец; пустое значение — все пользователи (только для admin)
	Kind         string     // sale, purchase или пусто
	Counterparty string     // Точное имя контрагента
	PeriodFrom   *time.Time // Начало периода по дате документа
	PeriodTo     *time.Time // Конец периода, не включая
	Status       string     // Один из StatusFilter-статусов
	Limit        int        // Размер страницы
	Offset       int        // Смещение
}
