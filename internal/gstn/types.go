// Package gstn реализует клиент внешнего органа электронного инвойсинга:
// выпуск IRN (e-invoice) и E-Way Bill. Вызовы могут завершаться неудачей
// или зависать; любая ошибка транспорта или неуспешный статус ответа
// представляется как ErrAuthorityUnavailable, без автоматических повторов —
// политика ретраев принадлежит вызывающей стороне.
package gstn

import "errors"

// ErrAuthorityUnavailable возвращается, когда внешний орган недоступен,
// вернул неуспешный статус или не ответил за отведённое время.
var ErrAuthorityUnavailable = errors.New("e-invoicing authority unavailable")

// IssueIRNRequest — данные документа, передаваемые органу для выпуска IRN.
type IssueIRNRequest struct {
	DocNumber     string  `json:"doc_number"`
	DocDate       string  `json:"doc_date"`
	SellerGSTIN   string  `json:"seller_gstin"`
	Counterparty  string  `json:"counterparty"`
	TaxableAmount float64 `json:"taxable_amount"`
	TotalAmount   float64 `json:"total_amount"`
}

// IRNResult — ответ органа на выпуск IRN.
type IRNResult struct {
	IRN          string `json:"irn"`
	AckNumber    string `json:"ack_number"`
	AckTimestamp string `json:"ack_timestamp"`
}

// IssueEWayBillRequest — данные для выпуска E-Way Bill по уже
// зарегистрированному IRN.
type IssueEWayBillRequest struct {
	IRN           string `json:"irn"`
	DistanceKm    int    `json:"distance_km"`
	VehicleNumber string `json:"vehicle_number"`
}

// EWBResult — ответ органа на выпуск E-Way Bill.
type EWBResult struct {
	EWBNumber  string `json:"ewb_number"`
	ValidUntil string `json:"valid_until"`
}
