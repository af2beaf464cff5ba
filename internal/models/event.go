package models

// События по документам, публикуемые в брокер сообщений.
const (
	EventDocumentCreated = "document.created"
	EventIRNIssued       = "document.irn"
	EventEWayBillIssued  = "document.ewaybill"
)

// DocumentAlert — сообщение для alert-sender о событии по документу.
// Содержит всё необходимое для письма, чтобы потребителю не требовался
// доступ к базе данных.
type DocumentAlert struct {
	Event        string  `json:"event"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	DocNumber    string  `json:"doc_number"`
	Counterparty string  `json:"counterparty"`
	TotalAmount  float64 `json:"total_amount"`
	Reference    string  `json:"reference,omitempty"` // IRN или номер E-Way Bill
}
