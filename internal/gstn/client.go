package gstn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

var authorityCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gstn_authority_calls_total",
	Help: "Calls to the e-invoicing authority by operation and outcome.",
}, []string{"operation", "outcome"})

// Client — HTTP-клиент органа электронного инвойсинга.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент с таймаутом на сетевые вызовы.
func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IssueIRN регистрирует документ у органа и возвращает выпущенный IRN
// с данными подтверждения. При любой ошибке транспорта или неуспешном
// статусе возвращает ErrAuthorityUnavailable.
func (c *Client) IssueIRN(ctx context.Context, doc *models.ComplianceDocument, sellerGSTIN string) (*IRNResult, error) {
	const op = "gstn.IssueIRN"
	reqBody := IssueIRNRequest{
		DocNumber:     doc.DocNumber,
		DocDate:       doc.DocDate.Format("2006-01-02"),
		SellerGSTIN:   sellerGSTIN,
		Counterparty:  doc.Counterparty,
		TaxableAmount: doc.TaxableAmount,
		TotalAmount:   doc.TotalAmount,
	}

	var result IRNResult
	if err := c.post(ctx, "/einvoice/irn", reqBody, &result); err != nil {
		authorityCalls.WithLabelValues("issue_irn", "failure").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	authorityCalls.WithLabelValues("issue_irn", "success").Inc()
	return &result, nil
}

// IssueEWayBill выпускает E-Way Bill по зарегистрированному IRN.
func (c *Client) IssueEWayBill(ctx context.Context, doc *models.ComplianceDocument, distanceKm int, vehicleNumber string) (*EWBResult, error) {
	const op = "gstn.IssueEWayBill"
	reqBody := IssueEWayBillRequest{
		IRN:           doc.IRN,
		DistanceKm:    distanceKm,
		VehicleNumber: vehicleNumber,
	}

	var result EWBResult
	if err := c.post(ctx, "/ewaybill", reqBody, &result); err != nil {
		authorityCalls.WithLabelValues("issue_ewaybill", "failure").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	authorityCalls.WithLabelValues("issue_ewaybill", "success").Inc()
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: unexpected status %s", ErrAuthorityUnavailable, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	return nil
}
