package services

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gst-compliance/internal/lib/smtp"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

type fakeClient struct {
	from string
	rcpt []string
	body bytes.Buffer
}

func (c *fakeClient) Mail(from string) error { c.from = from; return nil }
func (c *fakeClient) Rcpt(to string) error   { c.rcpt = append(c.rcpt, to); return nil }
func (c *fakeClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&c.body}, nil
}
func (c *fakeClient) Quit() error  { return nil }
func (c *fakeClient) Close() error { return nil }

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type fakeTransport struct {
	client *fakeClient
}

func (t *fakeTransport) Connect() (smtp.Client, error) { return t.client, nil }
func (t *fakeTransport) GetSMTPUser() string           { return "alerts@gsttoday.com" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendDocumentAlert(t *testing.T) {
	tests := []struct {
		name        string
		alert       models.DocumentAlert
		wantSubject string
		wantInBody  string
	}{
		{
			name: "документ создан",
			alert: models.DocumentAlert{
				Event:        models.EventDocumentCreated,
				Email:        "user@example.com",
				Name:         "Ramesh",
				DocNumber:    "INV-2026-0001",
				Counterparty: "Acme Traders",
				TotalAmount:  1180,
			},
			wantSubject: "Subject: Invoice INV-2026-0001 recorded",
			wantInBody:  "has been recorded",
		},
		{
			name: "выпущен IRN",
			alert: models.DocumentAlert{
				Event:     models.EventIRNIssued,
				Email:     "user@example.com",
				Name:      "Ramesh",
				DocNumber: "INV-2026-0001",
				Reference: "IRN-001",
			},
			wantSubject: "Subject: IRN issued for invoice INV-2026-0001",
			wantInBody:  "IRN IRN-001",
		},
		{
			name: "выпущен E-Way Bill",
			alert: models.DocumentAlert{
				Event:     models.EventEWayBillIssued,
				Email:     "user@example.com",
				Name:      "Ramesh",
				DocNumber: "INV-2026-0001",
				Reference: "EWB-001",
			},
			wantSubject: "Subject: E-Way Bill issued for invoice INV-2026-0001",
			wantInBody:  "E-Way Bill EWB-001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			svc := NewSenderService(discardLogger(), &fakeTransport{client: client})

			body, err := json.Marshal(tt.alert)
			require.NoError(t, err)
			require.NoError(t, svc.SendDocumentAlert(body))

			assert.Equal(t, "alerts@gsttoday.com", client.from)
			assert.Equal(t, []string{"user@example.com"}, client.rcpt)
			assert.Contains(t, client.body.String(), tt.wantSubject)
			assert.Contains(t, client.body.String(), tt.wantInBody)
		})
	}
}

func TestSendDocumentAlert_UnknownEvent(t *testing.T) {
	svc := NewSenderService(discardLogger(), &fakeTransport{client: &fakeClient{}})

	body, err := json.Marshal(models.DocumentAlert{Event: "document.unknown", Email: "user@example.com"})
	require.NoError(t, err)

	assert.Error(t, svc.SendDocumentAlert(body))
}

func TestSendDocumentAlert_BadPayload(t *testing.T) {
	svc := NewSenderService(discardLogger(), &fakeTransport{client: &fakeClient{}})

	assert.Error(t, svc.SendDocumentAlert([]byte("{not-json")))
}
