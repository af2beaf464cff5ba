// Package services содержит отправку почтовых уведомлений о событиях
// по документам учёта.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/smtp"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

// SenderService отправляет письма о событиях по документам.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendDocumentAlert разбирает событие по документу и отправляет письмо
// владельцу. Неизвестный тип события считается ошибкой сообщения.
func (s *SenderService) SendDocumentAlert(body []byte) error {
	var alert models.DocumentAlert
	if err := json.Unmarshal(body, &alert); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	var subject, bodyText string
	switch alert.Event {
	case models.EventDocumentCreated:
		subject = fmt.Sprintf("Invoice %s recorded", alert.DocNumber)
		bodyText = fmt.Sprintf("Hello, %s!\n\nInvoice %s for %s (total %.2f INR) has been recorded in your GST compliance workspace.",
			alert.Name, alert.DocNumber, alert.Counterparty, alert.TotalAmount)
	case models.EventIRNIssued:
		subject = fmt.Sprintf("IRN issued for invoice %s", alert.DocNumber)
		bodyText = fmt.Sprintf("Hello, %s!\n\nThe e-invoicing authority has issued IRN %s for invoice %s (%s).\n\nNo further action is required.",
			alert.Name, alert.Reference, alert.DocNumber, alert.Counterparty)
	case models.EventEWayBillIssued:
		subject = fmt.Sprintf("E-Way Bill issued for invoice %s", alert.DocNumber)
		bodyText = fmt.Sprintf("Hello, %s!\n\nE-Way Bill %s has been issued for invoice %s (%s).\n\nKeep the bill number available during transport.",
			alert.Name, alert.Reference, alert.DocNumber, alert.Counterparty)
	default:
		return fmt.Errorf("unknown event type: %s", alert.Event)
	}

	return s.sendEmail([]string{alert.Email}, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", "error", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", "error", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("Failed to write email body", "error", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", "error", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", "error", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
