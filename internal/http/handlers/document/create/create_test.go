package create

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/gst-compliance/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
	compliance "github.com/magabrotheeeer/gst-compliance/internal/services/compliance"
)

type ComplianceServiceMock struct {
	mock.Mock
}

func (m *ComplianceServiceMock) Create(ctx context.Context, user *models.User, req models.DummyDocument) (*models.ComplianceDocument, error) {
	args := m.Called(ctx, user, req)
	doc, _ := args.Get(0).(*models.ComplianceDocument)
	return doc, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var testUser = &models.User{UID: "uid-1", Role: models.RoleUser, SubscriptionStatus: models.SubscriptionActive}

func validRequest() models.DummyDocument {
	return models.DummyDocument{
		Kind:         models.DocumentSale,
		DocNumber:    "INV-2026-0001",
		Counterparty: "Acme Traders",
		DocDate:      "2026-08-15",
		Items:        []models.DummyLineItem{{Name: "Cement", Quantity: 10, Rate: 100}},
	}
}

func TestCreateHandler_ServeHTTP(t *testing.T) {
	svcMock := new(ComplianceServiceMock)
	handler := New(newNoopLogger(), svcMock)

	created := &models.ComplianceDocument{
		ID:          "doc-1",
		UserUID:     "uid-1",
		DocNumber:   "INV-2026-0001",
		TotalAmount: 1180,
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		withUser       bool
		mockDoc        *models.ComplianceDocument
		mockErr        error
		wantStatusCode int
		wantStatus     string
		wantError      string
	}{
		{
			name:           "valid document",
			requestBody:    validRequest(),
			withUser:       true,
			mockDoc:        created,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "no user in context",
			requestBody:    validRequest(),
			withUser:       false,
			wantStatusCode: http.StatusUnauthorized,
			wantStatus:     "Error",
			wantError:      "unauthorized",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			withUser:       true,
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "invalid request body",
		},
		{
			name: "validation error - no items",
			requestBody: func() models.DummyDocument {
				r := validRequest()
				r.Items = nil
				return r
			}(),
			withUser:       true,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
		},
		{
			name: "unreadable date",
			requestBody: func() models.DummyDocument {
				r := validRequest()
				r.DocDate = "15/08/2026"
				return r
			}(),
			withUser:       true,
			mockErr:        compliance.ErrInvalidInput,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcMock.ExpectedCalls = nil
			svcMock.Calls = nil

			if tt.mockDoc != nil || tt.mockErr != nil {
				svcMock.On("Create", mock.Anything, testUser, mock.Anything).
					Return(tt.mockDoc, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(bodyBytes))
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if tt.withUser {
				ctx = context.WithValue(ctx, middlewarectx.User, testUser)
			}
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			}
		})
	}
}
