package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gst-compliance/internal/gstn"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
	"github.com/magabrotheeeer/gst-compliance/internal/storage/repository"
)

type mockDocumentRepository struct {
	mock.Mock
}

func (m *mockDocumentRepository) CreateDocument(ctx context.Context, doc models.ComplianceDocument) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

func (m *mockDocumentRepository) ReadDocument(ctx context.Context, userUID, id string) (*models.ComplianceDocument, error) {
	args := m.Called(ctx, userUID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplianceDocument), args.Error(1)
}

func (m *mockDocumentRepository) RemoveDocument(ctx context.Context, userUID, id string) (int, error) {
	args := m.Called(ctx, userUID, id)
	return args.Int(0), args.Error(1)
}

func (m *mockDocumentRepository) MarkIRNIssued(ctx context.Context, id, irn, ackNumber string, ackAt time.Time) error {
	args := m.Called(ctx, id, irn, ackNumber, ackAt)
	return args.Error(0)
}

func (m *mockDocumentRepository) MarkEWayBillIssued(ctx context.Context, id, ewbNumber string, validUntil time.Time, distanceKm int, vehicleNumber string) error {
	args := m.Called(ctx, id, ewbNumber, validUntil, distanceKm, vehicleNumber)
	return args.Error(0)
}

func (m *mockDocumentRepository) ListDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.ComplianceDocument, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ComplianceDocument), args.Error(1)
}

func (m *mockDocumentRepository) SummarizeDocuments(ctx context.Context, filter models.DocumentFilter) (*models.DocumentSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DocumentSummary), args.Error(1)
}

type mockAuthority struct {
	mock.Mock
}

func (m *mockAuthority) IssueIRN(ctx context.Context, doc *models.ComplianceDocument, sellerGSTIN string) (*gstn.IRNResult, error) {
	args := m.Called(ctx, doc, sellerGSTIN)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gstn.IRNResult), args.Error(1)
}

func (m *mockAuthority) IssueEWayBill(ctx context.Context, doc *models.ComplianceDocument, distanceKm int, vehicleNumber string) (*gstn.EWBResult, error) {
	args := m.Called(ctx, doc, distanceKm, vehicleNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gstn.EWBResult), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, key string, result any) (bool, error) { return false, nil }
func (noopCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return nil
}
func (noopCache) Invalidate(ctx context.Context, key string) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(repo *mockDocumentRepository, authority *mockAuthority, publisher *mockPublisher) *ComplianceService {
	return NewComplianceService(repo, authority, publisher, noopCache{}, 5*time.Second, discardLogger())
}

var testUser = &models.User{
	UID:   "uid-1",
	Name:  "Ramesh",
	Email: "user@example.com",
	GSTIN: "29ABCDE1234F1Z5",
	Role:  models.RoleUser,
}

var testAdmin = &models.User{
	UID:   "uid-admin",
	Email: "admin@gsttoday.com",
	Role:  models.RoleAdmin,
}

func TestCreate(t *testing.T) {
	t.Run("налог пересчитывается на сервере", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		publisher := new(mockPublisher)
		repo.On("CreateDocument", mock.Anything, mock.MatchedBy(func(doc models.ComplianceDocument) bool {
			return doc.UserUID == "uid-1" &&
				doc.TaxableAmount == 1000 &&
				doc.CGSTAmount == 90 &&
				doc.SGSTAmount == 90 &&
				doc.TotalAmount == 1180 &&
				!doc.HasIRN && !doc.HasEWayBill
		})).Return("doc-1", nil)
		publisher.On("Publish", "document.created", mock.MatchedBy(func(alert models.DocumentAlert) bool {
			return alert.Event == models.EventDocumentCreated && alert.Email == "user@example.com"
		})).Return(nil)

		svc := newService(repo, new(mockAuthority), publisher)
		doc, err := svc.Create(context.Background(), testUser, models.DummyDocument{
			Kind:         models.DocumentSale,
			DocNumber:    "INV-2026-0001",
			Counterparty: "Acme Traders",
			DocDate:      "2026-08-15",
			Items:        []models.DummyLineItem{{Name: "Cement", Quantity: 10, Rate: 100}},
		})

		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, 1180.0, doc.TotalAmount)
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("номер документа генерируется при отсутствии", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		publisher := new(mockPublisher)
		repo.On("CreateDocument", mock.Anything, mock.MatchedBy(func(doc models.ComplianceDocument) bool {
			return doc.DocNumber != ""
		})).Return("doc-1", nil)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		svc := newService(repo, new(mockAuthority), publisher)
		doc, err := svc.Create(context.Background(), testUser, models.DummyDocument{
			Kind:         models.DocumentPurchase,
			Counterparty: "Acme Traders",
			DocDate:      "2026-08-15",
			Items:        []models.DummyLineItem{{Name: "Cement", Quantity: 1, Rate: 100}},
		})

		require.NoError(t, err)
		assert.Contains(t, doc.DocNumber, "INV-")
	})

	t.Run("нечитаемая дата", func(t *testing.T) {
		svc := newService(new(mockDocumentRepository), new(mockAuthority), new(mockPublisher))
		_, err := svc.Create(context.Background(), testUser, models.DummyDocument{
			Kind:         models.DocumentSale,
			Counterparty: "Acme Traders",
			DocDate:      "15/08/2026",
			Items:        []models.DummyLineItem{{Name: "Cement", Quantity: 1, Rate: 100}},
		})

		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("ошибка публикации не откатывает создание", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		publisher := new(mockPublisher)
		repo.On("CreateDocument", mock.Anything, mock.Anything).Return("doc-1", nil)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)

		svc := newService(repo, new(mockAuthority), publisher)
		_, err := svc.Create(context.Background(), testUser, models.DummyDocument{
			Kind:         models.DocumentSale,
			Counterparty: "Acme Traders",
			DocDate:      "2026-08-15",
			Items:        []models.DummyLineItem{{Name: "Cement", Quantity: 1, Rate: 100}},
		})

		require.NoError(t, err)
	})
}

func TestGenerateIRN(t *testing.T) {
	freshDoc := func() *models.ComplianceDocument {
		return &models.ComplianceDocument{
			ID:           "doc-1",
			UserUID:      "uid-1",
			Kind:         models.DocumentSale,
			DocNumber:    "INV-2026-0001",
			Counterparty: "Acme Traders",
			DocDate:      time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
			TotalAmount:  1180,
		}
	}

	t.Run("успешный выпуск", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		authority := new(mockAuthority)
		publisher := new(mockPublisher)
		repo.On("ReadDocument", mock.Anything, "uid-1", "doc-1").Return(freshDoc(), nil)
		authority.On("IssueIRN", mock.Anything, mock.Anything, "29ABCDE1234F1Z5").
			Return(&gstn.IRNResult{IRN: "IRN-001", AckNumber: "ACK-001", AckTimestamp: "2026-08-15T10:00:00Z"}, nil)
		repo.On("MarkIRNIssued", mock.Anything, "doc-1", "IRN-001", "ACK-001", mock.Anything).Return(nil)
		publisher.On("Publish", "document.irn", mock.MatchedBy(func(alert models.DocumentAlert) bool {
			return alert.Reference == "IRN-001"
		})).Return(nil)

		svc := newService(repo, authority, publisher)
		doc, err := svc.GenerateIRN(context.Background(), testUser, "doc-1")

		require.NoError(t, err)
		assert.True(t, doc.HasIRN)
		assert.Equal(t, "IRN-001", doc.IRN)
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("повторный выпуск отклоняется", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		issued := freshDoc()
		issued.HasIRN = true
		issued.IRN = "IRN-001"
		repo.On("ReadDocument", mock.Anything, "uid-1", "doc-1").Return(issued, nil)

		svc := newService(repo, new(mockAuthority), new(mockPublisher))
		_, err := svc.GenerateIRN(context.Background(), testUser, "doc-1")

		require.ErrorIs(t, err, ErrAlreadyIssued)
	})

	t.Run("гонка закрывается на уровне хранилища", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		authority := new(mockAuthority)
		repo.On("ReadDocument", mock.Anything, "uid-1", "doc-1").Return(freshDoc(), nil)
		authority.On("IssueIRN", mock.Anything, mock.Anything, mock.Anything).
			Return(&gstn.IRNResult{IRN: "IRN-002", AckNumber: "ACK-002", AckTimestamp: "2026-08-15T10:00:00Z"}, nil)
		repo.On("MarkIRNIssued", mock.Anything, "doc-1", "IRN-002", "ACK-002", mock.Anything).
			Return(repository.ErrIRNAlreadyIssued)

		svc := newService(repo, authority, new(mockPublisher))
		_, err := svc.GenerateIRN(context.Background(), testUser, "doc-1")

		require.ErrorIs(t, err, ErrAlreadyIssued)
	})

	t.Run("отказ органа не меняет состояние", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		authority := new(mockAuthority)
		repo.On("ReadDocument", mock.Anything, "uid-1", "doc-1").Return(freshDoc(), nil)
		authority.On("IssueIRN", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, gstn.ErrAuthorityUnavailable)

		svc := newService(repo, authority, new(mockPublisher))
		_, err := svc.GenerateIRN(context.Background(), testUser, "doc-1")

		require.ErrorIs(t, err, gstn.ErrAuthorityUnavailable)
		repo.AssertNotCalled(t, "MarkIRNIssued", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("чужой документ не виден", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		repo.On("ReadDocument", mock.Anything, "uid-1", "doc-2").Return(nil, repository.ErrNotFound)

		svc := newService(repo, new(mockAuthority), new(mockPublisher))
		_, err := svc.GenerateIRN(context.Background(), testUser, "doc-2")

		require.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestGenerateEWayBill(t *testing.T) {
	docWithIRN := func() *models.ComplianceDocument {
		return &models.ComplianceDocument{
			ID:        "doc-1",
			UserUID:   "uid-1",
			DocNumber: "INV-2026-0001",
			HasIRN:    true,
			IRN:       "IRN-001",
		}
	}

	t.Run("успешный выпуск", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		authority := new(mockAuthority)
		publisher := new(mockPublisher)
		repo.On("ReadDocument", mock.Anything, "uid-1", "doc-1").Return(docWithIRN(), nil)
		authority.On("IssueEWayBill", mock.Anything, mock.Anything, 250, "KA01AB1234").
			Return(&gstn.EWBResult{EWBNumber: "EWB-001", ValidUntil: "2026-08-17T23:59:59Z"}, nil)
		repo.On("MarkEWayBillIssued", mock.Anything, "doc-1", "EWB-001", mock.Anything, 250, "KA01AB1234").Return(nil)
		publisher.On("Publish", "document.ewaybill", mock.MatchedBy(func(alert models.DocumentAlert) bool {
			return alert.Reference == "EWB-001"
		})).Return(nil)

		svc := newService(repo, authority, publisher)
		doc, err := svc.GenerateEWayBill(context.Background(), testUser, "doc-1", 250, "KA01AB1234")

		require.NoError(t, err)
		assert.True(t, doc.HasEWayBill)
		assert.Equal(t, "EWB-001", doc.EWBNumber)
		assert.Equal(t, 250, doc.DistanceKm)
		repo.AssertExpectations(t)
	})

	t.Run("без IRN выпуск невозможен", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		noIRN := docWithIRN()
		noIRN.HasIRN = false
		noIRN.IRN = ""
		repo.On("ReadDocument", mock.Anything, "uid-1", "doc-1").Return(noIRN, nil)

		svc := newService(repo, new(mockAuthority), new(mockPublisher))
		_, err := svc.GenerateEWayBill(context.Background(), testUser, "doc-1", 250, "KA01AB1234")

		require.ErrorIs(t, err, ErrPrecursorMissing)
	})

	t.Run("повторный выпуск отклоняется", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		issued := docWithIRN()
		issued.HasEWayBill = true
		repo.On("ReadDocument", mock.Anything, "uid-1", "doc-1").Return(issued, nil)

		svc := newService(repo, new(mockAuthority), new(mockPublisher))
		_, err := svc.GenerateEWayBill(context.Background(), testUser, "doc-1", 250, "KA01AB1234")

		require.ErrorIs(t, err, ErrAlreadyIssued)
	})

	t.Run("нулевое расстояние", func(t *testing.T) {
		svc := newService(new(mockDocumentRepository), new(mockAuthority), new(mockPublisher))
		_, err := svc.GenerateEWayBill(context.Background(), testUser, "doc-1", 0, "KA01AB1234")

		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("пустой номер транспортного средства", func(t *testing.T) {
		svc := newService(new(mockDocumentRepository), new(mockAuthority), new(mockPublisher))
		_, err := svc.GenerateEWayBill(context.Background(), testUser, "doc-1", 250, "")

		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("отказ органа не меняет состояние", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		authority := new(mockAuthority)
		repo.On("ReadDocument", mock.Anything, "uid-1", "doc-1").Return(docWithIRN(), nil)
		authority.On("IssueEWayBill", mock.Anything, mock.Anything, 250, "KA01AB1234").
			Return(nil, gstn.ErrAuthorityUnavailable)

		svc := newService(repo, authority, new(mockPublisher))
		_, err := svc.GenerateEWayBill(context.Background(), testUser, "doc-1", 250, "KA01AB1234")

		require.ErrorIs(t, err, gstn.ErrAuthorityUnavailable)
		repo.AssertNotCalled(t, "MarkEWayBillIssued",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestList(t *testing.T) {
	t.Run("пользователь видит только свои документы", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		repo.On("ListDocuments", mock.Anything, mock.MatchedBy(func(f models.DocumentFilter) bool {
			return f.UserUID == "uid-1"
		})).Return([]*models.ComplianceDocument{}, nil)

		svc := newService(repo, new(mockAuthority), new(mockPublisher))
		_, err := svc.List(context.Background(), testUser, models.DocumentFilter{UserUID: "uid-other"})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("администратор видит все документы", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		repo.On("ListDocuments", mock.Anything, mock.MatchedBy(func(f models.DocumentFilter) bool {
			return f.UserUID == ""
		})).Return([]*models.ComplianceDocument{}, nil)

		svc := newService(repo, new(mockAuthority), new(mockPublisher))
		_, err := svc.List(context.Background(), testAdmin, models.DocumentFilter{})

		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestRemove(t *testing.T) {
	t.Run("успешное удаление", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		repo.On("RemoveDocument", mock.Anything, "uid-1", "doc-1").Return(1, nil)

		svc := newService(repo, new(mockAuthority), new(mockPublisher))
		err := svc.Remove(context.Background(), testUser, "doc-1")

		require.NoError(t, err)
	})

	t.Run("неизвестный документ", func(t *testing.T) {
		repo := new(mockDocumentRepository)
		repo.On("RemoveDocument", mock.Anything, "uid-1", "doc-404").Return(0, nil)

		svc := newService(repo, new(mockAuthority), new(mockPublisher))
		err := svc.Remove(context.Background(), testUser, "doc-404")

		require.ErrorIs(t, err, repository.ErrNotFound)
	})
}
