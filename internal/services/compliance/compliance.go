// Package services содержит логику бизнес-уровня для работы с документами
// учёта: создание, выпуск IRN и E-Way Bill, выборки и агрегаты.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/gst-compliance/internal/gstn"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/gst"
	"github.com/magabrotheeeer/gst-compliance/internal/lib/sl"
	"github.com/magabrotheeeer/gst-compliance/internal/models"
	"github.com/magabrotheeeer/gst-compliance/internal/rabbitmq"
	"github.com/magabrotheeeer/gst-compliance/internal/storage/repository"
)

// Ошибки бизнес-уровня по документам.
var (
	// ErrAlreadyIssued возвращается при повторном выпуске IRN или E-Way Bill.
	ErrAlreadyIssued = errors.New("already issued")
	// ErrPrecursorMissing возвращается при попытке выпустить E-Way Bill
	// по документу без IRN.
	ErrPrecursorMissing = errors.New("irn must be issued first")
	// ErrInvalidInput возвращается при недопустимых данных запроса.
	ErrInvalidInput = errors.New("invalid input")
)

// DocumentRepository описывает контракт для работы с документами в базе данных.
type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc models.ComplianceDocument) (string, error)
	ReadDocument(ctx context.Context, userUID, id string) (*models.ComplianceDocument, error)
	RemoveDocument(ctx context.Context, userUID, id string) (int, error)
	MarkIRNIssued(ctx context.Context, id, irn, ackNumber string, ackAt time.Time) error
	MarkEWayBillIssued(ctx context.Context, id, ewbNumber string, validUntil time.Time, distanceKm int, vehicleNumber string) error
	ListDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.ComplianceDocument, error)
	SummarizeDocuments(ctx context.Context, filter models.DocumentFilter) (*models.DocumentSummary, error)
}

// Authority описывает клиент внешнего органа электронного инвойсинга.
type Authority interface {
	IssueIRN(ctx context.Context, doc *models.ComplianceDocument, sellerGSTIN string) (*gstn.IRNResult, error)
	IssueEWayBill(ctx context.Context, doc *models.ComplianceDocument, distanceKm int, vehicleNumber string) (*gstn.EWBResult, error)
}

// Publisher описывает публикацию событий по документам в брокер сообщений.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Cache описывает кэш документов со сквозным чтением.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// documentCacheTTL — срок жизни кэшированного документа.
const documentCacheTTL = 10 * time.Minute

// ComplianceService управляет жизненным циклом документов учёта.
type ComplianceService struct {
	repo             DocumentRepository
	authority        Authority
	publisher        Publisher
	cache            Cache
	authorityTimeout time.Duration
	log              *slog.Logger
}

// NewComplianceService создает новый экземпляр ComplianceService.
func NewComplianceService(repo DocumentRepository, authority Authority, publisher Publisher,
	cache Cache, authorityTimeout time.Duration, log *slog.Logger) *ComplianceService {
	return &ComplianceService{
		repo:             repo,
		authority:        authority,
		publisher:        publisher,
		cache:            cache,
		authorityTimeout: authorityTimeout,
		log:              log,
	}
}

func documentKey(id string) string {
	return "document:" + id
}

// Create сохраняет новый документ. Суммы налога всегда пересчитываются
// из позиций на сервере, значения из запроса не принимаются.
func (s *ComplianceService) Create(ctx context.Context, user *models.User, req models.DummyDocument) (*models.ComplianceDocument, error) {
	const op = "compliance.Create"

	docDate, err := time.Parse("2006-01-02", req.DocDate)
	if err != nil {
		return nil, fmt.Errorf("%w: doc_date must be YYYY-MM-DD", ErrInvalidInput)
	}

	items := make([]models.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.LineItem{
			Name:     it.Name,
			HSNCode:  it.HSNCode,
			Quantity: it.Quantity,
			Rate:     it.Rate,
		})
	}
	breakdown := gst.Calculate(items)

	docNumber := req.DocNumber
	if docNumber == "" {
		docNumber = fmt.Sprintf("INV-%d", time.Now().UnixMilli())
	}

	doc := models.ComplianceDocument{
		ID:            uuid.NewString(),
		UserUID:       user.UID,
		Kind:          req.Kind,
		DocNumber:     docNumber,
		Counterparty:  req.Counterparty,
		DocDate:       docDate,
		Items:         items,
		TaxableAmount: breakdown.TaxableAmount,
		CGSTAmount:    breakdown.CGST,
		SGSTAmount:    breakdown.SGST,
		TotalAmount:   breakdown.Total,
	}
	if _, err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	doc.CreatedAt = time.Now().UTC()

	s.cacheDocument(ctx, &doc)
	s.publishAlert(user, &doc, models.EventDocumentCreated, rabbitmq.RoutingDocumentCreated, "")
	return &doc, nil
}

// GenerateIRN выпускает IRN по документу через внешний орган.
//
// Повторный выпуск отклоняется дважды: быстрая проверка по прочитанному
// документу и compare-and-swap в хранилище, закрывающий гонку между
// конкурирующими запросами. При отказе органа состояние документа
// не меняется.
func (s *ComplianceService) GenerateIRN(ctx context.Context, user *models.User, id string) (*models.ComplianceDocument, error) {
	const op = "compliance.GenerateIRN"

	doc, err := s.repo.ReadDocument(ctx, s.scope(user), id)
	if err != nil {
		return nil, err
	}
	if doc.HasIRN {
		return nil, ErrAlreadyIssued
	}

	callCtx, cancel := context.WithTimeout(ctx, s.authorityTimeout)
	defer cancel()
	result, err := s.authority.IssueIRN(callCtx, doc, user.GSTIN)
	if err != nil {
		return nil, err
	}

	ackAt := parseAuthorityTime(result.AckTimestamp)
	if err := s.repo.MarkIRNIssued(ctx, doc.ID, result.IRN, result.AckNumber, ackAt); err != nil {
		if errors.Is(err, repository.ErrIRNAlreadyIssued) {
			return nil, ErrAlreadyIssued
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	doc.HasIRN = true
	doc.IRN = result.IRN
	doc.AckNumber = result.AckNumber
	doc.AckAt = &ackAt

	s.cacheDocument(ctx, doc)
	s.publishAlert(user, doc, models.EventIRNIssued, rabbitmq.RoutingIRNIssued, doc.IRN)
	return doc, nil
}

// GenerateEWayBill выпускает E-Way Bill по документу с уже выпущенным IRN.
// Требует положительного расстояния перевозки и номера транспортного средства.
func (s *ComplianceService) GenerateEWayBill(ctx context.Context, user *models.User, id string, distanceKm int, vehicleNumber string) (*models.ComplianceDocument, error) {
	const op = "compliance.GenerateEWayBill"

	if distanceKm <= 0 {
		return nil, fmt.Errorf("%w: distance_km must be positive", ErrInvalidInput)
	}
	if vehicleNumber == "" {
		return nil, fmt.Errorf("%w: vehicle_number is required", ErrInvalidInput)
	}

	doc, err := s.repo.ReadDocument(ctx, s.scope(user), id)
	if err != nil {
		return nil, err
	}
	if !doc.HasIRN {
		return nil, ErrPrecursorMissing
	}
	if doc.HasEWayBill {
		return nil, ErrAlreadyIssued
	}

	callCtx, cancel := context.WithTimeout(ctx, s.authorityTimeout)
	defer cancel()
	result, err := s.authority.IssueEWayBill(callCtx, doc, distanceKm, vehicleNumber)
	if err != nil {
		return nil, err
	}

	validUntil := parseAuthorityTime(result.ValidUntil)
	if err := s.repo.MarkEWayBillIssued(ctx, doc.ID, result.EWBNumber, validUntil, distanceKm, vehicleNumber); err != nil {
		if errors.Is(err, repository.ErrEWayBillConflict) {
			return nil, ErrAlreadyIssued
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	doc.HasEWayBill = true
	doc.EWBNumber = result.EWBNumber
	doc.EWBValidUntil = &validUntil
	doc.DistanceKm = distanceKm
	doc.VehicleNumber = vehicleNumber

	s.cacheDocument(ctx, doc)
	s.publishAlert(user, doc, models.EventEWayBillIssued, rabbitmq.RoutingEWayBillIssued, doc.EWBNumber)
	return doc, nil
}

// Read возвращает документ по идентификатору: сначала из кэша,
// при промахе — из базы данных с последующим кэшированием.
func (s *ComplianceService) Read(ctx context.Context, user *models.User, id string) (*models.ComplianceDocument, error) {
	var cached models.ComplianceDocument
	found, err := s.cache.Get(ctx, documentKey(id), &cached)
	if err != nil {
		s.log.Warn("failed to read document cache", slog.String("document_id", id), sl.Err(err))
	} else if found {
		// Кэш общий, поэтому владение проверяется и на попадании.
		if !user.IsAdmin() && cached.UserUID != user.UID {
			return nil, repository.ErrNotFound
		}
		return &cached, nil
	}

	doc, err := s.repo.ReadDocument(ctx, s.scope(user), id)
	if err != nil {
		return nil, err
	}
	s.cacheDocument(ctx, doc)
	return doc, nil
}

// Remove удаляет документ пользователя вместе с кэшированной копией.
func (s *ComplianceService) Remove(ctx context.Context, user *models.User, id string) error {
	count, err := s.repo.RemoveDocument(ctx, s.scope(user), id)
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	if err := s.cache.Invalidate(ctx, documentKey(id)); err != nil {
		s.log.Warn("failed to invalidate document cache", slog.String("document_id", id), sl.Err(err))
	}
	return nil
}

// List возвращает документы по фильтру. Не-администратор видит только
// собственные документы независимо от значения фильтра.
func (s *ComplianceService) List(ctx context.Context, user *models.User, filter models.DocumentFilter) ([]*models.ComplianceDocument, error) {
	if !user.IsAdmin() {
		filter.UserUID = user.UID
	}
	return s.repo.ListDocuments(ctx, filter)
}

// Summary возвращает агрегат по документам для слоя отчётов.
func (s *ComplianceService) Summary(ctx context.Context, user *models.User, filter models.DocumentFilter) (*models.DocumentSummary, error) {
	if !user.IsAdmin() {
		filter.UserUID = user.UID
	}
	return s.repo.SummarizeDocuments(ctx, filter)
}

// scope возвращает ограничение выборки по владельцу: пустая строка
// для администратора означает доступ ко всем документам.
func (s *ComplianceService) scope(user *models.User) string {
	if user.IsAdmin() {
		return ""
	}
	return user.UID
}

func (s *ComplianceService) cacheDocument(ctx context.Context, doc *models.ComplianceDocument) {
	if err := s.cache.Set(ctx, documentKey(doc.ID), doc, documentCacheTTL); err != nil {
		s.log.Warn("failed to cache document", slog.String("document_id", doc.ID), sl.Err(err))
	}
}

// publishAlert публикует событие по документу. Ошибка публикации
// не откатывает операцию: событие вторично по отношению к записи.
func (s *ComplianceService) publishAlert(user *models.User, doc *models.ComplianceDocument, event, routingKey, reference string) {
	alert := models.DocumentAlert{
		Event:        event,
		Email:        user.Email,
		Name:         user.Name,
		DocNumber:    doc.DocNumber,
		Counterparty: doc.Counterparty,
		TotalAmount:  doc.TotalAmount,
		Reference:    reference,
	}
	if err := s.publisher.Publish(routingKey, alert); err != nil {
		s.log.Error("failed to publish document event",
			slog.String("event", event), slog.String("document_id", doc.ID), sl.Err(err))
	}
}

// parseAuthorityTime разбирает отметку времени из ответа органа.
// Нечитаемое значение заменяется текущим временем, а не ошибкой:
// выпуск уже состоялся на стороне органа.
func parseAuthorityTime(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Now().UTC()
}
