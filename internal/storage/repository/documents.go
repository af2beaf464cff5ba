package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/gst-compliance/internal/models"
)

const documentColumns = `id, seq, user_uid, kind, doc_number, counterparty, doc_date,
			      line_items, taxable_amount, cgst_amount, sgst_amount, total_amount,
			      has_irn, irn, ack_number, ack_at,
			      has_ewaybill, ewb_number, ewb_valid_until, distance_km, vehicle_number,
			      created_at`

// CreateDocument вставляет новый документ учёта и возвращает его идентификатор.
// Документ всегда создаётся с has_irn = false и has_ewaybill = false.
func (s *Storage) CreateDocument(ctx context.Context, doc models.ComplianceDocument) (string, error) {
	const op = "storage.CreateDocument"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	items, err := json.Marshal(doc.Items)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO documents (id, user_uid, kind, doc_number, counterparty, doc_date,
			      line_items, taxable_amount, cgst_amount, sgst_amount, total_amount)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING id`
	var newID string
	if err := s.DB.QueryRowContext(ctx, query,
		doc.ID, doc.UserUID, doc.Kind, doc.DocNumber, doc.Counterparty, doc.DocDate,
		items, doc.TaxableAmount, doc.CGSTAmount, doc.SGSTAmount,
		doc.TotalAmount).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadDocument возвращает документ по идентификатору.
// Непустой userUID ограничивает выборку документами этого пользователя.
func (s *Storage) ReadDocument(ctx context.Context, userUID, id string) (*models.ComplianceDocument, error) {
	const op = "storage.ReadDocument"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + documentColumns + `
			  FROM documents
			  WHERE id = $1 AND ($2 = '' OR user_uid = $2)`
	row := s.DB.QueryRowContext(ctx, query, id, userUID)
	doc, err := scanDocumentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc, nil
}

// RemoveDocument удаляет документ и возвращает количество удалённых строк.
func (s *Storage) RemoveDocument(ctx context.Context, userUID, id string) (int, error) {
	const op = "storage.RemoveDocument"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM documents WHERE id = $1 AND ($2 = '' OR user_uid = $2)`
	result, err := s.DB.ExecContext(ctx, query, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// MarkIRNIssued фиксирует выпуск IRN по документу.
//
// Переход выполняется как compare-and-swap по has_irn: условие WHERE NOT has_irn
// гарантирует не более одного выпуска даже при конкурирующих вызовах.
// Возвращает ErrIRNAlreadyIssued, если флаг уже был установлен.
func (s *Storage) MarkIRNIssued(ctx context.Context, id, irn, ackNumber string, ackAt time.Time) error {
	const op = "storage.MarkIRNIssued"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE documents
			  SET has_irn = TRUE, irn = $1, ack_number = $2, ack_at = $3
			  WHERE id = $4 AND NOT has_irn`
	result, err := s.DB.ExecContext(ctx, query, irn, ackNumber, ackAt, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrIRNAlreadyIssued)
	}
	return nil
}

// MarkEWayBillIssued фиксирует выпуск E-Way Bill по документу.
//
// Условие WHERE has_irn AND NOT has_ewaybill не позволяет записи попасть
// в недопустимое состояние (E-Way Bill без IRN) и делает переход однократным.
func (s *Storage) MarkEWayBillIssued(ctx context.Context, id, ewbNumber string, validUntil time.Time, distanceKm int, vehicleNumber string) error {
	const op = "storage.MarkEWayBillIssued"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE documents
			  SET has_ewaybill = TRUE, ewb_number = $1, ewb_valid_until = $2,
			      distance_km = $3, vehicle_number = $4
			  WHERE id = $5 AND has_irn AND NOT has_ewaybill`
	result, err := s.DB.ExecContext(ctx, query, ewbNumber, validUntil, distanceKm, vehicleNumber, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrEWayBillConflict)
	}
	return nil
}

// ListDocuments возвращает документы по фильтру.
// Сортировка: по дате документа по убыванию, при равных датах —
// в порядке вставки (seq).
func (s *Storage) ListDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.ComplianceDocument, error) {
	const op = "storage.ListDocuments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + documentColumns + `
			  FROM documents
			  WHERE ` + filterPredicate + `
			  ORDER BY doc_date DESC, seq
			  LIMIT $7 OFFSET $8`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args := append(filterArgs(filter), limit, filter.Offset)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ComplianceDocument
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, doc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SummarizeDocuments агрегирует документы по фильтру для слоя отчётов.
func (s *Storage) SummarizeDocuments(ctx context.Context, filter models.DocumentFilter) (*models.DocumentSummary, error) {
	const op = "storage.SummarizeDocuments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*),
			      COALESCE(SUM(taxable_amount), 0),
			      COALESCE(SUM(cgst_amount + sgst_amount), 0),
			      COALESCE(SUM(total_amount), 0)
			  FROM documents
			  WHERE ` + filterPredicate
	summary := &models.DocumentSummary{}
	if err := s.DB.QueryRowContext(ctx, query, filterArgs(filter)...).Scan(
		&summary.Count, &summary.TaxableAmount, &summary.GSTAmount,
		&summary.TotalAmount); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return summary, nil
}

// filterPredicate — общий предикат для выборок по DocumentFilter.
// Пустые значения аргументов отключают соответствующее условие.
const filterPredicate = `($1 = '' OR user_uid = $1)
			  AND ($2 = '' OR kind = $2)
			  AND ($3 = '' OR counterparty = $3)
			  AND ($4::timestamptz IS NULL OR doc_date >= $4)
			  AND ($5::timestamptz IS NULL OR doc_date < $5)
			  AND ($6 = '' OR
			       ($6 = 'no_irn' AND NOT has_irn) OR
			       ($6 = 'has_irn' AND has_irn) OR
			       ($6 = 'has_ewaybill' AND has_ewaybill) OR
			       ($6 = 'ewaybill_pending' AND has_irn AND NOT has_ewaybill))`

func filterArgs(filter models.DocumentFilter) []any {
	return []any{
		filter.UserUID,
		filter.Kind,
		filter.Counterparty,
		filter.PeriodFrom,
		filter.PeriodTo,
		filter.Status,
	}
}

func scanDocumentRow(row rowScanner) (*models.ComplianceDocument, error) {
	doc := &models.ComplianceDocument{}
	var (
		items         []byte
		irn           sql.NullString
		ackNumber     sql.NullString
		ackAt         sql.NullTime
		ewbNumber     sql.NullString
		ewbValidUntil sql.NullTime
		distanceKm    sql.NullInt64
		vehicleNumber sql.NullString
	)
	if err := row.Scan(&doc.ID, &doc.Seq, &doc.UserUID, &doc.Kind, &doc.DocNumber,
		&doc.Counterparty, &doc.DocDate, &items, &doc.TaxableAmount, &doc.CGSTAmount,
		&doc.SGSTAmount, &doc.TotalAmount, &doc.HasIRN, &irn, &ackNumber, &ackAt,
		&doc.HasEWayBill, &ewbNumber, &ewbValidUntil, &distanceKm, &vehicleNumber,
		&doc.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &doc.Items); err != nil {
		return nil, err
	}
	doc.IRN = irn.String
	doc.AckNumber = ackNumber.String
	if ackAt.Valid {
		doc.AckAt = &ackAt.Time
	}
	doc.EWBNumber = ewbNumber.String
	if ewbValidUntil.Valid {
		doc.EWBValidUntil = &ewbValidUntil.Time
	}
	doc.DistanceKm = int(distanceKm.Int64)
	doc.VehicleNumber = vehicleNumber.String
	return doc, nil
}
