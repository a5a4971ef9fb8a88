package postgres

import (
	"context"
	"fmt"

	"github.com/facturia/ocr-api/internal/domain"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// El agregado se persiste en tres tablas: invoices, invoice_items (con
// position para conservar el orden de entrada) e invoice_payments.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste el agregado completo.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, series, issue_date, due_date,
			issuer_id, issuer_name, issuer_tax_id,
			receiver_id, receiver_name, receiver_tax_id,
			currency, status, ocr_confidence, ocr_engine, processing_time, file_path,
			subtotal, discount_total, tax_total, withholding_total, total, ocr_asserted_total,
			notes, rejection_reason, version, created_at, updated_at, created_by, updated_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29
		)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.Series, inv.IssueDate, inv.DueDate,
		inv.IssuerID, inv.IssuerName, inv.IssuerTaxID,
		inv.ReceiverID, inv.ReceiverName, inv.ReceiverTaxID,
		inv.Currency, inv.Status, inv.OCRConfidence, inv.OCREngine, inv.ProcessingTime, inv.FilePath,
		inv.Subtotal, inv.DiscountTotal, inv.TaxTotal, inv.WithholdingTotal, inv.Total, inv.OCRAssertedTotal,
		nullIfEmpty(inv.Notes), nullIfEmpty(inv.RejectionReason), inv.Version,
		inv.CreatedAt, inv.UpdatedAt, inv.CreatedBy, nullIfEmpty(inv.UpdatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return r.writeChildren(ctx, inv)
}

// Update persiste el agregado con chequeo de concurrencia optimista: el
// UPDATE solo aplica WHERE version = expectedVersion. Cero filas afectadas
// significa que otro actor mutó primero → ErrConcurrentModification.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice, expectedVersion int64) error {
	query := `
		UPDATE invoices SET
			series = $2, issue_date = $3, due_date = $4,
			issuer_id = $5, issuer_name = $6, issuer_tax_id = $7,
			receiver_id = $8, receiver_name = $9, receiver_tax_id = $10,
			currency = $11, status = $12, ocr_confidence = $13, processing_time = $14,
			subtotal = $15, discount_total = $16, tax_total = $17,
			withholding_total = $18, total = $19, ocr_asserted_total = $20,
			notes = $21, rejection_reason = $22,
			version = $23, updated_at = $24, updated_by = $25
		WHERE id = $1 AND version = $26`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.Series, inv.IssueDate, inv.DueDate,
		inv.IssuerID, inv.IssuerName, inv.IssuerTaxID,
		inv.ReceiverID, inv.ReceiverName, inv.ReceiverTaxID,
		inv.Currency, inv.Status, inv.OCRConfidence, inv.ProcessingTime,
		inv.Subtotal, inv.DiscountTotal, inv.TaxTotal,
		inv.WithholdingTotal, inv.Total, inv.OCRAssertedTotal,
		nullIfEmpty(inv.Notes), nullIfEmpty(inv.RejectionReason),
		inv.Version, inv.UpdatedAt, nullIfEmpty(inv.UpdatedBy),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}

	// Reescritura completa de hijos: la recomputación es total, el estado
	// persistido también.
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_payments WHERE invoice_id = $1`, inv.ID); err != nil {
		return fmt.Errorf("delete invoice payments: %w", err)
	}
	return r.writeChildren(ctx, inv)
}

func (r *InvoiceRepo) writeChildren(ctx context.Context, inv *entity.Invoice) error {
	for pos, it := range inv.Items {
		query := `
			INSERT INTO invoice_items (
				id, invoice_id, position, description, quantity, unit_price,
				discount_percent, tax_percent, line_subtotal, line_tax, line_total
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		_, err := r.q.Exec(ctx, query,
			it.ID, inv.ID, pos, it.Description, it.Quantity, it.UnitPrice,
			it.DiscountPercent, it.TaxPercent, it.LineSubtotal, it.LineTax, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	for _, p := range inv.Payments {
		query := `
			INSERT INTO invoice_payments (invoice_id, number, due_date, amount)
			VALUES ($1, $2, $3, $4)`
		_, err := r.q.Exec(ctx, query, inv.ID, p.Number, p.DueDate, p.Amount)
		if err != nil {
			return fmt.Errorf("insert invoice payment: %w", err)
		}
	}
	return nil
}

const invoiceColumns = `
	id, series, issue_date, due_date,
	issuer_id, issuer_name, issuer_tax_id,
	receiver_id, receiver_name, receiver_tax_id,
	currency, status, ocr_confidence, ocr_engine, processing_time, file_path,
	subtotal, discount_total, tax_total, withholding_total, total, ocr_asserted_total,
	COALESCE(notes, ''), COALESCE(rejection_reason, ''), version,
	created_at, updated_at, created_by, COALESCE(updated_by, '')`

// GetByID carga el agregado completo (cabecera + líneas + cuotas).
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	var inv entity.Invoice
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.Series, &inv.IssueDate, &inv.DueDate,
		&inv.IssuerID, &inv.IssuerName, &inv.IssuerTaxID,
		&inv.ReceiverID, &inv.ReceiverName, &inv.ReceiverTaxID,
		&inv.Currency, &inv.Status, &inv.OCRConfidence, &inv.OCREngine, &inv.ProcessingTime, &inv.FilePath,
		&inv.Subtotal, &inv.DiscountTotal, &inv.TaxTotal, &inv.WithholdingTotal, &inv.Total, &inv.OCRAssertedTotal,
		&inv.Notes, &inv.RejectionReason, &inv.Version,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.CreatedBy, &inv.UpdatedBy,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if err := r.loadChildren(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepo) loadChildren(ctx context.Context, inv *entity.Invoice) error {
	rows, err := r.q.Query(ctx, `
		SELECT id, description, quantity, unit_price, discount_percent, tax_percent,
		       line_subtotal, line_tax, line_total
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, inv.ID)
	if err != nil {
		return fmt.Errorf("query invoice items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(
			&it.ID, &it.Description, &it.Quantity, &it.UnitPrice,
			&it.DiscountPercent, &it.TaxPercent,
			&it.LineSubtotal, &it.LineTax, &it.LineTotal,
		); err != nil {
			return fmt.Errorf("scan invoice item: %w", err)
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prows, err := r.q.Query(ctx, `
		SELECT number, due_date, amount
		FROM invoice_payments WHERE invoice_id = $1 ORDER BY number`, inv.ID)
	if err != nil {
		return fmt.Errorf("query invoice payments: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var p entity.Payment
		if err := prows.Scan(&p.Number, &p.DueDate, &p.Amount); err != nil {
			return fmt.Errorf("scan invoice payment: %w", err)
		}
		inv.Payments = append(inv.Payments, p)
	}
	return prows.Err()
}

// List lista facturas filtradas, más recientes primero. Los hijos se cargan
// por factura; los listados de consola son acotados (Limit).
func (r *InvoiceRepo) List(ctx context.Context, filter repository.InvoiceFilter) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	n := 0
	if filter.Status != "" {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
	}
	if filter.IssuerID != "" {
		n++
		query += fmt.Sprintf(" AND issuer_id = $%d", n)
		args = append(args, filter.IssuerID)
	}
	if filter.Currency != "" {
		n++
		query += fmt.Sprintf(" AND currency = $%d", n)
		args = append(args, filter.Currency)
	}
	query += " ORDER BY created_at DESC"
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, filter.Limit)
	n++
	query += fmt.Sprintf(" OFFSET $%d", n)
	args = append(args, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var list []*entity.Invoice
	for rows.Next() {
		var inv entity.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.Series, &inv.IssueDate, &inv.DueDate,
			&inv.IssuerID, &inv.IssuerName, &inv.IssuerTaxID,
			&inv.ReceiverID, &inv.ReceiverName, &inv.ReceiverTaxID,
			&inv.Currency, &inv.Status, &inv.OCRConfidence, &inv.OCREngine, &inv.ProcessingTime, &inv.FilePath,
			&inv.Subtotal, &inv.DiscountTotal, &inv.TaxTotal, &inv.WithholdingTotal, &inv.Total, &inv.OCRAssertedTotal,
			&inv.Notes, &inv.RejectionReason, &inv.Version,
			&inv.CreatedAt, &inv.UpdatedAt, &inv.CreatedBy, &inv.UpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, inv := range list {
		if err := r.loadChildren(ctx, inv); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// CountByCompany cuenta facturas donde la empresa participa como emisor o
// receptor. Fuente única del invoice_count derivado.
func (r *InvoiceRepo) CountByCompany(ctx context.Context, companyID string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM invoices WHERE issuer_id = $1 OR receiver_id = $1`, companyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count invoices by company: %w", err)
	}
	return count, nil
}

// CountByStatus agrupa facturas por estado.
func (r *InvoiceRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.q.Query(ctx, `SELECT status, COUNT(*) FROM invoices GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count invoices by status: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[status] = count
	}
	return out, rows.Err()
}

// CountByEngine agrupa facturas por motor OCR; las filas con motor vacío se
// excluyen (facturas cargadas a mano).
func (r *InvoiceRepo) CountByEngine(ctx context.Context) (map[string]int, error) {
	rows, err := r.q.Query(ctx, `
		SELECT ocr_engine, COUNT(*) FROM invoices WHERE ocr_engine <> '' GROUP BY ocr_engine`)
	if err != nil {
		return nil, fmt.Errorf("count invoices by engine: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var engine string
		var count int
		if err := rows.Scan(&engine, &count); err != nil {
			return nil, fmt.Errorf("scan engine count: %w", err)
		}
		out[engine] = count
	}
	return out, rows.Err()
}
