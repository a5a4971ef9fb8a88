package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLogRepo)(nil)

// AuditLogRepo implementación del puerto AuditLogRepository sobre PostgreSQL.
// La tabla es solo-append: no existen UPDATE ni DELETE sobre audit_log.
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construye el adaptador de la bitácora.
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

// Append inserta la entrada. La columna seq es BIGSERIAL: el motor asigna el
// consecutivo y lo devolvemos en la entidad para que el desempate de
// timestamps iguales sea observable por el caller.
func (r *AuditLogRepo) Append(ctx context.Context, e *entity.AuditLogEntry) error {
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}
	query := `
		INSERT INTO audit_log (id, invoice_id, user_id, user_name, action, changes, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq`
	err = r.q.QueryRow(ctx, query,
		e.ID, e.InvoiceID, e.UserID, e.UserName, e.Action, changes, e.Timestamp,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByInvoice devuelve el historial completo de una factura en orden
// estable (timestamp, seq).
func (r *AuditLogRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.AuditLogEntry, error) {
	query := `
		SELECT id, invoice_id, user_id, user_name, action, changes, timestamp, seq
		FROM audit_log
		WHERE invoice_id = $1
		ORDER BY timestamp, seq`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var list []*entity.AuditLogEntry
	for rows.Next() {
		var e entity.AuditLogEntry
		var changes []byte
		if err := rows.Scan(
			&e.ID, &e.InvoiceID, &e.UserID, &e.UserName, &e.Action,
			&changes, &e.Timestamp, &e.Seq,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &e.Changes); err != nil {
				return nil, fmt.Errorf("unmarshal audit changes: %w", err)
			}
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
