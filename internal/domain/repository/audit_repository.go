package repository

import (
	"context"

	"github.com/facturia/ocr-api/internal/domain/entity"
)

// AuditLogRepository es el puerto de la bitácora. Solo-append: no existe
// Update ni Delete por contrato.
type AuditLogRepository interface {
	// Append persiste la entrada asignando Seq monótono (desempate de
	// timestamps iguales).
	Append(ctx context.Context, e *entity.AuditLogEntry) error
	// ListByInvoice devuelve las entradas ordenadas por (timestamp, seq).
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.AuditLogEntry, error)
}
