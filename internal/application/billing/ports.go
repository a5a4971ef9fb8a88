package billing

import (
	"context"

	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// OCREngine es el colaborador externo de extracción. La implementación real
// vive en infrastructure/ocr; el motor solo consume su resultado. Extract debe
// respetar la cancelación del contexto.
type OCREngine interface {
	Extract(ctx context.Context, engine, filePath string) (*dto.RawExtraction, error)
}

// BillingTxRunner ejecuta fn dentro de una transacción que incluye el repo de
// facturas y la bitácora: la mutación del agregado y su entrada de auditoría
// se confirman o revierten juntas.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		auditRepo repository.AuditLogRepository,
	) error) error
}
