package repository

import (
	"context"

	"github.com/facturia/ocr-api/internal/domain/entity"
)

// InvoiceFilter acota listados de facturas.
type InvoiceFilter struct {
	Status    string
	IssuerID  string
	Currency  string
	Limit     int
	Offset    int
}

// InvoiceRepository es el puerto de persistencia del agregado Invoice
// (cabecera + líneas + cuotas, cargadas y guardadas como unidad).
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	// Update persiste el agregado completo con chequeo de concurrencia
	// optimista: si la versión en base no coincide con expectedVersion,
	// devuelve domain.ErrConcurrentModification y no escribe nada.
	Update(ctx context.Context, inv *entity.Invoice, expectedVersion int64) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, error)
	// CountByCompany cuenta facturas donde la empresa es emisor o receptor.
	// Es la única fuente del invoice_count del catálogo (derivado, no contador).
	CountByCompany(ctx context.Context, companyID string) (int, error)
	// CountByStatus agrupa por estado para el dashboard.
	CountByStatus(ctx context.Context) (map[string]int, error)
	// CountByEngine agrupa por motor OCR (facturas sin motor quedan fuera).
	CountByEngine(ctx context.Context) (map[string]int, error)
}
