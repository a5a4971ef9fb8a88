package billing_test

import (
	"context"
	"sync"

	"github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles en memoria de los puertos de persistencia. Copian los agregados en
// cada lectura y escritura, como lo haría una base real: mutar el valor
// devuelto por GetByID no toca lo almacenado hasta llamar Update.
// ──────────────────────────────────────────────────────────────────────────────

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*entity.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[string]*entity.Invoice)}
}

func copyInvoice(inv *entity.Invoice) *entity.Invoice {
	cp := *inv
	cp.Items = append([]entity.LineItem(nil), inv.Items...)
	cp.Payments = append([]entity.Payment(nil), inv.Payments...)
	if inv.DueDate != nil {
		d := *inv.DueDate
		cp.DueDate = &d
	}
	return &cp
}

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[inv.ID]; ok {
		return domain.ErrDuplicate
	}
	r.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

// Update replica la concurrencia optimista del adaptador real: si la versión
// almacenada no coincide con la esperada, nada se escribe.
func (r *fakeInvoiceRepo) Update(_ context.Context, inv *entity.Invoice, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrConcurrentModification
	}
	r.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	return copyInvoice(inv), nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, filter repository.InvoiceFilter) ([]*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range r.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.IssuerID != "" && inv.IssuerID != filter.IssuerID {
			continue
		}
		if filter.Currency != "" && inv.Currency != filter.Currency {
			continue
		}
		out = append(out, copyInvoice(inv))
	}
	return out, nil
}

func (r *fakeInvoiceRepo) CountByCompany(_ context.Context, companyID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, inv := range r.invoices {
		if inv.IssuerID == companyID || inv.ReceiverID == companyID {
			count++
		}
	}
	return count, nil
}

func (r *fakeInvoiceRepo) CountByStatus(_ context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, inv := range r.invoices {
		out[inv.Status]++
	}
	return out, nil
}

func (r *fakeInvoiceRepo) CountByEngine(_ context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, inv := range r.invoices {
		if inv.OCREngine != "" {
			out[inv.OCREngine]++
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditLogEntry
	seq     int64
}

func newFakeAuditRepo() *fakeAuditRepo { return &fakeAuditRepo{} }

func (r *fakeAuditRepo) Append(_ context.Context, e *entity.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.Seq = r.seq
	cp := *e
	cp.Changes = append([]entity.Change(nil), e.Changes...)
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeAuditRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.AuditLogEntry
	for _, e := range r.entries {
		if e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

// byInvoice devuelve las entradas de una factura (helper de aserciones).
func (r *fakeAuditRepo) byInvoice(invoiceID string) []*entity.AuditLogEntry {
	out, _ := r.ListByInvoice(context.Background(), invoiceID)
	return out
}

// fakeTxRunner ejecuta fn directamente contra los repos en memoria. No simula
// rollback: los tests que lo necesitan verifican por versión.
type fakeTxRunner struct {
	invoiceRepo *fakeInvoiceRepo
	auditRepo   *fakeAuditRepo
}

func (r *fakeTxRunner) RunBilling(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditLogRepository,
) error) error {
	return fn(r.invoiceRepo, r.auditRepo)
}

// fakeOCREngine responde con una extracción fija o un error fijo; respeta la
// cancelación del contexto como el cliente HTTP real.
type fakeOCREngine struct {
	extraction *dto.RawExtraction
	err        error
	block      chan struct{} // si no es nil, Extract espera aquí o al contexto
}

var _ billing.OCREngine = (*fakeOCREngine)(nil)

func (f *fakeOCREngine) Extract(ctx context.Context, _, _ string) (*dto.RawExtraction, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.extraction, nil
}
