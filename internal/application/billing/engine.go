// Package billing (capa de aplicación) expone las operaciones del motor de
// validación de facturas OCR: creación desde extracción, edición guardada,
// transiciones de ciclo de vida, validación y bitácora. Cada operación es una
// unidad corta de trabajo request/response; la serialización por factura se
// garantiza con concurrencia optimista (versión esperada).
package billing

import (
	"context"
	"time"

	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain"
	domainbilling "github.com/facturia/ocr-api/internal/domain/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
	"github.com/facturia/ocr-api/pkg/logger"
)

// Engine agrupa las dependencias de los casos de uso del motor.
type Engine struct {
	txRunner    BillingTxRunner
	invoiceRepo repository.InvoiceRepository
	auditRepo   repository.AuditLogRepository
	valPolicy   domainbilling.ValidationPolicy
	appPolicy   domainbilling.ApprovalPolicy
	log         *logger.Logger
}

// NewEngine construye el motor con sus puertos y políticas.
func NewEngine(
	txRunner BillingTxRunner,
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditLogRepository,
	valPolicy domainbilling.ValidationPolicy,
	appPolicy domainbilling.ApprovalPolicy,
	log *logger.Logger,
) *Engine {
	return &Engine{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		auditRepo:   auditRepo,
		valPolicy:   valPolicy,
		appPolicy:   appPolicy,
		log:         log,
	}
}

// GetInvoice devuelve la factura con hallazgos recalculados (nunca cache).
func (e *Engine) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := e.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return e.toResponse(inv), nil
}

// ListInvoices lista facturas con filtro y paginación.
func (e *Engine) ListInvoices(ctx context.Context, filter repository.InvoiceFilter) (*dto.InvoiceListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	list, err := e.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		items = append(items, *e.toResponse(inv))
	}
	return &dto.InvoiceListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset},
	}, nil
}

// Validate recalcula los hallazgos de la factura bajo la política vigente.
func (e *Engine) Validate(ctx context.Context, id string) ([]dto.FindingResponse, error) {
	inv, err := e.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return findingsToDTO(domainbilling.Validate(inv, e.valPolicy)), nil
}

// GetAuditTrail devuelve la bitácora completa de la factura, ordenada.
func (e *Engine) GetAuditTrail(ctx context.Context, invoiceID string) ([]dto.AuditLogResponse, error) {
	inv, err := e.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	entries, err := e.auditRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AuditLogResponse, 0, len(entries))
	for _, en := range entries {
		out = append(out, auditToDTO(en))
	}
	return out, nil
}

// ── Mapeos entidad → DTO ──────────────────────────────────────────────────────

func (e *Engine) toResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:               inv.ID,
		Series:           inv.Series,
		IssueDate:        inv.IssueDate.Format("2006-01-02"),
		IssuerID:         inv.IssuerID,
		IssuerName:       inv.IssuerName,
		IssuerTaxID:      inv.IssuerTaxID,
		ReceiverID:       inv.ReceiverID,
		ReceiverName:     inv.ReceiverName,
		ReceiverTaxID:    inv.ReceiverTaxID,
		Currency:         inv.Currency,
		Status:           inv.Status,
		OCRConfidence:    inv.OCRConfidence,
		OCREngine:        inv.OCREngine,
		Subtotal:         inv.Subtotal,
		DiscountTotal:    inv.DiscountTotal,
		TaxTotal:         inv.TaxTotal,
		WithholdingTotal: inv.WithholdingTotal,
		Total:            inv.Total,
		Notes:            inv.Notes,
		RejectionReason:  inv.RejectionReason,
		Findings:         findingsToDTO(domainbilling.Validate(inv, e.valPolicy)),
		Version:          inv.Version,
		CreatedAt:        inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        inv.UpdatedAt.Format(time.RFC3339),
		CreatedBy:        inv.CreatedBy,
		UpdatedBy:        inv.UpdatedBy,
	}
	if inv.DueDate != nil {
		resp.DueDate = inv.DueDate.Format("2006-01-02")
	}
	resp.Items = make([]dto.LineItemResponse, 0, len(inv.Items))
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, dto.LineItemResponse{
			ID:              it.ID,
			Description:     it.Description,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			TaxPercent:      it.TaxPercent,
			LineSubtotal:    it.LineSubtotal,
			LineTax:         it.LineTax,
			LineTotal:       it.LineTotal,
		})
	}
	resp.Payments = make([]dto.PaymentResponse, 0, len(inv.Payments))
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, dto.PaymentResponse{
			Number:  p.Number,
			DueDate: p.DueDate.Format("2006-01-02"),
			Amount:  p.Amount,
		})
	}
	return resp
}

func findingsToDTO(findings []domainbilling.Finding) []dto.FindingResponse {
	out := make([]dto.FindingResponse, 0, len(findings))
	for _, f := range findings {
		out = append(out, dto.FindingResponse{
			Code:     f.Code,
			Severity: f.Severity,
			Message:  f.Message,
			Field:    f.Field,
		})
	}
	return out
}

func auditToDTO(e *entity.AuditLogEntry) dto.AuditLogResponse {
	resp := dto.AuditLogResponse{
		ID:        e.ID,
		InvoiceID: e.InvoiceID,
		UserID:    e.UserID,
		UserName:  e.UserName,
		Action:    e.Action,
		Timestamp: e.Timestamp.Format(time.RFC3339),
	}
	resp.Changes = make([]dto.AuditChangeResponse, 0, len(e.Changes))
	for _, c := range e.Changes {
		out := dto.AuditChangeResponse{Kind: c.Kind}
		switch {
		case c.Field != nil:
			out.Field = c.Field.Field
			out.From = c.Field.From
			out.To = c.Field.To
		case c.Item != nil:
			out.ItemID = c.Item.ItemID
			out.Field = c.Item.Field
			out.From = c.Item.From
			out.To = c.Item.To
		case c.Status != nil:
			out.From = c.Status.From
			out.To = c.Status.To
			out.Reason = c.Status.Reason
		}
		resp.Changes = append(resp.Changes, out)
	}
	return resp
}
