package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain"
	domainbilling "github.com/facturia/ocr-api/internal/domain/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// CreateFromExtraction construye el agregado desde el resultado OCR, lo deja
// en PENDING con versión 1, recalcula totales y registra CREATED en la
// bitácora (misma transacción). La confianza debe venir en [0,1] y la moneda
// ser una de las soportadas; lo demás se valida como hallazgos, no como error.
func (e *Engine) CreateFromExtraction(ctx context.Context, raw dto.RawExtraction, createdBy entity.ActingUser) (*dto.InvoiceResponse, error) {
	if raw.Series == "" || raw.Currency == "" {
		return nil, domain.ErrInvalidInput
	}
	if !entity.ValidCurrency(raw.Currency) {
		return nil, domain.ErrInvalidInput
	}
	one := decimal.NewFromInt(1)
	if raw.Confidence.IsNegative() || raw.Confidence.GreaterThan(one) {
		return nil, domain.ErrInvalidInput
	}

	issueDate, err := time.Parse("2006-01-02", raw.IssueDate)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	var dueDate *time.Time
	if raw.DueDate != "" {
		d, err := time.Parse("2006-01-02", raw.DueDate)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		dueDate = &d
	}

	now := time.Now()
	inv := &entity.Invoice{
		ID:               uuid.New().String(),
		Series:           raw.Series,
		IssueDate:        issueDate,
		DueDate:          dueDate,
		IssuerID:         raw.IssuerID,
		IssuerName:       raw.IssuerName,
		IssuerTaxID:      raw.IssuerTaxID,
		ReceiverID:       raw.ReceiverID,
		ReceiverName:     raw.ReceiverName,
		ReceiverTaxID:    raw.ReceiverTaxID,
		Currency:         raw.Currency,
		Status:           entity.StatusPending,
		OCRConfidence:    raw.Confidence,
		OCREngine:        raw.Engine,
		ProcessingTime:   raw.ProcessingTime,
		FilePath:         raw.FilePath,
		WithholdingTotal: raw.WithholdingTotal,
		OCRAssertedTotal: raw.AssertedTotal,
		Notes:            raw.Notes,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
		CreatedBy:        createdBy.ID,
	}

	inv.Items = make([]entity.LineItem, 0, len(raw.Items))
	for _, it := range raw.Items {
		inv.Items = append(inv.Items, entity.LineItem{
			ID:              uuid.New().String(),
			Description:     it.Description,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			TaxPercent:      it.TaxPercent,
		})
	}
	inv.Payments = make([]entity.Payment, 0, len(raw.Payments))
	for _, p := range raw.Payments {
		due, err := time.Parse("2006-01-02", p.DueDate)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		inv.Payments = append(inv.Payments, entity.Payment{
			Number:  p.Number,
			DueDate: due,
			Amount:  p.Amount,
		})
	}

	// Porcentajes malformados se rechazan en esta frontera, no dentro de la aritmética.
	if err := domainbilling.Recompute(inv); err != nil {
		return nil, err
	}

	err = e.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := invoiceRepo.Create(ctx, inv); err != nil {
			return err
		}
		return auditRepo.Append(ctx, &entity.AuditLogEntry{
			ID:        uuid.New().String(),
			InvoiceID: inv.ID,
			UserID:    createdBy.ID,
			UserName:  createdBy.Name,
			Action:    entity.AuditActionCreated,
			Changes: []entity.Change{{
				Kind:   entity.ChangeKindStatus,
				Status: &entity.StatusChange{From: "", To: entity.StatusPending},
			}},
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("invoice_id", inv.ID).
		Str("series", inv.Series).
		Str("engine", inv.OCREngine).
		Msg("factura creada desde extracción")

	return e.toResponse(inv), nil
}
