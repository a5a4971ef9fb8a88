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

// Campos de cabecera editables.
const (
	FieldSeries           = "series"
	FieldIssueDate        = "issue_date"
	FieldDueDate          = "due_date"
	FieldNotes            = "notes"
	FieldWithholdingTotal = "withholding_total"
	FieldOCRAssertedTotal = "ocr_asserted_total"
	FieldIssuerName       = "issuer_name"
	FieldIssuerTaxID      = "issuer_tax_id"
	FieldReceiverName     = "receiver_name"
	FieldReceiverTaxID    = "receiver_tax_id"
)

// Campos de línea editables (requieren item_id).
const (
	ItemFieldDescription     = "description"
	ItemFieldQuantity        = "quantity"
	ItemFieldUnitPrice       = "unit_price"
	ItemFieldDiscountPercent = "discount_percent"
	ItemFieldTaxPercent      = "tax_percent"
)

// ApplyEdit aplica una edición de campo sobre la factura:
//
//  1. verifica que la máquina de estados permita editar en el estado actual,
//  2. chequea la versión esperada (concurrencia optimista),
//  3. aplica el cambio y recalcula totales si afecta líneas o retenciones,
//  4. registra la entrada de bitácora en la misma transacción,
//  5. los hallazgos se recalculan al responder (nunca cache viejo).
//
// Los hallazgos blocking no impiden guardar una edición: solo bloquean aprobar.
func (e *Engine) ApplyEdit(ctx context.Context, invoiceID string, in dto.ApplyEditRequest, user entity.ActingUser) (*dto.InvoiceResponse, error) {
	inv, err := e.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if err := domainbilling.CheckEdit(inv, user); err != nil {
		if err == domain.ErrPermissionDenied {
			e.log.Warn().
				Str("invoice_id", invoiceID).
				Str("user_id", user.ID).
				Str("role", user.Role).
				Msg("edición denegada por rol")
		}
		return nil, err
	}
	if inv.Version != in.ExpectedVersion {
		return nil, domain.ErrConcurrentModification
	}

	var change entity.Change
	var action string
	if in.ItemID != "" {
		change, err = applyItemEdit(inv, in.ItemID, in.Field, in.Value)
		action = entity.AuditActionItemUpdated
	} else {
		change, err = applyHeaderEdit(inv, in.Field, in.Value)
		action = entity.AuditActionFieldUpdated
	}
	if err != nil {
		return nil, err
	}

	// Recomputación síncrona y total tras cada mutación.
	if err := domainbilling.Recompute(inv); err != nil {
		return nil, err
	}

	now := time.Now()
	inv.Version = in.ExpectedVersion + 1
	inv.UpdatedAt = now
	inv.UpdatedBy = user.ID

	err = e.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := invoiceRepo.Update(ctx, inv, in.ExpectedVersion); err != nil {
			return err
		}
		return auditRepo.Append(ctx, &entity.AuditLogEntry{
			ID:        uuid.New().String(),
			InvoiceID: inv.ID,
			UserID:    user.ID,
			UserName:  user.Name,
			Action:    action,
			Changes:   []entity.Change{change},
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	// Si la edición resolvió el último hallazgo blocking, la auto-aprobación
	// puede aplicar ahora.
	if inv.Status == entity.StatusCompleted {
		findings := domainbilling.Validate(inv, e.valPolicy)
		if domainbilling.ShouldAutoApprove(inv, e.appPolicy, findings) {
			if err := e.autoApprove(ctx, inv); err != nil {
				return nil, err
			}
		}
	}

	return e.toResponse(inv), nil
}

// applyHeaderEdit muta un campo de cabecera y devuelve el diff.
func applyHeaderEdit(inv *entity.Invoice, field, value string) (entity.Change, error) {
	fieldChange := func(from, to string) entity.Change {
		return entity.Change{
			Kind:  entity.ChangeKindField,
			Field: &entity.FieldChange{Field: field, From: from, To: to},
		}
	}
	switch field {
	case FieldSeries:
		if value == "" {
			return entity.Change{}, domain.ErrInvalidInput
		}
		c := fieldChange(inv.Series, value)
		inv.Series = value
		return c, nil
	case FieldNotes:
		c := fieldChange(inv.Notes, value)
		inv.Notes = value
		return c, nil
	case FieldIssueDate:
		d, err := time.Parse("2006-01-02", value)
		if err != nil {
			return entity.Change{}, domain.ErrInvalidInput
		}
		c := fieldChange(inv.IssueDate.Format("2006-01-02"), value)
		inv.IssueDate = d
		return c, nil
	case FieldDueDate:
		from := ""
		if inv.DueDate != nil {
			from = inv.DueDate.Format("2006-01-02")
		}
		if value == "" {
			inv.DueDate = nil
			return fieldChange(from, ""), nil
		}
		d, err := time.Parse("2006-01-02", value)
		if err != nil {
			return entity.Change{}, domain.ErrInvalidInput
		}
		inv.DueDate = &d
		return fieldChange(from, value), nil
	case FieldWithholdingTotal:
		amt, err := decimal.NewFromString(value)
		if err != nil {
			return entity.Change{}, domain.ErrInvalidInput
		}
		c := fieldChange(inv.WithholdingTotal.String(), amt.String())
		inv.WithholdingTotal = amt
		return c, nil
	case FieldOCRAssertedTotal:
		amt, err := decimal.NewFromString(value)
		if err != nil {
			return entity.Change{}, domain.ErrInvalidInput
		}
		c := fieldChange(inv.OCRAssertedTotal.String(), amt.String())
		inv.OCRAssertedTotal = amt
		return c, nil
	case FieldIssuerName:
		c := fieldChange(inv.IssuerName, value)
		inv.IssuerName = value
		return c, nil
	case FieldIssuerTaxID:
		c := fieldChange(inv.IssuerTaxID, value)
		inv.IssuerTaxID = value
		return c, nil
	case FieldReceiverName:
		c := fieldChange(inv.ReceiverName, value)
		inv.ReceiverName = value
		return c, nil
	case FieldReceiverTaxID:
		c := fieldChange(inv.ReceiverTaxID, value)
		inv.ReceiverTaxID = value
		return c, nil
	}
	return entity.Change{}, domain.ErrInvalidInput
}

// applyItemEdit muta un campo de una línea y devuelve el diff.
func applyItemEdit(inv *entity.Invoice, itemID, field, value string) (entity.Change, error) {
	var item *entity.LineItem
	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			item = &inv.Items[idx]
			break
		}
	}
	if item == nil {
		return entity.Change{}, domain.ErrNotFound
	}

	itemChange := func(from, to string) entity.Change {
		return entity.Change{
			Kind: entity.ChangeKindItem,
			Item: &entity.ItemChange{ItemID: itemID, Field: field, From: from, To: to},
		}
	}

	if field == ItemFieldDescription {
		c := itemChange(item.Description, value)
		item.Description = value
		return c, nil
	}

	amt, err := decimal.NewFromString(value)
	if err != nil {
		return entity.Change{}, domain.ErrInvalidInput
	}
	switch field {
	case ItemFieldQuantity:
		c := itemChange(item.Quantity.String(), amt.String())
		item.Quantity = amt
		return c, nil
	case ItemFieldUnitPrice:
		c := itemChange(item.UnitPrice.String(), amt.String())
		item.UnitPrice = amt
		return c, nil
	case ItemFieldDiscountPercent:
		c := itemChange(item.DiscountPercent.String(), amt.String())
		item.DiscountPercent = amt
		return c, nil
	case ItemFieldTaxPercent:
		c := itemChange(item.TaxPercent.String(), amt.String())
		item.TaxPercent = amt
		return c, nil
	}
	return entity.Change{}, domain.ErrInvalidInput
}
