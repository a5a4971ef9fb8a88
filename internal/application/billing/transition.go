package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain"
	domainbilling "github.com/facturia/ocr-api/internal/domain/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// Transition ejecuta una acción de usuario (approve, reject, retry) sobre la
// factura. Valida rol, estado, hallazgos y versión esperada antes de tocar
// nada: un intento ilegal falla sin efectos parciales. El cambio de estado y
// su entrada de bitácora se confirman en la misma transacción.
func (e *Engine) Transition(ctx context.Context, invoiceID string, in dto.TransitionRequest, user entity.ActingUser) (*dto.InvoiceResponse, error) {
	inv, err := e.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}

	findings := domainbilling.Validate(inv, e.valPolicy)
	target, err := domainbilling.CheckUserTransition(inv, in.Action, in.Reason, user, findings)
	if err != nil {
		if err == domain.ErrPermissionDenied {
			// La denegación se registra en log, nunca como mutación ni entrada
			// de bitácora de la factura.
			e.log.Warn().
				Str("invoice_id", invoiceID).
				Str("user_id", user.ID).
				Str("role", user.Role).
				Str("action", in.Action).
				Msg("transición denegada por rol")
		}
		return nil, err
	}
	if inv.Version != in.ExpectedVersion {
		return nil, domain.ErrConcurrentModification
	}

	now := time.Now()
	from := inv.Status
	inv.Status = target
	if in.Action == domainbilling.ActionReject {
		inv.RejectionReason = in.Reason
	}
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
			Action:    entity.AuditActionStatusChange,
			Changes: []entity.Change{{
				Kind:   entity.ChangeKindStatus,
				Status: &entity.StatusChange{From: from, To: target, Reason: in.Reason},
			}},
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("invoice_id", inv.ID).
		Str("from", from).
		Str("to", target).
		Str("user_id", user.ID).
		Msg("transición de estado aplicada")

	return e.toResponse(inv), nil
}

// autoApprove aplica la aprobación automática como actor de sistema. El caller
// ya verificó la política; aquí solo se persiste el cambio con su bitácora.
func (e *Engine) autoApprove(ctx context.Context, inv *entity.Invoice) error {
	now := time.Now()
	from := inv.Status
	expected := inv.Version
	inv.Status = entity.StatusApproved
	inv.Version = expected + 1
	inv.UpdatedAt = now
	inv.UpdatedBy = "system"

	err := e.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		if err := invoiceRepo.Update(ctx, inv, expected); err != nil {
			return err
		}
		return auditRepo.Append(ctx, &entity.AuditLogEntry{
			ID:        uuid.New().String(),
			InvoiceID: inv.ID,
			UserID:    "system",
			UserName:  "auto-aprobación",
			Action:    entity.AuditActionStatusChange,
			Changes: []entity.Change{{
				Kind:   entity.ChangeKindStatus,
				Status: &entity.StatusChange{From: from, To: entity.StatusApproved, Reason: "auto-aprobación por confianza OCR"},
			}},
			Timestamp: now,
		})
	})
	if err != nil {
		return err
	}
	e.log.Info().
		Str("invoice_id", inv.ID).
		Str("confidence", inv.OCRConfidence.String()).
		Msg("factura auto-aprobada")
	return nil
}
