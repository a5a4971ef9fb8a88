package billing

import (
	"github.com/shopspring/decimal"

	"github.com/facturia/ocr-api/internal/domain"
	"github.com/facturia/ocr-api/internal/domain/entity"
)

// Acciones de transición disponibles para usuarios.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionRetry   = "retry"
)

// ApprovalPolicy parametriza la auto-aprobación: si está habilitada y la
// confianza OCR alcanza el umbral sin hallazgos blocking, la factura pasa de
// COMPLETED a APPROVED sin intervención humana.
type ApprovalPolicy struct {
	AutoApproveEnabled   bool
	AutoApproveThreshold decimal.Decimal // def. 0.90
}

// DefaultApprovalPolicy devuelve la política por defecto (auto-aprobación apagada).
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{
		AutoApproveEnabled:   false,
		AutoApproveThreshold: decimal.NewFromFloat(0.90),
	}
}

// legalTransitions define el grafo de estados. APPROVED y REJECTED son
// terminales: una corrección exige una factura nueva que referencie la
// original; nunca se muta en sitio un documento finalizado.
var legalTransitions = map[string][]string{
	entity.StatusPending:    {entity.StatusProcessing},
	entity.StatusProcessing: {entity.StatusCompleted, entity.StatusError},
	entity.StatusCompleted:  {entity.StatusApproved, entity.StatusRejected},
	entity.StatusError:      {entity.StatusPending},
	entity.StatusApproved:   {},
	entity.StatusRejected:   {},
}

// CanTransition indica si from → to es una arista legal del grafo.
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStates devuelve los estados alcanzables en un paso desde from.
func NextStates(from string) []string {
	return legalTransitions[from]
}

// CheckEdit verifica que el usuario pueda editar la factura en su estado
// actual. Solo admin y operator editan; nunca sobre estados terminales ni
// mientras el OCR está en vuelo.
func CheckEdit(inv *entity.Invoice, user entity.ActingUser) error {
	if !entity.CanMutate(user.Role) {
		return domain.ErrPermissionDenied
	}
	switch inv.Status {
	case entity.StatusPending, entity.StatusCompleted, entity.StatusError:
		return nil
	}
	return domain.ErrIllegalTransition
}

// CheckUserTransition valida una acción de usuario contra rol, estado y
// hallazgos. Devuelve el estado destino. Sin efectos parciales: el caller solo
// aplica el cambio si el error es nil.
//
//   - approve: COMPLETED → APPROVED, requiere rol mutador y cero hallazgos blocking.
//   - reject:  COMPLETED → REJECTED, requiere rol mutador y motivo no vacío.
//   - retry:   ERROR → PENDING (re-despacho manual), requiere rol mutador.
func CheckUserTransition(inv *entity.Invoice, action, reason string, user entity.ActingUser, findings []Finding) (string, error) {
	if !entity.CanMutate(user.Role) {
		return "", domain.ErrPermissionDenied
	}
	switch action {
	case ActionApprove:
		if !CanTransition(inv.Status, entity.StatusApproved) {
			return "", domain.ErrIllegalTransition
		}
		if HasBlocking(findings) {
			return "", domain.ErrIllegalTransition
		}
		return entity.StatusApproved, nil
	case ActionReject:
		if !CanTransition(inv.Status, entity.StatusRejected) {
			return "", domain.ErrIllegalTransition
		}
		if reason == "" {
			return "", domain.ErrInvalidInput
		}
		return entity.StatusRejected, nil
	case ActionRetry:
		if inv.Status != entity.StatusError {
			return "", domain.ErrIllegalTransition
		}
		return entity.StatusPending, nil
	}
	return "", domain.ErrInvalidInput
}

// ShouldAutoApprove decide si una factura COMPLETED califica para aprobación
// automática bajo la política dada.
func ShouldAutoApprove(inv *entity.Invoice, policy ApprovalPolicy, findings []Finding) bool {
	if !policy.AutoApproveEnabled {
		return false
	}
	if inv.Status != entity.StatusCompleted {
		return false
	}
	if inv.OCRConfidence.LessThan(policy.AutoApproveThreshold) {
		return false
	}
	return !HasBlocking(findings)
}
