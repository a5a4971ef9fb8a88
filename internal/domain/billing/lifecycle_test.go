package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturia/ocr-api/internal/domain"
	"github.com/facturia/ocr-api/internal/domain/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
)

var (
	operador = entity.ActingUser{ID: "u-1", Name: "Rosa Méndez", Role: entity.RoleOperator}
	lector   = entity.ActingUser{ID: "u-2", Name: "Juan Torres", Role: entity.RoleViewer}
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests del grafo de estados
// ──────────────────────────────────────────────────────────────────────────────

func TestCanTransition_GrafoCompleto(t *testing.T) {
	legal := [][2]string{
		{entity.StatusPending, entity.StatusProcessing},
		{entity.StatusProcessing, entity.StatusCompleted},
		{entity.StatusProcessing, entity.StatusError},
		{entity.StatusCompleted, entity.StatusApproved},
		{entity.StatusCompleted, entity.StatusRejected},
		{entity.StatusError, entity.StatusPending},
	}
	for _, tr := range legal {
		assert.True(t, billing.CanTransition(tr[0], tr[1]), "%s → %s debe ser legal", tr[0], tr[1])
	}

	illegal := [][2]string{
		{entity.StatusPending, entity.StatusCompleted},
		{entity.StatusPending, entity.StatusApproved},
		{entity.StatusApproved, entity.StatusRejected},
		{entity.StatusRejected, entity.StatusPending},
		{entity.StatusCompleted, entity.StatusPending},
	}
	for _, tr := range illegal {
		assert.False(t, billing.CanTransition(tr[0], tr[1]), "%s → %s debe ser ilegal", tr[0], tr[1])
	}
}

// APPROVED y REJECTED son terminales: cero estados alcanzables.
func TestNextStates_EstadosTerminales(t *testing.T) {
	assert.Empty(t, billing.NextStates(entity.StatusApproved))
	assert.Empty(t, billing.NextStates(entity.StatusRejected))
	assert.Equal(t, []string{entity.StatusPending}, billing.NextStates(entity.StatusError))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests CheckEdit
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckEdit_EstadosEditables(t *testing.T) {
	for _, status := range []string{entity.StatusPending, entity.StatusCompleted, entity.StatusError} {
		inv := &entity.Invoice{Status: status}
		assert.NoError(t, billing.CheckEdit(inv, operador), "estado %s debe ser editable", status)
	}
	for _, status := range []string{entity.StatusProcessing, entity.StatusApproved, entity.StatusRejected} {
		inv := &entity.Invoice{Status: status}
		assert.ErrorIs(t, billing.CheckEdit(inv, operador), domain.ErrIllegalTransition,
			"estado %s no debe ser editable", status)
	}
}

func TestCheckEdit_ViewerDenegado(t *testing.T) {
	inv := &entity.Invoice{Status: entity.StatusCompleted}
	assert.ErrorIs(t, billing.CheckEdit(inv, lector), domain.ErrPermissionDenied)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests CheckUserTransition
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckUserTransition_ApproveSinBloqueantes(t *testing.T) {
	inv := &entity.Invoice{Status: entity.StatusCompleted}

	next, err := billing.CheckUserTransition(inv, billing.ActionApprove, "", operador, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, next)
}

func TestCheckUserTransition_ApproveConBloqueante_Falla(t *testing.T) {
	inv := &entity.Invoice{Status: entity.StatusCompleted}
	findings := []billing.Finding{{Code: billing.FindingNoItems, Severity: billing.SeverityBlocking}}

	_, err := billing.CheckUserTransition(inv, billing.ActionApprove, "", operador, findings)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

// Un warning no bloquea la aprobación.
func TestCheckUserTransition_ApproveConWarning_Pasa(t *testing.T) {
	inv := &entity.Invoice{Status: entity.StatusCompleted}
	findings := []billing.Finding{{Code: billing.FindingLowConfidence, Severity: billing.SeverityWarning}}

	next, err := billing.CheckUserTransition(inv, billing.ActionApprove, "", operador, findings)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, next)
}

func TestCheckUserTransition_RejectRequiereMotivo(t *testing.T) {
	inv := &entity.Invoice{Status: entity.StatusCompleted}

	_, err := billing.CheckUserTransition(inv, billing.ActionReject, "", operador, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "reject sin motivo debe fallar")

	next, err := billing.CheckUserTransition(inv, billing.ActionReject, "montos ilegibles", operador, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, next)
}

func TestCheckUserTransition_RetrySoloDesdeError(t *testing.T) {
	inv := &entity.Invoice{Status: entity.StatusError}
	next, err := billing.CheckUserTransition(inv, billing.ActionRetry, "", operador, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, next)

	inv.Status = entity.StatusCompleted
	_, err = billing.CheckUserTransition(inv, billing.ActionRetry, "", operador, nil)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestCheckUserTransition_ViewerDenegadoAntesDeValidarEstado(t *testing.T) {
	// El chequeo de rol va primero: un viewer recibe PermissionDenied incluso
	// si la transición sería ilegal de todos modos.
	inv := &entity.Invoice{Status: entity.StatusPending}
	_, err := billing.CheckUserTransition(inv, billing.ActionApprove, "", lector, nil)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestCheckUserTransition_AccionDesconocida(t *testing.T) {
	inv := &entity.Invoice{Status: entity.StatusCompleted}
	_, err := billing.CheckUserTransition(inv, "archive", "", operador, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests ShouldAutoApprove
// ──────────────────────────────────────────────────────────────────────────────

func TestShouldAutoApprove(t *testing.T) {
	policy := billing.ApprovalPolicy{
		AutoApproveEnabled:   true,
		AutoApproveThreshold: decimal.RequireFromString("0.90"),
	}

	inv := &entity.Invoice{
		Status:        entity.StatusCompleted,
		OCRConfidence: decimal.RequireFromString("0.95"),
	}
	assert.True(t, billing.ShouldAutoApprove(inv, policy, nil),
		"0.95 ≥ 0.90 sin bloqueantes debe auto-aprobar")

	// Justo en el umbral también califica.
	inv.OCRConfidence = decimal.RequireFromString("0.90")
	assert.True(t, billing.ShouldAutoApprove(inv, policy, nil))

	inv.OCRConfidence = decimal.RequireFromString("0.89")
	assert.False(t, billing.ShouldAutoApprove(inv, policy, nil))

	inv.OCRConfidence = decimal.RequireFromString("0.95")
	blocking := []billing.Finding{{Severity: billing.SeverityBlocking}}
	assert.False(t, billing.ShouldAutoApprove(inv, policy, blocking),
		"un hallazgo blocking desactiva la auto-aprobación")

	inv.Status = entity.StatusPending
	assert.False(t, billing.ShouldAutoApprove(inv, policy, nil),
		"solo facturas COMPLETED califican")

	policy.AutoApproveEnabled = false
	inv.Status = entity.StatusCompleted
	assert.False(t, billing.ShouldAutoApprove(inv, policy, nil))
}
