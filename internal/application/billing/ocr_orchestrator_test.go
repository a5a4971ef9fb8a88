package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain"
	domainbilling "github.com/facturia/ocr-api/internal/domain/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type orchestratorFixture struct {
	*engineFixture
	orchestrator *billing.OCROrchestrator
	ocr          *fakeOCREngine
}

func newOrchestratorFixture(ocr *fakeOCREngine, appPolicy domainbilling.ApprovalPolicy, timeout time.Duration) *orchestratorFixture {
	fx := newEngineFixture(appPolicy)
	tx := &fakeTxRunner{invoiceRepo: fx.invoiceRepo, auditRepo: fx.auditRepo}
	return &orchestratorFixture{
		engineFixture: fx,
		orchestrator: billing.NewOCROrchestrator(
			ocr, tx, fx.invoiceRepo,
			domainbilling.DefaultValidationPolicy(), appPolicy, timeout, logger.Nop(),
		),
		ocr: ocr,
	}
}

// waitForStatus espera a que la goroutine de proceso persista el estado.
func (fx *orchestratorFixture) waitForStatus(t *testing.T, invoiceID, status string) *entity.Invoice {
	t.Helper()
	var inv *entity.Invoice
	require.Eventually(t, func() bool {
		inv, _ = fx.invoiceRepo.GetByID(context.Background(), invoiceID)
		return inv != nil && inv.Status == status
	}, 2*time.Second, 10*time.Millisecond, "la factura debe llegar a %s", status)
	return inv
}

// lastStatusReason devuelve el motivo de la última transición en la bitácora.
func (fx *orchestratorFixture) lastStatusReason(invoiceID string) string {
	entries := fx.auditRepo.byInvoice(invoiceID)
	for i := len(entries) - 1; i >= 0; i-- {
		for _, c := range entries[i].Changes {
			if c.Status != nil {
				return c.Status.Reason
			}
		}
	}
	return ""
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Dispatch
// ──────────────────────────────────────────────────────────────────────────────

func TestDispatch_ExtraccionExitosa_TerminaEnCompleted(t *testing.T) {
	raw := rawExtraction()
	fx := newOrchestratorFixture(&fakeOCREngine{extraction: &raw}, domainbilling.DefaultApprovalPolicy(), time.Second)
	created := createInvoice(t, fx.engineFixture)

	require.NoError(t, fx.orchestrator.Dispatch(context.Background(), created.ID))

	inv := fx.waitForStatus(t, created.ID, entity.StatusCompleted)
	assert.Equal(t, "11800.00", inv.Total.StringFixed(2), "los totales se recalculan al completar")

	// La bitácora registra ambas transiciones de sistema en orden.
	entries := fx.auditRepo.byInvoice(created.ID)
	require.GreaterOrEqual(t, len(entries), 3)
	assert.Equal(t, entity.StatusProcessing, entries[1].Changes[0].Status.To)
	assert.Equal(t, entity.StatusCompleted, entries[2].Changes[0].Status.To)
	assert.Equal(t, "system", entries[1].UserID)
}

func TestDispatch_SoloDesdePending(t *testing.T) {
	raw := rawExtraction()
	fx := newOrchestratorFixture(&fakeOCREngine{extraction: &raw}, domainbilling.DefaultApprovalPolicy(), time.Second)
	created := createInvoice(t, fx.engineFixture)
	forceStatus(t, fx.engineFixture, created.ID, entity.StatusCompleted)

	err := fx.orchestrator.Dispatch(context.Background(), created.ID)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestDispatch_FacturaInexistente(t *testing.T) {
	raw := rawExtraction()
	fx := newOrchestratorFixture(&fakeOCREngine{extraction: &raw}, domainbilling.DefaultApprovalPolicy(), time.Second)
	err := fx.orchestrator.Dispatch(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatch_MotorFalla_TerminaEnError(t *testing.T) {
	fx := newOrchestratorFixture(&fakeOCREngine{err: errors.New("motor caído")},
		domainbilling.DefaultApprovalPolicy(), time.Second)
	created := createInvoice(t, fx.engineFixture)

	require.NoError(t, fx.orchestrator.Dispatch(context.Background(), created.ID))

	fx.waitForStatus(t, created.ID, entity.StatusError)
	assert.Equal(t, "ExtractionFailed", fx.lastStatusReason(created.ID))
}

func TestDispatch_Timeout_TerminaEnErrorConMotivoTimeout(t *testing.T) {
	// El motor nunca responde; el timeout del orquestador (50ms) corta.
	fx := newOrchestratorFixture(&fakeOCREngine{block: make(chan struct{})},
		domainbilling.DefaultApprovalPolicy(), 50*time.Millisecond)
	created := createInvoice(t, fx.engineFixture)

	require.NoError(t, fx.orchestrator.Dispatch(context.Background(), created.ID))

	fx.waitForStatus(t, created.ID, entity.StatusError)
	assert.Equal(t, "Timeout", fx.lastStatusReason(created.ID))
}

func TestCancel_EnVuelo_TerminaEnErrorConMotivoCancelled(t *testing.T) {
	fx := newOrchestratorFixture(&fakeOCREngine{block: make(chan struct{})},
		domainbilling.DefaultApprovalPolicy(), 5*time.Second)
	created := createInvoice(t, fx.engineFixture)

	require.NoError(t, fx.orchestrator.Dispatch(context.Background(), created.ID))
	require.NoError(t, fx.orchestrator.Cancel(created.ID))

	fx.waitForStatus(t, created.ID, entity.StatusError)
	assert.Equal(t, "Cancelled", fx.lastStatusReason(created.ID))
}

func TestCancel_SinDespachoEnCurso(t *testing.T) {
	raw := rawExtraction()
	fx := newOrchestratorFixture(&fakeOCREngine{extraction: &raw}, domainbilling.DefaultApprovalPolicy(), time.Second)
	assert.ErrorIs(t, fx.orchestrator.Cancel("nada-en-vuelo"), domain.ErrNotFound)
}

// Confianza bajo el piso duro: la extracción técnicamente funcionó pero no hay
// campos utilizables; ERROR con motivo LowConfidenceFloor.
func TestDispatch_ConfianzaBajoPisoDuro_TerminaEnError(t *testing.T) {
	raw := rawExtraction()
	raw.Confidence = decimal.RequireFromString("0.20")
	fx := newOrchestratorFixture(&fakeOCREngine{extraction: &raw}, domainbilling.DefaultApprovalPolicy(), time.Second)
	created := createInvoice(t, fx.engineFixture)

	require.NoError(t, fx.orchestrator.Dispatch(context.Background(), created.ID))

	fx.waitForStatus(t, created.ID, entity.StatusError)
	assert.Equal(t, "LowConfidenceFloor", fx.lastStatusReason(created.ID))
}

// Con auto-aprobación habilitada y confianza 0.95 ≥ 0.90, una extracción
// limpia termina directamente en APPROVED con su transición auditada.
func TestDispatch_AutoApruebaTrasCompletar(t *testing.T) {
	raw := rawExtraction()
	fx := newOrchestratorFixture(&fakeOCREngine{extraction: &raw}, domainbilling.ApprovalPolicy{
		AutoApproveEnabled:   true,
		AutoApproveThreshold: decimal.RequireFromString("0.90"),
	}, time.Second)
	created := createInvoice(t, fx.engineFixture)

	require.NoError(t, fx.orchestrator.Dispatch(context.Background(), created.ID))

	fx.waitForStatus(t, created.ID, entity.StatusApproved)
	assert.Equal(t, "auto-aprobación por confianza OCR", fx.lastStatusReason(created.ID))
}

// Dos despachos en secuencia (retry tras ERROR) no se pisan: el segundo parte
// de la versión fresca persistida por el primero.
func TestDispatch_RetryDespuesDeError(t *testing.T) {
	ocr := &fakeOCREngine{err: errors.New("motor caído")}
	fx := newOrchestratorFixture(ocr, domainbilling.DefaultApprovalPolicy(), time.Second)
	created := createInvoice(t, fx.engineFixture)
	ctx := context.Background()

	require.NoError(t, fx.orchestrator.Dispatch(ctx, created.ID))
	errored := fx.waitForStatus(t, created.ID, entity.StatusError)

	// retry manual: ERROR → PENDING
	_, err := fx.engine.Transition(ctx, created.ID, dto.TransitionRequest{
		Action:          domainbilling.ActionRetry,
		ExpectedVersion: errored.Version,
	}, testOperator)
	require.NoError(t, err)

	// segundo intento con el motor ya sano
	raw := rawExtraction()
	ocr.err = nil
	ocr.extraction = &raw
	require.NoError(t, fx.orchestrator.Dispatch(ctx, created.ID))
	fx.waitForStatus(t, created.ID, entity.StatusCompleted)
}
