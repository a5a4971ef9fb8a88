package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturia/ocr-api/internal/domain/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// validInvoice arma una factura COMPLETED que valida limpia: una línea de
// 40 × 250.00 al 18%, total OCR afirmado coincidente.
func validInvoice() *entity.Invoice {
	inv := &entity.Invoice{
		Series:           "F001-00042",
		IssueDate:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		IssuerTaxID:      "20100113610",
		IssuerName:       "Proveedora Andina SAC",
		ReceiverTaxID:    "20512345678",
		ReceiverName:     "Constructora del Sur",
		Currency:         entity.CurrencyUSD,
		Status:           entity.StatusCompleted,
		OCRConfidence:    decimal.RequireFromString("0.95"),
		OCRAssertedTotal: decimal.RequireFromString("11800.00"),
		Items: []entity.LineItem{
			item("40", "250.00", "0", "18"),
		},
	}
	if err := billing.Recompute(inv); err != nil {
		panic(err)
	}
	return inv
}

func findCode(findings []billing.Finding, code string) *billing.Finding {
	for i := range findings {
		if findings[i].Code == code {
			return &findings[i]
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Validate
// ──────────────────────────────────────────────────────────────────────────────

func TestValidate_FacturaLimpia_SinHallazgos(t *testing.T) {
	findings := billing.Validate(validInvoice(), billing.DefaultValidationPolicy())
	assert.Empty(t, findings)
	assert.False(t, billing.HasBlocking(findings))
}

// El OCR leyó 28250.00 pero las líneas suman 11800.00: TotalsMismatch blocking.
func TestValidate_TotalAfirmadoDifiere_Blocking(t *testing.T) {
	inv := validInvoice()
	inv.OCRAssertedTotal = decimal.RequireFromString("28250.00")

	findings := billing.Validate(inv, billing.DefaultValidationPolicy())
	f := findCode(findings, billing.FindingTotalsMismatch)
	require.NotNil(t, f, "debe reportarse TotalsMismatch")
	assert.Equal(t, billing.SeverityBlocking, f.Severity)
	assert.Contains(t, f.Message, "11800.00")
	assert.Contains(t, f.Message, "28250.00")
	assert.True(t, billing.HasBlocking(findings))
}

// Una diferencia dentro de epsilon (0.01) no es hallazgo: tolera el redondeo
// del documento original.
func TestValidate_DiferenciaDentroDeEpsilon_SinHallazgo(t *testing.T) {
	inv := validInvoice()
	inv.OCRAssertedTotal = decimal.RequireFromString("11800.01")

	findings := billing.Validate(inv, billing.DefaultValidationPolicy())
	assert.Nil(t, findCode(findings, billing.FindingTotalsMismatch))
}

func TestValidate_SinLineas_Blocking(t *testing.T) {
	inv := validInvoice()
	inv.Items = nil
	require.NoError(t, billing.Recompute(inv))
	inv.OCRAssertedTotal = decimal.Zero

	findings := billing.Validate(inv, billing.DefaultValidationPolicy())
	f := findCode(findings, billing.FindingNoItems)
	require.NotNil(t, f)
	assert.Equal(t, billing.SeverityBlocking, f.Severity)
}

// Σ cuotas ≠ total → warning, nunca blocking: un cronograma desalineado no
// impide aprobar si el revisor lo acepta.
func TestValidate_CronogramaDesalineado_Warning(t *testing.T) {
	inv := validInvoice()
	inv.Payments = []entity.Payment{
		{Number: 1, DueDate: inv.IssueDate.AddDate(0, 1, 0), Amount: decimal.RequireFromString("5000.00")},
		{Number: 2, DueDate: inv.IssueDate.AddDate(0, 2, 0), Amount: decimal.RequireFromString("5000.00")},
	}

	findings := billing.Validate(inv, billing.DefaultValidationPolicy())
	f := findCode(findings, billing.FindingPaymentScheduleMismatch)
	require.NotNil(t, f)
	assert.Equal(t, billing.SeverityWarning, f.Severity)
	assert.False(t, billing.HasBlocking(findings))
}

func TestValidate_CronogramaCuadrado_SinHallazgo(t *testing.T) {
	inv := validInvoice()
	inv.Payments = []entity.Payment{
		{Number: 1, DueDate: inv.IssueDate.AddDate(0, 1, 0), Amount: decimal.RequireFromString("5900.00")},
		{Number: 2, DueDate: inv.IssueDate.AddDate(0, 2, 0), Amount: decimal.RequireFromString("5900.00")},
	}

	findings := billing.Validate(inv, billing.DefaultValidationPolicy())
	assert.Nil(t, findCode(findings, billing.FindingPaymentScheduleMismatch))
}

// LowConfidence solo aplica en la banda [HardFloor, ReviewThreshold): bajo el
// piso duro la factura ni siquiera llega a validarse (va a ERROR en el
// despacho); sobre el umbral no hay hallazgo.
func TestValidate_ConfianzaBaja_Warning(t *testing.T) {
	policy := billing.DefaultValidationPolicy()

	inv := validInvoice()
	inv.OCRConfidence = decimal.RequireFromString("0.55")
	f := findCode(billing.Validate(inv, policy), billing.FindingLowConfidence)
	require.NotNil(t, f)
	assert.Equal(t, billing.SeverityWarning, f.Severity)

	// Justo en el umbral de revisión: sin hallazgo.
	inv.OCRConfidence = decimal.RequireFromString("0.70")
	assert.Nil(t, findCode(billing.Validate(inv, policy), billing.FindingLowConfidence))

	// Bajo el piso duro: tampoco es hallazgo (es responsabilidad del orquestador).
	inv.OCRConfidence = decimal.RequireFromString("0.20")
	assert.Nil(t, findCode(billing.Validate(inv, policy), billing.FindingLowConfidence))
}

func TestValidate_ContraparteSinTaxID_Blocking(t *testing.T) {
	inv := validInvoice()
	inv.IssuerTaxID = ""
	inv.ReceiverTaxID = ""

	findings := billing.Validate(inv, billing.DefaultValidationPolicy())
	count := 0
	for _, f := range findings {
		if f.Code == billing.FindingMissingCounterparty {
			count++
			assert.Equal(t, billing.SeverityBlocking, f.Severity)
		}
	}
	assert.Equal(t, 2, count, "emisor y receptor sin tax_id generan un hallazgo cada uno")
}

// Validate es pura: no muta la factura.
func TestValidate_NoMutaLaFactura(t *testing.T) {
	inv := validInvoice()
	before := inv.Total

	billing.Validate(inv, billing.DefaultValidationPolicy())

	assert.True(t, before.Equal(inv.Total))
	assert.Equal(t, entity.StatusCompleted, inv.Status)
}
