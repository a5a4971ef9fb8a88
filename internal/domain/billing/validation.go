package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/facturia/ocr-api/internal/domain/entity"
)

// Severidades de un hallazgo. Un hallazgo blocking impide aprobar, pero nunca
// impide guardar una edición en borrador.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityBlocking = "blocking"
)

// Códigos de hallazgo.
const (
	FindingTotalsMismatch          = "TotalsMismatch"
	FindingNoItems                 = "NoItems"
	FindingPaymentScheduleMismatch = "PaymentScheduleMismatch"
	FindingLowConfidence           = "LowConfidence"
	FindingMissingCounterparty     = "MissingCounterparty"
)

// Finding es un hallazgo de validación. Las discrepancias son datos, no
// errores: "el total no cuadra" es una condición esperada y accionable por el
// revisor, no una falla del sistema.
type Finding struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// ValidationPolicy parametriza el motor de validación.
type ValidationPolicy struct {
	Epsilon         decimal.Decimal // tolerancia para comparaciones de montos (def. 0.01)
	ReviewThreshold decimal.Decimal // confianza mínima para no marcar LowConfidence (def. 0.70)
	HardFloor       decimal.Decimal // piso duro de confianza; por debajo la factura va a ERROR (def. 0.30)
}

// DefaultValidationPolicy devuelve la política por defecto.
func DefaultValidationPolicy() ValidationPolicy {
	return ValidationPolicy{
		Epsilon:         decimal.NewFromFloat(0.01),
		ReviewThreshold: decimal.NewFromFloat(0.70),
		HardFloor:       decimal.NewFromFloat(0.30),
	}
}

// Validate es una función de lectura pura sobre un snapshot de la factura.
// Cada chequeo es independiente; nunca lanza error: las discrepancias salen
// como hallazgos. Se recalcula en cada mutación, jamás se sirve cache viejo.
func Validate(inv *entity.Invoice, policy ValidationPolicy) []Finding {
	findings := make([]Finding, 0, 4)

	// NoItems (blocking): lista de líneas vacía.
	if len(inv.Items) == 0 {
		findings = append(findings, Finding{
			Code:     FindingNoItems,
			Severity: SeverityBlocking,
			Message:  "la factura no tiene líneas de detalle",
			Field:    "items",
		})
	}

	// TotalsMismatch (blocking): total calculado vs total afirmado por el OCR.
	totals, err := ComputeInvoiceTotals(inv.Items, inv.WithholdingTotal)
	if err == nil {
		diff := totals.Total.Sub(inv.OCRAssertedTotal).Abs()
		if diff.GreaterThan(policy.Epsilon) {
			findings = append(findings, Finding{
				Code:     FindingTotalsMismatch,
				Severity: SeverityBlocking,
				Message: fmt.Sprintf("total calculado %s difiere del total OCR %s en %s %s",
					totals.Total.StringFixed(2), inv.OCRAssertedTotal.StringFixed(2),
					diff.StringFixed(2), inv.Currency),
				Field: "total",
			})
		}
	}

	// PaymentScheduleMismatch (warning): Σ cuotas vs total, solo si hay cuotas.
	if len(inv.Payments) > 0 {
		var paid decimal.Decimal
		for _, p := range inv.Payments {
			paid = paid.Add(p.Amount)
		}
		diff := paid.Sub(inv.Total).Abs()
		if diff.GreaterThan(policy.Epsilon) {
			findings = append(findings, Finding{
				Code:     FindingPaymentScheduleMismatch,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("la suma de cuotas %s no iguala el total %s %s",
					paid.StringFixed(2), inv.Total.StringFixed(2), inv.Currency),
				Field: "payments",
			})
		}
	}

	// LowConfidence (warning): bajo el umbral de revisión pero sobre el piso duro.
	if inv.OCRConfidence.LessThan(policy.ReviewThreshold) &&
		inv.OCRConfidence.GreaterThanOrEqual(policy.HardFloor) {
		findings = append(findings, Finding{
			Code:     FindingLowConfidence,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("confianza OCR %s bajo el umbral de revisión %s",
				inv.OCRConfidence.StringFixed(2), policy.ReviewThreshold.StringFixed(2)),
			Field: "ocr_confidence",
		})
	}

	// MissingCounterparty (blocking): emisor o receptor sin tax_id.
	if inv.IssuerTaxID == "" {
		findings = append(findings, Finding{
			Code:     FindingMissingCounterparty,
			Severity: SeverityBlocking,
			Message:  "el emisor no tiene identificación tributaria",
			Field:    "issuer_tax_id",
		})
	}
	if inv.ReceiverTaxID == "" {
		findings = append(findings, Finding{
			Code:     FindingMissingCounterparty,
			Severity: SeverityBlocking,
			Message:  "el receptor no tiene identificación tributaria",
			Field:    "receiver_tax_id",
		})
	}

	return findings
}

// HasBlocking indica si la lista contiene al menos un hallazgo blocking.
func HasBlocking(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}
