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

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func item(qty, price, discount, tax string) entity.LineItem {
	return entity.LineItem{
		Quantity:        decimal.RequireFromString(qty),
		UnitPrice:       decimal.RequireFromString(price),
		DiscountPercent: decimal.RequireFromString(discount),
		TaxPercent:      decimal.RequireFromString(tax),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests ComputeLine
// ──────────────────────────────────────────────────────────────────────────────

// 40 licencias a 250.00 con 18% de impuesto: 10000.00 / 1800.00 / 11800.00.
func TestComputeLine_LineaConImpuesto(t *testing.T) {
	lt, err := billing.ComputeLine(item("40", "250.00", "0", "18"))
	require.NoError(t, err)

	assert.Equal(t, "10000.00", lt.LineSubtotal.StringFixed(2))
	assert.Equal(t, "1800.00", lt.LineTax.StringFixed(2))
	assert.Equal(t, "11800.00", lt.LineTotal.StringFixed(2))
}

func TestComputeLine_ConDescuento(t *testing.T) {
	// 10 × 100.00 con 25% desc y 10% imp: 750.00 / 75.00 / 825.00
	lt, err := billing.ComputeLine(item("10", "100.00", "25", "10"))
	require.NoError(t, err)

	assert.Equal(t, "750.00", lt.LineSubtotal.StringFixed(2))
	assert.Equal(t, "75.00", lt.LineTax.StringFixed(2))
	assert.Equal(t, "825.00", lt.LineTotal.StringFixed(2))
}

// El redondeo se aplica solo a la salida: 3 × 0.335 = 1.005 → 1.01 (half-up),
// no 1.00. Con floats binarios este caso da 1.00.
func TestComputeLine_RedondeoHalfUpSoloAlFinal(t *testing.T) {
	lt, err := billing.ComputeLine(item("3", "0.335", "0", "0"))
	require.NoError(t, err)

	assert.Equal(t, "1.01", lt.LineSubtotal.StringFixed(2))
}

// Cantidades o precios negativos se permiten (notas de crédito / correcciones).
func TestComputeLine_CantidadNegativaPermitida(t *testing.T) {
	lt, err := billing.ComputeLine(item("-2", "50.00", "0", "18"))
	require.NoError(t, err)

	assert.Equal(t, "-100.00", lt.LineSubtotal.StringFixed(2))
	assert.Equal(t, "-118.00", lt.LineTotal.StringFixed(2))
}

func TestComputeLine_PorcentajeFueraDeRango(t *testing.T) {
	_, err := billing.ComputeLine(item("1", "100", "-1", "0"))
	assert.ErrorIs(t, err, domain.ErrInvalidPercent, "descuento negativo debe fallar")

	_, err = billing.ComputeLine(item("1", "100", "0", "101"))
	assert.ErrorIs(t, err, domain.ErrInvalidPercent, "impuesto mayor a 100 debe fallar")

	// Los bordes 0 y 100 son válidos.
	_, err = billing.ComputeLine(item("1", "100", "100", "0"))
	assert.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests ComputeInvoiceTotals
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeInvoiceTotals_AgregaLineas(t *testing.T) {
	items := []entity.LineItem{
		item("40", "250.00", "0", "18"), // 10000.00 + 1800.00
		item("10", "100.00", "25", "10"), // 750.00 + 75.00, descuento 250.00
	}

	totals, err := billing.ComputeInvoiceTotals(items, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, "10750.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "250.00", totals.DiscountTotal.StringFixed(2))
	assert.Equal(t, "1875.00", totals.TaxTotal.StringFixed(2))
	assert.Equal(t, "12625.00", totals.Total.StringFixed(2))
}

func TestComputeInvoiceTotals_RetencionRestaDelTotal(t *testing.T) {
	items := []entity.LineItem{item("40", "250.00", "0", "18")}

	totals, err := billing.ComputeInvoiceTotals(items, decimal.RequireFromString("800.00"))
	require.NoError(t, err)

	assert.Equal(t, "11000.00", totals.Total.StringFixed(2),
		"total = subtotal + impuestos - retenciones")
	assert.Equal(t, "10000.00", totals.Subtotal.StringFixed(2),
		"la retención no toca el subtotal")
}

// Reordenar las líneas no cambia ningún total: la suma se hace sobre
// intermedios sin redondear, así que es conmutativa.
func TestComputeInvoiceTotals_InvarianteAlOrden(t *testing.T) {
	a := []entity.LineItem{
		item("3", "0.335", "0", "18"),
		item("7", "1.113", "5", "10"),
		item("1", "999.995", "0", "0"),
	}
	b := []entity.LineItem{a[2], a[0], a[1]}

	ta, err := billing.ComputeInvoiceTotals(a, decimal.Zero)
	require.NoError(t, err)
	tb, err := billing.ComputeInvoiceTotals(b, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, ta.Subtotal.Equal(tb.Subtotal))
	assert.True(t, ta.TaxTotal.Equal(tb.TaxTotal))
	assert.True(t, ta.Total.Equal(tb.Total))
}

// Lista vacía: totales en cero sin error. Que no haya líneas lo reporta el
// motor de validación como hallazgo NoItems, no el calculador.
func TestComputeInvoiceTotals_ListaVacia(t *testing.T) {
	totals, err := billing.ComputeInvoiceTotals(nil, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.DiscountTotal.IsZero())
	assert.True(t, totals.TaxTotal.IsZero())
	assert.True(t, totals.Total.IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Recompute
// ──────────────────────────────────────────────────────────────────────────────

func TestRecompute_DerivaLineasYCabecera(t *testing.T) {
	inv := &entity.Invoice{
		Currency: entity.CurrencyUSD,
		Items: []entity.LineItem{
			item("40", "250.00", "0", "18"),
		},
	}

	require.NoError(t, billing.Recompute(inv))

	assert.Equal(t, "10000.00", inv.Items[0].LineSubtotal.StringFixed(2))
	assert.Equal(t, "1800.00", inv.Items[0].LineTax.StringFixed(2))
	assert.Equal(t, "11800.00", inv.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "11800.00", inv.Total.StringFixed(2))
}

func TestRecompute_PorcentajeInvalidoNoDejaEstadoParcial(t *testing.T) {
	inv := &entity.Invoice{
		Items: []entity.LineItem{item("1", "100", "0", "200")},
	}
	err := billing.Recompute(inv)
	assert.ErrorIs(t, err, domain.ErrInvalidPercent)
}
