// Package billing contiene la lógica pura del motor: cálculo de líneas y
// totales, validación de reconciliación y la máquina de estados del ciclo de
// vida. Ninguna función de este paquete toca persistencia ni red.
package billing

import (
	"github.com/shopspring/decimal"

	"github.com/facturia/ocr-api/internal/domain"
	"github.com/facturia/ocr-api/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// LineTotals es el resultado del cálculo de una línea, redondeado a 2 decimales.
type LineTotals struct {
	LineSubtotal decimal.Decimal
	LineTax      decimal.Decimal
	LineTotal    decimal.Decimal
}

// InvoiceTotals es el resultado del cálculo a nivel factura.
// DiscountTotal es informativo: el descuento ya está neteado en Subtotal.
type InvoiceTotals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
}

// ComputeLine calcula subtotal, impuesto y total de una línea:
//
//	line_subtotal = quantity * unit_price * (1 - discount/100)
//	line_tax      = line_subtotal * tax/100
//	line_total    = line_subtotal + line_tax
//
// Los intermedios se mantienen en precisión completa (shopspring/decimal no
// pierde dígitos en Mul/Div exactos); el redondeo half-up a 2 decimales se
// aplica solo sobre los tres derivados de salida, nunca antes de la siguiente
// operación. Porcentajes fuera de [0,100] fallan con ErrInvalidPercent.
// Cantidad o precio negativos se permiten (correcciones tipo nota de crédito).
func ComputeLine(item entity.LineItem) (LineTotals, error) {
	if err := checkPercent(item.DiscountPercent); err != nil {
		return LineTotals{}, err
	}
	if err := checkPercent(item.TaxPercent); err != nil {
		return LineTotals{}, err
	}

	gross := item.Quantity.Mul(item.UnitPrice)
	factor := decimal.NewFromInt(1).Sub(item.DiscountPercent.Div(hundred))
	subtotal := gross.Mul(factor)
	tax := subtotal.Mul(item.TaxPercent.Div(hundred))
	total := subtotal.Add(tax)

	return LineTotals{
		LineSubtotal: subtotal.Round(2),
		LineTax:      tax.Round(2),
		LineTotal:    total.Round(2),
	}, nil
}

// ComputeInvoiceTotals agrega las líneas en los totales de la factura:
//
//	subtotal       = Σ line_subtotal
//	discount_total = Σ (quantity * unit_price) - subtotal   (informativo)
//	tax_total      = Σ line_tax
//	total          = subtotal + tax_total - withholding_total
//
// Con lista vacía devuelve totales en cero sin error: que una factura sin
// líneas sea un problema lo decide el motor de validación, no el calculador.
// Las sumas se hacen sobre los intermedios sin redondear; el redondeo a 2
// decimales se aplica al final sobre cada total.
func ComputeInvoiceTotals(items []entity.LineItem, withholdingTotal decimal.Decimal) (InvoiceTotals, error) {
	var subtotal, grossSum, taxTotal decimal.Decimal
	for _, item := range items {
		if err := checkPercent(item.DiscountPercent); err != nil {
			return InvoiceTotals{}, err
		}
		if err := checkPercent(item.TaxPercent); err != nil {
			return InvoiceTotals{}, err
		}
		gross := item.Quantity.Mul(item.UnitPrice)
		lineSub := gross.Mul(decimal.NewFromInt(1).Sub(item.DiscountPercent.Div(hundred)))
		lineTax := lineSub.Mul(item.TaxPercent.Div(hundred))

		grossSum = grossSum.Add(gross)
		subtotal = subtotal.Add(lineSub)
		taxTotal = taxTotal.Add(lineTax)
	}
	total := subtotal.Add(taxTotal).Sub(withholdingTotal)

	return InvoiceTotals{
		Subtotal:      subtotal.Round(2),
		DiscountTotal: grossSum.Sub(subtotal).Round(2),
		TaxTotal:      taxTotal.Round(2),
		Total:         total.Round(2),
	}, nil
}

// Recompute aplica el calculador sobre la factura in-place: deriva cada línea
// y los totales de cabecera. La recomputación es síncrona y total: no queda
// estado parcial visible entre pasos.
func Recompute(inv *entity.Invoice) error {
	for idx := range inv.Items {
		lt, err := ComputeLine(inv.Items[idx])
		if err != nil {
			return err
		}
		inv.Items[idx].LineSubtotal = lt.LineSubtotal
		inv.Items[idx].LineTax = lt.LineTax
		inv.Items[idx].LineTotal = lt.LineTotal
	}
	totals, err := ComputeInvoiceTotals(inv.Items, inv.WithholdingTotal)
	if err != nil {
		return err
	}
	inv.Subtotal = totals.Subtotal
	inv.DiscountTotal = totals.DiscountTotal
	inv.TaxTotal = totals.TaxTotal
	inv.Total = totals.Total
	return nil
}

func checkPercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return domain.ErrInvalidPercent
	}
	return nil
}
