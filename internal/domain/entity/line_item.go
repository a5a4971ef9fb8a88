package entity

import "github.com/shopspring/decimal"

// LineItem es una línea de la factura. La moneda del precio unitario es la de
// la factura padre. Cantidad o precio negativos solo se admiten para
// correcciones tipo nota de crédito; los porcentajes siempre viven en [0,100].
type LineItem struct {
	ID              string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal

	// Derivados por el calculador, redondeados a 2 decimales al persistir.
	LineSubtotal decimal.Decimal
	LineTax      decimal.Decimal
	LineTotal    decimal.Decimal
}
