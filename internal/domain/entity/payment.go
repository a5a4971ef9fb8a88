package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment es una cuota del cronograma de pagos. Number es secuencial desde 1.
// La suma de cuotas, cuando existen, debe igualar el total de la factura dentro
// del epsilon configurado; la violación es un hallazgo de validación, no un
// error duro.
type Payment struct {
	Number  int
	DueDate time.Time
	Amount  decimal.Decimal
}
