package entity

import (
	"github.com/shopspring/decimal"

	"github.com/facturia/ocr-api/internal/domain"
)

// Monedas soportadas por el motor. No existe conversión entre monedas:
// toda operación binaria exige la misma moneda en ambos operandos.
const (
	CurrencyUSD = "USD"
	CurrencyPEN = "PEN"
	CurrencyEUR = "EUR"
	CurrencyCLP = "CLP"
	CurrencyMXN = "MXN"
)

// ValidCurrency indica si el código de moneda es uno de los soportados.
func ValidCurrency(code string) bool {
	switch code {
	case CurrencyUSD, CurrencyPEN, CurrencyEUR, CurrencyCLP, CurrencyMXN:
		return true
	}
	return false
}

// Money es un monto con moneda. El monto se mantiene como decimal de precisión
// arbitraria (nunca float64) para evitar errores de representación en cálculos
// de impuestos. El redondeo a 2 decimales ocurre solo al presentar/persistir.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney construye un Money a partir de un decimal y una moneda.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// ZeroMoney devuelve el cero de la moneda indicada.
func ZeroMoney(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// Add suma dos montos. Falla con ErrCurrencyMismatch si las monedas difieren.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, domain.ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub resta otro monto. Falla con ErrCurrencyMismatch si las monedas difieren.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, domain.ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// MulScalar multiplica por un escalar sin moneda (cantidad, porcentaje).
// La multiplicación escalar está exenta del chequeo de moneda.
func (m Money) MulScalar(scalar decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(scalar), Currency: m.Currency}
}

// Cmp compara dos montos: -1 si m < other, 0 si iguales, 1 si m > other.
// Falla con ErrCurrencyMismatch si las monedas difieren.
func (m Money) Cmp(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, domain.ErrCurrencyMismatch
	}
	return m.Amount.Cmp(other.Amount), nil
}

// Round2 redondea el monto a 2 decimales con half-up (punto de presentación).
func (m Money) Round2() Money {
	return Money{Amount: m.Amount.Round(2), Currency: m.Currency}
}

// String devuelve el monto redondeado a 2 decimales con su moneda (ej. "11800.00 USD").
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}
