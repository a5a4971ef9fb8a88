package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de una factura OCR.
const (
	StatusPending    = "PENDING"    // Creada, a la espera de despacho al motor OCR
	StatusProcessing = "PROCESSING" // Motor OCR trabajando
	StatusCompleted  = "COMPLETED"  // Extracción exitosa, campos poblados, pendiente de revisión
	StatusApproved   = "APPROVED"   // Aprobada (manual o automática); terminal
	StatusRejected   = "REJECTED"   // Rechazada con motivo; terminal
	StatusError      = "ERROR"      // Extracción fallida, confianza bajo el piso, timeout o cancelación
)

// ValidStatus indica si s es uno de los estados conocidos.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusApproved, StatusRejected, StatusError:
		return true
	}
	return false
}

// Motores OCR soportados.
const (
	EnginePaddleOCR = "PaddleOCR"
	EngineDocling   = "Docling"
	EngineTesseract = "Tesseract"
)

// Invoice es la raíz de agregado: cabecera, líneas, cuotas, totales calculados
// y estado. Los datos de emisor/receptor se guardan desnormalizados a propósito:
// congelan el perfil de la contraparte a la fecha de la factura aunque el
// registro de Company cambie después.
//
// Version es el contador de concurrencia optimista: toda mutación debe llegar
// con la versión esperada; una versión vieja falla con ErrConcurrentModification.
type Invoice struct {
	ID       string
	Series   string // número de documento de negocio, ej. "F001-00123"
	IssueDate time.Time
	DueDate  *time.Time

	IssuerID      string
	IssuerName    string
	IssuerTaxID   string
	ReceiverID    string
	ReceiverName  string
	ReceiverTaxID string

	Currency string
	Status   string

	OCRConfidence  decimal.Decimal // ∈ [0,1], reportada por el motor
	OCREngine      string
	ProcessingTime decimal.Decimal // segundos, informativo
	FilePath       string

	Items    []LineItem
	Payments []Payment

	// Totales calculados, siempre en la moneda de la factura.
	// Invariante tras cada recalculo: Total = Subtotal + TaxTotal - WithholdingTotal.
	Subtotal         decimal.Decimal
	DiscountTotal    decimal.Decimal
	TaxTotal         decimal.Decimal
	WithholdingTotal decimal.Decimal
	Total            decimal.Decimal

	// Total afirmado por el OCR en el documento, para reconciliación.
	OCRAssertedTotal decimal.Decimal

	Notes           string
	RejectionReason string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// TotalMoney devuelve el total como Money en la moneda de la factura.
func (i *Invoice) TotalMoney() Money {
	return Money{Amount: i.Total, Currency: i.Currency}
}

// IsTerminal indica si la factura está en un estado final (no editable).
func (i *Invoice) IsTerminal() bool {
	return i.Status == StatusApproved || i.Status == StatusRejected
}
