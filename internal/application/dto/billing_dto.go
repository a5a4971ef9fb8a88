package dto

import "github.com/shopspring/decimal"

// Los montos viajan como decimal (serializado a string JSON) y nunca como
// float binario, para no perder precisión en la frontera de serialización.

// ExtractionItem es una línea tal como la devuelve el motor OCR.
type ExtractionItem struct {
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
}

// ExtractionPayment es una cuota detectada por el OCR.
type ExtractionPayment struct {
	Number  int             `json:"number"`
	DueDate string          `json:"due_date"` // YYYY-MM-DD
	Amount  decimal.Decimal `json:"amount"`
}

// RawExtraction es el resultado estructurado del colaborador OCR: campos
// parciales de cabecera y líneas, más confianza y motor.
type RawExtraction struct {
	Series           string              `json:"series"`
	IssueDate        string              `json:"issue_date"` // YYYY-MM-DD
	DueDate          string              `json:"due_date,omitempty"`
	IssuerID         string              `json:"issuer_id"`
	IssuerName       string              `json:"issuer_name"`
	IssuerTaxID      string              `json:"issuer_tax_id"`
	ReceiverID       string              `json:"receiver_id"`
	ReceiverName     string              `json:"receiver_name"`
	ReceiverTaxID    string              `json:"receiver_tax_id"`
	Currency         string              `json:"currency"`
	WithholdingTotal decimal.Decimal     `json:"withholding_total"`
	AssertedTotal    decimal.Decimal     `json:"asserted_total"` // total leído del documento
	Items            []ExtractionItem    `json:"items"`
	Payments         []ExtractionPayment `json:"payments"`
	Notes            string              `json:"notes,omitempty"`
	FilePath         string              `json:"file_path"`
	Confidence       decimal.Decimal     `json:"confidence"`      // ∈ [0,1]
	Engine           string              `json:"engine"`          // PaddleOCR, Docling, Tesseract
	ProcessingTime   decimal.Decimal     `json:"processing_time"` // segundos
}

// ApplyEditRequest es una edición de campo con versión esperada.
type ApplyEditRequest struct {
	Field           string `json:"field"`
	Value           string `json:"value"`
	ItemID          string `json:"item_id,omitempty"` // requerido si Field es de línea
	ExpectedVersion int64  `json:"expected_version"`
}

// TransitionRequest es una acción de ciclo de vida (approve, reject, retry).
type TransitionRequest struct {
	Action          string `json:"action"`
	Reason          string `json:"reason,omitempty"` // obligatorio para reject
	ExpectedVersion int64  `json:"expected_version"`
}

// FindingResponse es un hallazgo de validación serializado.
type FindingResponse struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// LineItemResponse línea con sus derivados.
type LineItemResponse struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
	LineSubtotal    decimal.Decimal `json:"line_subtotal"`
	LineTax         decimal.Decimal `json:"line_tax"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// PaymentResponse cuota del cronograma.
type PaymentResponse struct {
	Number  int             `json:"number"`
	DueDate string          `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

// InvoiceResponse es la factura completa con sus hallazgos vigentes.
type InvoiceResponse struct {
	ID               string             `json:"id"`
	Series           string             `json:"series"`
	IssueDate        string             `json:"issue_date"`
	DueDate          string             `json:"due_date,omitempty"`
	IssuerID         string             `json:"issuer_id"`
	IssuerName       string             `json:"issuer_name"`
	IssuerTaxID      string             `json:"issuer_tax_id"`
	ReceiverID       string             `json:"receiver_id"`
	ReceiverName     string             `json:"receiver_name"`
	ReceiverTaxID    string             `json:"receiver_tax_id"`
	Currency         string             `json:"currency"`
	Status           string             `json:"status"`
	OCRConfidence    decimal.Decimal    `json:"ocr_confidence"`
	OCREngine        string             `json:"ocr_engine"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	DiscountTotal    decimal.Decimal    `json:"discount_total"`
	TaxTotal         decimal.Decimal    `json:"tax_total"`
	WithholdingTotal decimal.Decimal    `json:"withholding_total"`
	Total            decimal.Decimal    `json:"total"`
	Notes            string             `json:"notes,omitempty"`
	RejectionReason  string             `json:"rejection_reason,omitempty"`
	Items            []LineItemResponse `json:"items"`
	Payments         []PaymentResponse  `json:"payments"`
	Findings         []FindingResponse  `json:"findings"`
	Version          int64              `json:"version"`
	CreatedAt        string             `json:"created_at"`
	UpdatedAt        string             `json:"updated_at"`
	CreatedBy        string             `json:"created_by"`
	UpdatedBy        string             `json:"updated_by,omitempty"`
}

// InvoiceListResponse listado paginado.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// AuditChangeResponse es un cambio de la unión etiquetada, aplanado para la UI.
type AuditChangeResponse struct {
	Kind   string `json:"kind"`
	Field  string `json:"field,omitempty"`
	ItemID string `json:"item_id,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// AuditLogResponse entrada de bitácora.
type AuditLogResponse struct {
	ID        string                `json:"id"`
	InvoiceID string                `json:"invoice_id"`
	UserID    string                `json:"user_id"`
	UserName  string                `json:"user_name"`
	Action    string                `json:"action"`
	Changes   []AuditChangeResponse `json:"changes"`
	Timestamp string                `json:"timestamp"`
}
