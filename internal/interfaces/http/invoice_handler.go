package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/application/dto"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// InvoiceHandler maneja las peticiones HTTP de facturas digitalizadas (protegido).
type InvoiceHandler struct {
	engine       *billing.Engine
	orchestrator *billing.OCROrchestrator
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(engine *billing.Engine, orchestrator *billing.OCROrchestrator) *InvoiceHandler {
	return &InvoiceHandler{engine: engine, orchestrator: orchestrator}
}

// Create registra una factura a partir de una extracción OCR ya hecha
// (ingesta externa). Nace en PENDING con sus totales recalculados.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	user := GetActingUser(c)
	var in dto.RawExtraction
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	invoice, err := h.engine.CreateFromExtraction(c.Context(), in, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// List lista facturas con filtros de estado, emisor y moneda.
// GET /api/invoices?status=&issuer_id=&currency=&limit=&offset=
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	filter := repository.InvoiceFilter{
		Status:   c.Query("status"),
		IssuerID: c.Query("issuer_id"),
		Currency: c.Query("currency"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	list, err := h.engine.ListInvoices(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetByID obtiene el detalle completo con hallazgos de validación frescos.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	invoice, err := h.engine.GetInvoice(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(invoice)
}

// ApplyEdit aplica una edición de campo con control de versión optimista.
// PATCH /api/invoices/:id
func (h *InvoiceHandler) ApplyEdit(c *fiber.Ctx) error {
	user := GetActingUser(c)
	var in dto.ApplyEditRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	invoice, err := h.engine.ApplyEdit(c.Context(), c.Params("id"), in, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(invoice)
}

// Transition ejecuta una acción de ciclo de vida: approve, reject o retry.
// POST /api/invoices/:id/transition
func (h *InvoiceHandler) Transition(c *fiber.Ctx) error {
	user := GetActingUser(c)
	var in dto.TransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	invoice, err := h.engine.Transition(c.Context(), c.Params("id"), in, user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(invoice)
}

// Validate ejecuta la validación pura y devuelve los hallazgos sin mutar nada.
// GET /api/invoices/:id/findings
func (h *InvoiceHandler) Validate(c *fiber.Ctx) error {
	findings, err := h.engine.Validate(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"findings": findings})
}

// AuditTrail devuelve la bitácora completa en orden estable.
// GET /api/invoices/:id/audit
func (h *InvoiceHandler) AuditTrail(c *fiber.Ctx) error {
	entries, err := h.engine.GetAuditTrail(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"entries": entries})
}

// Dispatch envía una factura PENDING al motor OCR. La extracción corre en
// background; el endpoint responde 202 apenas queda en PROCESSING.
// POST /api/invoices/:id/dispatch
func (h *InvoiceHandler) Dispatch(c *fiber.Ctx) error {
	if err := h.orchestrator.Dispatch(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// CancelDispatch aborta una extracción en vuelo; la factura termina en ERROR
// con motivo Cancelled.
// POST /api/invoices/:id/cancel
func (h *InvoiceHandler) CancelDispatch(c *fiber.Ctx) error {
	if err := h.orchestrator.Cancel(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}
