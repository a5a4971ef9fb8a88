package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// ExportHandler sirve las descargas de facturas (PDF, XML, CSV, JSON).
type ExportHandler struct {
	uc *billing.ExportUseCase
}

// NewExportHandler construye el handler.
func NewExportHandler(uc *billing.ExportUseCase) *ExportHandler {
	return &ExportHandler{uc: uc}
}

// ExportOne descarga una factura en el formato pedido.
// GET /api/invoices/:id/export?format=pdf|xml|csv|json
func (h *ExportHandler) ExportOne(c *fiber.Ctx) error {
	format := c.Query("format", billing.ExportPDF)
	result, err := h.uc.ExportOne(c.Context(), c.Params("id"), format)
	if err != nil {
		return respondError(c, err)
	}
	return sendDownload(c, result)
}

// ExportList descarga un listado filtrado en CSV o JSON.
// GET /api/invoices/export?format=csv|json&status=&issuer_id=&currency=
func (h *ExportHandler) ExportList(c *fiber.Ctx) error {
	format := c.Query("format", billing.ExportCSV)
	filter := repository.InvoiceFilter{
		Status:   c.Query("status"),
		IssuerID: c.Query("issuer_id"),
		Currency: c.Query("currency"),
	}
	result, err := h.uc.ExportList(c.Context(), filter, format)
	if err != nil {
		return respondError(c, err)
	}
	return sendDownload(c, result)
}

func sendDownload(c *fiber.Ctx, result *billing.ExportResult) error {
	c.Set(fiber.HeaderContentType, result.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+result.Filename+`"`)
	return c.Send(result.Data)
}
