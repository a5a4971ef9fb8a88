package billing

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/facturia/ocr-api/internal/domain"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// Formatos de exportación.
const (
	ExportCSV  = "csv"
	ExportJSON = "json"
	ExportPDF  = "pdf"
	ExportXML  = "xml"
)

// InvoiceRenderer produce la representación binaria de una factura en un
// formato de documento (PDF, XML). Las implementaciones viven en
// infrastructure/export.
type InvoiceRenderer interface {
	Render(inv *entity.Invoice) ([]byte, error)
}

// ExportUseCase exporta facturas en los formatos de la consola.
type ExportUseCase struct {
	invoiceRepo repository.InvoiceRepository
	pdfRenderer InvoiceRenderer
	xmlRenderer InvoiceRenderer
}

// NewExportUseCase construye el caso de uso con los renderers de documento.
func NewExportUseCase(invoiceRepo repository.InvoiceRepository, pdfRenderer, xmlRenderer InvoiceRenderer) *ExportUseCase {
	return &ExportUseCase{invoiceRepo: invoiceRepo, pdfRenderer: pdfRenderer, xmlRenderer: xmlRenderer}
}

// ExportResult bytes listos para descarga con su content type.
type ExportResult struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ExportOne exporta una sola factura en el formato pedido. PDF y XML son
// por-documento; CSV y JSON también aplican a listados (ExportList).
func (uc *ExportUseCase) ExportOne(ctx context.Context, invoiceID, format string) (*ExportResult, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	switch format {
	case ExportPDF:
		data, err := uc.pdfRenderer.Render(inv)
		if err != nil {
			return nil, fmt.Errorf("render PDF: %w", err)
		}
		return &ExportResult{Data: data, ContentType: "application/pdf", Filename: inv.Series + ".pdf"}, nil
	case ExportXML:
		data, err := uc.xmlRenderer.Render(inv)
		if err != nil {
			return nil, fmt.Errorf("render XML: %w", err)
		}
		return &ExportResult{Data: data, ContentType: "application/xml", Filename: inv.Series + ".xml"}, nil
	case ExportCSV:
		data, err := invoicesToCSV([]*entity.Invoice{inv})
		if err != nil {
			return nil, err
		}
		return &ExportResult{Data: data, ContentType: "text/csv", Filename: inv.Series + ".csv"}, nil
	case ExportJSON:
		data, err := json.MarshalIndent(inv, "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportResult{Data: data, ContentType: "application/json", Filename: inv.Series + ".json"}, nil
	}
	return nil, domain.ErrInvalidInput
}

// ExportList exporta un listado filtrado en CSV o JSON.
func (uc *ExportUseCase) ExportList(ctx context.Context, filter repository.InvoiceFilter, format string) (*ExportResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 1000
	}
	list, err := uc.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	switch format {
	case ExportCSV:
		data, err := invoicesToCSV(list)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Data: data, ContentType: "text/csv", Filename: "facturas.csv"}, nil
	case ExportJSON:
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportResult{Data: data, ContentType: "application/json", Filename: "facturas.json"}, nil
	}
	return nil, domain.ErrInvalidInput
}

// invoicesToCSV serializa cabeceras de factura. Los montos salen como
// strings decimales de 2 dígitos, nunca floats binarios.
func invoicesToCSV(list []*entity.Invoice) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"id", "series", "issue_date", "issuer_tax_id", "issuer_name",
		"receiver_tax_id", "receiver_name", "currency", "status",
		"subtotal", "discount_total", "tax_total", "withholding_total", "total",
		"ocr_engine", "ocr_confidence",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, inv := range list {
		row := []string{
			inv.ID, inv.Series, inv.IssueDate.Format("2006-01-02"),
			inv.IssuerTaxID, inv.IssuerName,
			inv.ReceiverTaxID, inv.ReceiverName, inv.Currency, inv.Status,
			inv.Subtotal.StringFixed(2), inv.DiscountTotal.StringFixed(2),
			inv.TaxTotal.StringFixed(2), inv.WithholdingTotal.StringFixed(2),
			inv.Total.StringFixed(2),
			inv.OCREngine, inv.OCRConfidence.StringFixed(2),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
