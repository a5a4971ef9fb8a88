package export

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	appbilling "github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
)

// Verificar en tiempo de compilación que EtreeXMLRenderer implementa InvoiceRenderer.
var _ appbilling.InvoiceRenderer = (*EtreeXMLRenderer)(nil)

// EtreeXMLRenderer implementa billing.InvoiceRenderer generando el documento
// XML estructurado de una factura digitalizada. No produce UBL ni firma: es
// el export de intercambio de la consola, con los montos como decimales de
// 2 dígitos y las líneas en su orden de captura.
type EtreeXMLRenderer struct{}

// NewEtreeXMLRenderer construye el renderer.
func NewEtreeXMLRenderer() *EtreeXMLRenderer { return &EtreeXMLRenderer{} }

// Render genera el XML de la factura y devuelve sus bytes.
func (r *EtreeXMLRenderer) Render(inv *entity.Invoice) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Invoice")
	root.CreateAttr("id", inv.ID)
	root.CreateAttr("version", fmt.Sprintf("%d", inv.Version))

	header := root.CreateElement("Header")
	writeText(header, "Series", inv.Series)
	writeText(header, "IssueDate", inv.IssueDate.Format("2006-01-02"))
	if inv.DueDate != nil {
		writeText(header, "DueDate", inv.DueDate.Format("2006-01-02"))
	}
	writeText(header, "Currency", inv.Currency)
	writeText(header, "Status", inv.Status)
	if inv.Notes != "" {
		writeText(header, "Notes", inv.Notes)
	}

	issuer := root.CreateElement("Issuer")
	writeText(issuer, "Name", inv.IssuerName)
	writeText(issuer, "TaxID", inv.IssuerTaxID)

	receiver := root.CreateElement("Receiver")
	writeText(receiver, "Name", inv.ReceiverName)
	writeText(receiver, "TaxID", inv.ReceiverTaxID)

	items := root.CreateElement("Items")
	for _, it := range inv.Items {
		item := items.CreateElement("Item")
		item.CreateAttr("id", it.ID)
		writeText(item, "Description", it.Description)
		writeText(item, "Quantity", it.Quantity.String())
		writeAmount(item, "UnitPrice", it.UnitPrice)
		writeText(item, "DiscountPercent", it.DiscountPercent.String())
		writeText(item, "TaxPercent", it.TaxPercent.String())
		writeAmount(item, "LineSubtotal", it.LineSubtotal)
		writeAmount(item, "LineTax", it.LineTax)
		writeAmount(item, "LineTotal", it.LineTotal)
	}

	if len(inv.Payments) > 0 {
		payments := root.CreateElement("PaymentSchedule")
		for _, p := range inv.Payments {
			pay := payments.CreateElement("Payment")
			pay.CreateAttr("number", fmt.Sprintf("%d", p.Number))
			writeText(pay, "DueDate", p.DueDate.Format("2006-01-02"))
			writeAmount(pay, "Amount", p.Amount)
		}
	}

	totals := root.CreateElement("Totals")
	writeAmount(totals, "Subtotal", inv.Subtotal)
	writeAmount(totals, "DiscountTotal", inv.DiscountTotal)
	writeAmount(totals, "TaxTotal", inv.TaxTotal)
	writeAmount(totals, "WithholdingTotal", inv.WithholdingTotal)
	writeAmount(totals, "Total", inv.Total)
	if !inv.OCRAssertedTotal.IsZero() {
		writeAmount(totals, "OCRAssertedTotal", inv.OCRAssertedTotal)
	}

	ocrInfo := root.CreateElement("Digitization")
	writeText(ocrInfo, "Engine", inv.OCREngine)
	writeText(ocrInfo, "Confidence", inv.OCRConfidence.String())
	writeText(ocrInfo, "ProcessingTimeSeconds", inv.ProcessingTime.String())
	if inv.FilePath != "" {
		writeText(ocrInfo, "SourceFile", inv.FilePath)
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("xml: serializar factura: %w", err)
	}
	return out, nil
}

func writeText(parent *etree.Element, tag, value string) {
	parent.CreateElement(tag).SetText(value)
}

// writeAmount escribe un monto siempre con 2 decimales.
func writeAmount(parent *etree.Element, tag string, d decimal.Decimal) {
	parent.CreateElement(tag).SetText(d.StringFixed(2))
}
