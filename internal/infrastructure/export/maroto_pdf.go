// Package export implementa los renderers de documento de la consola: la
// representación PDF de una factura digitalizada y su export XML estructurado.
//
// Layout de la página A4 del PDF:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + RUC  │  Serie + Fecha + Estado            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMISOR / RECEPTOR: nombre + identificación fiscal          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Desc% | Imp% | Total  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / Descuentos / Impuestos / Retenciones   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER OCR: motor + confianza + tiempo de proceso          │
//	└─────────────────────────────────────────────────────────────┘
package export

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	appbilling "github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
)

// Verificar en tiempo de compilación que MarotoPDFRenderer implementa InvoiceRenderer.
var _ appbilling.InvoiceRenderer = (*MarotoPDFRenderer)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 170, Green: 40, Blue: 40}
)

// moneyPrinter formatea montos con separadores de miles en convención
// hispana: 28250.00 → "28.250,00".
var moneyPrinter = message.NewPrinter(language.Spanish)

// MarotoPDFRenderer implementa billing.InvoiceRenderer usando Maroto v2.
type MarotoPDFRenderer struct{}

// NewMarotoPDFRenderer construye el renderer.
func NewMarotoPDFRenderer() *MarotoPDFRenderer { return &MarotoPDFRenderer{} }

// Render genera el PDF de la factura y devuelve sus bytes.
func (r *MarotoPDFRenderer) Render(inv *entity.Invoice) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura "+inv.Series, true).
		WithAuthor(inv.IssuerName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partiesRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, tr := range tableItemRows(inv.Items) {
		m.AddRows(tr)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(inv))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(ocrFooterRows(inv)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emisor + identificación fiscal (izq) y serie + fecha + estado (der).
func headerRow(inv *entity.Invoice) core.Row {
	fecha := inv.IssueDate.Format("02/01/2006")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(inv.IssuerName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("ID fiscal: "+inv.IssuerTaxID, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FACTURA "+inv.Series, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("Fecha: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
			text.New("Estado: "+inv.Status, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 13,
				Color: statusColor(inv.Status),
			}),
		),
	)
}

// partiesRow: emisor y receptor lado a lado.
func partiesRow(inv *entity.Invoice) core.Row {
	return row.New(14).Add(
		col.New(6).Add(
			text.New("EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(inv.IssuerName, "—"), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New("ID fiscal: "+nonEmpty(inv.IssuerTaxID, "—"), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
		col.New(6).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(inv.ReceiverName, "—"), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New("ID fiscal: "+nonEmpty(inv.ReceiverTaxID, "—"), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 4, align.Left),
		h("P. Unit.", 2, align.Right),
		h("Desc.%", 1, align.Center),
		h("Imp.%", 1, align.Center),
		h("Total línea", 3, align.Right),
	)
}

// tableItemRows: una fila por línea de la factura, en su orden de captura.
func tableItemRows(items []entity.LineItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				it.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(4).Add(text.New(
				it.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				formatAmount(it.UnitPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				it.DiscountPercent.StringFixed(0)+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(1).Add(text.New(
				it.TaxPercent.StringFixed(0)+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(3).Add(text.New(
				formatAmount(it.LineTotal),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha, con moneda explícita.
func totalsRow(inv *entity.Invoice) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(34).Add(
		col.New(3),
		col.New(4).Add(
			label("Subtotal:"),
			label("Descuentos:"),
			label("Impuestos:"),
			label("Retenciones:"),
			grandLabel("TOTAL ("+inv.Currency+"):"),
		),
		col.New(4).Add(
			value(formatAmount(inv.Subtotal)),
			value(formatAmount(inv.DiscountTotal)),
			value(formatAmount(inv.TaxTotal)),
			value(formatAmount(inv.WithholdingTotal)),
			grandValue(formatAmount(inv.Total)),
		),
		col.New(1),
	)
}

// ocrFooterRows: procedencia del documento digitalizado.
func ocrFooterRows(inv *entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN DE DIGITALIZACIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
		row.New(6).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Motor OCR: %s   |   Confianza: %s%%   |   Tiempo de proceso: %s s",
				nonEmpty(inv.OCREngine, "—"),
				inv.OCRConfidence.Mul(decimal.NewFromInt(100)).StringFixed(0),
				inv.ProcessingTime.StringFixed(1),
			), props.Text{Size: 8, Color: colorGray, Top: 1}),
		)),
	}
	if inv.Notes != "" {
		rows = append(rows, row.New(8).Add(col.New(12).Add(
			text.New("Notas: "+inv.Notes, props.Text{Size: 7, Color: colorGray, Top: 2}),
		)))
	}
	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Documento generado a partir de un comprobante digitalizado. "+
				"Los montos fueron recalculados desde las líneas capturadas; "+
				"conserve el archivo original como soporte.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// statusColor resalta en rojo los estados que piden atención del operador.
func statusColor(status string) *props.Color {
	switch status {
	case entity.StatusRejected, entity.StatusError:
		return colorAlert
	}
	return colorGray
}

// formatAmount presenta un monto con separadores de miles en convención
// hispana. Ej: 28250.00 → "28.250,00". Solo presentación: el redondeo a 2
// decimales ya viene hecho por el dominio.
func formatAmount(d decimal.Decimal) string {
	return moneyPrinter.Sprintf("%.2f", d.InexactFloat64())
}
