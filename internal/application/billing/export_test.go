package billing_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturia/ocr-api/internal/application/billing"
	"github.com/facturia/ocr-api/internal/domain"
	domainbilling "github.com/facturia/ocr-api/internal/domain/billing"
	"github.com/facturia/ocr-api/internal/domain/entity"
	"github.com/facturia/ocr-api/internal/domain/repository"
)

// stubRenderer devuelve bytes fijos; los renderers reales se prueban en
// infrastructure/export.
type stubRenderer struct{ payload []byte }

func (s *stubRenderer) Render(_ *entity.Invoice) ([]byte, error) { return s.payload, nil }

func newExportFixture(t *testing.T) (*billing.ExportUseCase, *engineFixture) {
	t.Helper()
	fx := newEngineFixture(domainbilling.DefaultApprovalPolicy())
	uc := billing.NewExportUseCase(fx.invoiceRepo,
		&stubRenderer{payload: []byte("%PDF-stub")},
		&stubRenderer{payload: []byte("<Invoice/>")},
	)
	return uc, fx
}

func TestExportOne_CSVConMontosDeDosDecimales(t *testing.T) {
	uc, fx := newExportFixture(t)
	created := createInvoice(t, fx)

	result, err := uc.ExportOne(context.Background(), created.ID, billing.ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)

	rows, err := csv.NewReader(strings.NewReader(string(result.Data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2, "cabecera + una factura")
	header, row := rows[0], rows[1]

	idx := func(col string) int {
		for i, h := range header {
			if h == col {
				return i
			}
		}
		t.Fatalf("columna %q no encontrada", col)
		return -1
	}
	assert.Equal(t, "F001-00042", row[idx("series")])
	assert.Equal(t, "11800.00", row[idx("total")], "los montos salen con 2 decimales fijos")
	assert.Equal(t, "USD", row[idx("currency")])
}

func TestExportOne_JSONEsParseable(t *testing.T) {
	uc, fx := newExportFixture(t)
	created := createInvoice(t, fx)

	result, err := uc.ExportOne(context.Background(), created.ID, billing.ExportJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", result.ContentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(result.Data, &decoded))
}

func TestExportOne_PDFyXMLUsanRenderers(t *testing.T) {
	uc, fx := newExportFixture(t)
	created := createInvoice(t, fx)
	ctx := context.Background()

	pdf, err := uc.ExportOne(ctx, created.ID, billing.ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.Equal(t, []byte("%PDF-stub"), pdf.Data)
	assert.Equal(t, "F001-00042.pdf", pdf.Filename)

	xml, err := uc.ExportOne(ctx, created.ID, billing.ExportXML)
	require.NoError(t, err)
	assert.Equal(t, "application/xml", xml.ContentType)
	assert.Equal(t, []byte("<Invoice/>"), xml.Data)
}

func TestExportOne_FormatoDesconocido(t *testing.T) {
	uc, fx := newExportFixture(t)
	created := createInvoice(t, fx)

	_, err := uc.ExportOne(context.Background(), created.ID, "xlsx")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExportList_FiltraPorEstado(t *testing.T) {
	uc, fx := newExportFixture(t)
	createInvoice(t, fx)
	b := createInvoice(t, fx)
	forceStatus(t, fx, b.ID, entity.StatusCompleted)

	result, err := uc.ExportList(context.Background(), repository.InvoiceFilter{
		Status: entity.StatusCompleted,
	}, billing.ExportCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(result.Data))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2, "cabecera + solo la factura COMPLETED")
}
