package certification

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

type bookFixture struct {
	uc        *BookUseCase
	clients   *fakeClientRepo
	cases     *fakeCaseRepo
	docs      *fakeDocRepo
	books     *fakeBookRepo
	signer    *fakeSigner
	transport *fakeTransport
}

func newBookFixture(t *testing.T) *bookFixture {
	t.Helper()
	clients := newFakeClientRepo()
	cases := newFakeCaseRepo()
	docs := newFakeDocRepo()
	books := newFakeBookRepo()
	signer := &fakeSigner{}
	transport := &fakeTransport{}

	uc := NewBookUseCase(
		clients, cases, docs, books, newFakeResponseRepo(),
		infrasii.NewBookBuilder(nil, 0.60),
		signer,
		infrasii.NewSchemaValidator(nil, nil),
		transport,
		testCertLoader(t),
		nil,
	)
	return &bookFixture{uc: uc, clients: clients, cases: cases, docs: docs, books: books, signer: signer, transport: transport}
}

// generatedDoc documento con montos ya calculados, como queda tras Generate.
func generatedDoc(id, caseID, tipo string, folio int, neto, iva, total int64) *entity.GeneratedDocument {
	return &entity.GeneratedDocument{
		ID:               id,
		ProjectID:        "p1",
		CaseID:           caseID,
		DocumentTypeCode: tipo,
		Folio:            folio,
		IssueDate:        time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
		ReceiverRUT:      pkgsii.SiiRUT,
		ReceiverName:     pkgsii.SiiRazonSocial,
		SubtotalTaxable:  decimal.NewFromInt(neto),
		TaxAmount:        decimal.NewFromInt(iva),
		TotalAmount:      decimal.NewFromInt(total),
		Status:           entity.DocumentStatusSigned,
		XMLDTE:           []byte("<DTE/>"),
	}
}

func (f *bookFixture) seed(t *testing.T) {
	t.Helper()
	require.NoError(t, f.clients.Upsert(testClientInfo("p1")))
}

func TestBookCreate_Validaciones(t *testing.T) {
	f := newBookFixture(t)

	_, err := f.uc.Create("p1", "2025-07", "TRUEQUE", 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Create("p1", "julio 2025", entity.BookOperationVenta, 0)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	book, err := f.uc.Create("p1", "2025-07", entity.BookOperationVenta, 102)
	require.NoError(t, err)
	assert.Equal(t, entity.BookStatusDraft, book.Status)
	assert.Equal(t, 102, book.FolioNotificacion)
}

func TestBookPopulateSales(t *testing.T) {
	f := newBookFixture(t)
	f.seed(t)

	require.NoError(t, f.docs.Create(generatedDoc("d1", "case-1", "33", 40, 268042, 50928, 318970)))
	require.NoError(t, f.docs.Create(generatedDoc("d2", "case-2", "33", 41, 100000, 19000, 119000)))

	book, err := f.uc.Create("p1", "2025-07", entity.BookOperationVenta, 0)
	require.NoError(t, err)

	populated, err := f.uc.PopulateSales(book.ID)
	require.NoError(t, err)
	require.Len(t, populated.Lines, 2)

	line := populated.Lines[0]
	assert.Equal(t, "33", line.DocumentTypeCode)
	assert.Equal(t, 40, line.Folio)
	assert.Equal(t, int64(318970), line.MntTotal.IntPart())
	require.NotNil(t, line.DocumentID)
	assert.Equal(t, "d1", *line.DocumentID)

	// Repoblar no duplica líneas.
	again, err := f.uc.PopulateSales(book.ID)
	require.NoError(t, err)
	assert.Len(t, again.Lines, 2)
}

func TestBookPopulateSales_NotaCeroCopiaMontosReferenciados(t *testing.T) {
	f := newBookFixture(t)
	f.seed(t)

	refID := "case-1"
	require.NoError(t, f.cases.Create(&entity.CertificationCase{
		ID: "case-1", ProjectID: "p1", CaseNumber: "4329507-1", DocumentTypeCode: "33",
	}))
	require.NoError(t, f.cases.Create(&entity.CertificationCase{
		ID: "case-nc", ProjectID: "p1", CaseNumber: "4329507-5", DocumentTypeCode: "61",
		ReferenceCaseID: &refID, ReferenceReason: "ANULA FACTURA",
	}))

	require.NoError(t, f.docs.Create(generatedDoc("d1", "case-1", "33", 40, 268042, 50928, 318970)))
	nc := generatedDoc("d-nc", "case-nc", "61", 3, 0, 0, 0)
	require.NoError(t, f.docs.Create(nc))

	book, err := f.uc.Create("p1", "2025-07", entity.BookOperationVenta, 0)
	require.NoError(t, err)
	populated, err := f.uc.PopulateSales(book.ID)
	require.NoError(t, err)
	require.Len(t, populated.Lines, 2)

	var ncLine *entity.BookLine
	for i := range populated.Lines {
		if populated.Lines[i].DocumentTypeCode == "61" {
			ncLine = &populated.Lines[i]
		}
	}
	require.NotNil(t, ncLine)

	// La nota administrativa de $0 declara los montos de la factura anulada
	// pero conserva su propio tipo y folio.
	assert.Equal(t, 3, ncLine.Folio)
	assert.Equal(t, int64(268042), ncLine.MntNeto.IntPart())
	assert.Equal(t, int64(50928), ncLine.MntIVA.IntPart())
	assert.Equal(t, int64(318970), ncLine.MntTotal.IntPart())
}

func TestBookAddPurchaseLine(t *testing.T) {
	f := newBookFixture(t)
	f.seed(t)

	book, err := f.uc.Create("p1", "2025-07", entity.BookOperationCompra, 0)
	require.NoError(t, err)

	_, err = f.uc.AddPurchaseLine(book.ID, entity.BookLine{Folio: 0})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	line, err := f.uc.AddPurchaseLine(book.ID, entity.BookLine{
		DocumentTypeCode: "33",
		Folio:            234,
		DocumentDate:     time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC),
		PartnerRUT:       "78885550-8",
		PartnerName:      "PROVEEDOR LTDA",
		MntNeto:          decimal.NewFromInt(50000),
		MntIVA:           decimal.NewFromInt(9500),
		MntTotal:         decimal.NewFromInt(59500),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, line.ID)

	stored, err := f.uc.GetByID(book.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)

	// El libro de ventas no admite líneas manuales.
	venta, err := f.uc.Create("p1", "2025-07", entity.BookOperationVenta, 0)
	require.NoError(t, err)
	_, err = f.uc.AddPurchaseLine(venta.ID, entity.BookLine{PartnerRUT: "78885550-8", Folio: 1})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBookLifecycle(t *testing.T) {
	f := newBookFixture(t)
	f.seed(t)
	require.NoError(t, f.docs.Create(generatedDoc("d1", "case-1", "33", 40, 268042, 50928, 318970)))

	book, err := f.uc.Create("p1", "2025-07", entity.BookOperationVenta, 102)
	require.NoError(t, err)
	_, err = f.uc.PopulateSales(book.ID)
	require.NoError(t, err)

	generated, err := f.uc.Generate(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookStatusGenerated, generated.Status)
	xml := string(generated.BookXML)
	assert.Contains(t, xml, `<EnvioLibro ID="LibroCV">`)
	assert.Contains(t, xml, "<PeriodoTributario>2025-07</PeriodoTributario>")
	assert.Contains(t, xml, "<TipoOperacion>VENTA</TipoOperacion>")
	assert.Contains(t, xml, "<FolioNotificacion>102</FolioNotificacion>")

	signed, err := f.uc.Sign(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookStatusSigned, signed.Status)
	assert.Equal(t, pkgsii.ShapeBook, f.signer.lastShape)
	assert.Equal(t, infrasii.EnvioLibroReferenceID, f.signer.lastRef)

	result, err := f.uc.Validate(book.ID)
	require.NoError(t, err)
	assert.True(t, result.OK())

	sent, err := f.uc.Send(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookStatusSent, sent.Status)
	assert.Equal(t, "12345", sent.TrackID)
	require.Len(t, f.transport.uploads, 1)
	assert.Equal(t, "LibroVentas_2025-07.xml", f.transport.uploads[0])
}

func TestBookGenerate_SaltoDeEstadoFalla(t *testing.T) {
	f := newBookFixture(t)
	f.seed(t)

	book, err := f.uc.Create("p1", "2025-07", entity.BookOperationVenta, 0)
	require.NoError(t, err)

	// Firmar sin generar no está permitido.
	_, err = f.uc.Sign(book.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestBookCheckStatus(t *testing.T) {
	cases := []struct {
		name   string
		estado string
		want   string
	}{
		{"aceptado", "LOK", entity.BookStatusAccepted},
		{"rechazado", "LRH", entity.BookStatusRejected},
		{"con reparos también rechaza", "LER", entity.BookStatusRejected},
		{"en proceso mantiene sent", "LNC", entity.BookStatusSent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookFixture(t)
			f.seed(t)
			require.NoError(t, f.docs.Create(generatedDoc("d1", "case-1", "33", 40, 100, 19, 119)))
			f.transport.status = &infrasii.StatusResult{Estado: tc.estado}

			book, err := f.uc.Create("p1", "2025-07", entity.BookOperationVenta, 0)
			require.NoError(t, err)
			_, err = f.uc.PopulateSales(book.ID)
			require.NoError(t, err)
			_, err = f.uc.Generate(book.ID)
			require.NoError(t, err)
			_, err = f.uc.Sign(book.ID)
			require.NoError(t, err)
			_, err = f.uc.Validate(book.ID)
			require.NoError(t, err)
			_, err = f.uc.Send(context.Background(), book.ID)
			require.NoError(t, err)

			updated, err := f.uc.CheckStatus(context.Background(), book.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, updated.Status)
			assert.Equal(t, tc.estado, updated.SiiStatus)
		})
	}
}

func TestBookBackToDraft(t *testing.T) {
	f := newBookFixture(t)
	f.seed(t)
	require.NoError(t, f.docs.Create(generatedDoc("d1", "case-1", "33", 40, 100, 19, 119)))

	book, err := f.uc.Create("p1", "2025-07", entity.BookOperationVenta, 0)
	require.NoError(t, err)
	_, err = f.uc.PopulateSales(book.ID)
	require.NoError(t, err)
	_, err = f.uc.Generate(book.ID)
	require.NoError(t, err)

	back, err := f.uc.BackToDraft(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookStatusDraft, back.Status)
	assert.Empty(t, back.BookXML)
	assert.Empty(t, back.BookXMLSigned)
	assert.Empty(t, back.TrackID)
}
