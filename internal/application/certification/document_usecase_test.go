package certification

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/infrastructure/pdf"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

type documentFixture struct {
	uc      *DocumentUseCase
	cases   *fakeCaseRepo
	folios  *fakeFolioRepo
	docs    *fakeDocRepo
	clients *fakeClientRepo
	signer  *fakeSigner
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	docs := newFakeDocRepo()
	folios := newFakeFolioRepo(docs)
	cases := newFakeCaseRepo()
	clients := newFakeClientRepo()
	signer := &fakeSigner{}

	uc := NewDocumentUseCase(
		&fakeTxRunner{folios: folios, docs: docs},
		clients,
		cases,
		folios,
		docs,
		NewDocumentAssembler(nil),
		infrasii.NewStampService(nil),
		infrasii.NewDTEBuilder(nil),
		signer,
		infrasii.NewSchemaValidator(nil, nil),
		testCertLoader(t),
		pdf.NewDTERenderer(),
		nil,
	)
	return &documentFixture{uc: uc, cases: cases, folios: folios, docs: docs, clients: clients, signer: signer}
}

func (f *documentFixture) seed(t *testing.T) *entity.CertificationCase {
	t.Helper()
	require.NoError(t, f.clients.Upsert(testClientInfo("p1")))

	c := testCase("p1")
	require.NoError(t, f.cases.Create(c))

	require.NoError(t, f.folios.Create(&entity.FolioAssignment{
		ID:               "fa-33",
		ProjectID:        "p1",
		DocumentTypeCode: "33",
		CAFFile:          testCAFXML(t, "76354771-K", "33", 40, 60),
		CAFFilename:      "FoliosSII7635477133.xml",
		CAFRutEmisor:     "76354771-K",
		CAFTypeCode:      "33",
		FolioStart:       40,
		FolioEnd:         60,
	}))
	return c
}

func TestDocumentGenerate_PipelineCompleto(t *testing.T) {
	f := newDocumentFixture(t)
	c := f.seed(t)

	doc, err := f.uc.Generate(c.ID)
	require.NoError(t, err)

	assert.Equal(t, 40, doc.Folio, "el primer folio es folio_start")
	assert.Equal(t, entity.DocumentStatusGenerated, doc.Status)
	assert.Equal(t, int64(318970), doc.TotalAmount.IntPart())

	// Artefactos del pipeline: XML con TED incluido, TED y código de barras.
	xml := string(doc.XMLDTE)
	assert.Contains(t, xml, `<Documento ID="F40T33">`)
	assert.Contains(t, xml, "<TED version=\"1.0\">")
	assert.Contains(t, xml, "<FRMT algoritmo=\"SHA1withRSA\">")
	assert.NotEmpty(t, doc.Barcode)
	assert.Empty(t, doc.XMLSigned, "la firma es un paso posterior")

	// El caso queda en generated.
	updated, err := f.cases.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CaseStatusGenerated, updated.Status)
}

func TestDocumentGenerate_FoliosConsecutivos(t *testing.T) {
	f := newDocumentFixture(t)
	f.seed(t)

	c2 := testCase("p1")
	c2.ID = "case-b"
	c2.CaseNumber = "4329507-2"
	require.NoError(t, f.cases.Create(c2))

	doc1, err := f.uc.Generate("case-1")
	require.NoError(t, err)
	doc2, err := f.uc.Generate("case-b")
	require.NoError(t, err)

	assert.Equal(t, 40, doc1.Folio)
	assert.Equal(t, 41, doc2.Folio, "cada generación consume el folio siguiente")
}

func TestDocumentGenerate_SinAsignacionDeFolios(t *testing.T) {
	f := newDocumentFixture(t)
	require.NoError(t, f.clients.Upsert(testClientInfo("p1")))
	require.NoError(t, f.cases.Create(testCase("p1")))

	_, err := f.uc.Generate("case-1")
	require.ErrorIs(t, err, domain.ErrNoFolioAssignment)
}

func TestDocumentGenerate_SinCliente(t *testing.T) {
	f := newDocumentFixture(t)
	require.NoError(t, f.cases.Create(testCase("p1")))

	_, err := f.uc.Generate("case-1")
	require.ErrorIs(t, err, domain.ErrMissingClientConfig)
}

func TestDocumentGenerate_CasoYaGenerado(t *testing.T) {
	f := newDocumentFixture(t)
	c := f.seed(t)

	_, err := f.uc.Generate(c.ID)
	require.NoError(t, err)

	_, err = f.uc.Generate(c.ID)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestDocumentGenerate_ReutilizaFolioTrasVueltaABorrador(t *testing.T) {
	f := newDocumentFixture(t)
	c := f.seed(t)

	doc, err := f.uc.Generate(c.ID)
	require.NoError(t, err)
	require.Equal(t, 40, doc.Folio)

	_, err = f.uc.BackToDraft(doc.ID)
	require.NoError(t, err)

	again, err := f.uc.Generate(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, again.Folio, "el folio ya consumido se conserva")
	assert.Equal(t, doc.ID, again.ID)
}

func TestDocumentValidateYSign(t *testing.T) {
	f := newDocumentFixture(t)
	c := f.seed(t)

	doc, err := f.uc.Generate(c.ID)
	require.NoError(t, err)

	report, err := f.uc.Validate(doc.ID)
	require.NoError(t, err)
	assert.True(t, report.Valid, "mensajes: %v", report.Messages)

	signed, err := f.uc.Sign(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusSigned, signed.Status)
	assert.Contains(t, string(signed.XMLSigned), "<Signature")
	assert.Equal(t, pkgsii.ShapeDTE, f.signer.lastShape)
	assert.Equal(t, "F40T33", f.signer.lastRef, "la firma referencia el ID del Documento")
}

func TestDocumentSign_RequiereValidacion(t *testing.T) {
	f := newDocumentFixture(t)
	c := f.seed(t)

	doc, err := f.uc.Generate(c.ID)
	require.NoError(t, err)

	_, err = f.uc.Sign(doc.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDocumentValidate_ReglasDeNegocio(t *testing.T) {
	f := newDocumentFixture(t)
	c := f.seed(t)

	doc, err := f.uc.Generate(c.ID)
	require.NoError(t, err)

	// Forzar una fecha de emisión demasiado antigua.
	doc.IssueDate = time.Now().Add(-90 * 24 * time.Hour)
	require.NoError(t, f.docs.Update(doc))

	report, err := f.uc.Validate(doc.ID)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.NotEmpty(t, report.Messages)

	// El documento no transicionó y registró los mensajes.
	stored, err := f.docs.GetByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusGenerated, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)
}

func TestDocumentGenerateAll_AcumulaErrores(t *testing.T) {
	f := newDocumentFixture(t)
	f.seed(t)

	// Segundo caso sin CAF para su tipo: debe fallar sin abortar el resto.
	exenta := testCase("p1")
	exenta.ID = "case-exenta"
	exenta.CaseNumber = "4329508-1"
	exenta.DocumentTypeCode = "34"
	exenta.Lines = []entity.CaseLine{
		{Sequence: 1, Description: "Item exento", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5000), Exempt: true},
	}
	require.NoError(t, f.cases.Create(exenta))

	result, err := f.uc.GenerateAll("p1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Generated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors["4329508-1"], "asignación de folios")
}

func TestDocumentGenerateAll_NotasDespuesDeFacturas(t *testing.T) {
	f := newDocumentFixture(t)
	f.seed(t)

	require.NoError(t, f.folios.Create(&entity.FolioAssignment{
		ID:               "fa-61",
		ProjectID:        "p1",
		DocumentTypeCode: "61",
		CAFFile:          testCAFXML(t, "76354771-K", "61", 1, 10),
		CAFTypeCode:      "61",
		FolioStart:       1,
		FolioEnd:         10,
	}))

	refID := "case-1"
	nc := &entity.CertificationCase{
		ID:               "case-nc",
		ProjectID:        "p1",
		// El número de caso ordena ANTES que el de la factura: la nota igual
		// debe generarse después porque referencia a otro caso.
		CaseNumber:       "0000000-1",
		DocumentTypeCode: "61",
		ReferenceCaseID:  &refID,
		ReferenceReason:  "ANULA FACTURA",
		Status:           entity.CaseStatusDraft,
	}
	require.NoError(t, f.cases.Create(nc))

	result, err := f.uc.GenerateAll("p1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
	assert.Empty(t, result.Errors)
}

func TestDocumentRenderPDF(t *testing.T) {
	f := newDocumentFixture(t)
	c := f.seed(t)

	doc, err := f.uc.Generate(c.ID)
	require.NoError(t, err)

	pdfBytes, err := f.uc.RenderPDF(doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, pdfBytes)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestDocumentRenderPDF_RequiereDocumentoGenerado(t *testing.T) {
	f := newDocumentFixture(t)
	c := f.seed(t)

	doc, err := f.uc.Generate(c.ID)
	require.NoError(t, err)
	_, err = f.uc.BackToDraft(doc.ID)
	require.NoError(t, err)

	_, err = f.uc.RenderPDF(doc.ID)
	require.ErrorIs(t, err, domain.ErrConflict)
}
