package certification

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

func testCase(projectID string) *entity.CertificationCase {
	return &entity.CertificationCase{
		ID:               "case-1",
		ProjectID:        projectID,
		CaseNumber:       "4329507-1",
		Name:             "FACTURA AFECTA",
		DocumentTypeCode: "33",
		Status:           entity.CaseStatusReady,
		Lines: []entity.CaseLine{
			{Sequence: 1, Description: "Cajón AFECTO", Quantity: decimal.NewFromInt(74), UnitPrice: decimal.NewFromInt(1278)},
			{Sequence: 2, Description: "Relleno AFECTO", Quantity: decimal.NewFromInt(83), UnitPrice: decimal.NewFromInt(2090)},
		},
	}
}

func TestAssemble_FacturaAfecta(t *testing.T) {
	asm := NewDocumentAssembler(nil)
	client := testClientInfo("p1")

	data, amounts, err := asm.Assemble(AssembleInput{
		Case:      testCase("p1"),
		Client:    client,
		Folio:     42,
		IssueDate: time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "33", data.TipoDTE)
	assert.Equal(t, 42, data.Folio)
	assert.Equal(t, "F42T33", data.DocumentID())

	// Emisor desde la configuración del cliente.
	assert.Equal(t, client.RUT, data.Emisor.RUT)
	assert.Equal(t, client.RazonSocial, data.Emisor.RazonSocial)

	// Receptor por defecto: el SII.
	assert.Equal(t, pkgsii.SiiRUT, data.Receptor.RUT)
	assert.Equal(t, pkgsii.SiiRazonSocial, data.Receptor.RazonSocial)

	// 74*1278 + 83*2090 = 94572 + 173470 = 268042 neto.
	assert.Equal(t, int64(268042), data.Totales.MntNeto)
	assert.Equal(t, int64(50928), data.Totales.IVA) // 19% redondeado
	assert.Equal(t, int64(318970), data.Totales.MntTotal)
	assert.True(t, data.Totales.Taxable)
	assert.Equal(t, amounts.TotalAmount.IntPart(), data.Totales.MntTotal)

	require.Len(t, data.Detalle, 2)
	assert.Equal(t, int64(94572), data.Detalle[0].MontoItem)
	assert.False(t, data.Detalle[0].OmitQtyPrice)
}

func TestAssemble_ReferenciaAlCasoObligatoria(t *testing.T) {
	asm := NewDocumentAssembler(nil)

	data, _, err := asm.Assemble(AssembleInput{
		Case:      testCase("p1"),
		Client:    testClientInfo("p1"),
		Folio:     42,
		IssueDate: time.Now(),
	})
	require.NoError(t, err)

	// La línea 1 siempre referencia el caso del set.
	require.NotEmpty(t, data.Referencias)
	ref := data.Referencias[0]
	assert.Equal(t, 1, ref.NroLinRef)
	assert.Equal(t, pkgsii.TpoDocRefSET, ref.TpoDocRef)
	assert.Equal(t, "42", ref.FolioRef, "la autorreferencia usa el folio propio")
	assert.Equal(t, "CASO 4329507-1", ref.RazonRef)
	assert.Zero(t, ref.CodRef)
}

func TestAssemble_NotaCreditoConReferencia(t *testing.T) {
	asm := NewDocumentAssembler(nil)

	refID := "case-1"
	nc := &entity.CertificationCase{
		ID:               "case-2",
		ProjectID:        "p1",
		CaseNumber:       "4329507-4",
		DocumentTypeCode: "61",
		ReferenceCaseID:  &refID,
		ReferenceReason:  "CORRIGE MONTO DEL DETALLE",
		Lines: []entity.CaseLine{
			{Sequence: 1, Description: "Cajón AFECTO", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(1278)},
		},
	}
	refDoc := &entity.GeneratedDocument{
		ID:               "doc-1",
		DocumentTypeCode: "33",
		Folio:            42,
		IssueDate:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}

	data, _, err := asm.Assemble(AssembleInput{
		Case:              nc,
		ReferenceCase:     testCase("p1"),
		ReferenceDocument: refDoc,
		Client:            testClientInfo("p1"),
		Folio:             7,
		IssueDate:         time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, data.Referencias, 2)
	ref := data.Referencias[1]
	assert.Equal(t, "33", ref.TpoDocRef)
	assert.Equal(t, "42", ref.FolioRef)
	assert.Equal(t, pkgsii.CodRefCorrigeMontos, ref.CodRef)
	assert.Equal(t, "CORRIGE MONTO DEL DETALLE", ref.RazonRef)
}

func TestAssemble_NotaSinLineasConReferencia(t *testing.T) {
	asm := NewDocumentAssembler(nil)

	refID := "case-1"
	nc := &entity.CertificationCase{
		ID:               "case-3",
		ProjectID:        "p1",
		CaseNumber:       "4329507-5",
		DocumentTypeCode: "61",
		ReferenceCaseID:  &refID,
		ReferenceReason:  "ANULA FACTURA",
	}
	refDoc := &entity.GeneratedDocument{
		DocumentTypeCode: "33",
		Folio:            42,
		IssueDate:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}

	data, amounts, err := asm.Assemble(AssembleInput{
		Case:              nc,
		ReferenceCase:     testCase("p1"),
		ReferenceDocument: refDoc,
		Client:            testClientInfo("p1"),
		Folio:             8,
		IssueDate:         time.Now(),
	})
	require.NoError(t, err)

	// Corrección administrativa: una única línea de monto 0 sin qty/precio.
	require.Len(t, data.Detalle, 1)
	assert.True(t, data.Detalle[0].OmitQtyPrice)
	assert.Equal(t, int64(0), data.Detalle[0].MontoItem)
	assert.Equal(t, "ANULA FACTURA", data.Detalle[0].Nombre)
	assert.True(t, amounts.TotalAmount.IsZero())
	assert.False(t, data.Totales.Taxable)

	// ANULA con total 0 deriva código 1.
	require.Len(t, data.Referencias, 2)
	assert.Equal(t, pkgsii.CodRefAnula, data.Referencias[1].CodRef)
}

func TestAssemble_NotaSinLineasSinReferencia(t *testing.T) {
	asm := NewDocumentAssembler(nil)

	nd := &entity.CertificationCase{
		ID:               "case-4",
		ProjectID:        "p1",
		CaseNumber:       "4329507-6",
		DocumentTypeCode: "56",
		Name:             "NOTA DE DEBITO",
	}

	data, _, err := asm.Assemble(AssembleInput{
		Case:      nd,
		Client:    testClientInfo("p1"),
		Folio:     9,
		IssueDate: time.Now(),
	})
	require.NoError(t, err)

	// Sin referencia se sintetiza una línea de $1.000.
	require.Len(t, data.Detalle, 1)
	assert.False(t, data.Detalle[0].OmitQtyPrice)
	assert.Equal(t, int64(1000), data.Detalle[0].MontoItem)
}

func TestAssemble_Errores(t *testing.T) {
	asm := NewDocumentAssembler(nil)

	t.Run("sin cliente configurado", func(t *testing.T) {
		_, _, err := asm.Assemble(AssembleInput{Case: testCase("p1"), Folio: 1, IssueDate: time.Now()})
		require.ErrorIs(t, err, domain.ErrMissingClientConfig)
	})

	t.Run("tipo no numérico", func(t *testing.T) {
		c := testCase("p1")
		c.DocumentTypeCode = "FAC"
		_, _, err := asm.Assemble(AssembleInput{Case: c, Client: testClientInfo("p1"), Folio: 1, IssueDate: time.Now()})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("factura sin líneas", func(t *testing.T) {
		c := testCase("p1")
		c.Lines = nil
		_, _, err := asm.Assemble(AssembleInput{Case: c, Client: testClientInfo("p1"), Folio: 1, IssueDate: time.Now()})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("nota con referencia sin documento generado", func(t *testing.T) {
		refID := "case-1"
		c := testCase("p1")
		c.DocumentTypeCode = "61"
		c.ReferenceCaseID = &refID
		c.ReferenceReason = "ANULA"
		_, _, err := asm.Assemble(AssembleInput{Case: c, Client: testClientInfo("p1"), Folio: 1, IssueDate: time.Now()})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})
}

func TestAssemble_DescuentoGlobal(t *testing.T) {
	asm := NewDocumentAssembler(nil)

	c := testCase("p1")
	c.GlobalDiscountPct = decimal.NewFromInt(6)

	data, amounts, err := asm.Assemble(AssembleInput{
		Case:      c,
		Client:    testClientInfo("p1"),
		Folio:     10,
		IssueDate: time.Now(),
	})
	require.NoError(t, err)

	require.NotNil(t, data.DscRcgGlobal)
	assert.True(t, data.DscRcgGlobal.Pct.Equal(decimal.NewFromInt(6)))

	// 268042 - 6% (16083) = 251959 neto.
	assert.Equal(t, int64(251959), data.Totales.MntNeto)
	assert.Equal(t, amounts.DiscountAmount.IntPart(), int64(16083))
}
