package sii

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testBookData(op string, lines ...entity.BookLine) BookData {
	return BookData{
		RutEmisorLibro:    "76354771-K",
		RutEnvia:          "11111111-1",
		Period:            "2025-08",
		OperationType:     op,
		FolioNotificacion: 102,
		FchResol:          time.Date(2025, 1, 10, 0, 0, 0, 0, santiago),
		NroResol:          0,
		// En hora de Santiago: el builder emite siempre hora local sin zona.
		TmstFirma: time.Date(2025, 8, 31, 18, 0, 0, 0, santiago),
		Lines:     lines,
	}
}

func saleLine(tipo string, folio int, neto, iva, total int64) entity.BookLine {
	return entity.BookLine{
		DocumentTypeCode: tipo,
		Folio:            folio,
		DocumentDate:     time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC),
		PartnerRUT:       "60803000-K",
		PartnerName:      "Servicio de Impuestos Internos",
		MntNeto:          d(neto),
		MntIVA:           d(iva),
		MntTotal:         d(total),
	}
}

func TestBuildBook_VentaResumenYDetalle(t *testing.T) {
	b := NewBookBuilder(logger.Nop(), 0.60)
	xml, err := b.Build(testBookData(entity.BookOperationVenta,
		saleLine("33", 100, 1000, 190, 1190),
		saleLine("33", 101, 2000, 380, 2380),
		saleLine("61", 50, 500, 95, 595),
	))
	require.NoError(t, err)

	assert.Contains(t, xml, `<EnvioLibro ID="LibroCV">`)
	assert.Contains(t, xml, "<RutEmisorLibro>76354771-K</RutEmisorLibro>")
	assert.Contains(t, xml, "<RutEnvia>11111111-1</RutEnvia>")
	assert.Contains(t, xml, "<PeriodoTributario>2025-08</PeriodoTributario>")
	assert.Contains(t, xml, "<TipoOperacion>VENTA</TipoOperacion><TipoLibro>MENSUAL</TipoLibro><TipoEnvio>TOTAL</TipoEnvio><FolioNotificacion>102</FolioNotificacion>")

	// Resumen por tipo: 33 suma dos facturas, 61 una nota de crédito.
	assert.Contains(t, xml, "<TpoDoc>33</TpoDoc><TotDoc>2</TotDoc><TotMntExe>0</TotMntExe><TotMntNeto>3000</TotMntNeto><TotMntIVA>570</TotMntIVA><TotMntTotal>3570</TotMntTotal>")
	assert.Contains(t, xml, "<TpoDoc>61</TpoDoc><TotDoc>1</TotDoc>")

	assert.Contains(t, xml, "<NroDoc>100</NroDoc>")
	assert.Contains(t, xml, "<TmstFirma>2025-08-31T18:00:00</TmstFirma></EnvioLibro>")
}

func TestBuildBook_CompraIVANoRecuperable(t *testing.T) {
	line := saleLine("33", 200, 1000, 190, 1190)
	line.IVANoRecuperable = d(190)

	b := NewBookBuilder(logger.Nop(), 0.60)
	xml, err := b.Build(testBookData(entity.BookOperationCompra, line))
	require.NoError(t, err)

	// El IVA no recuperable desplaza el MntIVA declarado a 0.
	assert.Contains(t, xml, "<MntIVA>0</MntIVA><IVANoRec><CodIVANoRec>4</CodIVANoRec><MntIVANoRec>190</MntIVANoRec></IVANoRec>")
	assert.Contains(t, xml, "<TotMntIVA>0</TotMntIVA>")
	assert.Contains(t, xml, "<TotMntIVANoRec>190</TotMntIVANoRec>")
}

func TestBuildBook_CompraIVAUsoComun(t *testing.T) {
	line := saleLine("33", 201, 1000, 190, 1190)
	line.IVAUsoComun = d(190)

	b := NewBookBuilder(logger.Nop(), 0.60)
	xml, err := b.Build(testBookData(entity.BookOperationCompra, line))
	require.NoError(t, err)

	assert.Contains(t, xml, "<MntIVA>0</MntIVA>")
	assert.Contains(t, xml, "<IVAUsoComun>190</IVAUsoComun>")
	// Crédito = 190 × 0.60 = 114.
	assert.Contains(t, xml, "<TotIVAUsoComun>190</TotIVAUsoComun><TotCredIVAUsoComun>114</TotCredIVAUsoComun>")
}

func TestBuildBook_CompraIVARetenido(t *testing.T) {
	total := saleLine("33", 202, 1000, 190, 1190)
	total.IVARetenidoTotal = d(190)
	parcial := saleLine("33", 203, 1000, 190, 1190)
	parcial.IVARetenidoParcial = d(95)

	b := NewBookBuilder(logger.Nop(), 0.60)
	xml, err := b.Build(testBookData(entity.BookOperationCompra, total, parcial))
	require.NoError(t, err)

	assert.Contains(t, xml, "<OtrosImp><CodImp>15</CodImp><TasaImp>19</TasaImp><MntImp>190</MntImp></OtrosImp>")
	assert.Contains(t, xml, "<OtrosImp><CodImp>16</CodImp><TasaImp>19</TasaImp><MntImp>95</MntImp></OtrosImp>")
	assert.Contains(t, xml, "<TotOtrosImp><CodImp>15</CodImp><TotMntImp>190</TotMntImp></TotOtrosImp>")
	assert.Contains(t, xml, "<TotOtrosImp><CodImp>16</CodImp><TotMntImp>95</TotMntImp></TotOtrosImp>")
}

func TestBuildBook_TruncaRazonSocial(t *testing.T) {
	line := saleLine("33", 204, 1000, 190, 1190)
	line.PartnerName = "RAZON SOCIAL EXTREMADAMENTE LARGA QUE EXCEDE EL LIMITE DEL LIBRO SA"

	b := NewBookBuilder(logger.Nop(), 0.60)
	xml, err := b.Build(testBookData(entity.BookOperationVenta, line))
	require.NoError(t, err)

	assert.Contains(t, xml, "<RznSoc>"+line.PartnerName[:50]+"</RznSoc>")
}

func TestBuildBook_DatosInvalidos(t *testing.T) {
	b := NewBookBuilder(logger.Nop(), 0.60)

	_, err := b.Build(testBookData("OTRA", saleLine("33", 1, 1, 0, 1)))
	require.Error(t, err)

	_, err = b.Build(testBookData(entity.BookOperationVenta))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tiene líneas")
}
