package sii

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/pkg/logger"
)

func testDocumentData() DocumentData {
	return DocumentData{
		TipoDTE:      "33",
		Folio:        120,
		FechaEmision: time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
		Emisor: Party{
			RUT:         "76354771-K",
			RazonSocial: "EMPRESA DE PRUEBA SPA",
			Giro:        "Desarrollo de software",
			Address:     "Av. Providencia 1234",
			Commune:     "Providencia",
		},
		Receptor: Party{
			RUT:         "60803000-K",
			RazonSocial: "Servicio de Impuestos Internos",
			Giro:        "Administración Publica",
			Address:     "Teatinos 120",
			Commune:     "Santiago",
		},
		Detalle: []DetailLine{
			{
				NroLinDet: 1,
				Nombre:    "Servicio de consultoría",
				Quantity:  decimal.NewFromInt(2),
				UnitPrice: decimal.NewFromInt(1000),
				MontoItem: 2000,
			},
		},
		Referencias: []Reference{
			{
				NroLinRef: 1,
				TpoDocRef: "SET",
				FolioRef:  "120",
				FchRef:    time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
				RazonRef:  "CASO 4329900-1",
			},
		},
		Totales: Totals{MntNeto: 2000, IVA: 380, MntTotal: 2380, Taxable: true},
	}
}

func TestBuildDTE_EstructuraCompleta(t *testing.T) {
	b := NewDTEBuilder(logger.Nop())
	ted := `<TED version="1.0"><DD/></TED><TmstFirma>2025-08-15T10:30:00</TmstFirma>`

	xml, err := b.Build(testDocumentData(), ted)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(xml, `<DTE xmlns="http://www.sii.cl/SiiDte" version="1.0">`))
	assert.Contains(t, xml, `<Documento ID="F120T33">`)
	assert.Contains(t, xml, "<TipoDTE>33</TipoDTE><Folio>120</Folio>")
	assert.Contains(t, xml, "<FchEmis>2025-08-15</FchEmis>")
	// Sin vencimiento explícito, FchVenc repite la fecha de emisión.
	assert.Contains(t, xml, "<FchVenc>2025-08-15</FchVenc>")
	assert.Contains(t, xml, "<RUTEmisor>76354771-K</RUTEmisor>")
	assert.Contains(t, xml, "<Acteco>620200</Acteco>")
	assert.Contains(t, xml, "<RUTRecep>60803000-K</RUTRecep>")
	assert.Contains(t, xml, "<MntNeto>2000</MntNeto><TasaIVA>19</TasaIVA><IVA>380</IVA><MntTotal>2380</MntTotal>")
	assert.Contains(t, xml, "<NmbItem>Servicio de consultoría</NmbItem><DscItem>Servicio de consultoría</DscItem>")
	assert.Contains(t, xml, "<QtyItem>2</QtyItem><PrcItem>1000</PrcItem>")
	assert.Contains(t, xml, "<TpoDocRef>SET</TpoDocRef>")
	assert.Contains(t, xml, "<RazonRef>CASO 4329900-1</RazonRef>")
	// El TED va al final del Documento, antes de cerrar.
	assert.Contains(t, xml, ted+"</Documento></DTE>")
	// Sin saltos de línea ni código de referencia cero.
	assert.NotContains(t, xml, "\n")
	assert.NotContains(t, xml, "<CodRef>0</CodRef>")
}

func TestBuildDTE_DocumentoExento(t *testing.T) {
	data := testDocumentData()
	data.TipoDTE = "34"
	data.Detalle[0].Exempt = true
	data.Totales = Totals{MntExe: 2000, MntTotal: 2000, Taxable: false}

	b := NewDTEBuilder(logger.Nop())
	xml, err := b.Build(data, "<TED/>")
	require.NoError(t, err)

	assert.Contains(t, xml, "<MntExe>2000</MntExe>")
	assert.Contains(t, xml, "<IndExe>1</IndExe>")
	assert.NotContains(t, xml, "<TasaIVA>")
	assert.NotContains(t, xml, "<IVA>")
	assert.NotContains(t, xml, "<MntNeto>")
}

func TestBuildDTE_DescuentoGlobal(t *testing.T) {
	data := testDocumentData()
	pct := decimal.NewFromInt(10)
	data.DscRcgGlobal = &GlobalDiscount{Pct: pct}

	b := NewDTEBuilder(logger.Nop())
	xml, err := b.Build(data, "<TED/>")
	require.NoError(t, err)

	assert.Contains(t, xml, "<DscRcgGlobal><NroLinDR>1</NroLinDR><TpoMov>D</TpoMov><TpoValor>%</TpoValor><ValorDR>10</ValorDR></DscRcgGlobal>")
}

func TestBuildDTE_LineaSinCantidadNiPrecio(t *testing.T) {
	data := testDocumentData()
	data.Detalle = []DetailLine{{
		NroLinDet:    1,
		Nombre:       "SIN DETALLE",
		OmitQtyPrice: true,
		MontoItem:    0,
	}}
	data.Totales = Totals{MntTotal: 0, Taxable: true}

	b := NewDTEBuilder(logger.Nop())
	xml, err := b.Build(data, "<TED/>")
	require.NoError(t, err)

	assert.NotContains(t, xml, "<QtyItem>")
	assert.NotContains(t, xml, "<PrcItem>")
	assert.Contains(t, xml, "<MontoItem>0</MontoItem>")
}

func TestBuildDTE_EscapaTextoYTruncaGiro(t *testing.T) {
	data := testDocumentData()
	data.Emisor.Giro = strings.Repeat("G", 100)
	data.Detalle[0].Nombre = "Cables & conectores <5mm>"

	b := NewDTEBuilder(logger.Nop())
	xml, err := b.Build(data, "<TED/>")
	require.NoError(t, err)

	assert.Contains(t, xml, "<GiroEmis>"+strings.Repeat("G", 80)+"</GiroEmis>")
	assert.Contains(t, xml, "<NmbItem>Cables &amp; conectores &lt;5mm&gt;</NmbItem>")
}

func TestBuildDTE_DatosInvalidos(t *testing.T) {
	b := NewDTEBuilder(logger.Nop())

	data := testDocumentData()
	data.Folio = 0
	_, err := b.Build(data, "<TED/>")
	require.Error(t, err)

	data = testDocumentData()
	data.Detalle = nil
	_, err = b.Build(data, "<TED/>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "líneas de detalle")
}
