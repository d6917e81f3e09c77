package sii

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/pkg/logger"
)

func testExchangeData() ExchangeData {
	return ExchangeData{
		// El receptor del sobre original responde: los RUT van invertidos.
		RutResponde: "60803000-K",
		RutRecibe:   "76354771-K",
		IdRespuesta: 1,
		TmstFirma:   time.Date(2025, 8, 15, 12, 0, 0, 0, santiago),
		Recinto:     "Teatinos 120",
		RutFirma:    "11111111-1",
		Documentos: []ExchangeDocument{
			{
				TipoDTE:   "33",
				Folio:     120,
				FchEmis:   time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
				RUTEmisor: "76354771-K",
				RUTRecep:  "60803000-K",
				MntTotal:  2380,
			},
		},
	}
}

const receivedEnvelope = `<?xml version="1.0" encoding="ISO-8859-1" ?>
<EnvioDTE xmlns="http://www.sii.cl/SiiDte" version="1.0">
<SetDTE ID="SetDoc">
<Caratula version="1.0"><RutEmisor>76354771-K</RutEmisor><RutEnvia>11111111-1</RutEnvia><RutReceptor>60803000-K</RutReceptor></Caratula>
<DTE version="1.0"><Documento ID="F120T33"/></DTE>
</SetDTE>
</EnvioDTE>`

func TestBuildReception(t *testing.T) {
	b := NewExchangeBuilder(logger.Nop())

	xml, err := b.BuildReception(testExchangeData(), []byte(receivedEnvelope), "EnvioDTE_prueba.xml")
	require.NoError(t, err)

	assert.Contains(t, xml, `<Resultado ID="Resultado">`)
	assert.Contains(t, xml, "<RutResponde>60803000-K</RutResponde><RutRecibe>76354771-K</RutRecibe>")
	// Los RUT del envío original se leen de la carátula recibida.
	assert.Contains(t, xml, "<RutEmisor>76354771-K</RutEmisor><RutReceptor>60803000-K</RutReceptor>")
	assert.Contains(t, xml, "<EstadoRecepEnv>0</EstadoRecepEnv>")
	assert.Contains(t, xml, "<NroDTE>1</NroDTE>")
	assert.Contains(t, xml, "<RecepcionDTE><TipoDTE>33</TipoDTE><Folio>120</Folio>")
	assert.Contains(t, xml, "<EstadoRecepDTE>0</EstadoRecepDTE>")

	// El digest del SetDTE es determinista para el mismo sobre.
	d1, _, _, err := digestReceivedSet([]byte(receivedEnvelope))
	require.NoError(t, err)
	assert.Contains(t, xml, "<Digest>"+d1+"</Digest>")
	d2, _, _, err := digestReceivedSet([]byte(receivedEnvelope))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestBuildReception_SobreSinSetDTE(t *testing.T) {
	b := NewExchangeBuilder(logger.Nop())
	_, err := b.BuildReception(testExchangeData(), []byte("<otro/>"), "x.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SetDTE")
}

func TestBuildReceipts(t *testing.T) {
	b := NewExchangeBuilder(logger.Nop())
	data := testExchangeData()
	data.Documentos = append(data.Documentos, ExchangeDocument{
		TipoDTE: "33", Folio: 121, FchEmis: data.Documentos[0].FchEmis,
		RUTEmisor: "76354771-K", RUTRecep: "60803000-K", MntTotal: 1190,
	})

	xml, err := b.BuildReceipts(data)
	require.NoError(t, err)

	assert.Contains(t, xml, `<SetRecibos ID="SetDteRecibidos">`)
	assert.Equal(t, 2, strings.Count(xml, `<Recibo version="1.0">`))
	assert.Contains(t, xml, `<DocumentoRecibo ID="F120T33">`)
	assert.Contains(t, xml, `<DocumentoRecibo ID="F121T33">`)
	assert.Contains(t, xml, "<Recinto>Teatinos 120</Recinto>")
	assert.Contains(t, xml, "<RutFirma>11111111-1</RutFirma>")
	// La declaración legal de la Ley 19.983 va textual en cada recibo.
	assert.Equal(t, 2, strings.Count(xml, "Ley 19.983"))
}

func TestBuildResult(t *testing.T) {
	b := NewExchangeBuilder(logger.Nop())
	xml, err := b.BuildResult(testExchangeData())
	require.NoError(t, err)

	assert.Contains(t, xml, "<NroDetalles>1</NroDetalles>")
	assert.Contains(t, xml, "<ResultadoDTE><TipoDTE>33</TipoDTE><Folio>120</Folio>")
	assert.Contains(t, xml, "<EstadoDTE>0</EstadoDTE>")
	assert.Contains(t, xml, "<EstadoDTEGlosa>DTE Aceptado OK</EstadoDTEGlosa>")
}

func TestBuildExchange_SinDocumentos(t *testing.T) {
	b := NewExchangeBuilder(logger.Nop())
	data := testExchangeData()
	data.Documentos = nil

	_, err := b.BuildReception(data, []byte(receivedEnvelope), "x.xml")
	require.Error(t, err)
	_, err = b.BuildReceipts(data)
	require.Error(t, err)
	_, err = b.BuildResult(data)
	require.Error(t, err)
}
