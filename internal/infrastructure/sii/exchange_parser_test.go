package sii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
)

const envioAjeno = `<?xml version="1.0" encoding="ISO-8859-1"?>
<EnvioDTE xmlns="http://www.sii.cl/SiiDte" version="1.0">
<SetDTE ID="SetDoc">
<Caratula version="1.0">
<RutEmisor>78885550-8</RutEmisor>
<RutEnvia>22222222-2</RutEnvia>
<RutReceptor>76354771-K</RutReceptor>
</Caratula>
<DTE version="1.0">
<Documento ID="F120T33">
<Encabezado>
<IdDoc><TipoDTE>33</TipoDTE><Folio>120</Folio><FchEmis>2025-07-14</FchEmis></IdDoc>
<Emisor><RUTEmisor>78885550-8</RUTEmisor></Emisor>
<Receptor><RUTRecep>76354771-K</RUTRecep></Receptor>
<Totales><MntNeto>100000</MntNeto><MntTotal>119000</MntTotal></Totales>
</Encabezado>
</Documento>
</DTE>
<DTE version="1.0">
<Documento ID="F7T61">
<Encabezado>
<IdDoc><TipoDTE>61</TipoDTE><Folio>7</Folio></IdDoc>
<Emisor><RUTEmisor>78885550-8</RUTEmisor></Emisor>
<Receptor><RUTRecep>76354771-K</RUTRecep></Receptor>
</Encabezado>
</Documento>
</DTE>
</SetDTE>
</EnvioDTE>`

func TestParseReceivedEnvelope(t *testing.T) {
	received, err := ParseReceivedEnvelope([]byte(envioAjeno))
	require.NoError(t, err)

	assert.Equal(t, "78885550-8", received.RutEmisor)
	assert.Equal(t, "76354771-K", received.RutReceptor)
	require.Len(t, received.Documentos, 2)

	first := received.Documentos[0]
	assert.Equal(t, "33", first.TipoDTE)
	assert.Equal(t, 120, first.Folio)
	assert.Equal(t, "2025-07-14", first.FchEmis.Format("2006-01-02"))
	assert.Equal(t, "78885550-8", first.RUTEmisor)
	assert.Equal(t, "76354771-K", first.RUTRecep)
	assert.Equal(t, int64(119000), first.MntTotal)

	// La nota sin fecha ni totales queda en cero, sin error.
	second := received.Documentos[1]
	assert.Equal(t, "61", second.TipoDTE)
	assert.Equal(t, 7, second.Folio)
	assert.True(t, second.FchEmis.IsZero())
	assert.Zero(t, second.MntTotal)
}

func TestParseReceivedEnvelope_Errores(t *testing.T) {
	t.Run("sin SetDTE", func(t *testing.T) {
		_, err := ParseReceivedEnvelope([]byte(`<Respuesta/>`))
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("sin documentos", func(t *testing.T) {
		xml := `<EnvioDTE xmlns="http://www.sii.cl/SiiDte"><SetDTE ID="SetDoc">` +
			`<Caratula><RutEmisor>78885550-8</RutEmisor></Caratula></SetDTE></EnvioDTE>`
		_, err := ParseReceivedEnvelope([]byte(xml))
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("XML malformado", func(t *testing.T) {
		_, err := ParseReceivedEnvelope([]byte(`<EnvioDTE`))
		require.Error(t, err)
	})
}
