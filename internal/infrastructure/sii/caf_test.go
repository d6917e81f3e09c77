package sii

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
)

// testCAFXML arma un CAF sintético con la estructura del SII y una llave
// RSA real, para ejercitar parseo y firma de timbres.
func testCAFXML(t *testing.T, rut, typeCode string, start, end int) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	xml := fmt.Sprintf(`<?xml version="1.0" encoding="ISO-8859-1"?>
<AUTORIZACION>
<CAF version="1.0">
<DA>
<RE>%s</RE>
<RS>EMPRESA DE PRUEBA SPA</RS>
<TD>%s</TD>
<RNG><D>%d</D><H>%d</H></RNG>
<FA>2025-06-01</FA>
<RSAPK><M>bW9kdWxv</M><E>AQAB</E></RSAPK>
<IDK>100</IDK>
</DA>
<FRMA algoritmo="SHA1withRSA">ZmlybWEtZGVsLXNpaQ==</FRMA>
</CAF>
<RSAPK><M>bW9kdWxv</M><E>AQAB</E></RSAPK>
<RSASK>%s</RSASK>
</AUTORIZACION>`, rut, typeCode, start, end, string(keyPEM))

	return []byte(xml), key
}

func TestParseCAF(t *testing.T) {
	data, key := testCAFXML(t, "76354771-K", "33", 100, 150)

	caf, err := ParseCAF(data)
	require.NoError(t, err)

	assert.Equal(t, "76354771-K", caf.RutEmisor)
	assert.Equal(t, "33", caf.TypeCode)
	assert.Equal(t, 100, caf.FolioStart)
	assert.Equal(t, 150, caf.FolioEnd)
	assert.Equal(t, "2025-06-01", caf.AuthorizationDate)
	assert.Equal(t, "bW9kdWxv", caf.PublicModulus)
	assert.Equal(t, "AQAB", caf.PublicExponent)
	require.NotNil(t, caf.PrivateKey)
	assert.Equal(t, key.N.String(), caf.PrivateKey.N.String(), "la llave RSASK debe decodificarse intacta")

	// El bloque CAF serializado conserva DA y FRMA para incrustar en el DD.
	assert.Contains(t, caf.RawCAF, "<DA>")
	assert.Contains(t, caf.RawCAF, "<FRMA")
	assert.NotContains(t, caf.RawCAF, "RSASK", "la llave privada jamás entra al timbre")
}

func TestParseCAF_Invalido(t *testing.T) {
	_, err := ParseCAF(nil)
	require.Error(t, err)

	_, err = ParseCAF([]byte("<otro/>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTORIZACION/CAF")

	// Rango invertido.
	data, _ := testCAFXML(t, "76354771-K", "33", 200, 100)
	_, err = ParseCAF(data)
	require.Error(t, err)
}

func TestCAFCovers(t *testing.T) {
	data, _ := testCAFXML(t, "76354771-K", "33", 100, 150)
	caf, err := ParseCAF(data)
	require.NoError(t, err)

	assert.True(t, caf.Covers(100))
	assert.True(t, caf.Covers(150))
	assert.False(t, caf.Covers(99))
	assert.False(t, caf.Covers(151))
}

func TestValidateCAFIssuer(t *testing.T) {
	data, _ := testCAFXML(t, "76354771-K", "33", 100, 150)
	caf, err := ParseCAF(data)
	require.NoError(t, err)

	// Mismo RUT con otro formato: sin advertencia.
	assert.Empty(t, ValidateCAFIssuer(caf, "76.354.771-k"))

	// RUT distinto: advertencia recuperable, no error.
	warning := ValidateCAFIssuer(caf, "11111111-1")
	assert.Contains(t, warning, "no coincide")
}

func TestVerifyFolioInCAF(t *testing.T) {
	data, _ := testCAFXML(t, "76354771-K", "33", 100, 150)
	caf, err := ParseCAF(data)
	require.NoError(t, err)

	require.NoError(t, VerifyFolioInCAF(caf, 120, 100, 150))

	// El rango declarado en la asignación puede estar desactualizado: el
	// error debe mostrar ambos rangos para diagnosticar la carga.
	err = VerifyFolioInCAF(caf, 180, 100, 200)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFolioRangeExceeded))
	assert.Contains(t, err.Error(), "[100, 150]")
	assert.Contains(t, err.Error(), "[100, 200]")
}
