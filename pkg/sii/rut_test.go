package sii

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDV(t *testing.T) {
	cases := []struct {
		number string
		dv     string
	}{
		{"76354771", "K"},
		{"60803000", "K"}, // RUT del SII
		{"11111111", "1"},
		{"12345678", "5"},
		{"7", "8"},
	}
	for _, c := range cases {
		dv, err := ComputeDV(c.number)
		require.NoError(t, err, "cuerpo %s", c.number)
		assert.Equal(t, c.dv, dv, "DV incorrecto para %s", c.number)
	}
}

func TestComputeDV_Vacio(t *testing.T) {
	_, err := ComputeDV("")
	require.Error(t, err)
}

func TestValidateRUT(t *testing.T) {
	require.NoError(t, ValidateRUT("76.354.771-K"))
	require.NoError(t, ValidateRUT("60803000-K"))

	err := ValidateRUT("76354771-0")
	require.Error(t, err, "DV incorrecto debe fallar")
	assert.Contains(t, err.Error(), "dígito verificador inválido")
}

func TestSplitRUT(t *testing.T) {
	number, dv, err := SplitRUT("76.354.771-k")
	require.NoError(t, err)
	assert.Equal(t, "76354771", number)
	assert.Equal(t, "K", dv)

	_, _, err = SplitRUT("x")
	require.Error(t, err, "RUT de un caracter debe fallar")

	_, _, err = SplitRUT("12A45678-5")
	require.Error(t, err, "cuerpo no numérico debe fallar")
}

func TestFormatRUT(t *testing.T) {
	got, err := FormatRUT("76.354.771-k")
	require.NoError(t, err)
	assert.Equal(t, "76354771-K", got)
}
