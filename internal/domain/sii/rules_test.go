package sii

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

func validDocument(now time.Time) *entity.GeneratedDocument {
	return &entity.GeneratedDocument{
		DocumentTypeCode: pkgsii.DocTypeFacturaAfecta,
		Folio:            100,
		IssueDate:        now.AddDate(0, 0, -1),
		ReceiverRUT:      pkgsii.SiiRUT,
		SubtotalTaxable:  decimal.NewFromInt(2000),
		TaxAmount:        decimal.NewFromInt(380),
		TotalAmount:      decimal.NewFromInt(2380),
	}
}

func TestValidateDocumentRules_Valido(t *testing.T) {
	now := time.Now()
	valid, messages := ValidateDocumentRules(validDocument(now), now)
	assert.True(t, valid, "mensajes: %v", messages)
	assert.Empty(t, messages)
}

func TestValidateDocumentRules_SinReceptor(t *testing.T) {
	now := time.Now()
	doc := validDocument(now)
	doc.ReceiverRUT = ""

	valid, messages := ValidateDocumentRules(doc, now)
	assert.False(t, valid)
	assert.Contains(t, messages, "falta RUT del receptor")
}

func TestValidateDocumentRules_TotalCeroSoloParaNotas(t *testing.T) {
	now := time.Now()

	// Factura con total 0: inválida.
	doc := validDocument(now)
	doc.SubtotalTaxable = decimal.Zero
	doc.TaxAmount = decimal.Zero
	doc.TotalAmount = decimal.Zero
	valid, _ := ValidateDocumentRules(doc, now)
	assert.False(t, valid)

	// Nota de crédito administrativa con total 0: válida.
	nc := validDocument(now)
	nc.DocumentTypeCode = pkgsii.DocTypeNotaCredito
	nc.SubtotalTaxable = decimal.Zero
	nc.TaxAmount = decimal.Zero
	nc.TotalAmount = decimal.Zero
	valid, messages := ValidateDocumentRules(nc, now)
	assert.True(t, valid, "mensajes: %v", messages)
}

func TestValidateDocumentRules_IVAConTolerancia(t *testing.T) {
	now := time.Now()

	// 1 peso de diferencia por redondeo: aceptado.
	doc := validDocument(now)
	doc.TaxAmount = decimal.NewFromInt(381)
	valid, _ := ValidateDocumentRules(doc, now)
	assert.True(t, valid)

	// 2 pesos de diferencia: rechazado.
	doc = validDocument(now)
	doc.TaxAmount = decimal.NewFromInt(382)
	valid, messages := ValidateDocumentRules(doc, now)
	assert.False(t, valid)
	assert.Contains(t, messages, "el IVA no corresponde al 19% del neto")
}

func TestValidateDocumentRules_Fechas(t *testing.T) {
	now := time.Now()

	doc := validDocument(now)
	doc.IssueDate = now.AddDate(0, 0, 2)
	valid, messages := ValidateDocumentRules(doc, now)
	assert.False(t, valid)
	assert.Contains(t, messages, "la fecha de emisión no puede ser futura")

	doc = validDocument(now)
	doc.IssueDate = now.AddDate(0, 0, -61)
	valid, messages = ValidateDocumentRules(doc, now)
	assert.False(t, valid)
	assert.Contains(t, messages, "la fecha de emisión no puede tener más de 60 días de antigüedad")
}
