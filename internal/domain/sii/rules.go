package sii

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// maxDocumentAge antigüedad máxima de emisión aceptada por el SII.
const maxDocumentAge = 60 * 24 * time.Hour

// ValidateDocumentRules aplica las reglas de negocio del SII sobre un
// documento generado. Devuelve si es válido y la lista de mensajes. No
// bloquea por advertencias: el llamador decide la transición de estado.
func ValidateDocumentRules(doc *entity.GeneratedDocument, now time.Time) (bool, []string) {
	var messages []string
	valid := true

	if doc.ReceiverRUT == "" {
		messages = append(messages, "falta RUT del receptor")
		valid = false
	}

	if doc.Folio <= 0 {
		messages = append(messages, "folio inválido")
		valid = false
	}

	// Las notas de crédito (61) y débito (56) pueden llevar monto 0 en
	// correcciones administrativas (giro, dirección, etc.).
	if !doc.TotalAmount.IsPositive() && !pkgsii.IsNoteType(doc.DocumentTypeCode) {
		messages = append(messages, "el monto total debe ser mayor a 0")
		valid = false
	}

	// El IVA debe ser el 19% del neto, con tolerancia de 1 peso por redondeo.
	if doc.SubtotalTaxable.IsPositive() {
		expected := doc.SubtotalTaxable.Mul(decimal.NewFromInt(pkgsii.TasaIVA)).Div(decimal.NewFromInt(100)).Round(0)
		diff := expected.Sub(doc.TaxAmount.Round(0)).Abs()
		if diff.GreaterThan(decimal.NewFromInt(1)) {
			messages = append(messages, fmt.Sprintf("el IVA no corresponde al %d%% del neto", pkgsii.TasaIVA))
			valid = false
		}
	}

	today := now.Truncate(24 * time.Hour)
	issue := doc.IssueDate.Truncate(24 * time.Hour)
	if issue.After(today) {
		messages = append(messages, "la fecha de emisión no puede ser futura")
		valid = false
	}
	if today.Sub(issue) > maxDocumentAge {
		messages = append(messages, "la fecha de emisión no puede tener más de 60 días de antigüedad")
		valid = false
	}

	return valid, messages
}
