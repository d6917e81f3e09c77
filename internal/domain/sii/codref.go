package sii

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// DeriveCodRef deriva el código de referencia de una NC/ND a partir del
// texto libre de la razón de referencia. Convención del set de certificación:
// "ANULA" -> 1, "CORRIGE" con total 0 -> 2 (corrige texto), resto -> 3
// (corrige montos). La coincidencia por substring es una convención de
// negocio del set oficial, no una regla formal del esquema.
func DeriveCodRef(reason string, total decimal.Decimal) int {
	upper := strings.ToUpper(reason)
	switch {
	case strings.Contains(upper, "ANULA"):
		return pkgsii.CodRefAnula
	case strings.Contains(upper, "CORRIGE") && total.IsZero():
		return pkgsii.CodRefCorrigeTexto
	default:
		return pkgsii.CodRefCorrigeMontos
	}
}
