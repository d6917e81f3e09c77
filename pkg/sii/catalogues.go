// Package sii contiene catálogos, códigos y utilidades compartidas del
// formato DTE del Servicio de Impuestos Internos (Chile).
package sii

// =============================================================================
// Tipos de Documento Tributario Electrónico usados en el set de certificación.
// =============================================================================

const (
	DocTypeFacturaAfecta = "33" // Factura Electrónica
	DocTypeFacturaExenta = "34" // Factura no Afecta o Exenta Electrónica
	DocTypeBoleta        = "39" // Boleta Electrónica
	DocTypeGuiaDespacho  = "52" // Guía de Despacho Electrónica
	DocTypeNotaDebito    = "56" // Nota de Débito Electrónica
	DocTypeNotaCredito   = "61" // Nota de Crédito Electrónica
)

// DocumentTypeNames nombre oficial por código de tipo de documento.
var DocumentTypeNames = map[string]string{
	DocTypeFacturaAfecta: "Factura Electrónica",
	DocTypeFacturaExenta: "Factura no Afecta o Exenta Electrónica",
	DocTypeBoleta:        "Boleta Electrónica",
	DocTypeGuiaDespacho:  "Guía de Despacho Electrónica",
	DocTypeNotaDebito:    "Nota de Débito Electrónica",
	DocTypeNotaCredito:   "Nota de Crédito Electrónica",
}

// IsExemptType indica si el tipo de documento es exento de IVA.
func IsExemptType(code string) bool {
	return code == DocTypeFacturaExenta
}

// IsNoteType indica si el tipo corresponde a nota de crédito o débito
// (pueden llevar monto 0 en correcciones administrativas).
func IsNoteType(code string) bool {
	return code == DocTypeNotaCredito || code == DocTypeNotaDebito
}

// =============================================================================
// Orden de documentos dentro del SetDTE. Las facturas deben ir ANTES que las
// notas que las referencian: el SII rechaza con error REF-3-750 una NC/ND que
// llega antes que su factura dentro del mismo sobre.
// =============================================================================

// EnvelopeOrder prioridad por tipo de documento (menor = primero).
var EnvelopeOrder = map[string]int{
	DocTypeFacturaAfecta: 1,
	DocTypeFacturaExenta: 2,
	DocTypeBoleta:        3,
	DocTypeNotaCredito:   4,
	DocTypeNotaDebito:    5,
}

// EnvelopeOrderDefault prioridad para tipos no listados (van al final).
const EnvelopeOrderDefault = 99

// EnvelopePriority devuelve la prioridad de orden para un tipo de documento.
func EnvelopePriority(code string) int {
	if p, ok := EnvelopeOrder[code]; ok {
		return p
	}
	return EnvelopeOrderDefault
}

// =============================================================================
// Receptor por defecto en certificación: el propio SII.
// =============================================================================

const (
	SiiRUT         = "60803000-K"
	SiiRazonSocial = "Servicio de Impuestos Internos"
	SiiGiro        = "Administración Publica"
	SiiAddress     = "Teatinos 120"
	SiiCommune     = "Santiago"
)

// =============================================================================
// Valores por defecto del emisor y del documento.
// =============================================================================

const (
	// ActecoDefault código de actividad económica por defecto (servicios
	// de consultoría informática).
	ActecoDefault = "620200"

	// TasaIVA tasa vigente del impuesto al valor agregado (%). Se declara
	// siempre en documentos afectos, incluso cuando el monto de IVA es 0.
	TasaIVA = 19

	// MaxGiroLen largo máximo del giro del emisor (GiroEmis).
	MaxGiroLen = 80

	// MaxRznSocLen largo máximo de la razón social en libros (RznSoc).
	MaxRznSocLen = 50

	// MaxTEDNameLen largo máximo de RSR e IT1 dentro del timbre (DD).
	MaxTEDNameLen = 40
)

// =============================================================================
// Códigos de referencia (CodRef) para notas de crédito/débito.
// =============================================================================

const (
	CodRefAnula         = 1 // Anula documento de referencia
	CodRefCorrigeTexto  = 2 // Corrige texto del documento de referencia
	CodRefCorrigeMontos = 3 // Corrige montos
)

// TpoDocRefSET tipo de referencia obligatoria en documentos de certificación:
// la primera línea de Referencia debe apuntar al caso del set de pruebas.
const TpoDocRefSET = "SET"
