package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un caso del set de pruebas.
const (
	CaseStatusDraft     = "draft"
	CaseStatusReady     = "ready"
	CaseStatusGenerated = "generated"
	CaseStatusValidated = "validated"
	CaseStatusSent      = "sent"
	CaseStatusAccepted  = "accepted"
	CaseStatusRejected  = "rejected"
)

// CertificationCase un escenario del set de pruebas del SII: define el tipo
// de documento a emitir, sus líneas de detalle, descuento global y, para
// notas de crédito/débito, la referencia al documento corregido.
type CertificationCase struct {
	ID        string
	ProjectID string

	// CaseNumber identificador del caso en el set oficial (ej: "CASO-1").
	CaseNumber       string
	Name             string
	DocumentTypeCode string

	// Referencia a otro caso (NC/ND). ReferenceReason alimenta la
	// derivación de CodRef ("ANULA...", "CORRIGE...").
	ReferenceCaseID *string
	ReferenceReason string

	GlobalDiscountPct decimal.Decimal

	Status    string
	Lines     []CaseLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CaseLine línea de detalle de un caso.
type CaseLine struct {
	ID          string
	CaseID      string
	Sequence    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	Exempt      bool
}
