package entity

import "time"

// Estados del ciclo de vida de una simulación.
const (
	SimulationStatusDraft           = "draft"
	SimulationStatusGenerated       = "generated"
	SimulationStatusEnvelopeCreated = "envelope_created"
	SimulationStatusSent            = "sent"
	SimulationStatusAccepted        = "accepted"
	SimulationStatusRejected        = "rejected"
)

// Simulation un set de documentos inventados para ensayar el flujo completo
// contra el ambiente de certificación antes de usar el set oficial: facturas
// con líneas aleatorias de un catálogo, más notas de crédito y débito que las
// referencian. Los folios de inicio en 0 significan "usar el próximo folio
// disponible del CAF".
type Simulation struct {
	ID        string
	ProjectID string
	Name      string

	DateFrom time.Time
	DateTo   time.Time

	TotalDocuments int
	NumInvoices    int
	NumCreditNotes int
	NumDebitNotes  int

	StartFolioInvoice    int
	StartFolioCreditNote int
	StartFolioDebitNote  int

	EnvelopeID *string

	TrackID      string
	SiiStatus    string
	Status       string
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}
