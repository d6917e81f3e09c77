package entity

import "time"

// Estados del ciclo de vida de un sobre EnvioDTE.
const (
	EnvelopeStatusDraft       = "draft"
	EnvelopeStatusCreated     = "created"
	EnvelopeStatusSigned      = "signed"
	EnvelopeStatusSent        = "sent"
	EnvelopeStatusAccepted    = "accepted"
	EnvelopeStatusRejected    = "rejected"
	EnvelopeStatusWithRepairs = "with_repairs"
)

// Envelope unidad de envío al SII: agrupa N documentos firmados en un
// EnvioDTE/SetDTE. La relación con los documentos es débil (muchos a muchos).
type Envelope struct {
	ID        string
	ProjectID string
	Name      string
	Status    string

	DocumentIDs []string

	EnvelopeXML       []byte
	EnvelopeXMLSigned []byte

	TrackID   string
	SiiStatus string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClearArtifacts borra XML, firma y seguimiento para volver a borrador.
func (e *Envelope) ClearArtifacts() {
	e.EnvelopeXML = nil
	e.EnvelopeXMLSigned = nil
	e.TrackID = ""
	e.SiiStatus = ""
	e.Status = EnvelopeStatusDraft
}
