package entity

import "time"

// Tipos de interacción registrada con el SII.
const (
	SiiResponseKindUpload = "envio"
	SiiResponseKindStatus = "consulta"
)

// SiiResponse registro append-only de cada interacción con el SII
// (envío o consulta de estado) con la respuesta cruda y el estado derivado.
type SiiResponse struct {
	ID         string
	ProjectID  string
	EnvelopeID *string
	BookID     *string

	Kind    string
	TrackID string
	Status  string
	RawXML  []byte

	CreatedAt time.Time
}
