package dto

import (
	"time"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// CreateEnvelopeRequest entrada para armar un sobre con documentos firmados.
type CreateEnvelopeRequest struct {
	Name        string   `json:"name" validate:"required"`
	DocumentIDs []string `json:"document_ids" validate:"required,min=1"`
}

// EnvelopeResponse salida de un sobre.
type EnvelopeResponse struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"project_id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	DocumentIDs []string `json:"document_ids"`

	TrackID   string `json:"track_id,omitempty"`
	SiiStatus string `json:"sii_status,omitempty"`
	HasXML    bool   `json:"has_xml"`
	HasSigned bool   `json:"has_signed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToEnvelopeResponse convierte la entidad.
func ToEnvelopeResponse(e *entity.Envelope) EnvelopeResponse {
	return EnvelopeResponse{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Name:        e.Name,
		Status:      e.Status,
		DocumentIDs: e.DocumentIDs,
		TrackID:     e.TrackID,
		SiiStatus:   e.SiiStatus,
		HasXML:      len(e.EnvelopeXML) > 0,
		HasSigned:   len(e.EnvelopeXMLSigned) > 0,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// SiiResponseEntry una interacción registrada con el SII.
type SiiResponseEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	TrackID   string    `json:"track_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ToSiiResponseEntry convierte la entidad (el XML crudo no viaja en listados).
func ToSiiResponseEntry(r *entity.SiiResponse) SiiResponseEntry {
	return SiiResponseEntry{
		ID:        r.ID,
		Kind:      r.Kind,
		TrackID:   r.TrackID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}
