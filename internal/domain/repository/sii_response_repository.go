package repository

import "github.com/tu-usuario/certificacion-sii/internal/domain/entity"

// SiiResponseRepository bitácora append-only de interacciones con el SII.
type SiiResponseRepository interface {
	Append(response *entity.SiiResponse) error
	ListByProject(projectID string) ([]*entity.SiiResponse, error)
	ListByEnvelope(envelopeID string) ([]*entity.SiiResponse, error)
}
