package repository

import "github.com/tu-usuario/certificacion-sii/internal/domain/entity"

// EnvelopeRepository puerto de persistencia de sobres de envío.
type EnvelopeRepository interface {
	Create(envelope *entity.Envelope) error
	Update(envelope *entity.Envelope) error
	// GetByID devuelve el sobre con sus DocumentIDs cargados.
	GetByID(id string) (*entity.Envelope, error)
	ListByProject(projectID string) ([]*entity.Envelope, error)
	Delete(id string) error
}
