package repository

import "github.com/tu-usuario/certificacion-sii/internal/domain/entity"

// CaseRepository puerto de persistencia de casos del set de pruebas.
type CaseRepository interface {
	Create(c *entity.CertificationCase) error
	Update(c *entity.CertificationCase) error
	// GetByID devuelve el caso con sus líneas cargadas.
	GetByID(id string) (*entity.CertificationCase, error)
	ListByProject(projectID string) ([]*entity.CertificationCase, error)
	Delete(id string) error
}
