package repository

import "github.com/tu-usuario/certificacion-sii/internal/domain/entity"

// SimulationRepository puerto de persistencia de simulaciones.
type SimulationRepository interface {
	Create(s *entity.Simulation) error
	Update(s *entity.Simulation) error
	GetByID(id string) (*entity.Simulation, error)
	ListByProject(projectID string) ([]*entity.Simulation, error)
	Delete(id string) error
}
