package repository

import "github.com/tu-usuario/certificacion-sii/internal/domain/entity"

// ProjectRepository puerto de persistencia para proyectos de certificación.
type ProjectRepository interface {
	Create(project *entity.Project) error
	Update(project *entity.Project) error
	GetByID(id string) (*entity.Project, error)
	List() ([]*entity.Project, error)
	Delete(id string) error
}

// ClientInfoRepository puerto de persistencia del snapshot del cliente.
type ClientInfoRepository interface {
	Upsert(info *entity.ClientInfo) error
	// GetByProjectID devuelve (nil, nil) si el proyecto no tiene cliente configurado.
	GetByProjectID(projectID string) (*entity.ClientInfo, error)
}
