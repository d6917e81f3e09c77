package repository

import "github.com/tu-usuario/certificacion-sii/internal/domain/entity"

// FolioAssignmentRepository puerto de persistencia de asignaciones de folios.
type FolioAssignmentRepository interface {
	Create(assignment *entity.FolioAssignment) error
	Update(assignment *entity.FolioAssignment) error
	GetByID(id string) (*entity.FolioAssignment, error)
	// GetByProjectAndType devuelve (nil, nil) si no hay asignación para el tipo.
	GetByProjectAndType(projectID, documentTypeCode string) (*entity.FolioAssignment, error)
	ListByProject(projectID string) ([]*entity.FolioAssignment, error)
	Delete(id string) error

	// AllocateNextFolio reserva atómicamente el próximo folio para
	// (proyecto, tipo): bloquea la fila de la asignación, deriva
	// max(folio usado)+1 (o folio_start) y falla si excede folio_end.
	// Cierra la carrera de folios duplicados bajo generación concurrente.
	AllocateNextFolio(projectID, documentTypeCode string) (int, error)

	// UsedFolios folios ya consumidos por documentos del tipo en el proyecto.
	UsedFolios(projectID, documentTypeCode string) ([]int, error)
}
