package certification

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// ProjectUseCase administra los proyectos de certificación y su avance.
type ProjectUseCase struct {
	projects  repository.ProjectRepository
	clients   repository.ClientInfoRepository
	cases     repository.CaseRepository
	folios    repository.FolioAssignmentRepository
	docs      repository.DocumentRepository
	envelopes repository.EnvelopeRepository
	books     repository.BookRepository
	log       *logger.Logger
}

// NewProjectUseCase construye el caso de uso.
func NewProjectUseCase(
	projects repository.ProjectRepository,
	clients repository.ClientInfoRepository,
	cases repository.CaseRepository,
	folios repository.FolioAssignmentRepository,
	docs repository.DocumentRepository,
	envelopes repository.EnvelopeRepository,
	books repository.BookRepository,
	log *logger.Logger,
) *ProjectUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ProjectUseCase{
		projects:  projects,
		clients:   clients,
		cases:     cases,
		folios:    folios,
		docs:      docs,
		envelopes: envelopes,
		books:     books,
		log:       log,
	}
}

// Create crea un proyecto en borrador.
func (uc *ProjectUseCase) Create(name string) (*entity.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("proyecto: %w: falta el nombre", domain.ErrInvalidInput)
	}
	project := &entity.Project{
		ID:     uuid.NewString(),
		Name:   name,
		Status: entity.ProjectStatusDraft,
	}
	if err := uc.projects.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Rename cambia el nombre del proyecto.
func (uc *ProjectUseCase) Rename(id, name string) (*entity.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("proyecto: %w: falta el nombre", domain.ErrInvalidInput)
	}
	project, err := uc.projects.GetByID(id)
	if err != nil {
		return nil, err
	}
	project.Name = name
	if err := uc.projects.Update(project); err != nil {
		return nil, err
	}
	return project, nil
}

// SetClientInfo registra (o reemplaza) la identidad tributaria del cliente.
func (uc *ProjectUseCase) SetClientInfo(projectID string, info *entity.ClientInfo) (*entity.ClientInfo, error) {
	if _, err := uc.projects.GetByID(projectID); err != nil {
		return nil, err
	}
	if err := pkgsii.ValidateRUT(info.RUT); err != nil {
		return nil, fmt.Errorf("cliente: %w: %v", domain.ErrInvalidInput, err)
	}
	if info.RazonSocial == "" {
		return nil, fmt.Errorf("cliente: %w: falta la razón social", domain.ErrInvalidInput)
	}

	existing, err := uc.clients.GetByProjectID(projectID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		info.ID = existing.ID
		info.CreatedAt = existing.CreatedAt
	} else if info.ID == "" {
		info.ID = uuid.NewString()
	}
	info.ProjectID = projectID

	if err := uc.clients.Upsert(info); err != nil {
		return nil, err
	}
	return info, nil
}

// GetClientInfo devuelve la configuración del cliente, nil si no existe.
func (uc *ProjectUseCase) GetClientInfo(projectID string) (*entity.ClientInfo, error) {
	return uc.clients.GetByProjectID(projectID)
}

// Start pasa el proyecto a in_progress. Requiere información del cliente, al
// menos un caso y al menos una asignación de folios.
func (uc *ProjectUseCase) Start(id string) (*entity.Project, error) {
	project, err := uc.projects.GetByID(id)
	if err != nil {
		return nil, err
	}

	client, err := uc.clients.GetByProjectID(id)
	if err != nil {
		return nil, err
	}
	cases, err := uc.cases.ListByProject(id)
	if err != nil {
		return nil, err
	}
	assignments, err := uc.folios.ListByProject(id)
	if err != nil {
		return nil, err
	}

	if !project.CanStart(client != nil, len(cases), len(assignments)) {
		return nil, fmt.Errorf(
			"proyecto: %w: para iniciar se requiere cliente configurado, al menos un caso y al menos un CAF cargado (estado actual: %s)",
			domain.ErrConflict, project.Status)
	}

	project.Status = entity.ProjectStatusInProgress
	if err := uc.projects.Update(project); err != nil {
		return nil, err
	}
	uc.log.Info().Str("proyecto", project.Name).Msg("proyecto iniciado")
	return project, nil
}

// Transition mueve el proyecto a un estado arbitrario validando la tabla
// (validating, completed, cancelled, vuelta a in_progress).
func (uc *ProjectUseCase) Transition(id, status string) (*entity.Project, error) {
	project, err := uc.projects.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(projectTransitions, "proyecto", project.Status, status); err != nil {
		return nil, err
	}
	project.Status = status
	if err := uc.projects.Update(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Stats resumen de avance: casos y documentos por estado, sobres y libros.
func (uc *ProjectUseCase) Stats(id string) (*entity.ProjectStats, error) {
	if _, err := uc.projects.GetByID(id); err != nil {
		return nil, err
	}

	cases, err := uc.cases.ListByProject(id)
	if err != nil {
		return nil, err
	}
	docs, err := uc.docs.ListByProject(id)
	if err != nil {
		return nil, err
	}
	envelopes, err := uc.envelopes.ListByProject(id)
	if err != nil {
		return nil, err
	}
	books, err := uc.books.ListByProject(id)
	if err != nil {
		return nil, err
	}

	stats := &entity.ProjectStats{
		CasesByStatus:     map[string]int{},
		DocumentsByStatus: map[string]int{},
		EnvelopesTotal:    len(envelopes),
		BooksTotal:        len(books),
	}
	for _, c := range cases {
		stats.CasesByStatus[c.Status]++
	}
	for _, d := range docs {
		stats.DocumentsByStatus[d.Status]++
	}
	return stats, nil
}

// GetByID devuelve un proyecto.
func (uc *ProjectUseCase) GetByID(id string) (*entity.Project, error) {
	return uc.projects.GetByID(id)
}

// List lista todos los proyectos.
func (uc *ProjectUseCase) List() ([]*entity.Project, error) {
	return uc.projects.List()
}

// Delete elimina el proyecto y todo lo que le pertenece (cascada en la DB).
func (uc *ProjectUseCase) Delete(id string) error {
	if _, err := uc.projects.GetByID(id); err != nil {
		return err
	}
	return uc.projects.Delete(id)
}
