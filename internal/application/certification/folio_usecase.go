package certification

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	domainsii "github.com/tu-usuario/certificacion-sii/internal/domain/sii"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
)

// FolioUseCase administra los CAF y las asignaciones de folios del proyecto.
type FolioUseCase struct {
	clients repository.ClientInfoRepository
	folios  repository.FolioAssignmentRepository
	log     *logger.Logger
}

// NewFolioUseCase construye el caso de uso.
func NewFolioUseCase(
	clients repository.ClientInfoRepository,
	folios repository.FolioAssignmentRepository,
	log *logger.Logger,
) *FolioUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &FolioUseCase{clients: clients, folios: folios, log: log}
}

// UploadCAF decodifica y valida un CAF y crea (o reemplaza) la asignación de
// folios del tipo. Devuelve la advertencia de discrepancia de RUT si aplica:
// en carga no es fatal, el operador puede estar subiendo el archivo de otra
// empresa por error.
func (uc *FolioUseCase) UploadCAF(projectID, filename string, data []byte) (*entity.FolioAssignment, string, error) {
	caf, err := infrasii.ParseCAF(data)
	if err != nil {
		return nil, "", err
	}

	warning := ""
	client, err := uc.clients.GetByProjectID(projectID)
	if err != nil {
		return nil, "", err
	}
	if client != nil {
		warning = infrasii.ValidateCAFIssuer(caf, client.RUT)
	}

	assignment, err := uc.folios.GetByProjectAndType(projectID, caf.TypeCode)
	if err != nil {
		return nil, "", err
	}

	if assignment == nil {
		assignment = &entity.FolioAssignment{
			ID:               uuid.NewString(),
			ProjectID:        projectID,
			DocumentTypeCode: caf.TypeCode,
		}
	}
	assignment.CAFFile = data
	assignment.CAFFilename = filename
	assignment.CAFRutEmisor = caf.RutEmisor
	assignment.CAFTypeCode = caf.TypeCode
	assignment.FolioStart = caf.FolioStart
	assignment.FolioEnd = caf.FolioEnd

	if assignment.CreatedAt.IsZero() {
		err = uc.folios.Create(assignment)
	} else {
		err = uc.folios.Update(assignment)
	}
	if err != nil {
		return nil, "", err
	}

	uc.log.Info().
		Str("tipo", caf.TypeCode).
		Int("desde", caf.FolioStart).
		Int("hasta", caf.FolioEnd).
		Msg("CAF cargado")

	return assignment, warning, nil
}

// Stats estadísticas de uso de una asignación: próximo folio, consumidos,
// disponibles y porcentaje de uso.
func (uc *FolioUseCase) Stats(assignmentID string) (*entity.FolioStats, error) {
	assignment, err := uc.folios.GetByID(assignmentID)
	if err != nil {
		return nil, err
	}
	used, err := uc.folios.UsedFolios(assignment.ProjectID, assignment.DocumentTypeCode)
	if err != nil {
		return nil, err
	}
	stats := domainsii.ComputeFolioStats(assignment, used)
	return &stats, nil
}

// ValidateRange verifica que [start, end] quepa en algún CAF cargado del
// tipo; el error enumera cada CAF con el inicio máximo válido.
func (uc *FolioUseCase) ValidateRange(projectID, documentTypeCode string, start, end int) error {
	list, err := uc.folios.ListByProject(projectID)
	if err != nil {
		return err
	}
	var candidates []domainsii.RangeCandidate
	for _, a := range list {
		if a.DocumentTypeCode != documentTypeCode {
			continue
		}
		name := a.CAFFilename
		if name == "" {
			name = a.ID
		}
		candidates = append(candidates, domainsii.RangeCandidate{
			Name:       name,
			FolioStart: a.FolioStart,
			FolioEnd:   a.FolioEnd,
		})
	}
	return domainsii.ValidateRange(candidates, start, end)
}

// ListByProject lista las asignaciones de folios de un proyecto.
func (uc *FolioUseCase) ListByProject(projectID string) ([]*entity.FolioAssignment, error) {
	return uc.folios.ListByProject(projectID)
}

// GetByID devuelve una asignación.
func (uc *FolioUseCase) GetByID(id string) (*entity.FolioAssignment, error) {
	return uc.folios.GetByID(id)
}

// Delete elimina una asignación. No se permite si ya consumió folios.
func (uc *FolioUseCase) Delete(id string) error {
	assignment, err := uc.folios.GetByID(id)
	if err != nil {
		return err
	}
	used, err := uc.folios.UsedFolios(assignment.ProjectID, assignment.DocumentTypeCode)
	if err != nil {
		return err
	}
	if len(used) > 0 {
		return fmt.Errorf("folios: %w: la asignación del tipo %s ya consumió %d folios",
			domain.ErrConflict, assignment.DocumentTypeCode, len(used))
	}
	return uc.folios.Delete(id)
}
