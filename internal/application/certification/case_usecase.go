package certification

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// CaseUseCase administra los casos del set de pruebas y sus líneas.
type CaseUseCase struct {
	projects repository.ProjectRepository
	cases    repository.CaseRepository
	docs     repository.DocumentRepository
	log      *logger.Logger
}

// NewCaseUseCase construye el caso de uso.
func NewCaseUseCase(
	projects repository.ProjectRepository,
	cases repository.CaseRepository,
	docs repository.DocumentRepository,
	log *logger.Logger,
) *CaseUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &CaseUseCase{projects: projects, cases: cases, docs: docs, log: log}
}

// Create registra un caso del set con sus líneas.
func (uc *CaseUseCase) Create(c *entity.CertificationCase) (*entity.CertificationCase, error) {
	if _, err := uc.projects.GetByID(c.ProjectID); err != nil {
		return nil, err
	}
	if err := uc.validate(c); err != nil {
		return nil, err
	}

	c.ID = uuid.NewString()
	c.Status = entity.CaseStatusDraft
	for i := range c.Lines {
		c.Lines[i].ID = uuid.NewString()
		c.Lines[i].CaseID = c.ID
		c.Lines[i].Sequence = i + 1
	}
	if err := uc.cases.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update reemplaza los datos y líneas de un caso aún sin documento generado.
func (uc *CaseUseCase) Update(c *entity.CertificationCase) (*entity.CertificationCase, error) {
	existing, err := uc.cases.GetByID(c.ID)
	if err != nil {
		return nil, err
	}
	if existing.Status != entity.CaseStatusDraft && existing.Status != entity.CaseStatusReady {
		return nil, fmt.Errorf("caso: %w: no se puede modificar en estado %s",
			domain.ErrConflict, existing.Status)
	}
	if err := uc.validate(c); err != nil {
		return nil, err
	}

	c.ProjectID = existing.ProjectID
	c.Status = existing.Status
	for i := range c.Lines {
		if c.Lines[i].ID == "" {
			c.Lines[i].ID = uuid.NewString()
		}
		c.Lines[i].CaseID = c.ID
		c.Lines[i].Sequence = i + 1
	}
	if err := uc.cases.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

// MarkReady marca el caso como listo para generar.
func (uc *CaseUseCase) MarkReady(id string) (*entity.CertificationCase, error) {
	c, err := uc.cases.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c.Status != entity.CaseStatusDraft {
		return nil, fmt.Errorf("caso: %w: sólo un caso en borrador puede marcarse listo (estado %s)",
			domain.ErrConflict, c.Status)
	}
	c.Status = entity.CaseStatusReady
	if err := uc.cases.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID devuelve un caso con sus líneas.
func (uc *CaseUseCase) GetByID(id string) (*entity.CertificationCase, error) {
	return uc.cases.GetByID(id)
}

// ListByProject lista los casos de un proyecto.
func (uc *CaseUseCase) ListByProject(projectID string) ([]*entity.CertificationCase, error) {
	return uc.cases.ListByProject(projectID)
}

// Delete elimina un caso sin documento generado.
func (uc *CaseUseCase) Delete(id string) error {
	c, err := uc.cases.GetByID(id)
	if err != nil {
		return err
	}
	doc, err := uc.docs.GetByCaseID(id)
	if err != nil {
		return err
	}
	if doc != nil {
		return fmt.Errorf("caso: %w: el caso %s ya generó el documento F%dT%s",
			domain.ErrConflict, c.CaseNumber, doc.Folio, doc.DocumentTypeCode)
	}
	return uc.cases.Delete(id)
}

func (uc *CaseUseCase) validate(c *entity.CertificationCase) error {
	if c.CaseNumber == "" {
		return fmt.Errorf("caso: %w: falta el código del caso", domain.ErrInvalidInput)
	}
	if _, err := strconv.Atoi(c.DocumentTypeCode); err != nil {
		return fmt.Errorf("caso: %w: tipo de documento %q no es numérico",
			domain.ErrInvalidInput, c.DocumentTypeCode)
	}
	// Sin líneas sólo se admiten notas administrativas.
	if len(c.Lines) == 0 && !pkgsii.IsNoteType(c.DocumentTypeCode) {
		return fmt.Errorf("caso: %w: el tipo %s requiere al menos una línea de detalle",
			domain.ErrInvalidInput, c.DocumentTypeCode)
	}
	if c.ReferenceCaseID != nil && c.ReferenceReason == "" {
		return fmt.Errorf("caso: %w: la referencia requiere razón (ANULA/CORRIGE...)", domain.ErrInvalidInput)
	}
	for _, line := range c.Lines {
		if line.Description == "" {
			return fmt.Errorf("caso: %w: línea sin descripción", domain.ErrInvalidInput)
		}
		if line.Quantity.IsNegative() || line.UnitPrice.IsNegative() {
			return fmt.Errorf("caso: %w: cantidades y precios no pueden ser negativos", domain.ErrInvalidInput)
		}
	}
	return nil
}
