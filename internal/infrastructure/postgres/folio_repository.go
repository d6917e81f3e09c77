package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
)

var _ repository.FolioAssignmentRepository = (*FolioAssignmentRepo)(nil)

// FolioAssignmentRepo implementa FolioAssignmentRepository sobre PostgreSQL.
type FolioAssignmentRepo struct {
	db Querier
}

// NewFolioAssignmentRepository construye el repositorio.
func NewFolioAssignmentRepository(db Querier) *FolioAssignmentRepo {
	return &FolioAssignmentRepo{db: db}
}

func (r *FolioAssignmentRepo) Create(a *entity.FolioAssignment) error {
	const q = `
		INSERT INTO folio_assignments
			(id, project_id, document_type_code, caf_file, caf_filename,
			 caf_rut_emisor, caf_type_code, folio_start, folio_end,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`
	_, err := r.db.Exec(context.Background(), q,
		a.ID, a.ProjectID, a.DocumentTypeCode, a.CAFFile, a.CAFFilename,
		a.CAFRutEmisor, a.CAFTypeCode, a.FolioStart, a.FolioEnd,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Única por (proyecto, tipo): un CAF nuevo reemplaza, no duplica.
			return fmt.Errorf("insert folio_assignment: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert folio_assignment: %w", err)
	}
	return nil
}

func (r *FolioAssignmentRepo) Update(a *entity.FolioAssignment) error {
	const q = `
		UPDATE folio_assignments
		SET caf_file = $2, caf_filename = $3, caf_rut_emisor = $4,
		    caf_type_code = $5, folio_start = $6, folio_end = $7, updated_at = now()
		WHERE id = $1`
	_, err := r.db.Exec(context.Background(), q,
		a.ID, a.CAFFile, a.CAFFilename, a.CAFRutEmisor,
		a.CAFTypeCode, a.FolioStart, a.FolioEnd,
	)
	if err != nil {
		return fmt.Errorf("update folio_assignment: %w", err)
	}
	return nil
}

func (r *FolioAssignmentRepo) GetByID(id string) (*entity.FolioAssignment, error) {
	a, err := scanAssignment(r.db.QueryRow(context.Background(), selectAssignment+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("folio_assignment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folio_assignment: %w", err)
	}
	return a, nil
}

func (r *FolioAssignmentRepo) GetByProjectAndType(projectID, documentTypeCode string) (*entity.FolioAssignment, error) {
	a, err := scanAssignment(r.db.QueryRow(context.Background(),
		selectAssignment+` WHERE project_id = $1 AND document_type_code = $2`,
		projectID, documentTypeCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // sin asignación para el tipo
		}
		return nil, fmt.Errorf("get folio_assignment by type: %w", err)
	}
	return a, nil
}

func (r *FolioAssignmentRepo) ListByProject(projectID string) ([]*entity.FolioAssignment, error) {
	rows, err := r.db.Query(context.Background(),
		selectAssignment+` WHERE project_id = $1 ORDER BY document_type_code`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list folio_assignments: %w", err)
	}
	defer rows.Close()
	var list []*entity.FolioAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folio_assignment: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *FolioAssignmentRepo) Delete(id string) error {
	_, err := r.db.Exec(context.Background(), `DELETE FROM folio_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete folio_assignment: %w", err)
	}
	return nil
}

// AllocateNextFolio bloquea la fila de la asignación (SELECT ... FOR UPDATE)
// y deriva el próximo folio de los documentos existentes. Ejecutado dentro
// del TxRunner, el lock vive hasta el commit del documento: dos generaciones
// concurrentes quedan serializadas y no pueden repetir folio.
func (r *FolioAssignmentRepo) AllocateNextFolio(projectID, documentTypeCode string) (int, error) {
	ctx := context.Background()

	var folioStart, folioEnd int
	err := r.db.QueryRow(ctx, `
		SELECT folio_start, folio_end
		FROM folio_assignments
		WHERE project_id = $1 AND document_type_code = $2
		FOR UPDATE`,
		projectID, documentTypeCode,
	).Scan(&folioStart, &folioEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("allocate folio: %w", domain.ErrNoFolioAssignment)
		}
		return 0, fmt.Errorf("allocate folio: lock assignment: %w", err)
	}

	var maxUsed *int
	err = r.db.QueryRow(ctx, `
		SELECT MAX(folio)
		FROM generated_documents
		WHERE project_id = $1 AND document_type_code = $2 AND folio > 0`,
		projectID, documentTypeCode,
	).Scan(&maxUsed)
	if err != nil {
		return 0, fmt.Errorf("allocate folio: max usado: %w", err)
	}

	next := folioStart
	if maxUsed != nil && *maxUsed+1 > next {
		next = *maxUsed + 1
	}
	if next > folioEnd {
		return 0, fmt.Errorf(
			"allocate folio: %w: el próximo folio %d supera el final del rango [%d, %d]",
			domain.ErrFolioRangeExceeded, next, folioStart, folioEnd)
	}
	return next, nil
}

func (r *FolioAssignmentRepo) UsedFolios(projectID, documentTypeCode string) ([]int, error) {
	rows, err := r.db.Query(context.Background(), `
		SELECT folio FROM generated_documents
		WHERE project_id = $1 AND document_type_code = $2 AND folio > 0
		ORDER BY folio`,
		projectID, documentTypeCode)
	if err != nil {
		return nil, fmt.Errorf("used folios: %w", err)
	}
	defer rows.Close()
	var folios []int
	for rows.Next() {
		var f int
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan folio: %w", err)
		}
		folios = append(folios, f)
	}
	return folios, rows.Err()
}

const selectAssignment = `
	SELECT id, project_id, document_type_code, caf_file, caf_filename,
	       caf_rut_emisor, caf_type_code, folio_start, folio_end,
	       created_at, updated_at
	FROM folio_assignments`

func scanAssignment(row pgxScanner) (*entity.FolioAssignment, error) {
	var a entity.FolioAssignment
	err := row.Scan(
		&a.ID, &a.ProjectID, &a.DocumentTypeCode, &a.CAFFile, &a.CAFFilename,
		&a.CAFRutEmisor, &a.CAFTypeCode, &a.FolioStart, &a.FolioEnd,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
