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

var _ repository.CaseRepository = (*CaseRepo)(nil)

// CaseRepo implementa CaseRepository sobre PostgreSQL.
type CaseRepo struct {
	db Querier
}

// NewCaseRepository construye el repositorio.
func NewCaseRepository(db Querier) *CaseRepo {
	return &CaseRepo{db: db}
}

func (r *CaseRepo) Create(c *entity.CertificationCase) error {
	ctx := context.Background()
	const q = `
		INSERT INTO certification_cases
			(id, project_id, case_number, name, document_type_code,
			 reference_case_id, reference_reason, global_discount_pct, status,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`
	_, err := r.db.Exec(ctx, q,
		c.ID, c.ProjectID, c.CaseNumber, c.Name, c.DocumentTypeCode,
		c.ReferenceCaseID, nullIfEmpty(c.ReferenceReason), c.GlobalDiscountPct, c.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert certification_case: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert certification_case: %w", err)
	}
	return r.replaceLines(ctx, c)
}

func (r *CaseRepo) Update(c *entity.CertificationCase) error {
	ctx := context.Background()
	const q = `
		UPDATE certification_cases
		SET case_number = $2, name = $3, document_type_code = $4,
		    reference_case_id = $5, reference_reason = $6,
		    global_discount_pct = $7, status = $8, updated_at = now()
		WHERE id = $1`
	_, err := r.db.Exec(ctx, q,
		c.ID, c.CaseNumber, c.Name, c.DocumentTypeCode,
		c.ReferenceCaseID, nullIfEmpty(c.ReferenceReason), c.GlobalDiscountPct, c.Status,
	)
	if err != nil {
		return fmt.Errorf("update certification_case: %w", err)
	}
	return r.replaceLines(ctx, c)
}

func (r *CaseRepo) GetByID(id string) (*entity.CertificationCase, error) {
	ctx := context.Background()
	const q = `
		SELECT id, project_id, case_number, name, document_type_code,
		       reference_case_id, COALESCE(reference_reason, ''),
		       global_discount_pct, status, created_at, updated_at
		FROM certification_cases WHERE id = $1`
	c, err := scanCase(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("case %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get certification_case: %w", err)
	}
	if c.Lines, err = r.listLines(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CaseRepo) ListByProject(projectID string) ([]*entity.CertificationCase, error) {
	ctx := context.Background()
	const q = `
		SELECT id, project_id, case_number, name, document_type_code,
		       reference_case_id, COALESCE(reference_reason, ''),
		       global_discount_pct, status, created_at, updated_at
		FROM certification_cases
		WHERE project_id = $1
		ORDER BY case_number`
	rows, err := r.db.Query(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("list certification_cases: %w", err)
	}
	defer rows.Close()
	var list []*entity.CertificationCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certification_case: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, c := range list {
		if c.Lines, err = r.listLines(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *CaseRepo) Delete(id string) error {
	_, err := r.db.Exec(context.Background(), `DELETE FROM certification_cases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete certification_case: %w", err)
	}
	return nil
}

// replaceLines reescribe las líneas del caso (la edición siempre manda el
// set completo).
func (r *CaseRepo) replaceLines(ctx context.Context, c *entity.CertificationCase) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM case_lines WHERE case_id = $1`, c.ID); err != nil {
		return fmt.Errorf("delete case_lines: %w", err)
	}
	const q = `
		INSERT INTO case_lines
			(id, case_id, sequence, description, quantity, unit_price, discount_pct, exempt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, line := range c.Lines {
		_, err := r.db.Exec(ctx, q,
			line.ID, c.ID, line.Sequence, line.Description,
			line.Quantity, line.UnitPrice, line.DiscountPct, line.Exempt,
		)
		if err != nil {
			return fmt.Errorf("insert case_line: %w", err)
		}
	}
	return nil
}

func (r *CaseRepo) listLines(ctx context.Context, caseID string) ([]entity.CaseLine, error) {
	const q = `
		SELECT id, case_id, sequence, description, quantity, unit_price, discount_pct, exempt
		FROM case_lines WHERE case_id = $1 ORDER BY sequence`
	rows, err := r.db.Query(ctx, q, caseID)
	if err != nil {
		return nil, fmt.Errorf("list case_lines: %w", err)
	}
	defer rows.Close()
	var lines []entity.CaseLine
	for rows.Next() {
		var l entity.CaseLine
		if err := rows.Scan(&l.ID, &l.CaseID, &l.Sequence, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.DiscountPct, &l.Exempt); err != nil {
			return nil, fmt.Errorf("scan case_line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanCase(row pgxScanner) (*entity.CertificationCase, error) {
	var c entity.CertificationCase
	err := row.Scan(
		&c.ID, &c.ProjectID, &c.CaseNumber, &c.Name, &c.DocumentTypeCode,
		&c.ReferenceCaseID, &c.ReferenceReason,
		&c.GlobalDiscountPct, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
