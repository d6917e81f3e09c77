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

var _ repository.ProjectRepository = (*ProjectRepo)(nil)

// ProjectRepo implementa ProjectRepository sobre PostgreSQL.
type ProjectRepo struct {
	db Querier
}

// NewProjectRepository construye el repositorio.
func NewProjectRepository(db Querier) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(project *entity.Project) error {
	const q = `
		INSERT INTO projects (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())`
	_, err := r.db.Exec(context.Background(), q, project.ID, project.Name, project.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert project: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepo) Update(project *entity.Project) error {
	const q = `
		UPDATE projects SET name = $2, status = $3, updated_at = now()
		WHERE id = $1`
	_, err := r.db.Exec(context.Background(), q, project.ID, project.Name, project.Status)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (r *ProjectRepo) GetByID(id string) (*entity.Project, error) {
	const q = `
		SELECT id, name, status, created_at, updated_at
		FROM projects WHERE id = $1`
	project, err := scanProject(r.db.QueryRow(context.Background(), q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return project, nil
}

func (r *ProjectRepo) List() ([]*entity.Project, error) {
	const q = `
		SELECT id, name, status, created_at, updated_at
		FROM projects ORDER BY created_at DESC`
	rows, err := r.db.Query(context.Background(), q)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	var list []*entity.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		list = append(list, project)
	}
	return list, rows.Err()
}

// Delete elimina el proyecto; la cascada de FK arrastra cliente, casos,
// folios, documentos, sobres, libros y respuestas.
func (r *ProjectRepo) Delete(id string) error {
	_, err := r.db.Exec(context.Background(), `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func scanProject(row pgxScanner) (*entity.Project, error) {
	var p entity.Project
	err := row.Scan(&p.ID, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
