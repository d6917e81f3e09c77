package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
)

var _ repository.ClientInfoRepository = (*ClientInfoRepo)(nil)

// ClientInfoRepo implementa ClientInfoRepository sobre PostgreSQL.
type ClientInfoRepo struct {
	db Querier
}

// NewClientInfoRepository construye el repositorio.
func NewClientInfoRepository(db Querier) *ClientInfoRepo {
	return &ClientInfoRepo{db: db}
}

// Upsert crea o reemplaza el snapshot del cliente del proyecto (uno a uno).
func (r *ClientInfoRepo) Upsert(info *entity.ClientInfo) error {
	const q = `
		INSERT INTO client_infos
			(id, project_id, rut, razon_social, giro, acteco, address, commune, city, email,
			 resolution_number, resolution_date, certificate_file, certificate_password,
			 subject_serial_number, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
		ON CONFLICT (project_id) DO UPDATE SET
			rut = EXCLUDED.rut, razon_social = EXCLUDED.razon_social,
			giro = EXCLUDED.giro, acteco = EXCLUDED.acteco,
			address = EXCLUDED.address, commune = EXCLUDED.commune,
			city = EXCLUDED.city, email = EXCLUDED.email,
			resolution_number = EXCLUDED.resolution_number,
			resolution_date = EXCLUDED.resolution_date,
			certificate_file = EXCLUDED.certificate_file,
			certificate_password = EXCLUDED.certificate_password,
			subject_serial_number = EXCLUDED.subject_serial_number,
			updated_at = now()`
	_, err := r.db.Exec(context.Background(), q,
		info.ID, info.ProjectID, info.RUT, info.RazonSocial, info.Giro, info.Acteco,
		info.Address, info.Commune, info.City, nullIfEmpty(info.Email),
		info.ResolutionNumber, info.ResolutionDate,
		info.CertificateFile, info.CertificatePassword, nullIfEmpty(info.SubjectSerialNumber),
	)
	if err != nil {
		return fmt.Errorf("upsert client_info: %w", err)
	}
	return nil
}

func (r *ClientInfoRepo) GetByProjectID(projectID string) (*entity.ClientInfo, error) {
	const q = `
		SELECT id, project_id, rut, razon_social, giro, acteco, address, commune, city,
		       COALESCE(email, ''), resolution_number, resolution_date,
		       certificate_file, certificate_password, COALESCE(subject_serial_number, ''),
		       created_at, updated_at
		FROM client_infos WHERE project_id = $1`
	var info entity.ClientInfo
	err := r.db.QueryRow(context.Background(), q, projectID).Scan(
		&info.ID, &info.ProjectID, &info.RUT, &info.RazonSocial, &info.Giro,
		&info.Acteco, &info.Address, &info.Commune, &info.City, &info.Email,
		&info.ResolutionNumber, &info.ResolutionDate,
		&info.CertificateFile, &info.CertificatePassword, &info.SubjectSerialNumber,
		&info.CreatedAt, &info.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // el proyecto aún no tiene cliente configurado
		}
		return nil, fmt.Errorf("get client_info: %w", err)
	}
	return &info, nil
}
