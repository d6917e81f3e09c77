package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
)

var _ repository.SiiResponseRepository = (*SiiResponseRepo)(nil)

// SiiResponseRepo bitácora append-only de interacciones con el SII.
type SiiResponseRepo struct {
	db Querier
}

// NewSiiResponseRepository construye el repositorio.
func NewSiiResponseRepository(db Querier) *SiiResponseRepo {
	return &SiiResponseRepo{db: db}
}

func (r *SiiResponseRepo) Append(response *entity.SiiResponse) error {
	const q = `
		INSERT INTO sii_responses
			(id, project_id, envelope_id, book_id, kind, track_id, status, raw_xml, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`
	_, err := r.db.Exec(context.Background(), q,
		response.ID, response.ProjectID, response.EnvelopeID, response.BookID,
		response.Kind, nullIfEmpty(response.TrackID), nullIfEmpty(response.Status),
		response.RawXML,
	)
	if err != nil {
		return fmt.Errorf("insert sii_response: %w", err)
	}
	return nil
}

func (r *SiiResponseRepo) ListByProject(projectID string) ([]*entity.SiiResponse, error) {
	rows, err := r.db.Query(context.Background(),
		selectSiiResponse+` WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sii_responses: %w", err)
	}
	return collectSiiResponses(rows)
}

func (r *SiiResponseRepo) ListByEnvelope(envelopeID string) ([]*entity.SiiResponse, error) {
	rows, err := r.db.Query(context.Background(),
		selectSiiResponse+` WHERE envelope_id = $1 ORDER BY created_at DESC`, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("list sii_responses by envelope: %w", err)
	}
	return collectSiiResponses(rows)
}

const selectSiiResponse = `
	SELECT id, project_id, envelope_id, book_id, kind,
	       COALESCE(track_id, ''), COALESCE(status, ''), raw_xml, created_at
	FROM sii_responses`

func collectSiiResponses(rows pgx.Rows) ([]*entity.SiiResponse, error) {
	defer rows.Close()
	var list []*entity.SiiResponse
	for rows.Next() {
		var s entity.SiiResponse
		if err := rows.Scan(
			&s.ID, &s.ProjectID, &s.EnvelopeID, &s.BookID, &s.Kind,
			&s.TrackID, &s.Status, &s.RawXML, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sii_response: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
