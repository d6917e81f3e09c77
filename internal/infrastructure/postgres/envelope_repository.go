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

var _ repository.EnvelopeRepository = (*EnvelopeRepo)(nil)

// EnvelopeRepo implementa EnvelopeRepository sobre PostgreSQL. La relación
// con los documentos (muchos a muchos) vive en envelope_documents.
type EnvelopeRepo struct {
	db Querier
}

// NewEnvelopeRepository construye el repositorio.
func NewEnvelopeRepository(db Querier) *EnvelopeRepo {
	return &EnvelopeRepo{db: db}
}

func (r *EnvelopeRepo) Create(e *entity.Envelope) error {
	ctx := context.Background()
	const q = `
		INSERT INTO envelopes
			(id, project_id, name, status, envelope_xml, envelope_xml_signed,
			 track_id, sii_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`
	_, err := r.db.Exec(ctx, q,
		e.ID, e.ProjectID, e.Name, e.Status, e.EnvelopeXML, e.EnvelopeXMLSigned,
		nullIfEmpty(e.TrackID), nullIfEmpty(e.SiiStatus),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert envelope: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert envelope: %w", err)
	}
	return r.replaceDocuments(ctx, e)
}

func (r *EnvelopeRepo) Update(e *entity.Envelope) error {
	ctx := context.Background()
	const q = `
		UPDATE envelopes
		SET name = $2, status = $3, envelope_xml = $4, envelope_xml_signed = $5,
		    track_id = $6, sii_status = $7, updated_at = now()
		WHERE id = $1`
	_, err := r.db.Exec(ctx, q,
		e.ID, e.Name, e.Status, e.EnvelopeXML, e.EnvelopeXMLSigned,
		nullIfEmpty(e.TrackID), nullIfEmpty(e.SiiStatus),
	)
	if err != nil {
		return fmt.Errorf("update envelope: %w", err)
	}
	return r.replaceDocuments(ctx, e)
}

func (r *EnvelopeRepo) GetByID(id string) (*entity.Envelope, error) {
	ctx := context.Background()
	const q = `
		SELECT id, project_id, name, status, envelope_xml, envelope_xml_signed,
		       COALESCE(track_id, ''), COALESCE(sii_status, ''), created_at, updated_at
		FROM envelopes WHERE id = $1`
	var e entity.Envelope
	err := r.db.QueryRow(ctx, q, id).Scan(
		&e.ID, &e.ProjectID, &e.Name, &e.Status, &e.EnvelopeXML, &e.EnvelopeXMLSigned,
		&e.TrackID, &e.SiiStatus, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("envelope %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get envelope: %w", err)
	}
	if e.DocumentIDs, err = r.listDocumentIDs(ctx, e.ID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnvelopeRepo) ListByProject(projectID string) ([]*entity.Envelope, error) {
	ctx := context.Background()
	const q = `
		SELECT id, project_id, name, status, envelope_xml, envelope_xml_signed,
		       COALESCE(track_id, ''), COALESCE(sii_status, ''), created_at, updated_at
		FROM envelopes WHERE project_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	defer rows.Close()
	var list []*entity.Envelope
	for rows.Next() {
		var e entity.Envelope
		if err := rows.Scan(
			&e.ID, &e.ProjectID, &e.Name, &e.Status, &e.EnvelopeXML, &e.EnvelopeXMLSigned,
			&e.TrackID, &e.SiiStatus, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan envelope: %w", err)
		}
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, e := range list {
		if e.DocumentIDs, err = r.listDocumentIDs(ctx, e.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *EnvelopeRepo) Delete(id string) error {
	_, err := r.db.Exec(context.Background(), `DELETE FROM envelopes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete envelope: %w", err)
	}
	return nil
}

func (r *EnvelopeRepo) replaceDocuments(ctx context.Context, e *entity.Envelope) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM envelope_documents WHERE envelope_id = $1`, e.ID); err != nil {
		return fmt.Errorf("delete envelope_documents: %w", err)
	}
	const q = `INSERT INTO envelope_documents (envelope_id, document_id, position) VALUES ($1, $2, $3)`
	for i, docID := range e.DocumentIDs {
		if _, err := r.db.Exec(ctx, q, e.ID, docID, i); err != nil {
			return fmt.Errorf("insert envelope_document: %w", err)
		}
	}
	return nil
}

func (r *EnvelopeRepo) listDocumentIDs(ctx context.Context, envelopeID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT document_id FROM envelope_documents
		WHERE envelope_id = $1 ORDER BY position`, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("list envelope_documents: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan envelope_document: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
