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

var _ repository.BookRepository = (*BookRepo)(nil)

// BookRepo implementa BookRepository sobre PostgreSQL.
type BookRepo struct {
	db Querier
}

// NewBookRepository construye el repositorio.
func NewBookRepository(db Querier) *BookRepo {
	return &BookRepo{db: db}
}

func (r *BookRepo) Create(b *entity.Book) error {
	const q = `
		INSERT INTO books
			(id, project_id, period, operation_type, folio_notificacion,
			 status, book_xml, book_xml_signed, track_id, sii_status,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())`
	_, err := r.db.Exec(context.Background(), q,
		b.ID, b.ProjectID, b.Period, b.OperationType, b.FolioNotificacion,
		b.Status, b.BookXML, b.BookXMLSigned,
		nullIfEmpty(b.TrackID), nullIfEmpty(b.SiiStatus),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert book: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *BookRepo) Update(b *entity.Book) error {
	const q = `
		UPDATE books
		SET period = $2, operation_type = $3, folio_notificacion = $4,
		    status = $5, book_xml = $6, book_xml_signed = $7,
		    track_id = $8, sii_status = $9, updated_at = now()
		WHERE id = $1`
	_, err := r.db.Exec(context.Background(), q,
		b.ID, b.Period, b.OperationType, b.FolioNotificacion,
		b.Status, b.BookXML, b.BookXMLSigned,
		nullIfEmpty(b.TrackID), nullIfEmpty(b.SiiStatus),
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (r *BookRepo) CreateLine(line *entity.BookLine) error {
	const q = `
		INSERT INTO book_lines
			(id, book_id, document_type_code, folio, document_date,
			 partner_rut, partner_name,
			 mnt_exento, mnt_neto, mnt_iva, mnt_total,
			 iva_no_recuperable, iva_uso_comun, iva_retenido_total, iva_retenido_parcial,
			 document_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.Exec(context.Background(), q,
		line.ID, line.BookID, line.DocumentTypeCode, line.Folio, line.DocumentDate,
		line.PartnerRUT, line.PartnerName,
		line.MntExento, line.MntNeto, line.MntIVA, line.MntTotal,
		line.IVANoRecuperable, line.IVAUsoComun, line.IVARetenidoTotal, line.IVARetenidoParcial,
		line.DocumentID,
	)
	if err != nil {
		return fmt.Errorf("insert book_line: %w", err)
	}
	return nil
}

func (r *BookRepo) GetByID(id string) (*entity.Book, error) {
	ctx := context.Background()
	const q = `
		SELECT id, project_id, period, operation_type, folio_notificacion,
		       status, book_xml, book_xml_signed,
		       COALESCE(track_id, ''), COALESCE(sii_status, ''), created_at, updated_at
		FROM books WHERE id = $1`
	var b entity.Book
	err := r.db.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.ProjectID, &b.Period, &b.OperationType, &b.FolioNotificacion,
		&b.Status, &b.BookXML, &b.BookXMLSigned,
		&b.TrackID, &b.SiiStatus, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("book %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	if b.Lines, err = r.listLines(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookRepo) ListByProject(projectID string) ([]*entity.Book, error) {
	const q = `
		SELECT id, project_id, period, operation_type, folio_notificacion,
		       status, book_xml, book_xml_signed,
		       COALESCE(track_id, ''), COALESCE(sii_status, ''), created_at, updated_at
		FROM books WHERE project_id = $1 ORDER BY period DESC, operation_type`
	rows, err := r.db.Query(context.Background(), q, projectID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()
	var list []*entity.Book
	for rows.Next() {
		var b entity.Book
		if err := rows.Scan(
			&b.ID, &b.ProjectID, &b.Period, &b.OperationType, &b.FolioNotificacion,
			&b.Status, &b.BookXML, &b.BookXMLSigned,
			&b.TrackID, &b.SiiStatus, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}

func (r *BookRepo) DeleteLines(bookID string) error {
	_, err := r.db.Exec(context.Background(), `DELETE FROM book_lines WHERE book_id = $1`, bookID)
	if err != nil {
		return fmt.Errorf("delete book_lines: %w", err)
	}
	return nil
}

func (r *BookRepo) Delete(id string) error {
	_, err := r.db.Exec(context.Background(), `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

func (r *BookRepo) listLines(ctx context.Context, bookID string) ([]entity.BookLine, error) {
	const q = `
		SELECT id, book_id, document_type_code, folio, document_date,
		       partner_rut, partner_name,
		       mnt_exento, mnt_neto, mnt_iva, mnt_total,
		       iva_no_recuperable, iva_uso_comun, iva_retenido_total, iva_retenido_parcial,
		       document_id
		FROM book_lines WHERE book_id = $1 ORDER BY document_type_code, folio`
	rows, err := r.db.Query(ctx, q, bookID)
	if err != nil {
		return nil, fmt.Errorf("list book_lines: %w", err)
	}
	defer rows.Close()
	var lines []entity.BookLine
	for rows.Next() {
		var l entity.BookLine
		if err := rows.Scan(
			&l.ID, &l.BookID, &l.DocumentTypeCode, &l.Folio, &l.DocumentDate,
			&l.PartnerRUT, &l.PartnerName,
			&l.MntExento, &l.MntNeto, &l.MntIVA, &l.MntTotal,
			&l.IVANoRecuperable, &l.IVAUsoComun, &l.IVARetenidoTotal, &l.IVARetenidoParcial,
			&l.DocumentID,
		); err != nil {
			return nil, fmt.Errorf("scan book_line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
