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

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementa DocumentRepository sobre PostgreSQL.
type DocumentRepo struct {
	db Querier
}

// NewDocumentRepository construye el repositorio.
func NewDocumentRepository(db Querier) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(doc *entity.GeneratedDocument) error {
	const q = `
		INSERT INTO generated_documents
			(id, project_id, case_id, simulation_id, document_type_code, folio, issue_date,
			 receiver_rut, receiver_name, receiver_giro, receiver_address, receiver_commune,
			 subtotal_taxable, subtotal_exempt, discount_amount, tax_amount, total_amount,
			 xml_dte, ted_xml, barcode, xml_signed,
			 track_id, sii_status, status, error_message,
			 created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			 $17, $18, $19, $20, $21, $22, $23, $24, $25, now(), now())`
	_, err := r.db.Exec(context.Background(), q,
		doc.ID, doc.ProjectID, nullIfEmpty(doc.CaseID), nullIfEmpty(doc.SimulationID),
		doc.DocumentTypeCode, doc.Folio, doc.IssueDate,
		doc.ReceiverRUT, doc.ReceiverName, doc.ReceiverGiro, doc.ReceiverAddress, doc.ReceiverCommune,
		doc.SubtotalTaxable, doc.SubtotalExempt, doc.DiscountAmount, doc.TaxAmount, doc.TotalAmount,
		doc.XMLDTE, doc.TEDXML, doc.Barcode, doc.XMLSigned,
		nullIfEmpty(doc.TrackID), nullIfEmpty(doc.SiiStatus), doc.Status, nullIfEmpty(doc.ErrorMessage),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert generated_document: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert generated_document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) Update(doc *entity.GeneratedDocument) error {
	const q = `
		UPDATE generated_documents
		SET folio = $2, issue_date = $3,
		    receiver_rut = $4, receiver_name = $5, receiver_giro = $6,
		    receiver_address = $7, receiver_commune = $8,
		    subtotal_taxable = $9, subtotal_exempt = $10, discount_amount = $11,
		    tax_amount = $12, total_amount = $13,
		    xml_dte = $14, ted_xml = $15, barcode = $16, xml_signed = $17,
		    track_id = $18, sii_status = $19, status = $20, error_message = $21,
		    updated_at = now()
		WHERE id = $1`
	_, err := r.db.Exec(context.Background(), q,
		doc.ID, doc.Folio, doc.IssueDate,
		doc.ReceiverRUT, doc.ReceiverName, doc.ReceiverGiro,
		doc.ReceiverAddress, doc.ReceiverCommune,
		doc.SubtotalTaxable, doc.SubtotalExempt, doc.DiscountAmount,
		doc.TaxAmount, doc.TotalAmount,
		doc.XMLDTE, doc.TEDXML, doc.Barcode, doc.XMLSigned,
		nullIfEmpty(doc.TrackID), nullIfEmpty(doc.SiiStatus), doc.Status, nullIfEmpty(doc.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("update generated_document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) GetByID(id string) (*entity.GeneratedDocument, error) {
	doc, err := scanDocument(r.db.QueryRow(context.Background(), selectDocument+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get generated_document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepo) GetByCaseID(caseID string) (*entity.GeneratedDocument, error) {
	doc, err := scanDocument(r.db.QueryRow(context.Background(), selectDocument+` WHERE case_id = $1`, caseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // el caso aún no genera documento
		}
		return nil, fmt.Errorf("get generated_document by case: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepo) ListByProject(projectID string) ([]*entity.GeneratedDocument, error) {
	rows, err := r.db.Query(context.Background(),
		selectDocument+` WHERE project_id = $1 ORDER BY document_type_code, folio`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list generated_documents: %w", err)
	}
	return collectDocuments(rows)
}

func (r *DocumentRepo) ListBySimulation(simulationID string) ([]*entity.GeneratedDocument, error) {
	rows, err := r.db.Query(context.Background(),
		selectDocument+` WHERE simulation_id = $1 ORDER BY document_type_code, folio`, simulationID)
	if err != nil {
		return nil, fmt.Errorf("list generated_documents by simulation: %w", err)
	}
	return collectDocuments(rows)
}

func (r *DocumentRepo) ListByIDs(ids []string) ([]*entity.GeneratedDocument, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(context.Background(),
		selectDocument+` WHERE id = ANY($1) ORDER BY document_type_code, folio`, ids)
	if err != nil {
		return nil, fmt.Errorf("list generated_documents by ids: %w", err)
	}
	return collectDocuments(rows)
}

func (r *DocumentRepo) Delete(id string) error {
	_, err := r.db.Exec(context.Background(), `DELETE FROM generated_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete generated_document: %w", err)
	}
	return nil
}

const selectDocument = `
	SELECT id, project_id, COALESCE(case_id::text, ''), COALESCE(simulation_id::text, ''),
	       document_type_code, folio, issue_date,
	       receiver_rut, receiver_name, receiver_giro, receiver_address, receiver_commune,
	       subtotal_taxable, subtotal_exempt, discount_amount, tax_amount, total_amount,
	       xml_dte, ted_xml, barcode, xml_signed,
	       COALESCE(track_id, ''), COALESCE(sii_status, ''), status, COALESCE(error_message, ''),
	       created_at, updated_at
	FROM generated_documents`

func collectDocuments(rows pgx.Rows) ([]*entity.GeneratedDocument, error) {
	defer rows.Close()
	var list []*entity.GeneratedDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generated_document: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

func scanDocument(row pgxScanner) (*entity.GeneratedDocument, error) {
	var d entity.GeneratedDocument
	err := row.Scan(
		&d.ID, &d.ProjectID, &d.CaseID, &d.SimulationID, &d.DocumentTypeCode, &d.Folio, &d.IssueDate,
		&d.ReceiverRUT, &d.ReceiverName, &d.ReceiverGiro, &d.ReceiverAddress, &d.ReceiverCommune,
		&d.SubtotalTaxable, &d.SubtotalExempt, &d.DiscountAmount, &d.TaxAmount, &d.TotalAmount,
		&d.XMLDTE, &d.TEDXML, &d.Barcode, &d.XMLSigned,
		&d.TrackID, &d.SiiStatus, &d.Status, &d.ErrorMessage,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
