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

var _ repository.SimulationRepository = (*SimulationRepo)(nil)

// SimulationRepo implementa SimulationRepository sobre PostgreSQL.
type SimulationRepo struct {
	db Querier
}

// NewSimulationRepository construye el repositorio.
func NewSimulationRepository(db Querier) *SimulationRepo {
	return &SimulationRepo{db: db}
}

func (r *SimulationRepo) Create(s *entity.Simulation) error {
	const q = `
		INSERT INTO simulations
			(id, project_id, name, date_from, date_to,
			 total_documents, num_invoices, num_credit_notes, num_debit_notes,
			 start_folio_invoice, start_folio_credit_note, start_folio_debit_note,
			 envelope_id, track_id, sii_status, status, error_message,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        now(), now())`
	_, err := r.db.Exec(context.Background(), q,
		s.ID, s.ProjectID, s.Name, s.DateFrom, s.DateTo,
		s.TotalDocuments, s.NumInvoices, s.NumCreditNotes, s.NumDebitNotes,
		s.StartFolioInvoice, s.StartFolioCreditNote, s.StartFolioDebitNote,
		s.EnvelopeID, nullIfEmpty(s.TrackID), nullIfEmpty(s.SiiStatus), s.Status,
		nullIfEmpty(s.ErrorMessage),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert simulation: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert simulation: %w", err)
	}
	return nil
}

func (r *SimulationRepo) Update(s *entity.Simulation) error {
	const q = `
		UPDATE simulations
		SET name = $2, date_from = $3, date_to = $4,
		    total_documents = $5, num_invoices = $6, num_credit_notes = $7, num_debit_notes = $8,
		    start_folio_invoice = $9, start_folio_credit_note = $10, start_folio_debit_note = $11,
		    envelope_id = $12, track_id = $13, sii_status = $14, status = $15, error_message = $16,
		    updated_at = now()
		WHERE id = $1`
	_, err := r.db.Exec(context.Background(), q,
		s.ID, s.Name, s.DateFrom, s.DateTo,
		s.TotalDocuments, s.NumInvoices, s.NumCreditNotes, s.NumDebitNotes,
		s.StartFolioInvoice, s.StartFolioCreditNote, s.StartFolioDebitNote,
		s.EnvelopeID, nullIfEmpty(s.TrackID), nullIfEmpty(s.SiiStatus), s.Status,
		nullIfEmpty(s.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("update simulation: %w", err)
	}
	return nil
}

func (r *SimulationRepo) GetByID(id string) (*entity.Simulation, error) {
	s, err := scanSimulation(r.db.QueryRow(context.Background(), selectSimulation+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("simulation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get simulation: %w", err)
	}
	return s, nil
}

func (r *SimulationRepo) ListByProject(projectID string) ([]*entity.Simulation, error) {
	rows, err := r.db.Query(context.Background(),
		selectSimulation+` WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list simulations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Simulation
	for rows.Next() {
		s, err := scanSimulation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *SimulationRepo) Delete(id string) error {
	_, err := r.db.Exec(context.Background(), `DELETE FROM simulations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete simulation: %w", err)
	}
	return nil
}

const selectSimulation = `
	SELECT id, project_id, name, date_from, date_to,
	       total_documents, num_invoices, num_credit_notes, num_debit_notes,
	       start_folio_invoice, start_folio_credit_note, start_folio_debit_note,
	       envelope_id, COALESCE(track_id, ''), COALESCE(sii_status, ''), status,
	       COALESCE(error_message, ''), created_at, updated_at
	FROM simulations`

func scanSimulation(row pgxScanner) (*entity.Simulation, error) {
	var s entity.Simulation
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.Name, &s.DateFrom, &s.DateTo,
		&s.TotalDocuments, &s.NumInvoices, &s.NumCreditNotes, &s.NumDebitNotes,
		&s.StartFolioInvoice, &s.StartFolioCreditNote, &s.StartFolioDebitNote,
		&s.EnvelopeID, &s.TrackID, &s.SiiStatus, &s.Status,
		&s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
