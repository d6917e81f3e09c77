package dto

import (
	"time"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// CreateSimulationRequest entrada para crear una simulación. Los folios de
// inicio en 0 piden asignación automática.
type CreateSimulationRequest struct {
	Name     string    `json:"name" validate:"required"`
	DateFrom time.Time `json:"date_from" validate:"required"`
	DateTo   time.Time `json:"date_to" validate:"required"`

	TotalDocuments int `json:"total_documents" validate:"required,min=20,max=100"`
	NumInvoices    int `json:"num_invoices" validate:"required,min=1"`
	NumCreditNotes int `json:"num_credit_notes"`
	NumDebitNotes  int `json:"num_debit_notes"`

	StartFolioInvoice    int `json:"start_folio_invoice"`
	StartFolioCreditNote int `json:"start_folio_credit_note"`
	StartFolioDebitNote  int `json:"start_folio_debit_note"`
}

// SimulationResponse salida de una simulación.
type SimulationResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	DateFrom  time.Time `json:"date_from"`
	DateTo    time.Time `json:"date_to"`

	TotalDocuments int `json:"total_documents"`
	NumInvoices    int `json:"num_invoices"`
	NumCreditNotes int `json:"num_credit_notes"`
	NumDebitNotes  int `json:"num_debit_notes"`

	StartFolioInvoice    int `json:"start_folio_invoice"`
	StartFolioCreditNote int `json:"start_folio_credit_note"`
	StartFolioDebitNote  int `json:"start_folio_debit_note"`

	EnvelopeID   string `json:"envelope_id,omitempty"`
	TrackID      string `json:"track_id,omitempty"`
	SiiStatus    string `json:"sii_status,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToSimulationResponse convierte la entidad.
func ToSimulationResponse(s *entity.Simulation) SimulationResponse {
	envelopeID := ""
	if s.EnvelopeID != nil {
		envelopeID = *s.EnvelopeID
	}
	return SimulationResponse{
		ID:                   s.ID,
		ProjectID:            s.ProjectID,
		Name:                 s.Name,
		DateFrom:             s.DateFrom,
		DateTo:               s.DateTo,
		TotalDocuments:       s.TotalDocuments,
		NumInvoices:          s.NumInvoices,
		NumCreditNotes:       s.NumCreditNotes,
		NumDebitNotes:        s.NumDebitNotes,
		StartFolioInvoice:    s.StartFolioInvoice,
		StartFolioCreditNote: s.StartFolioCreditNote,
		StartFolioDebitNote:  s.StartFolioDebitNote,
		EnvelopeID:           envelopeID,
		TrackID:              s.TrackID,
		SiiStatus:            s.SiiStatus,
		Status:               s.Status,
		ErrorMessage:         s.ErrorMessage,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}
