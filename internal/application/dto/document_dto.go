package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// DocumentResponse salida de un documento generado. Los XML y el código de
// barras se exponen por endpoints de descarga dedicados, no acá.
type DocumentResponse struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	CaseID       string `json:"case_id,omitempty"`
	SimulationID string `json:"simulation_id,omitempty"`

	DocumentTypeCode string    `json:"document_type_code"`
	Folio            int       `json:"folio"`
	IssueDate        time.Time `json:"issue_date"`

	ReceiverRUT  string `json:"receiver_rut"`
	ReceiverName string `json:"receiver_name"`

	SubtotalTaxable decimal.Decimal `json:"subtotal_taxable"`
	SubtotalExempt  decimal.Decimal `json:"subtotal_exempt"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`

	Status       string `json:"status"`
	TrackID      string `json:"track_id,omitempty"`
	SiiStatus    string `json:"sii_status,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	HasXML    bool `json:"has_xml"`
	HasSigned bool `json:"has_signed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToDocumentResponse convierte la entidad.
func ToDocumentResponse(d *entity.GeneratedDocument) DocumentResponse {
	return DocumentResponse{
		ID:               d.ID,
		ProjectID:        d.ProjectID,
		CaseID:           d.CaseID,
		SimulationID:     d.SimulationID,
		DocumentTypeCode: d.DocumentTypeCode,
		Folio:            d.Folio,
		IssueDate:        d.IssueDate,
		ReceiverRUT:      d.ReceiverRUT,
		ReceiverName:     d.ReceiverName,
		SubtotalTaxable:  d.SubtotalTaxable,
		SubtotalExempt:   d.SubtotalExempt,
		DiscountAmount:   d.DiscountAmount,
		TaxAmount:        d.TaxAmount,
		TotalAmount:      d.TotalAmount,
		Status:           d.Status,
		TrackID:          d.TrackID,
		SiiStatus:        d.SiiStatus,
		ErrorMessage:     d.ErrorMessage,
		HasXML:           len(d.XMLDTE) > 0,
		HasSigned:        len(d.XMLSigned) > 0,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// ValidationReportResponse resultado de la validación de un documento.
type ValidationReportResponse struct {
	Valid    bool     `json:"valid"`
	Messages []string `json:"messages,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// BulkGenerateResponse resultado de la generación masiva: cuántos documentos
// salieron y el error por número de caso de los que fallaron.
type BulkGenerateResponse struct {
	Generated int               `json:"generated"`
	Errors    map[string]string `json:"errors,omitempty"`
}
