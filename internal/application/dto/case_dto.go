package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// CaseLineRequest una línea de detalle de un caso.
type CaseLineRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Exempt      bool            `json:"exempt"`
}

// CaseRequest entrada para crear o reemplazar un caso del set.
type CaseRequest struct {
	CaseNumber        string            `json:"case_number" validate:"required"`
	Name              string            `json:"name"`
	DocumentTypeCode  string            `json:"document_type_code" validate:"required"`
	ReferenceCaseID   *string           `json:"reference_case_id"`
	ReferenceReason   string            `json:"reference_reason"`
	GlobalDiscountPct decimal.Decimal   `json:"global_discount_pct"`
	Lines             []CaseLineRequest `json:"lines"`
}

// ToEntity convierte la petición a entidad.
func (r CaseRequest) ToEntity(projectID string) *entity.CertificationCase {
	c := &entity.CertificationCase{
		ProjectID:         projectID,
		CaseNumber:        r.CaseNumber,
		Name:              r.Name,
		DocumentTypeCode:  r.DocumentTypeCode,
		ReferenceCaseID:   r.ReferenceCaseID,
		ReferenceReason:   r.ReferenceReason,
		GlobalDiscountPct: r.GlobalDiscountPct,
	}
	for _, line := range r.Lines {
		c.Lines = append(c.Lines, entity.CaseLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			DiscountPct: line.DiscountPct,
			Exempt:      line.Exempt,
		})
	}
	return c
}

// CaseLineResponse salida de una línea de caso.
type CaseLineResponse struct {
	ID          string          `json:"id"`
	Sequence    int             `json:"sequence"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Exempt      bool            `json:"exempt"`
}

// CaseResponse salida de un caso.
type CaseResponse struct {
	ID                string             `json:"id"`
	ProjectID         string             `json:"project_id"`
	CaseNumber        string             `json:"case_number"`
	Name              string             `json:"name"`
	DocumentTypeCode  string             `json:"document_type_code"`
	ReferenceCaseID   *string            `json:"reference_case_id,omitempty"`
	ReferenceReason   string             `json:"reference_reason,omitempty"`
	GlobalDiscountPct decimal.Decimal    `json:"global_discount_pct"`
	Status            string             `json:"status"`
	Lines             []CaseLineResponse `json:"lines"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// ToCaseResponse convierte la entidad.
func ToCaseResponse(c *entity.CertificationCase) CaseResponse {
	resp := CaseResponse{
		ID:                c.ID,
		ProjectID:         c.ProjectID,
		CaseNumber:        c.CaseNumber,
		Name:              c.Name,
		DocumentTypeCode:  c.DocumentTypeCode,
		ReferenceCaseID:   c.ReferenceCaseID,
		ReferenceReason:   c.ReferenceReason,
		GlobalDiscountPct: c.GlobalDiscountPct,
		Status:            c.Status,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	for _, line := range c.Lines {
		resp.Lines = append(resp.Lines, CaseLineResponse{
			ID:          line.ID,
			Sequence:    line.Sequence,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			DiscountPct: line.DiscountPct,
			Exempt:      line.Exempt,
		})
	}
	return resp
}
