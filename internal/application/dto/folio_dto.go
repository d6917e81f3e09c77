package dto

import (
	"time"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// UploadCAFRequest entrada para cargar un CAF (contenido en base64).
type UploadCAFRequest struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content" validate:"required"`
}

// FolioAssignmentResponse salida de una asignación de folios.
type FolioAssignmentResponse struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	DocumentTypeCode string    `json:"document_type_code"`
	CAFFilename      string    `json:"caf_filename"`
	CAFRutEmisor     string    `json:"caf_rut_emisor"`
	FolioStart       int       `json:"folio_start"`
	FolioEnd         int       `json:"folio_end"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ToFolioAssignmentResponse convierte la entidad (el archivo CAF no viaja).
func ToFolioAssignmentResponse(a *entity.FolioAssignment) FolioAssignmentResponse {
	return FolioAssignmentResponse{
		ID:               a.ID,
		ProjectID:        a.ProjectID,
		DocumentTypeCode: a.DocumentTypeCode,
		CAFFilename:      a.CAFFilename,
		CAFRutEmisor:     a.CAFRutEmisor,
		FolioStart:       a.FolioStart,
		FolioEnd:         a.FolioEnd,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// UploadCAFResponse asignación creada más la advertencia de RUT si aplica.
type UploadCAFResponse struct {
	Assignment FolioAssignmentResponse `json:"assignment"`
	Warning    string                  `json:"warning,omitempty"`
}

// FolioStatsResponse estadísticas de uso de una asignación.
type FolioStatsResponse struct {
	FolioNext       int     `json:"folio_next"`
	FoliosTotal     int     `json:"folios_total"`
	FoliosUsed      int     `json:"folios_used"`
	FoliosAvailable int     `json:"folios_available"`
	UsagePercentage float64 `json:"usage_percentage"`
}

// ValidateRangeRequest simulación de un rango de folios contra los CAF.
type ValidateRangeRequest struct {
	DocumentTypeCode string `json:"document_type_code" validate:"required"`
	FolioStart       int    `json:"folio_start" validate:"required,min=1"`
	FolioEnd         int    `json:"folio_end" validate:"required,min=1"`
}
