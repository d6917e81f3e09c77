package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// CreateBookRequest entrada para abrir un libro mensual.
type CreateBookRequest struct {
	Period            string `json:"period" validate:"required"`
	OperationType     string `json:"operation_type" validate:"required,oneof=COMPRA VENTA"`
	FolioNotificacion int    `json:"folio_notificacion"`
}

// PurchaseLineRequest línea manual de un libro de compras.
type PurchaseLineRequest struct {
	DocumentTypeCode string    `json:"document_type_code" validate:"required"`
	Folio            int       `json:"folio" validate:"required,min=1"`
	DocumentDate     time.Time `json:"document_date"`
	PartnerRUT       string    `json:"partner_rut" validate:"required"`
	PartnerName      string    `json:"partner_name"`

	MntExento decimal.Decimal `json:"mnt_exento"`
	MntNeto   decimal.Decimal `json:"mnt_neto"`
	MntIVA    decimal.Decimal `json:"mnt_iva"`
	MntTotal  decimal.Decimal `json:"mnt_total"`

	IVANoRecuperable   decimal.Decimal `json:"iva_no_recuperable"`
	IVAUsoComun        decimal.Decimal `json:"iva_uso_comun"`
	IVARetenidoTotal   decimal.Decimal `json:"iva_retenido_total"`
	IVARetenidoParcial decimal.Decimal `json:"iva_retenido_parcial"`
}

// ToEntity convierte la petición a línea de libro.
func (r PurchaseLineRequest) ToEntity() entity.BookLine {
	return entity.BookLine{
		DocumentTypeCode:   r.DocumentTypeCode,
		Folio:              r.Folio,
		DocumentDate:       r.DocumentDate,
		PartnerRUT:         r.PartnerRUT,
		PartnerName:        r.PartnerName,
		MntExento:          r.MntExento,
		MntNeto:            r.MntNeto,
		MntIVA:             r.MntIVA,
		MntTotal:           r.MntTotal,
		IVANoRecuperable:   r.IVANoRecuperable,
		IVAUsoComun:        r.IVAUsoComun,
		IVARetenidoTotal:   r.IVARetenidoTotal,
		IVARetenidoParcial: r.IVARetenidoParcial,
	}
}

// BookLineResponse salida de una línea de libro.
type BookLineResponse struct {
	ID               string    `json:"id"`
	DocumentTypeCode string    `json:"document_type_code"`
	Folio            int       `json:"folio"`
	DocumentDate     time.Time `json:"document_date"`
	PartnerRUT       string    `json:"partner_rut"`
	PartnerName      string    `json:"partner_name"`

	MntExento decimal.Decimal `json:"mnt_exento"`
	MntNeto   decimal.Decimal `json:"mnt_neto"`
	MntIVA    decimal.Decimal `json:"mnt_iva"`
	MntTotal  decimal.Decimal `json:"mnt_total"`

	DocumentID *string `json:"document_id,omitempty"`
}

// BookResponse salida de un libro.
type BookResponse struct {
	ID                string `json:"id"`
	ProjectID         string `json:"project_id"`
	Period            string `json:"period"`
	OperationType     string `json:"operation_type"`
	FolioNotificacion int    `json:"folio_notificacion"`
	Status            string `json:"status"`

	TrackID   string `json:"track_id,omitempty"`
	SiiStatus string `json:"sii_status,omitempty"`
	HasXML    bool   `json:"has_xml"`
	HasSigned bool   `json:"has_signed"`

	Lines []BookLineResponse `json:"lines"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToBookResponse convierte la entidad.
func ToBookResponse(b *entity.Book) BookResponse {
	resp := BookResponse{
		ID:                b.ID,
		ProjectID:         b.ProjectID,
		Period:            b.Period,
		OperationType:     b.OperationType,
		FolioNotificacion: b.FolioNotificacion,
		Status:            b.Status,
		TrackID:           b.TrackID,
		SiiStatus:         b.SiiStatus,
		HasXML:            len(b.BookXML) > 0,
		HasSigned:         len(b.BookXMLSigned) > 0,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
	for _, line := range b.Lines {
		resp.Lines = append(resp.Lines, BookLineResponse{
			ID:               line.ID,
			DocumentTypeCode: line.DocumentTypeCode,
			Folio:            line.Folio,
			DocumentDate:     line.DocumentDate,
			PartnerRUT:       line.PartnerRUT,
			PartnerName:      line.PartnerName,
			MntExento:        line.MntExento,
			MntNeto:          line.MntNeto,
			MntIVA:           line.MntIVA,
			MntTotal:         line.MntTotal,
			DocumentID:       line.DocumentID,
		})
	}
	return resp
}
