package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un libro de compra/venta.
const (
	BookStatusDraft     = "draft"
	BookStatusGenerated = "generated"
	BookStatusSigned    = "signed"
	BookStatusValidated = "validated"
	BookStatusSent      = "sent"
	BookStatusAccepted  = "accepted"
	BookStatusRejected  = "rejected"
)

// Tipos de operación del libro.
const (
	BookOperationCompra = "COMPRA"
	BookOperationVenta  = "VENTA"
)

// Book libro mensual de compras o ventas (LibroCompraVenta/EnvioLibro).
type Book struct {
	ID        string
	ProjectID string

	// Period período tributario en formato YYYY-MM.
	Period            string
	OperationType     string
	FolioNotificacion int

	Status        string
	BookXML       []byte
	BookXMLSigned []byte

	TrackID   string
	SiiStatus string

	Lines []BookLine

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookLine una línea del libro: referencia a un documento generado (ventas)
// o entrada manual (compras) con sus desgloses de IVA específicos.
type BookLine struct {
	ID     string
	BookID string

	DocumentTypeCode string
	Folio            int
	DocumentDate     time.Time
	PartnerRUT       string
	PartnerName      string

	MntExento decimal.Decimal
	MntNeto   decimal.Decimal
	MntIVA    decimal.Decimal
	MntTotal  decimal.Decimal

	// Desgloses específicos del libro de compras.
	IVANoRecuperable   decimal.Decimal
	IVAUsoComun        decimal.Decimal
	IVARetenidoTotal   decimal.Decimal
	IVARetenidoParcial decimal.Decimal

	// Referencia débil al documento generado (ventas).
	DocumentID *string
}

// ClearArtifacts borra XML, firma y seguimiento para volver a borrador.
func (b *Book) ClearArtifacts() {
	b.BookXML = nil
	b.BookXMLSigned = nil
	b.TrackID = ""
	b.SiiStatus = ""
	b.Status = BookStatusDraft
}
