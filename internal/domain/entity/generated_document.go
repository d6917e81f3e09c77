package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un documento generado.
const (
	DocumentStatusDraft     = "draft"
	DocumentStatusGenerated = "generated"
	DocumentStatusValidated = "validated"
	DocumentStatusSigned    = "signed"
	DocumentStatusSent      = "sent"
	DocumentStatusAccepted  = "accepted"
	DocumentStatusRejected  = "rejected"
)

// GeneratedDocument una instancia de DTE: tipo, folio, receptor, montos y los
// artefactos XML producidos por el pipeline (XML sin firma, TED, código de
// barras, XML firmado) más el seguimiento del envío al SII.
type GeneratedDocument struct {
	ID        string
	ProjectID string

	// CaseID o SimulationID, nunca ambos: el documento nace de un caso del
	// set oficial o de una simulación.
	CaseID       string
	SimulationID string

	DocumentTypeCode string
	Folio            int
	IssueDate        time.Time

	// Snapshot del receptor al momento de generar.
	ReceiverRUT     string
	ReceiverName    string
	ReceiverGiro    string
	ReceiverAddress string
	ReceiverCommune string

	SubtotalTaxable decimal.Decimal
	SubtotalExempt  decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal

	XMLDTE    []byte // XML sin firmar, con TED incluido
	TEDXML    []byte // <TED>...</TED><TmstFirma>...</TmstFirma>
	Barcode   []byte // PDF417 del TED (PNG)
	XMLSigned []byte

	TrackID      string
	SiiStatus    string
	Status       string
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClearArtifacts borra los artefactos generados para volver a borrador
// (el folio asignado se conserva: ya fue consumido del CAF).
func (d *GeneratedDocument) ClearArtifacts() {
	d.XMLDTE = nil
	d.TEDXML = nil
	d.Barcode = nil
	d.XMLSigned = nil
	d.TrackID = ""
	d.SiiStatus = ""
	d.ErrorMessage = ""
	d.Status = DocumentStatusDraft
}
