package certification

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	domainsii "github.com/tu-usuario/certificacion-sii/internal/domain/sii"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// AssembleInput insumos para armar un documento: el caso, su referencia
// resuelta (NC/ND), la identidad del cliente y el folio ya reservado.
type AssembleInput struct {
	Case *entity.CertificationCase

	// ReferenceCase y ReferenceDocument resueltos por el llamador cuando el
	// caso referencia a otro (notas de crédito/débito).
	ReferenceCase     *entity.CertificationCase
	ReferenceDocument *entity.GeneratedDocument

	Client    *entity.ClientInfo
	Folio     int
	IssueDate time.Time
}

// DocumentAssembler transforma un caso del set de pruebas en el modelo
// estructurado del DTE (encabezado, detalle, referencias y totales).
type DocumentAssembler struct {
	log *logger.Logger
}

// NewDocumentAssembler crea el ensamblador.
func NewDocumentAssembler(log *logger.Logger) *DocumentAssembler {
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentAssembler{log: log}
}

// Assemble arma el DocumentData del caso y devuelve además los montos
// calculados para persistir en el documento generado.
func (a *DocumentAssembler) Assemble(in AssembleInput) (infrasii.DocumentData, domainsii.Amounts, error) {
	var zero infrasii.DocumentData

	c := in.Case
	if c == nil {
		return zero, domainsii.Amounts{}, fmt.Errorf("ensamblador: %w: caso nulo", domain.ErrInvalidInput)
	}
	if in.Client == nil {
		return zero, domainsii.Amounts{}, fmt.Errorf("ensamblador: %w", domain.ErrMissingClientConfig)
	}
	if _, err := strconv.Atoi(c.DocumentTypeCode); err != nil {
		return zero, domainsii.Amounts{}, fmt.Errorf(
			"ensamblador: %w: tipo de documento %q no es numérico", domain.ErrInvalidInput, c.DocumentTypeCode)
	}
	if in.Folio <= 0 {
		return zero, domainsii.Amounts{}, fmt.Errorf("ensamblador: %w: folio %d", domain.ErrInvalidInput, in.Folio)
	}

	lines := c.Lines
	if len(lines) == 0 {
		synthesized, err := a.synthesizeLines(c)
		if err != nil {
			return zero, domainsii.Amounts{}, err
		}
		lines = synthesized
	}

	amounts := domainsii.ComputeCaseAmounts(lines, c.GlobalDiscountPct)

	detalle := make([]infrasii.DetailLine, 0, len(lines))
	for i, line := range lines {
		detalle = append(detalle, infrasii.DetailLine{
			NroLinDet:      i + 1,
			Nombre:         line.Description,
			Quantity:       line.Quantity.Round(6),
			UnitPrice:      line.UnitPrice.Round(6),
			DescuentoMonto: domainsii.LineDiscountAmount(line).IntPart(),
			Exempt:         line.Exempt,
			MontoItem:      domainsii.LineSubtotal(line).IntPart(),
			OmitQtyPrice:   line.Quantity.IsZero() && line.UnitPrice.IsZero(),
		})
	}

	referencias, err := a.buildReferences(in, amounts)
	if err != nil {
		return zero, domainsii.Amounts{}, err
	}

	var discount *infrasii.GlobalDiscount
	if c.GlobalDiscountPct.IsPositive() {
		discount = &infrasii.GlobalDiscount{Pct: c.GlobalDiscountPct}
	}

	taxable := !pkgsii.IsExemptType(c.DocumentTypeCode) && amounts.SubtotalTaxable.IsPositive()

	data := infrasii.DocumentData{
		TipoDTE:      c.DocumentTypeCode,
		Folio:        in.Folio,
		FechaEmision: in.IssueDate,
		Emisor:       emitterParty(in.Client),
		Receptor:     siiReceiver(),
		Detalle:      detalle,
		DscRcgGlobal: discount,
		Referencias:  referencias,
		Totales: infrasii.Totals{
			MntNeto:  amounts.SubtotalTaxable.IntPart(),
			MntExe:   amounts.SubtotalExempt.IntPart(),
			IVA:      amounts.TaxAmount.IntPart(),
			MntTotal: amounts.TotalAmount.IntPart(),
			Taxable:  taxable,
		},
	}

	a.log.Debug().
		Str("caso", c.CaseNumber).
		Str("tipo", c.DocumentTypeCode).
		Int("folio", in.Folio).
		Str("total", amounts.TotalAmount.String()).
		Msg("documento ensamblado")

	return data, amounts, nil
}

// synthesizeLines cubre los casos sin líneas, permitidos sólo en notas
// administrativas. Con referencia y total 0 la nota lleva una única línea
// sólo con nombre y monto 0 (sin cantidad ni precio); sin referencia se
// sintetiza una línea de $1.000 para que el documento no quede vacío.
func (a *DocumentAssembler) synthesizeLines(c *entity.CertificationCase) ([]entity.CaseLine, error) {
	if !pkgsii.IsNoteType(c.DocumentTypeCode) {
		return nil, fmt.Errorf(
			"ensamblador: %w: el caso %s no tiene líneas de detalle", domain.ErrInvalidInput, c.CaseNumber)
	}

	name := c.ReferenceReason
	if name == "" {
		name = c.Name
	}

	if c.ReferenceCaseID != nil {
		// Corrección administrativa: monto 0, sin QtyItem/PrcItem.
		return []entity.CaseLine{{
			Sequence:    1,
			Description: name,
			Quantity:    decimal.Zero,
			UnitPrice:   decimal.Zero,
		}}, nil
	}

	return []entity.CaseLine{{
		Sequence:    1,
		Description: name,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(1000),
	}}, nil
}

// buildReferences arma el bloque de referencias. La línea 1 es obligatoria
// en todo documento de certificación: autorreferencia al caso del set
// (TpoDocRef SET). Las notas agregan la referencia al documento corregido.
func (a *DocumentAssembler) buildReferences(in AssembleInput, amounts domainsii.Amounts) ([]infrasii.Reference, error) {
	c := in.Case

	refs := []infrasii.Reference{{
		NroLinRef: 1,
		TpoDocRef: pkgsii.TpoDocRefSET,
		FolioRef:  strconv.Itoa(in.Folio),
		RazonRef:  fmt.Sprintf("CASO %s", c.CaseNumber),
	}}

	if c.ReferenceCaseID == nil {
		return refs, nil
	}
	if in.ReferenceCase == nil || in.ReferenceDocument == nil {
		return nil, fmt.Errorf(
			"ensamblador: %w: el caso %s referencia a otro cuyo documento aún no se genera",
			domain.ErrConflict, c.CaseNumber)
	}

	refs = append(refs, infrasii.Reference{
		NroLinRef: 2,
		TpoDocRef: in.ReferenceDocument.DocumentTypeCode,
		FolioRef:  strconv.Itoa(in.ReferenceDocument.Folio),
		FchRef:    in.ReferenceDocument.IssueDate,
		CodRef:    domainsii.DeriveCodRef(c.ReferenceReason, amounts.TotalAmount),
		RazonRef:  c.ReferenceReason,
	})
	return refs, nil
}

// emitterParty identidad del emisor desde la configuración del cliente.
func emitterParty(client *entity.ClientInfo) infrasii.Party {
	acteco := client.Acteco
	if acteco == "" {
		acteco = pkgsii.ActecoDefault
	}
	return infrasii.Party{
		RUT:         client.RUT,
		RazonSocial: client.RazonSocial,
		Giro:        client.Giro,
		Acteco:      acteco,
		Address:     client.Address,
		Commune:     client.Commune,
		City:        client.City,
	}
}

// siiReceiver receptor por defecto de los documentos del set: el propio SII.
func siiReceiver() infrasii.Party {
	return infrasii.Party{
		RUT:         pkgsii.SiiRUT,
		RazonSocial: pkgsii.SiiRazonSocial,
		Giro:        pkgsii.SiiGiro,
		Address:     pkgsii.SiiAddress,
		Commune:     pkgsii.SiiCommune,
	}
}
