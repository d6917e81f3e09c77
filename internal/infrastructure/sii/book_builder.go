// Construcción del libro de compra/venta mensual (LibroCompraVenta).

package sii

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// Códigos de "otros impuestos" del libro de compras.
const (
	CodImpRetencionTotal   = 15
	CodImpRetencionParcial = 16

	// CodIVANoRec clasificación por defecto del IVA no recuperable
	// (compras que no dan derecho a crédito).
	CodIVANoRec = 4
)

// BookData datos para armar el libro de un período.
type BookData struct {
	// RutEmisorLibro empresa certificada dueña del libro. No confundir con
	// RutEnvia, que es el RUT del titular del certificado que firma.
	RutEmisorLibro    string
	RutEnvia          string
	Period            string // YYYY-MM
	OperationType     string // COMPRA | VENTA
	FolioNotificacion int
	FchResol          time.Time
	NroResol          int
	TmstFirma         time.Time
	Lines             []entity.BookLine
}

// EnvioLibroReferenceID identificador del EnvioLibro referenciado por la firma.
const EnvioLibroReferenceID = "LibroCV"

// BookBuilder arma el XML <LibroCompraVenta> sin firmar.
type BookBuilder struct {
	log *logger.Logger

	// fctProp factor de proporcionalidad para el crédito de IVA uso común.
	fctProp decimal.Decimal
}

// NewBookBuilder crea el builder con el factor de proporcionalidad vigente.
func NewBookBuilder(log *logger.Logger, fctProp float64) *BookBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &BookBuilder{log: log, fctProp: decimal.NewFromFloat(fctProp)}
}

// Build genera el libro completo: carátula, resumen por tipo de documento y
// el detalle línea a línea.
func (b *BookBuilder) Build(data BookData) (string, error) {
	if data.Period == "" {
		return "", fmt.Errorf("libro: falta el período tributario")
	}
	if data.OperationType != entity.BookOperationCompra && data.OperationType != entity.BookOperationVenta {
		return "", fmt.Errorf("libro: tipo de operación inválido: %q", data.OperationType)
	}
	if len(data.Lines) == 0 {
		return "", fmt.Errorf("libro: el período %s no tiene líneas", data.Period)
	}

	var sb strings.Builder
	sb.WriteString(`<LibroCompraVenta xmlns="` + NamespaceSiiDte + `" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="http://www.sii.cl/SiiDte LibroCV_v10.xsd" version="1.0">`)
	sb.WriteString(`<EnvioLibro ID="` + EnvioLibroReferenceID + `">`)

	b.writeCaratula(&sb, data)
	b.writeResumen(&sb, data.Lines)
	for _, line := range data.Lines {
		b.writeDetalle(&sb, line)
	}
	writeTag(&sb, "TmstFirma", formatTimestamp(data.TmstFirma))

	sb.WriteString(`</EnvioLibro>`)
	sb.WriteString(`</LibroCompraVenta>`)

	b.log.Debug().
		Str("periodo", data.Period).
		Str("operacion", data.OperationType).
		Int("lineas", len(data.Lines)).
		Msg("libro construido")

	return sb.String(), nil
}

func (b *BookBuilder) writeCaratula(sb *strings.Builder, data BookData) {
	sb.WriteString(`<Caratula>`)
	writeTag(sb, "RutEmisorLibro", data.RutEmisorLibro)
	writeTag(sb, "RutEnvia", data.RutEnvia)
	writeTag(sb, "PeriodoTributario", data.Period)
	writeTag(sb, "FchResol", formatDate(data.FchResol))
	writeTag(sb, "NroResol", fmt.Sprintf("%d", data.NroResol))
	writeTag(sb, "TipoOperacion", data.OperationType)
	writeTag(sb, "TipoLibro", "MENSUAL")
	writeTag(sb, "TipoEnvio", "TOTAL")
	if data.FolioNotificacion > 0 {
		writeTag(sb, "FolioNotificacion", fmt.Sprintf("%d", data.FolioNotificacion))
	}
	sb.WriteString(`</Caratula>`)
}

// typeSummary acumulado de un tipo de documento dentro del período.
type typeSummary struct {
	tipo string

	docs        int
	exento      decimal.Decimal
	neto        decimal.Decimal
	iva         decimal.Decimal
	ivaNoRec    decimal.Decimal
	ivaUsoComun decimal.Decimal
	retTotal    decimal.Decimal
	retParcial  decimal.Decimal
	total       decimal.Decimal
}

func (b *BookBuilder) writeResumen(sb *strings.Builder, lines []entity.BookLine) {
	byType := map[string]*typeSummary{}
	for _, line := range lines {
		sum, ok := byType[line.DocumentTypeCode]
		if !ok {
			sum = &typeSummary{tipo: line.DocumentTypeCode}
			byType[line.DocumentTypeCode] = sum
		}
		sum.docs++
		sum.exento = sum.exento.Add(line.MntExento)
		sum.neto = sum.neto.Add(line.MntNeto)
		sum.iva = sum.iva.Add(reportedIVA(line))
		sum.ivaNoRec = sum.ivaNoRec.Add(line.IVANoRecuperable)
		sum.ivaUsoComun = sum.ivaUsoComun.Add(line.IVAUsoComun)
		sum.retTotal = sum.retTotal.Add(line.IVARetenidoTotal)
		sum.retParcial = sum.retParcial.Add(line.IVARetenidoParcial)
		sum.total = sum.total.Add(line.MntTotal)
	}

	tipos := make([]string, 0, len(byType))
	for tipo := range byType {
		tipos = append(tipos, tipo)
	}
	sort.Strings(tipos)

	sb.WriteString(`<ResumenPeriodo>`)
	for _, tipo := range tipos {
		sum := byType[tipo]
		sb.WriteString(`<TotalesPeriodo>`)
		writeTag(sb, "TpoDoc", sum.tipo)
		writeTag(sb, "TotDoc", fmt.Sprintf("%d", sum.docs))
		writeIntTag(sb, "TotMntExe", sum.exento)
		writeIntTag(sb, "TotMntNeto", sum.neto)
		writeIntTag(sb, "TotMntIVA", sum.iva)
		if sum.ivaNoRec.IsPositive() {
			sb.WriteString(`<TotIVANoRec>`)
			writeTag(sb, "CodIVANoRec", fmt.Sprintf("%d", CodIVANoRec))
			writeIntTag(sb, "TotOpIVANoRec", decimal.NewFromInt(int64(sum.docs)))
			writeIntTag(sb, "TotMntIVANoRec", sum.ivaNoRec)
			sb.WriteString(`</TotIVANoRec>`)
		}
		if sum.ivaUsoComun.IsPositive() {
			writeIntTag(sb, "TotIVAUsoComun", sum.ivaUsoComun)
			// El crédito recuperable es la proporción del IVA uso común
			// determinada por el factor del período.
			writeIntTag(sb, "TotCredIVAUsoComun", sum.ivaUsoComun.Mul(b.fctProp))
		}
		b.writeOtrosImpuestosResumen(sb, sum)
		writeIntTag(sb, "TotMntTotal", sum.total)
		sb.WriteString(`</TotalesPeriodo>`)
	}
	sb.WriteString(`</ResumenPeriodo>`)
}

func (b *BookBuilder) writeOtrosImpuestosResumen(sb *strings.Builder, sum *typeSummary) {
	write := func(code int, amount decimal.Decimal) {
		if !amount.IsPositive() {
			return
		}
		sb.WriteString(`<TotOtrosImp>`)
		writeTag(sb, "CodImp", fmt.Sprintf("%d", code))
		writeIntTag(sb, "TotMntImp", amount)
		sb.WriteString(`</TotOtrosImp>`)
	}
	write(CodImpRetencionTotal, sum.retTotal)
	write(CodImpRetencionParcial, sum.retParcial)
}

func (b *BookBuilder) writeDetalle(sb *strings.Builder, line entity.BookLine) {
	sb.WriteString(`<Detalle>`)
	writeTag(sb, "TpoDoc", line.DocumentTypeCode)
	writeTag(sb, "NroDoc", fmt.Sprintf("%d", line.Folio))
	writeTag(sb, "FchDoc", formatDate(line.DocumentDate))
	writeTag(sb, "RUTDoc", line.PartnerRUT)
	writeTag(sb, "RznSoc", truncate(line.PartnerName, pkgsii.MaxRznSocLen))
	writeIntTag(sb, "MntExe", line.MntExento)
	writeIntTag(sb, "MntNeto", line.MntNeto)
	writeIntTag(sb, "MntIVA", reportedIVA(line))
	if line.IVANoRecuperable.IsPositive() {
		sb.WriteString(`<IVANoRec>`)
		writeTag(sb, "CodIVANoRec", fmt.Sprintf("%d", CodIVANoRec))
		writeIntTag(sb, "MntIVANoRec", line.IVANoRecuperable)
		sb.WriteString(`</IVANoRec>`)
	}
	if line.IVAUsoComun.IsPositive() {
		writeIntTag(sb, "IVAUsoComun", line.IVAUsoComun)
	}
	b.writeOtroImpuesto(sb, CodImpRetencionTotal, line.IVARetenidoTotal)
	b.writeOtroImpuesto(sb, CodImpRetencionParcial, line.IVARetenidoParcial)
	writeIntTag(sb, "MntTotal", line.MntTotal)
	sb.WriteString(`</Detalle>`)
}

func (b *BookBuilder) writeOtroImpuesto(sb *strings.Builder, code int, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	sb.WriteString(`<OtrosImp>`)
	writeTag(sb, "CodImp", fmt.Sprintf("%d", code))
	writeTag(sb, "TasaImp", fmt.Sprintf("%d", pkgsii.TasaIVA))
	writeIntTag(sb, "MntImp", amount)
	sb.WriteString(`</OtrosImp>`)
}

// reportedIVA aplica la regla del libro de compras: si la línea trae IVA no
// recuperable o de uso común, el MntIVA declarado es 0 y el impuesto viaja
// en sus campos dedicados.
func reportedIVA(line entity.BookLine) decimal.Decimal {
	if line.IVANoRecuperable.IsPositive() || line.IVAUsoComun.IsPositive() {
		return decimal.Zero
	}
	return line.MntIVA
}

func writeIntTag(sb *strings.Builder, tag string, amount decimal.Decimal) {
	writeTag(sb, tag, fmt.Sprintf("%d", amount.Round(0).IntPart()))
}
