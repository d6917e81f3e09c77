// Construcción del XML de un DTE individual (sin firmar, con TED incluido).

package sii

import (
	"fmt"
	"strings"

	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// DTEBuilder renderiza el XML <DTE> a partir del modelo estructurado.
type DTEBuilder struct {
	log *logger.Logger
}

// NewDTEBuilder crea el builder.
func NewDTEBuilder(log *logger.Logger) *DTEBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &DTEBuilder{log: log}
}

func documentID(folio int, tipoDTE string) string {
	return fmt.Sprintf("F%dT%s", folio, tipoDTE)
}

// Build arma el XML del DTE con el TED ya generado incrustado al final del
// Documento. El resultado no lleva declaración XML: la agrega el firmador.
func (b *DTEBuilder) Build(data DocumentData, tedXML string) (string, error) {
	if data.TipoDTE == "" || data.Folio <= 0 {
		return "", fmt.Errorf("dte: tipo de documento o folio inválido")
	}
	if data.Emisor.RUT == "" {
		return "", fmt.Errorf("dte: falta el RUT del emisor")
	}
	if len(data.Detalle) == 0 {
		return "", fmt.Errorf("dte: el documento no tiene líneas de detalle")
	}

	var sb strings.Builder
	sb.WriteString(`<DTE xmlns="` + NamespaceSiiDte + `" version="1.0">`)
	sb.WriteString(fmt.Sprintf(`<Documento ID="%s">`, data.DocumentID()))

	b.writeEncabezado(&sb, data)
	for _, line := range data.Detalle {
		b.writeDetalle(&sb, line)
	}
	if data.DscRcgGlobal != nil {
		b.writeDscRcgGlobal(&sb, *data.DscRcgGlobal)
	}
	for _, ref := range data.Referencias {
		b.writeReferencia(&sb, ref)
	}

	sb.WriteString(tedXML)
	sb.WriteString(`</Documento>`)
	sb.WriteString(`</DTE>`)

	b.log.Debug().
		Str("tipo", data.TipoDTE).
		Int("folio", data.Folio).
		Msg("XML de DTE construido")

	return sb.String(), nil
}

func (b *DTEBuilder) writeEncabezado(sb *strings.Builder, data DocumentData) {
	sb.WriteString(`<Encabezado>`)

	sb.WriteString(`<IdDoc>`)
	writeTag(sb, "TipoDTE", data.TipoDTE)
	writeTag(sb, "Folio", fmt.Sprintf("%d", data.Folio))
	writeTag(sb, "FchEmis", formatDate(data.FechaEmision))
	venc := data.FechaVencimiento
	if venc.IsZero() {
		venc = data.FechaEmision
	}
	writeTag(sb, "FchVenc", formatDate(venc))
	sb.WriteString(`</IdDoc>`)

	sb.WriteString(`<Emisor>`)
	writeTag(sb, "RUTEmisor", data.Emisor.RUT)
	writeTag(sb, "RznSoc", data.Emisor.RazonSocial)
	writeTag(sb, "GiroEmis", truncate(data.Emisor.Giro, pkgsii.MaxGiroLen))
	acteco := data.Emisor.Acteco
	if acteco == "" {
		acteco = pkgsii.ActecoDefault
	}
	writeTag(sb, "Acteco", acteco)
	writeTag(sb, "DirOrigen", data.Emisor.Address)
	writeTag(sb, "CmnaOrigen", data.Emisor.Commune)
	sb.WriteString(`</Emisor>`)

	sb.WriteString(`<Receptor>`)
	writeTag(sb, "RUTRecep", data.Receptor.RUT)
	writeTag(sb, "RznSocRecep", data.Receptor.RazonSocial)
	writeTag(sb, "GiroRecep", data.Receptor.Giro)
	writeTag(sb, "DirRecep", data.Receptor.Address)
	writeTag(sb, "CmnaRecep", data.Receptor.Commune)
	sb.WriteString(`</Receptor>`)

	sb.WriteString(`<Totales>`)
	if data.Totales.MntNeto > 0 || data.Totales.Taxable {
		writeTag(sb, "MntNeto", fmt.Sprintf("%d", data.Totales.MntNeto))
	}
	if data.Totales.MntExe > 0 {
		writeTag(sb, "MntExe", fmt.Sprintf("%d", data.Totales.MntExe))
	}
	if data.Totales.Taxable {
		// TasaIVA se declara siempre en documentos afectos, incluso con IVA 0.
		writeTag(sb, "TasaIVA", fmt.Sprintf("%d", pkgsii.TasaIVA))
		writeTag(sb, "IVA", fmt.Sprintf("%d", data.Totales.IVA))
	}
	writeTag(sb, "MntTotal", fmt.Sprintf("%d", data.Totales.MntTotal))
	sb.WriteString(`</Totales>`)

	sb.WriteString(`</Encabezado>`)
}

func (b *DTEBuilder) writeDetalle(sb *strings.Builder, line DetailLine) {
	sb.WriteString(`<Detalle>`)
	writeTag(sb, "NroLinDet", fmt.Sprintf("%d", line.NroLinDet))
	writeTag(sb, "NmbItem", line.Nombre)
	writeTag(sb, "DscItem", line.Nombre)
	if !line.OmitQtyPrice {
		writeTag(sb, "QtyItem", line.Quantity.Round(6).String())
		writeTag(sb, "PrcItem", line.UnitPrice.Round(6).String())
	}
	if line.DescuentoMonto > 0 {
		writeTag(sb, "DescuentoMonto", fmt.Sprintf("%d", line.DescuentoMonto))
	}
	if line.Exempt {
		writeTag(sb, "IndExe", "1")
	}
	writeTag(sb, "MontoItem", fmt.Sprintf("%d", line.MontoItem))
	sb.WriteString(`</Detalle>`)
}

func (b *DTEBuilder) writeDscRcgGlobal(sb *strings.Builder, discount GlobalDiscount) {
	sb.WriteString(`<DscRcgGlobal>`)
	writeTag(sb, "NroLinDR", "1")
	writeTag(sb, "TpoMov", "D")
	writeTag(sb, "TpoValor", "%")
	writeTag(sb, "ValorDR", discount.Pct.Round(2).String())
	sb.WriteString(`</DscRcgGlobal>`)
}

func (b *DTEBuilder) writeReferencia(sb *strings.Builder, ref Reference) {
	sb.WriteString(`<Referencia>`)
	writeTag(sb, "NroLinRef", fmt.Sprintf("%d", ref.NroLinRef))
	writeTag(sb, "TpoDocRef", ref.TpoDocRef)
	writeTag(sb, "FolioRef", ref.FolioRef)
	if !ref.FchRef.IsZero() {
		writeTag(sb, "FchRef", formatDate(ref.FchRef))
	}
	if ref.CodRef > 0 {
		writeTag(sb, "CodRef", fmt.Sprintf("%d", ref.CodRef))
	}
	writeTag(sb, "RazonRef", ref.RazonRef)
	sb.WriteString(`</Referencia>`)
}

func writeTag(sb *strings.Builder, tag, value string) {
	sb.WriteString("<" + tag + ">")
	sb.WriteString(escapeXML(value))
	sb.WriteString("</" + tag + ">")
}
