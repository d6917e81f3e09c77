// Package pdf implementa la representación impresa de un DTE según el
// formato de muestra exigido por el SII para la certificación.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón Social + Giro     │ ┌─────────────────────┐  │
//	│  Dirección / Comuna / Email      │ │ R.U.T.: 76354771-K  │  │
//	│                                  │ │ FACTURA ELECTRÓNICA │  │
//	│                                  │ │ N° 42               │  │
//	│                                  │ └─────────────────────┘  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RECEPTOR: Señor(es) / RUT / Giro / Dirección / Fecha        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Desc% | Valor          │
//	│  REFERENCIAS (NC/ND)                                         │
//	│  TOTALES: Exento / Neto / IVA 19% / TOTAL                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TED PDF417 + Timbre Electrónico SII + Res. + verificación   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorRed  = &props.Color{Red: 200, Green: 0, Blue: 0}
	colorGray = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// DTERenderer genera la representación impresa de un DTE usando Maroto v2.
type DTERenderer struct{}

// NewDTERenderer construye el renderer.
func NewDTERenderer() *DTERenderer { return &DTERenderer{} }

// Render genera el PDF y devuelve sus bytes. El documento debe venir ya
// generado (con timbre): el código de barras del TED se incrusta tal cual.
func (r *DTERenderer) Render(
	doc *entity.GeneratedDocument,
	client *entity.ClientInfo,
	c *entity.CertificationCase,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(documentTypeName(doc.DocumentTypeCode), true).
		WithAuthor(client.RazonSocial, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, client))
	m.AddRows(line.NewRow(2))
	m.AddRows(receptorRows(doc)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(doc, c)...)

	if c != nil && c.ReferenceReason != "" {
		m.AddRows(referenceRows(c)...)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(totalsRow(doc))

	m.AddRows(line.NewRow(4))
	m.AddRows(tedRows(doc, client)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: datos del emisor a la izquierda y el recuadro rojo reglamentario
// (RUT + tipo de documento + folio) a la derecha.
func headerRow(doc *entity.GeneratedDocument, client *entity.ClientInfo) core.Row {
	return row.New(30).Add(
		col.New(7).Add(
			text.New(client.RazonSocial, props.Text{
				Style: fontstyle.Bold, Size: 12, Top: 1,
			}),
			text.New("Giro: "+nonEmpty(client.Giro, "—"), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
			text.New(fmt.Sprintf("%s, %s", nonEmpty(client.Address, "—"), nonEmpty(client.Commune, "—")), props.Text{
				Size: 8, Top: 14, Color: colorGray,
			}),
			text.New("Email: "+nonEmpty(client.Email, "—"), props.Text{
				Size: 8, Top: 19, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("R.U.T.: "+client.RUT, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Center,
				Color: colorRed, Top: 3,
			}),
			text.New(strings.ToUpper(documentTypeName(doc.DocumentTypeCode)), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Center,
				Color: colorRed, Top: 11,
			}),
			text.New(fmt.Sprintf("N° %d", doc.Folio), props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Center,
				Color: colorRed, Top: 18,
			}),
		).WithStyle(&props.Cell{
			BorderType:      border.Full,
			BorderColor:     colorRed,
			BorderThickness: 0.6,
		}),
	)
}

// receptorRows: datos del receptor y fecha de emisión.
func receptorRows(doc *entity.GeneratedDocument) []core.Row {
	return []core.Row{
		row.New(6).Add(
			col.New(8).Add(text.New("Señor(es): "+doc.ReceiverName, props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 1,
			})),
			col.New(4).Add(text.New("Fecha Emisión: "+doc.IssueDate.Format("02-01-2006"), props.Text{
				Size: 9, Align: align.Right, Top: 1,
			})),
		),
		row.New(5).Add(col.New(12).Add(text.New(
			fmt.Sprintf("R.U.T.: %s   |   Giro: %s", doc.ReceiverRUT, nonEmpty(doc.ReceiverGiro, "—")),
			props.Text{Size: 8, Top: 1, Color: colorGray},
		))),
		row.New(5).Add(col.New(12).Add(text.New(
			fmt.Sprintf("Dirección: %s, %s", nonEmpty(doc.ReceiverAddress, "—"), nonEmpty(doc.ReceiverCommune, "—")),
			props.Text{Size: 8, Top: 1, Color: colorGray},
		))),
	}
}

// tableHeaderRow: cabecera de la tabla de detalle.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 6, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Desc.%", 1, align.Center),
		h("Valor", 2, align.Right),
	)
}

// tableDetailRows: una fila por línea del caso. Una nota administrativa (sin
// líneas) muestra la glosa de la referencia como única línea de detalle.
func tableDetailRows(doc *entity.GeneratedDocument, c *entity.CertificationCase) []core.Row {
	if c == nil || len(c.Lines) == 0 {
		desc := "Corrección administrativa"
		if c != nil && c.ReferenceReason != "" {
			desc = c.ReferenceReason
		}
		return []core.Row{row.New(7).Add(
			col.New(1),
			col.New(11).Add(text.New(desc, props.Text{Size: 8, Top: 1, Left: 1})),
		)}
	}

	result := make([]core.Row, 0, len(c.Lines))
	for _, l := range c.Lines {
		valor := l.Quantity.Mul(l.UnitPrice)
		if l.DiscountPct.IsPositive() {
			valor = valor.Mul(decimal.NewFromInt(100).Sub(l.DiscountPct)).Div(decimal.NewFromInt(100))
		}
		desc := l.Description
		if l.Exempt {
			desc += " (EXENTO)"
		}
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				l.Quantity.StringFixed(0),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(6).Add(text.New(
				desc,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"$"+formatMoney(l.UnitPrice.StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				discountLabel(l.DiscountPct),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				"$"+formatMoney(valor.Round(0).StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// referenceRows: bloque de referencias de una nota de crédito/débito.
func referenceRows(c *entity.CertificationCase) []core.Row {
	return []core.Row{
		row.New(3),
		row.New(5).Add(col.New(12).Add(text.New("REFERENCIAS", props.Text{
			Style: fontstyle.Bold, Size: 8, Top: 1,
		}))),
		row.New(5).Add(col.New(12).Add(text.New(c.ReferenceReason, props.Text{
			Size: 8, Top: 1, Left: 2, Color: colorGray,
		}))),
	}
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(doc *entity.GeneratedDocument) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top,
		})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}

	labels := []core.Component{}
	values := []core.Component{}
	top := 1.0
	add := func(l string, v decimal.Decimal, always bool) {
		if !always && v.IsZero() {
			return
		}
		labels = append(labels, label(l, top))
		values = append(values, value("$"+formatMoney(v.Round(0).StringFixed(0)), top))
		top += 5
	}
	add("Exento:", doc.SubtotalExempt, false)
	add("Neto:", doc.SubtotalTaxable, true)
	add("Descuento:", doc.DiscountAmount, false)
	add(fmt.Sprintf("IVA (%d%%):", pkgsii.TasaIVA), doc.TaxAmount, true)

	labels = append(labels, text.New("TOTAL:", props.Text{
		Style: fontstyle.Bold, Size: 11, Align: align.Right, Right: 2, Top: top + 1,
	}))
	values = append(values, text.New("$"+formatMoney(doc.TotalAmount.Round(0).StringFixed(0)), props.Text{
		Style: fontstyle.Bold, Size: 11, Align: align.Right, Right: 1, Top: top + 1,
	}))

	return row.New(top + 10).Add(
		col.New(5),
		col.New(4).Add(labels...),
		col.New(3).Add(values...),
	)
}

// tedRows: código de barras PDF417 del timbre + leyendas reglamentarias.
func tedRows(doc *entity.GeneratedDocument, client *entity.ClientInfo) []core.Row {
	rows := []core.Row{}

	if len(doc.Barcode) > 0 {
		rows = append(rows, row.New(32).Add(
			col.New(2),
			col.New(8).Add(image.NewFromBytes(doc.Barcode, extension.Png, props.Rect{
				Percent: 100,
				Center:  true,
			})),
			col.New(2),
		))
	}

	rows = append(rows, row.New(5).Add(col.New(12).Add(
		text.New("Timbre Electrónico SII", props.Text{
			Style: fontstyle.Bold, Size: 8, Align: align.Center, Top: 1,
		}),
	)))

	res := "Res. en trámite"
	if client.ResolutionNumber != "" {
		res = fmt.Sprintf("Res. N° %s de %s", client.ResolutionNumber,
			client.ResolutionDate.Format("02-01-2006"))
	}
	rows = append(rows, row.New(4).Add(col.New(12).Add(
		text.New(res, props.Text{Size: 7, Align: align.Center, Color: colorGray, Top: 0.5}),
	)))
	rows = append(rows, row.New(4).Add(col.New(12).Add(
		text.New("Verifique documento: www.sii.cl", props.Text{
			Size: 7, Align: align.Center, Color: colorGray, Top: 0.5,
		}),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func documentTypeName(code string) string {
	if name, ok := pkgsii.DocumentTypeNames[code]; ok {
		return name
	}
	return "Documento Tributario Electrónico"
}

func discountLabel(pct decimal.Decimal) string {
	if pct.IsZero() {
		return "—"
	}
	return pct.StringFixed(0) + "%"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatMoney(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	n := len(s)
	if n > 3 {
		buf := make([]byte, 0, n+n/3)
		for i, c := range []byte(s) {
			if i > 0 && (n-i)%3 == 0 {
				buf = append(buf, '.')
			}
			buf = append(buf, c)
		}
		s = string(buf)
	}
	if neg {
		return "-" + s
	}
	return s
}
