package certification

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
)

// Catálogos de la simulación: productos de servicios informáticos con su
// rango de precio, y las razones típicas de notas de crédito y débito.

type simulationProduct struct {
	Name     string
	PriceMin int64
	PriceMax int64
}

var simulationProducts = []simulationProduct{
	{"Servicio de Consultoría Empresarial", 500000, 2000000},
	{"Desarrollo de Software a Medida", 1000000, 5000000},
	{"Soporte Técnico Mensual", 200000, 800000},
	{"Licencia Software Empresarial", 300000, 1500000},
	{"Capacitación y Entrenamiento", 150000, 600000},
	{"Mantenimiento de Sistemas", 250000, 1000000},
	{"Auditoría de Seguridad Informática", 800000, 3000000},
	{"Hosting y Servicios Cloud", 100000, 500000},
	{"Diseño y Desarrollo Web", 400000, 2000000},
	{"Integración de Sistemas", 600000, 2500000},
}

var creditNoteReasons = []string{
	"Devolución de mercadería",
	"Descuento por volumen",
	"Descuento comercial",
	"Ajuste de precio",
	"Bonificación especial",
	"Corrección de monto facturado",
	"Descuento por pronto pago",
	"Producto en mal estado",
	"Error en facturación",
	"Devolución parcial de productos",
}

var debitNoteReasons = []string{
	"Cargo por flete",
	"Intereses por mora",
	"Cargo adicional por servicio",
	"Ajuste de precio",
	"Corrección de monto",
	"Cargo por embalaje especial",
	"Reajuste según contrato",
	"Cargo por gestión administrativa",
	"Diferencia de cambio",
	"Cargo adicional acordado",
}

// invoiceLines arma entre 2 y 5 líneas de detalle con productos distintos del
// catálogo, cantidad 1-5 y precio dentro del rango de cada producto.
func invoiceLines(rng *rand.Rand) ([]infrasii.DetailLine, infrasii.Totals) {
	count := 2 + rng.Intn(4)

	picked := rng.Perm(len(simulationProducts))[:count]
	lines := make([]infrasii.DetailLine, 0, count)
	var neto int64
	for i, idx := range picked {
		p := simulationProducts[idx]
		price := p.PriceMin + rng.Int63n(p.PriceMax-p.PriceMin+1)
		qty := int64(1 + rng.Intn(5))
		amount := price * qty
		lines = append(lines, detailLine(i+1, p.Name, qty, price, amount))
		neto += amount
	}
	return lines, taxedTotals(neto)
}

// noteLine línea única de una NC/ND: la razón en mayúsculas como descripción
// y el neto completo como precio y monto.
func noteLine(reason string, neto int64) []infrasii.DetailLine {
	return []infrasii.DetailLine{detailLine(1, strings.ToUpper(reason), 1, neto, neto)}
}

func detailLine(nro int, name string, qty, price, amount int64) infrasii.DetailLine {
	return infrasii.DetailLine{
		NroLinDet: nro,
		Nombre:    name,
		Quantity:  decimal.NewFromInt(qty),
		UnitPrice: decimal.NewFromInt(price),
		MontoItem: amount,
	}
}

// taxedTotals totales de un documento afecto: IVA 19% truncado a peso entero.
func taxedTotals(neto int64) infrasii.Totals {
	iva := neto * 19 / 100
	return infrasii.Totals{
		MntNeto:  neto,
		IVA:      iva,
		MntTotal: neto + iva,
		Taxable:  true,
	}
}

// invoiceReference referencia de una NC/ND a la factura que ajusta.
func invoiceReference(invoice *entity.GeneratedDocument, codRef int, reason string) infrasii.Reference {
	return infrasii.Reference{
		NroLinRef: 1,
		TpoDocRef: invoice.DocumentTypeCode,
		FolioRef:  strconv.Itoa(invoice.Folio),
		FchRef:    invoice.IssueDate,
		CodRef:    codRef,
		RazonRef:  strings.ToUpper(reason),
	}
}

// noteDate fecha de emisión de una nota: entre 5 y 15 días después de la
// factura referenciada, sin pasar del fin del rango simulado.
func noteDate(invoiceDate, dateTo time.Time, rng *rand.Rand) time.Time {
	d := invoiceDate.AddDate(0, 0, 5+rng.Intn(11))
	if d.After(dateTo) {
		return dateTo
	}
	return d
}

// randomDate fecha aleatoria dentro del rango [from, to].
func randomDate(from, to time.Time, rng *rand.Rand) time.Time {
	days := int(to.Sub(from).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return from.AddDate(0, 0, rng.Intn(days+1))
}
