package sii

import (
	"time"

	"github.com/shopspring/decimal"
)

// NamespaceSiiDte namespace de todos los documentos tributarios del SII.
const NamespaceSiiDte = "http://www.sii.cl/SiiDte"

// Party identidad tributaria de emisor o receptor dentro de un DTE.
type Party struct {
	RUT         string
	RazonSocial string
	Giro        string
	Acteco      string
	Address     string
	Commune     string
	City        string
}

// Reference línea de <Referencia> de un DTE. La línea 1 de todo documento de
// certificación referencia el caso del set (TpoDocRef "SET").
type Reference struct {
	NroLinRef int
	TpoDocRef string
	FolioRef  string
	FchRef    time.Time
	CodRef    int // 0 = sin código
	RazonRef  string
}

// DetailLine línea de <Detalle>. NmbItem y DscItem llevan el mismo texto.
// El descuento se expresa como monto (DescuentoMonto), nunca como
// porcentaje: el SII valida MontoItem = qty*precio - DescuentoMonto.
type DetailLine struct {
	NroLinDet      int
	Nombre         string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	DescuentoMonto int64
	Exempt         bool
	MontoItem      int64

	// OmitQtyPrice omite QtyItem/PrcItem: convención del SII para líneas
	// de notas administrativas con monto $0.
	OmitQtyPrice bool
}

// GlobalDiscount descuento global del documento (DscRcgGlobal).
type GlobalDiscount struct {
	Pct decimal.Decimal
}

// Totals totales del documento en pesos enteros.
type Totals struct {
	MntNeto  int64
	MntExe   int64
	IVA      int64
	MntTotal int64
	// Taxable indica documento afecto: declara TasaIVA 19 aunque IVA sea 0.
	Taxable bool
}

// DocumentData modelo estructurado de un DTE listo para renderizar.
type DocumentData struct {
	TipoDTE          string
	Folio            int
	FechaEmision     time.Time
	FechaVencimiento time.Time // por defecto igual a FechaEmision

	Emisor   Party
	Receptor Party

	Detalle      []DetailLine
	DscRcgGlobal *GlobalDiscount
	Referencias  []Reference
	Totales      Totals
}

// DocumentID identificador del elemento Documento: F<folio>T<tipo>.
func (d DocumentData) DocumentID() string {
	return documentID(d.Folio, d.TipoDTE)
}
