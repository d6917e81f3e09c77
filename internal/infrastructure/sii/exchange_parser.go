package sii

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
)

// ReceivedEnvelope resumen de un EnvioDTE recibido de otro contribuyente:
// los RUT de la carátula y una entrada por DTE para acusar recibo.
type ReceivedEnvelope struct {
	RutEmisor   string
	RutReceptor string
	Documentos  []ExchangeDocument
}

// ParseReceivedEnvelope extrae de un EnvioDTE ajeno lo necesario para
// responder: carátula y resumen por documento. Tolera montos o fechas
// ausentes (quedan en cero); la ausencia de documentos es error.
func ParseReceivedEnvelope(data []byte) (*ReceivedEnvelope, error) {
	doc := newDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("intercambio: parsear sobre recibido: %w", err)
	}

	set := doc.FindElement("//SetDTE")
	if set == nil {
		return nil, fmt.Errorf("intercambio: %w: el XML no contiene SetDTE", domain.ErrInvalidInput)
	}

	received := &ReceivedEnvelope{}
	if caratula := set.SelectElement("Caratula"); caratula != nil {
		received.RutEmisor = elementText(caratula, "RutEmisor")
		received.RutReceptor = elementText(caratula, "RutReceptor")
	}

	for _, dte := range set.FindElements(".//DTE") {
		encabezado := dte.FindElement(".//Encabezado")
		if encabezado == nil {
			continue
		}
		idDoc := encabezado.SelectElement("IdDoc")
		if idDoc == nil {
			continue
		}

		summary := ExchangeDocument{
			TipoDTE: elementText(idDoc, "TipoDTE"),
		}
		summary.Folio, _ = strconv.Atoi(elementText(idDoc, "Folio"))
		if fch := elementText(idDoc, "FchEmis"); fch != "" {
			summary.FchEmis, _ = time.Parse("2006-01-02", fch)
		}
		if emisor := encabezado.SelectElement("Emisor"); emisor != nil {
			summary.RUTEmisor = elementText(emisor, "RUTEmisor")
		}
		if receptor := encabezado.SelectElement("Receptor"); receptor != nil {
			summary.RUTRecep = elementText(receptor, "RUTRecep")
		}
		if totales := encabezado.SelectElement("Totales"); totales != nil {
			summary.MntTotal, _ = strconv.ParseInt(elementText(totales, "MntTotal"), 10, 64)
		}
		received.Documentos = append(received.Documentos, summary)
	}

	if len(received.Documentos) == 0 {
		return nil, fmt.Errorf("intercambio: %w: el sobre recibido no contiene DTE", domain.ErrInvalidInput)
	}
	return received, nil
}
