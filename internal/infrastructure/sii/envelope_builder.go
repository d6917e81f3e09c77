// Construcción del sobre EnvioDTE que agrupa los DTE firmados de un set.

package sii

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// EnvelopeDocument un DTE ya firmado listo para incluir en un sobre.
type EnvelopeDocument struct {
	TipoDTE   string
	Folio     int
	SignedXML string
}

// EnvelopeData datos de la carátula del sobre.
type EnvelopeData struct {
	RutEmisor    string
	RutEnvia     string // RUT del firmante del certificado digital
	RutReceptor  string // por defecto el SII
	FchResol     time.Time
	NroResol     int
	TmstFirmaEnv time.Time
	Documentos   []EnvelopeDocument
}

// EnvelopeBuilder arma el XML <EnvioDTE> sin firmar. La firma del SetDTE la
// aplica el firmador sobre el resultado.
type EnvelopeBuilder struct {
	log *logger.Logger
}

// NewEnvelopeBuilder crea el builder.
func NewEnvelopeBuilder(log *logger.Logger) *EnvelopeBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &EnvelopeBuilder{log: log}
}

// SetDTEReferenceID identificador del SetDTE referenciado por la firma.
const SetDTEReferenceID = "SetDoc"

// Build ordena los documentos según la prioridad de tipos del SII, arma la
// carátula con subtotales por tipo y concatena los DTE firmados intactos.
func (b *EnvelopeBuilder) Build(data EnvelopeData) (string, error) {
	if len(data.Documentos) == 0 {
		return "", fmt.Errorf("sobre: no hay documentos para incluir")
	}
	var sinFirma []string
	for _, doc := range data.Documentos {
		if !strings.Contains(doc.SignedXML, "<Signature") {
			sinFirma = append(sinFirma, documentID(doc.Folio, doc.TipoDTE))
		}
	}
	if len(sinFirma) > 0 {
		return "", fmt.Errorf("sobre: documentos sin firmar: %s", strings.Join(sinFirma, ", "))
	}

	docs := make([]EnvelopeDocument, len(data.Documentos))
	copy(docs, data.Documentos)
	sort.SliceStable(docs, func(i, j int) bool {
		pi, pj := pkgsii.EnvelopePriority(docs[i].TipoDTE), pkgsii.EnvelopePriority(docs[j].TipoDTE)
		if pi != pj {
			return pi < pj
		}
		return docs[i].Folio < docs[j].Folio
	})

	receptor := data.RutReceptor
	if receptor == "" {
		receptor = pkgsii.SiiRUT
	}

	var sb strings.Builder
	sb.WriteString(`<EnvioDTE xmlns="` + NamespaceSiiDte + `" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="http://www.sii.cl/SiiDte EnvioDTE_v10.xsd" version="1.0">`)
	sb.WriteString(`<SetDTE ID="` + SetDTEReferenceID + `">`)

	sb.WriteString(`<Caratula version="1.0">`)
	writeTag(&sb, "RutEmisor", data.RutEmisor)
	writeTag(&sb, "RutEnvia", data.RutEnvia)
	writeTag(&sb, "RutReceptor", receptor)
	writeTag(&sb, "FchResol", formatDate(data.FchResol))
	writeTag(&sb, "NroResol", fmt.Sprintf("%d", data.NroResol))
	writeTag(&sb, "TmstFirmaEnv", formatTimestamp(data.TmstFirmaEnv))
	for _, sub := range subtotals(docs) {
		sb.WriteString(`<SubTotDTE>`)
		writeTag(&sb, "TpoDTE", sub.tipo)
		writeTag(&sb, "NroDTE", fmt.Sprintf("%d", sub.count))
		sb.WriteString(`</SubTotDTE>`)
	}
	sb.WriteString(`</Caratula>`)

	for _, doc := range docs {
		sb.WriteString(stripXMLDeclaration(doc.SignedXML))
	}

	sb.WriteString(`</SetDTE>`)
	sb.WriteString(`</EnvioDTE>`)

	b.log.Debug().
		Int("documentos", len(docs)).
		Str("rut_emisor", data.RutEmisor).
		Msg("sobre EnvioDTE construido")

	return sb.String(), nil
}

type subtotal struct {
	tipo  string
	count int
}

// subtotals cuenta documentos por tipo manteniendo el orden del sobre.
func subtotals(docs []EnvelopeDocument) []subtotal {
	var out []subtotal
	index := map[string]int{}
	for _, doc := range docs {
		if i, ok := index[doc.TipoDTE]; ok {
			out[i].count++
			continue
		}
		index[doc.TipoDTE] = len(out)
		out = append(out, subtotal{tipo: doc.TipoDTE, count: 1})
	}
	return out
}
