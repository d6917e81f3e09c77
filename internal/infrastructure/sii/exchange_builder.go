// Construcción de las respuestas de intercambio entre contribuyentes:
// recepción de envío, recibos de mercaderías y resultado comercial.

package sii

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/tu-usuario/certificacion-sii/pkg/logger"
)

// Estados de recepción de un envío o documento de intercambio.
const (
	RecepEnvOK       = 0
	RecepDTEAceptado = 0

	// ResultadoDTEAceptado acuse comercial ACD (aceptación del contenido).
	ResultadoDTEAceptado = 0
)

// ResultadoReferenceID identificador del elemento Resultado en RespuestaDTE.
const ResultadoReferenceID = "Resultado"

// SetRecibosReferenceID identificador del SetRecibos en EnvioRecibos.
const SetRecibosReferenceID = "SetDteRecibidos"

// declaracionLey19983 texto legal obligatorio del acuse de recibo.
const declaracionLey19983 = "El acuse de recibo que se declara en este acto, de acuerdo a lo dispuesto en la letra b) del Art. 4, y la letra c) del Art. 5 de la Ley 19.983, acredita que la entrega de mercaderias o servicio(s) prestado(s) ha(n) sido recibido(s)."

// ExchangeDocument resumen de un DTE recibido, para acusar recibo.
type ExchangeDocument struct {
	TipoDTE   string
	Folio     int
	FchEmis   time.Time
	RUTEmisor string
	RUTRecep  string
	MntTotal  int64
}

// ExchangeData datos comunes de una respuesta de intercambio. Responde el
// receptor del envío original: RutResponde y RutRecibe van invertidos
// respecto de la carátula recibida.
type ExchangeData struct {
	RutResponde string
	RutRecibe   string
	IdRespuesta int
	TmstFirma   time.Time

	// Recinto y RutFirma sólo aplican a los recibos de mercaderías.
	Recinto  string
	RutFirma string

	Documentos []ExchangeDocument
}

// ExchangeBuilder arma los tres XML de respuesta de intercambio sin firmar.
type ExchangeBuilder struct {
	log *logger.Logger
}

// NewExchangeBuilder crea el builder.
func NewExchangeBuilder(log *logger.Logger) *ExchangeBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &ExchangeBuilder{log: log}
}

// BuildReception arma la RespuestaDTE de recepción del envío completo. El
// digest del SetDTE recibido se recalcula para que RecepcionEnvio declare
// exactamente lo que llegó.
func (b *ExchangeBuilder) BuildReception(data ExchangeData, receivedEnvelope []byte, envioID string) (string, error) {
	if len(data.Documentos) == 0 {
		return "", fmt.Errorf("intercambio: no hay documentos recibidos")
	}
	digest, rutEmisor, rutReceptor, err := digestReceivedSet(receivedEnvelope)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	b.openRespuesta(&sb, data, 1)

	sb.WriteString(`<RecepcionEnvio>`)
	writeTag(&sb, "NmbEnvio", envioID)
	writeTag(&sb, "FchRecep", formatTimestamp(data.TmstFirma))
	writeTag(&sb, "CodEnvio", fmt.Sprintf("%d", data.IdRespuesta))
	writeTag(&sb, "EnvioDTEID", SetDTEReferenceID)
	writeTag(&sb, "Digest", digest)
	writeTag(&sb, "RutEmisor", rutEmisor)
	writeTag(&sb, "RutReceptor", rutReceptor)
	writeTag(&sb, "EstadoRecepEnv", fmt.Sprintf("%d", RecepEnvOK))
	writeTag(&sb, "RecepEnvGlosa", "Envio Recibido Conforme")
	writeTag(&sb, "NroDTE", fmt.Sprintf("%d", len(data.Documentos)))
	for _, doc := range data.Documentos {
		sb.WriteString(`<RecepcionDTE>`)
		b.writeDocumentSummary(&sb, doc)
		writeTag(&sb, "EstadoRecepDTE", fmt.Sprintf("%d", RecepDTEAceptado))
		writeTag(&sb, "RecepDTEGlosa", "DTE Recibido OK")
		sb.WriteString(`</RecepcionDTE>`)
	}
	sb.WriteString(`</RecepcionEnvio>`)

	b.closeRespuesta(&sb)

	b.log.Debug().Int("documentos", len(data.Documentos)).Msg("recepción de envío construida")
	return sb.String(), nil
}

// BuildReceipts arma el EnvioRecibos con un Recibo por documento. El firmador
// firma cada DocumentoRecibo y luego el SetRecibos completo.
func (b *ExchangeBuilder) BuildReceipts(data ExchangeData) (string, error) {
	if len(data.Documentos) == 0 {
		return "", fmt.Errorf("intercambio: no hay documentos para acusar recibo")
	}

	var sb strings.Builder
	sb.WriteString(`<EnvioRecibos xmlns="` + NamespaceSiiDte + `" version="1.0">`)
	sb.WriteString(`<SetRecibos ID="` + SetRecibosReferenceID + `">`)

	sb.WriteString(`<Caratula version="1.0">`)
	writeTag(&sb, "RutResponde", data.RutResponde)
	writeTag(&sb, "RutRecibe", data.RutRecibe)
	writeTag(&sb, "TmstFirmaEnv", formatTimestamp(data.TmstFirma))
	sb.WriteString(`</Caratula>`)

	for _, doc := range data.Documentos {
		sb.WriteString(`<Recibo version="1.0">`)
		sb.WriteString(fmt.Sprintf(`<DocumentoRecibo ID="%s">`, documentID(doc.Folio, doc.TipoDTE)))
		writeTag(&sb, "TipoDoc", doc.TipoDTE)
		writeTag(&sb, "Folio", fmt.Sprintf("%d", doc.Folio))
		writeTag(&sb, "FchEmis", formatDate(doc.FchEmis))
		writeTag(&sb, "RUTEmisor", doc.RUTEmisor)
		writeTag(&sb, "RUTRecep", doc.RUTRecep)
		writeTag(&sb, "MntTotal", fmt.Sprintf("%d", doc.MntTotal))
		writeTag(&sb, "Recinto", data.Recinto)
		writeTag(&sb, "RutFirma", data.RutFirma)
		writeTag(&sb, "Declaracion", declaracionLey19983)
		writeTag(&sb, "TmstFirmaRecibo", formatTimestamp(data.TmstFirma))
		sb.WriteString(`</DocumentoRecibo>`)
		sb.WriteString(`</Recibo>`)
	}

	sb.WriteString(`</SetRecibos>`)
	sb.WriteString(`</EnvioRecibos>`)

	b.log.Debug().Int("recibos", len(data.Documentos)).Msg("envío de recibos construido")
	return sb.String(), nil
}

// BuildResult arma la RespuestaDTE con el resultado comercial por documento.
func (b *ExchangeBuilder) BuildResult(data ExchangeData) (string, error) {
	if len(data.Documentos) == 0 {
		return "", fmt.Errorf("intercambio: no hay documentos para responder")
	}

	var sb strings.Builder
	b.openRespuesta(&sb, data, len(data.Documentos))

	for _, doc := range data.Documentos {
		sb.WriteString(`<ResultadoDTE>`)
		b.writeDocumentSummary(&sb, doc)
		writeTag(&sb, "CodEnvio", fmt.Sprintf("%d", data.IdRespuesta))
		writeTag(&sb, "EstadoDTE", fmt.Sprintf("%d", ResultadoDTEAceptado))
		writeTag(&sb, "EstadoDTEGlosa", "DTE Aceptado OK")
		sb.WriteString(`</ResultadoDTE>`)
	}

	b.closeRespuesta(&sb)

	b.log.Debug().Int("documentos", len(data.Documentos)).Msg("resultado comercial construido")
	return sb.String(), nil
}

func (b *ExchangeBuilder) openRespuesta(sb *strings.Builder, data ExchangeData, nroDetalles int) {
	sb.WriteString(`<RespuestaDTE xmlns="` + NamespaceSiiDte + `" version="1.0">`)
	sb.WriteString(`<Resultado ID="` + ResultadoReferenceID + `">`)
	sb.WriteString(`<Caratula version="1.0">`)
	writeTag(sb, "RutResponde", data.RutResponde)
	writeTag(sb, "RutRecibe", data.RutRecibe)
	writeTag(sb, "IdRespuesta", fmt.Sprintf("%d", data.IdRespuesta))
	writeTag(sb, "NroDetalles", fmt.Sprintf("%d", nroDetalles))
	writeTag(sb, "TmstFirmaResp", formatTimestamp(data.TmstFirma))
	sb.WriteString(`</Caratula>`)
}

func (b *ExchangeBuilder) closeRespuesta(sb *strings.Builder) {
	sb.WriteString(`</Resultado>`)
	sb.WriteString(`</RespuestaDTE>`)
}

func (b *ExchangeBuilder) writeDocumentSummary(sb *strings.Builder, doc ExchangeDocument) {
	writeTag(sb, "TipoDTE", doc.TipoDTE)
	writeTag(sb, "Folio", fmt.Sprintf("%d", doc.Folio))
	writeTag(sb, "FchEmis", formatDate(doc.FchEmis))
	writeTag(sb, "RUTEmisor", doc.RUTEmisor)
	writeTag(sb, "RUTRecep", doc.RUTRecep)
	writeTag(sb, "MntTotal", fmt.Sprintf("%d", doc.MntTotal))
}

// digestReceivedSet recalcula el digest SHA1/C14N del SetDTE recibido y
// extrae los RUT de su carátula.
func digestReceivedSet(envelope []byte) (digest, rutEmisor, rutReceptor string, err error) {
	if len(envelope) == 0 {
		return "", "", "", fmt.Errorf("intercambio: sobre recibido vacío")
	}
	doc := newDocument()
	if err := doc.ReadFromBytes(envelope); err != nil {
		return "", "", "", fmt.Errorf("intercambio: parsear sobre recibido: %w", err)
	}
	set := doc.FindElement("//SetDTE")
	if set == nil {
		return "", "", "", fmt.Errorf("intercambio: el sobre recibido no contiene SetDTE")
	}

	copied := set.Copy()
	if copied.SelectAttr("xmlns") == nil {
		if root := doc.Root(); root != nil {
			if ns := root.SelectAttr("xmlns"); ns != nil {
				copied.CreateAttr("xmlns", ns.Value)
			}
		}
	}
	fragment := etree.NewDocument()
	fragment.SetRoot(copied)
	raw, err := fragment.WriteToBytes()
	if err != nil {
		return "", "", "", fmt.Errorf("intercambio: serializar SetDTE: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	canonical, cerr := c14n.Canonicalize(dec)
	if cerr != nil {
		canonical = raw
	}
	sum := sha1.Sum(canonical)

	if caratula := set.SelectElement("Caratula"); caratula != nil {
		rutEmisor = elementText(caratula, "RutEmisor")
		rutReceptor = elementText(caratula, "RutReceptor")
	}
	return base64.StdEncoding.EncodeToString(sum[:]), rutEmisor, rutReceptor, nil
}
