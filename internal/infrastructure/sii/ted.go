// Timbre Electrónico del Documento (TED): construcción del DD, firma con la
// llave del CAF y armado del bloque TED + TmstFirma.

package sii

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// StampData datos mínimos del documento que entran al timbre.
type StampData struct {
	RutEmisor    string
	TipoDTE      string
	Folio        int
	FechaEmision time.Time
	RutReceptor  string
	RznSocRecep  string
	MontoTotal   string // pesos enteros, ya formateado
	PrimerItem   string // nombre del primer ítem del detalle
}

// StampService genera el TED de cada documento.
type StampService struct {
	log *logger.Logger
}

// NewStampService crea el servicio.
func NewStampService(log *logger.Logger) *StampService {
	if log == nil {
		log = logger.Nop()
	}
	return &StampService{log: log}
}

// Generate construye el DD, lo firma con la llave privada del CAF
// (SHA1withRSA, PKCS#1 v1.5) y devuelve el bloque
// <TED>...</TED><TmstFirma>...</TmstFirma>. TmstFirma es HERMANO de <TED>,
// no va anidado dentro.
func (s *StampService) Generate(data StampData, caf *CAF, now time.Time) (string, error) {
	if caf == nil || caf.PrivateKey == nil {
		return "", fmt.Errorf("ted: CAF sin llave privada")
	}
	if !caf.Covers(data.Folio) {
		return "", fmt.Errorf("ted: el folio %d está fuera del rango del CAF [%d, %d]",
			data.Folio, caf.FolioStart, caf.FolioEnd)
	}

	timestamp := formatTimestamp(now)
	dd := s.buildDD(data, caf, timestamp)

	// Forma canónica: sin saltos de línea ni indentación. Lo que se firma
	// es exactamente lo que queda incrustado en el documento.
	dd = flattenXML(dd)

	hash := sha1.Sum([]byte(dd))
	signature, err := rsa.SignPKCS1v15(nil, caf.PrivateKey, crypto.SHA1, hash[:])
	if err != nil {
		return "", fmt.Errorf("ted: firmar DD: %w", err)
	}
	frmt := base64.StdEncoding.EncodeToString(signature)

	var sb strings.Builder
	sb.WriteString(`<TED version="1.0">`)
	sb.WriteString(dd)
	sb.WriteString(`<FRMT algoritmo="SHA1withRSA">` + frmt + `</FRMT>`)
	sb.WriteString(`</TED>`)
	sb.WriteString(`<TmstFirma>` + timestamp + `</TmstFirma>`)

	s.log.Debug().
		Str("tipo", data.TipoDTE).
		Int("folio", data.Folio).
		Msg("timbre generado")

	return sb.String(), nil
}

// buildDD arma el payload de digest del timbre. El bloque CAF se incrusta
// literal (RawCAF): el SII verifica la firma FRMA sobre ese contenido.
func (s *StampService) buildDD(data StampData, caf *CAF, timestamp string) string {
	var sb strings.Builder
	sb.WriteString(`<DD>`)
	sb.WriteString(`<RE>` + escapeXML(data.RutEmisor) + `</RE>`)
	sb.WriteString(`<TD>` + data.TipoDTE + `</TD>`)
	sb.WriteString(fmt.Sprintf(`<F>%d</F>`, data.Folio))
	sb.WriteString(`<FE>` + formatDate(data.FechaEmision) + `</FE>`)
	sb.WriteString(`<RR>` + escapeXML(data.RutReceptor) + `</RR>`)
	sb.WriteString(`<RSR>` + escapeXML(truncate(data.RznSocRecep, pkgsii.MaxTEDNameLen)) + `</RSR>`)
	sb.WriteString(`<MNT>` + data.MontoTotal + `</MNT>`)
	sb.WriteString(`<IT1>` + escapeXML(truncate(data.PrimerItem, pkgsii.MaxTEDNameLen)) + `</IT1>`)
	sb.WriteString(stripXMLDeclaration(caf.RawCAF))
	sb.WriteString(`<TSTED>` + timestamp + `</TSTED>`)
	sb.WriteString(`</DD>`)
	return sb.String()
}

// StripTmstFirma elimina el elemento <TmstFirma> del bloque TED. El código
// de barras se genera sobre el TED sin el timestamp de firma.
func StripTmstFirma(tedXML string) string {
	return tmstFirmaRe.ReplaceAllString(tedXML, "")
}

// VerifyStamp verifica la firma FRMT de un TED contra una llave pública.
// Usado en pruebas y diagnóstico; el SII hace la verificación real.
func VerifyStamp(ddFlat, frmtB64 string, pub *rsa.PublicKey) error {
	sig, err := base64.StdEncoding.DecodeString(frmtB64)
	if err != nil {
		return fmt.Errorf("ted: FRMT no es base64: %w", err)
	}
	hash := sha1.Sum([]byte(ddFlat))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA1, hash[:], sig); err != nil {
		return fmt.Errorf("ted: firma FRMT no verifica: %w", err)
	}
	return nil
}
