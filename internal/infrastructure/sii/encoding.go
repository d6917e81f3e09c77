// Package sii: adaptadores de infraestructura para el formato DTE del SII —
// parseo de CAF, timbre electrónico (TED), construcción de XML de documentos,
// sobres, libros e intercambio, y cliente HTTP de los servicios del SII.
package sii

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
)

// santiago zona horaria de los timestamps exigidos por el SII. Los timestamps
// se emiten en hora local de Santiago SIN sufijo de zona.
var santiago = func() *time.Location {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		return time.FixedZone("CLT", -4*3600)
	}
	return loc
}()

// santiagoNow hora actual en Santiago de Chile.
func santiagoNow() time.Time {
	return time.Now().In(santiago)
}

// formatTimestamp formatea al estilo SII: 2025-12-09T22:15:18 (sin zona).
func formatTimestamp(t time.Time) string {
	return t.In(santiago).Format("2006-01-02T15:04:05")
}

// formatDate formatea una fecha al estilo SII: 2025-12-09.
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DecodeLatin1 decodifica bytes ISO-8859-1 a string UTF-8.
func DecodeLatin1(data []byte) (string, error) {
	out, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeLatin1 codifica un string UTF-8 a bytes ISO-8859-1.
func EncodeLatin1(s string) ([]byte, error) {
	var out bytes.Buffer
	w := charmap.ISO8859_1.NewEncoder().Writer(&out)
	if _, err := io.WriteString(w, s); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// newDocument crea un documento etree que acepta la declaración ISO-8859-1.
func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToUpper(charset) {
		case "ISO-8859-1", "LATIN1":
			return charmap.ISO8859_1.NewDecoder().Reader(input), nil
		}
		return input, nil
	}
	return doc
}

var (
	xmlDeclRe    = regexp.MustCompile(`<\?xml[^>]*\?>\s*`)
	flattenRe    = regexp.MustCompile(`\n\s*`)
	tmstFirmaRe  = regexp.MustCompile(`<TmstFirma>[^<]*</TmstFirma>`)
)

// stripXMLDeclaration elimina la declaración <?xml ...?> del comienzo.
func stripXMLDeclaration(xml string) string {
	return xmlDeclRe.ReplaceAllString(xml, "")
}

// flattenXML elimina saltos de línea y la indentación que los sigue. Es la
// forma canónica que el SII exige para firmar el DD del timbre.
func flattenXML(xml string) string {
	return flattenRe.ReplaceAllString(xml, "")
}

// escapeXML escapa los caracteres especiales de XML en texto.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// truncate corta un string a n caracteres (runas) como exigen los campos
// de largo fijo del esquema.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
