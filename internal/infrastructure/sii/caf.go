// Parseo del CAF (Certificado de Autorización de Folios) emitido por el SII.

package sii

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// CAF autorización de folios decodificada. RawCAF conserva el elemento
// <CAF> serializado tal cual viene en el archivo: se incrusta sin cambios en
// el DD del timbre, porque el SII verifica la firma FRMA sobre ese contenido.
type CAF struct {
	RutEmisor         string
	TypeCode          string
	FolioStart        int
	FolioEnd          int
	AuthorizationDate string

	PublicModulus  string // RSAPK/M, base64
	PublicExponent string // RSAPK/E, base64

	RawCAF     string // <CAF version="1.0"><DA>...</DA><FRMA>...</FRMA></CAF>
	PrivateKey *rsa.PrivateKey
}

// Covers indica si el folio está dentro del rango autorizado por el CAF.
func (c *CAF) Covers(folio int) bool {
	return folio >= c.FolioStart && folio <= c.FolioEnd
}

// ParseCAF decodifica el XML de un CAF (ISO-8859-1). Estructura esperada:
// AUTORIZACION/CAF/DA{RE,TD,RNG/D,RNG/H,FA,RSAPK/M,RSAPK/E} más FRMA (firma
// del propio CAF) y RSASK (llave privada PEM para firmar timbres).
func ParseCAF(data []byte) (*CAF, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("caf: archivo vacío")
	}

	doc := newDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("caf: parsear XML: %w", err)
	}

	cafEl := doc.FindElement("//AUTORIZACION/CAF")
	if cafEl == nil {
		return nil, fmt.Errorf("caf: %w: no se encontró el nodo AUTORIZACION/CAF", domain.ErrInvalidInput)
	}
	da := cafEl.SelectElement("DA")
	if da == nil {
		return nil, fmt.Errorf("caf: %w: no se encontró el nodo de autorización (DA)", domain.ErrInvalidInput)
	}

	caf := &CAF{
		RutEmisor:         elementText(da, "RE"),
		TypeCode:          elementText(da, "TD"),
		AuthorizationDate: elementText(da, "FA"),
	}

	rng := da.SelectElement("RNG")
	if rng == nil {
		return nil, fmt.Errorf("caf: %w: falta el rango de folios (RNG)", domain.ErrInvalidInput)
	}
	var err error
	if caf.FolioStart, err = strconv.Atoi(elementText(rng, "D")); err != nil {
		return nil, fmt.Errorf("caf: folio de inicio inválido: %w", err)
	}
	if caf.FolioEnd, err = strconv.Atoi(elementText(rng, "H")); err != nil {
		return nil, fmt.Errorf("caf: folio final inválido: %w", err)
	}
	if caf.FolioStart <= 0 || caf.FolioEnd < caf.FolioStart {
		return nil, fmt.Errorf("caf: %w: rango de folios inválido [%d, %d]", domain.ErrInvalidInput, caf.FolioStart, caf.FolioEnd)
	}

	if rsapk := da.SelectElement("RSAPK"); rsapk != nil {
		caf.PublicModulus = elementText(rsapk, "M")
		caf.PublicExponent = elementText(rsapk, "E")
	}

	// Serializar el elemento CAF completo para incrustarlo en el DD.
	fragment := etree.NewDocument()
	fragment.SetRoot(cafEl.Copy())
	raw, err := fragment.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("caf: serializar nodo CAF: %w", err)
	}
	caf.RawCAF = raw

	// La llave privada (RSASK) es hermana de CAF bajo AUTORIZACION.
	rsask := doc.FindElement("//AUTORIZACION/RSASK")
	if rsask == nil {
		return nil, fmt.Errorf("caf: %w: falta la llave privada (RSASK)", domain.ErrInvalidInput)
	}
	caf.PrivateKey, err = parsePrivateKeyPEM(rsask.Text())
	if err != nil {
		return nil, fmt.Errorf("caf: llave privada RSASK: %w", err)
	}

	return caf, nil
}

// ValidateCAFIssuer compara el RUT emisor del CAF con el RUT del cliente.
// La discrepancia en carga es advertencia recuperable (el operador puede
// estar subiendo el archivo equivocado), no un error fatal.
func ValidateCAFIssuer(caf *CAF, clientRUT string) (warning string) {
	if caf.RutEmisor == "" || clientRUT == "" {
		return ""
	}
	if pkgsii.CleanRUT(caf.RutEmisor) != pkgsii.CleanRUT(clientRUT) {
		return fmt.Sprintf(
			"el RUT del CAF (%s) no coincide con el RUT del cliente (%s); el CAF debe pertenecer a la empresa certificada",
			caf.RutEmisor, clientRUT)
	}
	return ""
}

// VerifyFolioInCAF verifica que el folio esté dentro del rango incrustado en
// el CAF literal. Se revalida contra el archivo (no contra el rango guardado
// en la asignación) para detectar cargas desactualizadas; la discrepancia es
// fatal al firmar.
func VerifyFolioInCAF(caf *CAF, folio, declaredStart, declaredEnd int) error {
	if caf.Covers(folio) {
		return nil
	}
	return fmt.Errorf(
		"caf: %w: el folio %d está fuera del rango del CAF [%d, %d] (rango declarado en la asignación: [%d, %d]); verifique que el CAF cargado corresponda",
		domain.ErrFolioRangeExceeded, folio, caf.FolioStart, caf.FolioEnd, declaredStart, declaredEnd)
}

func elementText(parent *etree.Element, tag string) string {
	if el := parent.SelectElement(tag); el != nil {
		return el.Text()
	}
	return ""
}

func parsePrivateKeyPEM(pemText string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("no es un bloque PEM válido")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsear llave: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("la llave no es RSA")
	}
	return key, nil
}
