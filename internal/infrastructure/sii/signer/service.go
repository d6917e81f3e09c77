// Servicio de firma digital XMLDSig para DTE según el perfil del SII.
// Inserta <Signature> como último hijo de la raíz del documento.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
	"golang.org/x/text/encoding/charmap"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	"github.com/tu-usuario/certificacion-sii/pkg/sii"
)

var xmlDeclRe = regexp.MustCompile(`<\?xml[^>]*\?>\s*`)

// SignatureService implementa sii.Signer con el perfil SHA1/RSA del SII.
type SignatureService struct {
	log *logger.Logger
}

// NewSignatureService crea el servicio.
func NewSignatureService(log *logger.Logger) *SignatureService {
	if log == nil {
		log = logger.Nop()
	}
	return &SignatureService{log: log}
}

// Sign firma el elemento identificado por ref dentro del XML según la
// estructura shape y devuelve el documento completo, con declaración
// ISO-8859-1 y codificado en ISO-8859-1.
func (s *SignatureService) Sign(xmlBytes []byte, shape sii.DocumentShape, ref string, cert sii.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("firma: XML vacío")
	}
	if cert.PrivateKey == nil || cert.Leaf == nil {
		return nil, fmt.Errorf("firma: %w: certificado sin llave privada", domain.ErrInvalidCertificate)
	}

	doc := newDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("firma: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("firma: documento sin raíz")
	}

	// EnvioRecibos: primero la firma interna de cada DocumentoRecibo
	// (queda dentro de su <Recibo>), luego la firma externa del SetRecibos.
	if shape == sii.ShapeReceipts {
		if err := s.signReceipts(doc, cert); err != nil {
			return nil, err
		}
	}

	target, uri, err := s.locateTarget(doc, shape, ref)
	if err != nil {
		return nil, err
	}

	sigEl, err := s.signElement(doc, target, uri, cert)
	if err != nil {
		return nil, err
	}
	root.AddChild(sigEl)

	s.log.Debug().
		Str("shape", shape.TargetTag()).
		Str("ref", ref).
		Msg("documento firmado")

	return s.render(doc)
}

// signReceipts firma el DocumentoRecibo de cada Recibo del envío, insertando
// la firma dentro del propio Recibo (Ley 19.983).
func (s *SignatureService) signReceipts(doc *etree.Document, cert sii.Certificate) error {
	recibos := doc.FindElements("//Recibo")
	if len(recibos) == 0 {
		return fmt.Errorf("firma: %w: EnvioRecibos sin <Recibo>", domain.ErrSigningTargetNotFound)
	}
	for _, recibo := range recibos {
		docRecibo := recibo.SelectElement("DocumentoRecibo")
		if docRecibo == nil {
			return fmt.Errorf("firma: %w: Recibo sin DocumentoRecibo", domain.ErrSigningTargetNotFound)
		}
		id := docRecibo.SelectAttrValue("ID", "")
		if id == "" {
			return fmt.Errorf("firma: %w: DocumentoRecibo sin atributo ID", domain.ErrSigningTargetNotFound)
		}
		sigEl, err := s.signElement(doc, docRecibo, "#"+id, cert)
		if err != nil {
			return fmt.Errorf("firma: recibo %s: %w", id, err)
		}
		recibo.AddChild(sigEl)
	}
	return nil
}

// locateTarget ubica el elemento a firmar según la estructura declarada.
// Para ShapeToken se firma el documento completo (URI vacía).
func (s *SignatureService) locateTarget(doc *etree.Document, shape sii.DocumentShape, ref string) (*etree.Element, string, error) {
	if shape == sii.ShapeToken {
		return doc.Root(), "", nil
	}
	tag := shape.TargetTag()
	for _, el := range doc.FindElements("//" + tag) {
		if el.SelectAttrValue("ID", "") == ref {
			return el, "#" + ref, nil
		}
	}
	return nil, "", fmt.Errorf("firma: %w: no existe <%s ID=%q>", domain.ErrSigningTargetNotFound, tag, ref)
}

// signElement calcula el digest C14N/SHA1 del elemento, firma el SignedInfo
// con RSA/SHA1 y devuelve el nodo <Signature> listo para insertar.
func (s *SignatureService) signElement(doc *etree.Document, target *etree.Element, uri string, cert sii.Certificate) (*etree.Element, error) {
	serialized, err := serializeElement(doc, target)
	if err != nil {
		return nil, fmt.Errorf("firma: serializar elemento: %w", err)
	}
	// Un digest sobre bytes no canónicos sería rechazado por el SII sin
	// pista alguna: el error de canonicalización es fatal, nunca se firma
	// el fragmento tal cual.
	canonical, err := canonicalizeXML(serialized)
	if err != nil {
		return nil, fmt.Errorf("firma: canonicalizar elemento: %w", err)
	}
	digest := sha1.Sum(canonical)
	digestB64 := base64.StdEncoding.EncodeToString(digest[:])

	signedInfoXML := buildSignedInfo(uri, digestB64)
	canonicalSignedInfo, err := canonicalizeXML([]byte(signedInfoXML))
	if err != nil {
		return nil, fmt.Errorf("firma: canonicalizar SignedInfo: %w", err)
	}
	signHash := sha1.Sum(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, cert.PrivateKey, crypto.SHA1, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("firma: firmar SignedInfo: %w", err)
	}

	signatureXML := buildSignature(
		signedInfoXML,
		wrap64(base64.StdEncoding.EncodeToString(signatureValue)),
		base64.StdEncoding.EncodeToString(cert.PrivateKey.PublicKey.N.Bytes()),
		base64.StdEncoding.EncodeToString(exponentBytes(cert.PrivateKey.PublicKey.E)),
		wrap64(base64.StdEncoding.EncodeToString(cert.Leaf.Raw)),
	)

	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("firma: parsear Signature: %w", err)
	}
	return sigDoc.Root(), nil
}

// serializeElement serializa el subárbol del elemento. C14N exige propagar el
// namespace heredado: si el elemento no declara xmlns y la raíz sí, se copia
// la declaración al fragmento antes de serializar.
func serializeElement(doc *etree.Document, el *etree.Element) ([]byte, error) {
	copied := el.Copy()
	if copied.SelectAttr("xmlns") == nil {
		if root := doc.Root(); root != nil && root != el {
			if ns := root.SelectAttr("xmlns"); ns != nil {
				copied.CreateAttr("xmlns", ns.Value)
			}
		}
	}
	fragment := etree.NewDocument()
	fragment.SetRoot(copied)
	return fragment.WriteToBytes()
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func buildSignedInfo(uri, digestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<SignedInfo xmlns="` + NamespaceDS + `">`)
	sb.WriteString(`<CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<SignatureMethod Algorithm="` + AlgRSASHA1 + `"/>`)
	sb.WriteString(`<Reference URI="` + uri + `">`)
	sb.WriteString(`<DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<DigestValue>` + digestB64 + `</DigestValue>`)
	sb.WriteString(`</Reference>`)
	sb.WriteString(`</SignedInfo>`)
	return sb.String()
}

func buildSignature(signedInfoXML, signatureValueB64, modulusB64, exponentB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<Signature xmlns="` + NamespaceDS + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<SignatureValue>` + signatureValueB64 + `</SignatureValue>`)
	sb.WriteString(`<KeyInfo>`)
	sb.WriteString(`<KeyValue><RSAKeyValue>`)
	sb.WriteString(`<Modulus>` + modulusB64 + `</Modulus>`)
	sb.WriteString(`<Exponent>` + exponentB64 + `</Exponent>`)
	sb.WriteString(`</RSAKeyValue></KeyValue>`)
	sb.WriteString(`<X509Data><X509Certificate>` + certB64 + `</X509Certificate></X509Data>`)
	sb.WriteString(`</KeyInfo>`)
	sb.WriteString(`</Signature>`)
	return sb.String()
}

// render serializa el documento firmado con la declaración ISO-8859-1 y lo
// codifica a ISO-8859-1.
func (s *SignatureService) render(doc *etree.Document) ([]byte, error) {
	raw, err := doc.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("firma: serializar documento: %w", err)
	}
	raw = xmlDeclRe.ReplaceAllString(raw, "")
	full := XMLDeclaration + "\n" + raw

	encoded, err := encodeLatin1(full)
	if err != nil {
		return nil, fmt.Errorf("firma: codificar ISO-8859-1: %w", err)
	}
	return encoded, nil
}

func encodeLatin1(s string) ([]byte, error) {
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

// wrap64 corta el base64 en líneas de 64 caracteres, como en los ejemplos
// publicados por el SII.
func wrap64(s string) string {
	var sb strings.Builder
	for len(s) > 64 {
		sb.WriteString(s[:64])
		sb.WriteByte('\n')
		s = s[64:]
	}
	sb.WriteString(s)
	return sb.String()
}

// exponentBytes representación big-endian mínima del exponente público.
func exponentBytes(e int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(e))
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return buf[i:]
}

var _ sii.Signer = (*SignatureService)(nil)
