// Package sii: interfaz para firma digital de documentos XML (perfil XMLDSig del SII).

package sii

import (
	"crypto/rsa"
	"crypto/x509"
	"time"
)

// DocumentShape identifica la estructura del documento a firmar. Se fija al
// construir el XML, nunca se vuelve a inferir inspeccionando los tags.
type DocumentShape int

const (
	// ShapeDTE firma el <Documento> de un DTE individual.
	ShapeDTE DocumentShape = iota
	// ShapeEnvelope firma el <SetDTE> de un sobre EnvioDTE.
	ShapeEnvelope
	// ShapeBook firma el <EnvioLibro> de un libro de compra/venta.
	ShapeBook
	// ShapeExchangeResult firma el <Resultado> de una RespuestaDTE.
	ShapeExchangeResult
	// ShapeReceipts firma un EnvioRecibos: primero el <DocumentoRecibo> de
	// cada <Recibo> y luego el <SetRecibos> completo (firma anidada,
	// exigida por la Ley 19.983).
	ShapeReceipts
	// ShapeToken firma el documento completo (URI vacía), usado en la
	// solicitud de token de sesión del SII.
	ShapeToken
)

// TargetTag tag del elemento firmado para cada estructura.
func (s DocumentShape) TargetTag() string {
	switch s {
	case ShapeDTE:
		return "Documento"
	case ShapeEnvelope:
		return "SetDTE"
	case ShapeBook:
		return "EnvioLibro"
	case ShapeExchangeResult:
		return "Resultado"
	case ShapeReceipts:
		return "SetRecibos"
	default:
		return ""
	}
}

// Certificate valor inmutable con la identidad de firma de un cliente.
// Se construye desde el PKCS#12 y no mantiene estado oculto.
type Certificate struct {
	PrivateKey *rsa.PrivateKey
	Leaf       *x509.Certificate
	RUT        string // RUT del titular (subject serialNumber del certificado)
	NotBefore  time.Time
	NotAfter   time.Time
}

// Valid indica si el certificado está vigente en el instante dado.
func (c Certificate) Valid(at time.Time) bool {
	return !at.Before(c.NotBefore) && !at.After(c.NotAfter)
}

// Signer firma un XML según el perfil del SII (C14N + SHA1 + RSA PKCS#1 v1.5)
// e inserta el nodo <Signature> como último hijo de la raíz.
type Signer interface {
	// Sign firma el elemento identificado por ref (atributo ID) dentro del
	// XML según la estructura shape, y devuelve el documento completo con
	// declaración ISO-8859-1 y firma incluida.
	Sign(xmlBytes []byte, shape DocumentShape, ref string, cert Certificate) ([]byte, error)
}
