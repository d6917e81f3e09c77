// Carga del certificado digital del cliente desde .p12/.pfx (PKCS#12).

package signer

import (
	"crypto/rsa"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// LoadCertificate decodifica un PKCS#12 y devuelve el certificado como valor
// puro: llave privada RSA, certificado hoja, RUT del titular y vigencia.
// No cachea nada; el blob cifrado es la única fuente persistente.
func LoadCertificate(data []byte, password string) (sii.Certificate, error) {
	if len(data) == 0 {
		return sii.Certificate{}, fmt.Errorf("firma: %w: archivo vacío", domain.ErrInvalidCertificate)
	}
	priv, leaf, err := pkcs12.Decode(data, password)
	if err != nil {
		return sii.Certificate{}, fmt.Errorf("firma: %w: decodificar p12: %v", domain.ErrInvalidCertificate, err)
	}
	rsaKey, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return sii.Certificate{}, fmt.Errorf("firma: %w: la llave privada no es RSA", domain.ErrInvalidCertificate)
	}

	// Los certificados de firma tributaria chilenos llevan el RUT del
	// titular en el serialNumber del subject (OID 2.5.4.5).
	rut := leaf.Subject.SerialNumber

	return sii.Certificate{
		PrivateKey: rsaKey,
		Leaf:       leaf,
		RUT:        rut,
		NotBefore:  leaf.NotBefore,
		NotAfter:   leaf.NotAfter,
	}, nil
}

// LoadCertificateFromFile carga el certificado desde una ruta en disco.
func LoadCertificateFromFile(path, password string) (sii.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sii.Certificate{}, fmt.Errorf("firma: leer certificado: %w", err)
	}
	return LoadCertificate(data, password)
}
