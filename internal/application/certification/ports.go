// Package certification orquesta el ciclo de certificación DTE: generación de
// documentos, sobres, libros, intercambio y seguimiento de envíos al SII.
package certification

import (
	"context"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// SiiTransport puerto de salida hacia los servicios del SII. La
// implementación concreta es el cliente HTTP; para tests se inyecta un fake.
type SiiTransport interface {
	// Authenticate ejecuta el handshake semilla/token con el certificado.
	Authenticate(ctx context.Context, cert pkgsii.Certificate) (*infrasii.AuthResult, error)
	// Upload carga un sobre o libro firmado y devuelve el track id.
	Upload(ctx context.Context, token, senderRUT, companyRUT, filename string, content []byte) (*infrasii.UploadResult, error)
	// QueryStatus consulta el estado asíncrono de un envío.
	QueryStatus(ctx context.Context, token, senderRUT, trackID string) (*infrasii.StatusResult, error)
}

// CertificateLoader decodifica el PKCS#12 del cliente en un certificado de
// firma. La implementación real es signer.LoadCertificate; los tests
// inyectan certificados autofirmados sin pasar por PKCS#12.
type CertificateLoader func(data []byte, password string) (pkgsii.Certificate, error)

// DTERenderer genera la representación impresa de un documento. La
// implementación concreta usa Maroto; recibe el snapshot completo porque el
// PDF muestra datos del emisor, del caso y del documento.
type DTERenderer interface {
	Render(doc *entity.GeneratedDocument, client *entity.ClientInfo, c *entity.CertificationCase) ([]byte, error)
}

// DocumentTxRunner ejecuta la asignación de folio y la creación del
// documento en una sola transacción (folio atómico por proyecto+tipo).
type DocumentTxRunner interface {
	RunDocumentGeneration(ctx context.Context, fn func(
		folioRepo repository.FolioAssignmentRepository,
		docRepo repository.DocumentRepository,
	) error) error
}
