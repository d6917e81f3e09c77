package certification

import (
	"fmt"
	"time"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// ExchangeUseCase produce las tres respuestas del set de intercambio sobre
// un sobre recibido de otro contribuyente: recepción del envío, recibos de
// mercaderías (Ley 19.983) y resultado comercial. Cada una se firma con la
// estructura que le corresponde.
type ExchangeUseCase struct {
	clients repository.ClientInfoRepository

	builder  *infrasii.ExchangeBuilder
	signer   pkgsii.Signer
	loadCert CertificateLoader
	log      *logger.Logger
}

// NewExchangeUseCase construye el caso de uso.
func NewExchangeUseCase(
	clients repository.ClientInfoRepository,
	builder *infrasii.ExchangeBuilder,
	signer pkgsii.Signer,
	loadCert CertificateLoader,
	log *logger.Logger,
) *ExchangeUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ExchangeUseCase{clients: clients, builder: builder, signer: signer, loadCert: loadCert, log: log}
}

// ExchangeResponses los tres XML firmados de respuesta a un sobre recibido.
type ExchangeResponses struct {
	Reception []byte // RespuestaDTE / RecepcionEnvio
	Receipts  []byte // EnvioRecibos (firmas anidadas)
	Result    []byte // RespuestaDTE / ResultadoDTE
}

// Respond arma y firma las tres respuestas de intercambio para el sobre
// recibido. RutResponde y RutRecibe van invertidos respecto de la carátula
// que llegó: responde quien recibió.
func (uc *ExchangeUseCase) Respond(projectID string, receivedEnvelope []byte, idRespuesta int, recinto string) (*ExchangeResponses, error) {
	client, err := uc.clients.GetByProjectID(projectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("intercambio: %w", domain.ErrMissingClientConfig)
	}
	if len(client.CertificateFile) == 0 {
		return nil, fmt.Errorf("intercambio: %w", domain.ErrMissingCertificate)
	}
	cert, err := uc.loadCert(client.CertificateFile, client.CertificatePassword)
	if err != nil {
		return nil, err
	}

	received, err := infrasii.ParseReceivedEnvelope(receivedEnvelope)
	if err != nil {
		return nil, err
	}

	data := infrasii.ExchangeData{
		RutResponde: received.RutReceptor,
		RutRecibe:   received.RutEmisor,
		IdRespuesta: idRespuesta,
		TmstFirma:   time.Now(),
		Recinto:     recinto,
		RutFirma:    senderRUT(client),
		Documentos:  received.Documentos,
	}

	reception, err := uc.builder.BuildReception(data, receivedEnvelope, infrasii.SetDTEReferenceID)
	if err != nil {
		return nil, err
	}
	signedReception, err := uc.signer.Sign([]byte(reception), pkgsii.ShapeExchangeResult, infrasii.ResultadoReferenceID, cert)
	if err != nil {
		return nil, fmt.Errorf("intercambio: firmar recepción: %w", err)
	}

	receipts, err := uc.builder.BuildReceipts(data)
	if err != nil {
		return nil, err
	}
	signedReceipts, err := uc.signer.Sign([]byte(receipts), pkgsii.ShapeReceipts, infrasii.SetRecibosReferenceID, cert)
	if err != nil {
		return nil, fmt.Errorf("intercambio: firmar recibos: %w", err)
	}

	result, err := uc.builder.BuildResult(data)
	if err != nil {
		return nil, err
	}
	signedResult, err := uc.signer.Sign([]byte(result), pkgsii.ShapeExchangeResult, infrasii.ResultadoReferenceID, cert)
	if err != nil {
		return nil, fmt.Errorf("intercambio: firmar resultado: %w", err)
	}

	uc.log.Info().
		Str("emisor", received.RutEmisor).
		Int("documentos", len(received.Documentos)).
		Msg("respuestas de intercambio generadas")

	return &ExchangeResponses{
		Reception: signedReception,
		Receipts:  signedReceipts,
		Result:    signedResult,
	}, nil
}
