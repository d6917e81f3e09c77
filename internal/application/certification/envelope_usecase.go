package certification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// EnvelopeUseCase arma, firma y envía los sobres EnvioDTE, y hace el
// seguimiento del track id hasta un estado terminal.
type EnvelopeUseCase struct {
	clients   repository.ClientInfoRepository
	envelopes repository.EnvelopeRepository
	docs      repository.DocumentRepository
	responses repository.SiiResponseRepository

	builder   *infrasii.EnvelopeBuilder
	signer    pkgsii.Signer
	validator *infrasii.SchemaValidator
	transport SiiTransport
	loadCert  CertificateLoader
	log       *logger.Logger
}

// NewEnvelopeUseCase construye el caso de uso.
func NewEnvelopeUseCase(
	clients repository.ClientInfoRepository,
	envelopes repository.EnvelopeRepository,
	docs repository.DocumentRepository,
	responses repository.SiiResponseRepository,
	builder *infrasii.EnvelopeBuilder,
	signer pkgsii.Signer,
	validator *infrasii.SchemaValidator,
	transport SiiTransport,
	loadCert CertificateLoader,
	log *logger.Logger,
) *EnvelopeUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &EnvelopeUseCase{
		clients:   clients,
		envelopes: envelopes,
		docs:      docs,
		responses: responses,
		builder:   builder,
		signer:    signer,
		validator: validator,
		transport: transport,
		loadCert:  loadCert,
		log:       log,
	}
}

// Create arma el XML del sobre con los documentos firmados indicados.
func (uc *EnvelopeUseCase) Create(projectID, name string, documentIDs []string) (*entity.Envelope, error) {
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("sobre: %w: se requiere al menos un documento", domain.ErrInvalidInput)
	}

	client, err := uc.clients.GetByProjectID(projectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("sobre: %w", domain.ErrMissingClientConfig)
	}

	docs, err := uc.docs.ListByIDs(documentIDs)
	if err != nil {
		return nil, err
	}
	if len(docs) != len(documentIDs) {
		return nil, fmt.Errorf("sobre: %w: algún documento no existe", domain.ErrNotFound)
	}

	envDocs := make([]infrasii.EnvelopeDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.Status != entity.DocumentStatusSigned {
			return nil, fmt.Errorf("sobre: %w: el documento F%dT%s no está firmado (estado %s)",
				domain.ErrConflict, doc.Folio, doc.DocumentTypeCode, doc.Status)
		}
		envDocs = append(envDocs, infrasii.EnvelopeDocument{
			TipoDTE:   doc.DocumentTypeCode,
			Folio:     doc.Folio,
			SignedXML: string(doc.XMLSigned),
		})
	}

	nroResol, err := resolutionNumber(client)
	if err != nil {
		return nil, err
	}

	xml, err := uc.builder.Build(infrasii.EnvelopeData{
		RutEmisor:    client.RUT,
		RutEnvia:     senderRUT(client),
		RutReceptor:  pkgsii.SiiRUT,
		FchResol:     client.ResolutionDate,
		NroResol:     nroResol,
		TmstFirmaEnv: time.Now(),
		Documentos:   envDocs,
	})
	if err != nil {
		return nil, err
	}

	envelope := &entity.Envelope{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Name:        name,
		Status:      entity.EnvelopeStatusCreated,
		DocumentIDs: documentIDs,
		EnvelopeXML: []byte(xml),
	}
	if err := uc.envelopes.Create(envelope); err != nil {
		return nil, err
	}

	uc.log.Info().Str("sobre", name).Int("documentos", len(docs)).Msg("sobre creado")
	return envelope, nil
}

// Sign firma el SetDTE del sobre con el certificado del cliente.
func (uc *EnvelopeUseCase) Sign(envelopeID string) (*entity.Envelope, error) {
	envelope, err := uc.envelopes.GetByID(envelopeID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(envelopeTransitions, "sobre", envelope.Status, entity.EnvelopeStatusSigned); err != nil {
		return nil, err
	}

	cert, err := uc.certificate(envelope.ProjectID)
	if err != nil {
		return nil, err
	}

	signed, err := uc.signer.Sign(envelope.EnvelopeXML, pkgsii.ShapeEnvelope, infrasii.SetDTEReferenceID, cert)
	if err != nil {
		return nil, err
	}

	envelope.EnvelopeXMLSigned = signed
	envelope.Status = entity.EnvelopeStatusSigned
	if err := uc.envelopes.Update(envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// Validate ejecuta el chequeo de esquema del sobre firmado sin mover estado.
func (uc *EnvelopeUseCase) Validate(envelopeID string) (*infrasii.SchemaResult, error) {
	envelope, err := uc.envelopes.GetByID(envelopeID)
	if err != nil {
		return nil, err
	}
	xml := envelope.EnvelopeXMLSigned
	if len(xml) == 0 {
		xml = envelope.EnvelopeXML
	}
	if len(xml) == 0 {
		return nil, fmt.Errorf("sobre: %w: aún no tiene XML generado", domain.ErrConflict)
	}
	return uc.validator.Validate(xml, pkgsii.ShapeEnvelope)
}

// Send autentica contra el SII, carga el sobre firmado y registra el track
// id. Los documentos incluidos transicionan a sent junto con el sobre.
func (uc *EnvelopeUseCase) Send(ctx context.Context, envelopeID string) (*entity.Envelope, error) {
	envelope, err := uc.envelopes.GetByID(envelopeID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(envelopeTransitions, "sobre", envelope.Status, entity.EnvelopeStatusSent); err != nil {
		return nil, err
	}

	client, err := uc.clients.GetByProjectID(envelope.ProjectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("enviar sobre: %w", domain.ErrMissingClientConfig)
	}
	cert, err := uc.certificate(envelope.ProjectID)
	if err != nil {
		return nil, err
	}

	auth, err := uc.transport.Authenticate(ctx, cert)
	if err != nil {
		return nil, err
	}

	filename := envelopeFilename(envelope.Name)
	upload, err := uc.transport.Upload(ctx, auth.Token, senderRUT(client), client.RUT, filename, envelope.EnvelopeXMLSigned)
	if upload != nil {
		uc.appendResponse(envelope, entity.SiiResponseKindUpload, upload.TrackID, upload.Status, upload.Raw)
	}
	if err != nil {
		return nil, err
	}

	envelope.TrackID = upload.TrackID
	envelope.Status = entity.EnvelopeStatusSent
	if err := uc.envelopes.Update(envelope); err != nil {
		return nil, err
	}
	if err := uc.markDocuments(envelope, entity.DocumentStatusSent, ""); err != nil {
		return nil, err
	}

	uc.log.Info().Str("sobre", envelope.Name).Str("track_id", upload.TrackID).Msg("sobre enviado al SII")
	return envelope, nil
}

// CheckStatus consulta el estado del envío por track id y actualiza el sobre
// y sus documentos. Los estados intermedios (recibido, validando) mantienen
// el sobre en sent.
func (uc *EnvelopeUseCase) CheckStatus(ctx context.Context, envelopeID string) (*entity.Envelope, error) {
	envelope, err := uc.envelopes.GetByID(envelopeID)
	if err != nil {
		return nil, err
	}
	if envelope.TrackID == "" {
		return nil, fmt.Errorf("consultar estado: %w: el sobre no tiene track id", domain.ErrConflict)
	}

	client, err := uc.clients.GetByProjectID(envelope.ProjectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("consultar estado: %w", domain.ErrMissingClientConfig)
	}
	cert, err := uc.certificate(envelope.ProjectID)
	if err != nil {
		return nil, err
	}

	auth, err := uc.transport.Authenticate(ctx, cert)
	if err != nil {
		return nil, err
	}
	result, err := uc.transport.QueryStatus(ctx, auth.Token, senderRUT(client), envelope.TrackID)
	if result != nil {
		uc.appendResponse(envelope, entity.SiiResponseKindStatus, envelope.TrackID, result.Estado, result.Raw)
	}
	if err != nil {
		return nil, err
	}

	submission := resolveDTESubmission(result)
	envelope.SiiStatus = result.Estado

	switch submission {
	case pkgsii.SubmissionAccepted:
		envelope.Status = entity.EnvelopeStatusAccepted
		if err := uc.markDocuments(envelope, entity.DocumentStatusAccepted, result.Estado); err != nil {
			return nil, err
		}
	case pkgsii.SubmissionRejected:
		envelope.Status = entity.EnvelopeStatusRejected
		if err := uc.markDocuments(envelope, entity.DocumentStatusRejected, result.Glosa); err != nil {
			return nil, err
		}
	case pkgsii.SubmissionWithRepairs:
		envelope.Status = entity.EnvelopeStatusWithRepairs
	default:
		// received/validating: el sobre sigue en sent.
	}

	if err := uc.envelopes.Update(envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// BackToDraft descarta XML, firma y seguimiento del sobre.
func (uc *EnvelopeUseCase) BackToDraft(envelopeID string) (*entity.Envelope, error) {
	envelope, err := uc.envelopes.GetByID(envelopeID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(envelopeTransitions, "sobre", envelope.Status, entity.EnvelopeStatusDraft); err != nil {
		return nil, err
	}
	envelope.ClearArtifacts()
	if err := uc.envelopes.Update(envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// GetByID devuelve un sobre con sus documentos.
func (uc *EnvelopeUseCase) GetByID(envelopeID string) (*entity.Envelope, error) {
	return uc.envelopes.GetByID(envelopeID)
}

// ListByProject lista los sobres de un proyecto.
func (uc *EnvelopeUseCase) ListByProject(projectID string) ([]*entity.Envelope, error) {
	return uc.envelopes.ListByProject(projectID)
}

// Responses devuelve la bitácora de interacciones del sobre con el SII.
func (uc *EnvelopeUseCase) Responses(envelopeID string) ([]*entity.SiiResponse, error) {
	return uc.responses.ListByEnvelope(envelopeID)
}

func (uc *EnvelopeUseCase) certificate(projectID string) (pkgsii.Certificate, error) {
	client, err := uc.clients.GetByProjectID(projectID)
	if err != nil {
		return pkgsii.Certificate{}, err
	}
	if client == nil {
		return pkgsii.Certificate{}, fmt.Errorf("sobre: %w", domain.ErrMissingClientConfig)
	}
	if len(client.CertificateFile) == 0 {
		return pkgsii.Certificate{}, fmt.Errorf("sobre: %w", domain.ErrMissingCertificate)
	}
	return uc.loadCert(client.CertificateFile, client.CertificatePassword)
}

// markDocuments transiciona los documentos del sobre en bloque; los que no
// admiten la transición se dejan como están (pueden venir de otro sobre).
func (uc *EnvelopeUseCase) markDocuments(envelope *entity.Envelope, status, detail string) error {
	docs, err := uc.docs.ListByIDs(envelope.DocumentIDs)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := ensureTransition(documentTransitions, "documento", doc.Status, status); err != nil {
			continue
		}
		doc.Status = status
		doc.SiiStatus = detail
		if err := uc.docs.Update(doc); err != nil {
			return err
		}
	}
	return nil
}

func (uc *EnvelopeUseCase) appendResponse(envelope *entity.Envelope, kind, trackID, status string, raw []byte) {
	resp := &entity.SiiResponse{
		ID:         uuid.NewString(),
		ProjectID:  envelope.ProjectID,
		EnvelopeID: &envelope.ID,
		Kind:       kind,
		TrackID:    trackID,
		Status:     status,
		RawXML:     raw,
	}
	if err := uc.responses.Append(resp); err != nil {
		uc.log.Error().Err(err).Str("sobre", envelope.Name).Msg("no se pudo registrar la respuesta del SII")
	}
}

// resolveDTESubmission mapea el estado crudo del SII al estado interno,
// desambiguando EPR con los contadores del detalle.
func resolveDTESubmission(result *infrasii.StatusResult) string {
	if result.Estado == "EPR" {
		return pkgsii.ResolveEPR(result.Informados, result.Aceptados, result.Rechazados, result.Reparos)
	}
	if status, ok := pkgsii.MapDTEStatus(result.Estado); ok {
		return status
	}
	return pkgsii.SubmissionValidating
}

// senderRUT RUT que firma y envía: el titular del certificado si se conoce,
// si no el de la empresa.
func senderRUT(client *entity.ClientInfo) string {
	if client.SubjectSerialNumber != "" {
		return client.SubjectSerialNumber
	}
	return client.RUT
}

// resolutionNumber número de resolución SII del cliente como entero.
func resolutionNumber(client *entity.ClientInfo) (int, error) {
	if client.ResolutionNumber == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(client.ResolutionNumber))
	if err != nil {
		return 0, fmt.Errorf("sobre: %w: número de resolución %q no es numérico",
			domain.ErrInvalidInput, client.ResolutionNumber)
	}
	return n, nil
}

// envelopeFilename nombre del archivo de carga: EnvioDTE_<nombre>.xml.
func envelopeFilename(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return fmt.Sprintf("EnvioDTE_%s.xml", clean)
}
