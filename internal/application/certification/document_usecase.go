package certification

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	domainsii "github.com/tu-usuario/certificacion-sii/internal/domain/sii"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// DocumentUseCase orquesta el pipeline de un documento:
//
//	folio → ensamblado → TED → código de barras → XML DTE → validación → firma
//
// La reserva de folio y la inserción del documento corren en una sola
// transacción (DocumentTxRunner) para que el folio no pueda duplicarse bajo
// generación concurrente.
type DocumentUseCase struct {
	tx      DocumentTxRunner
	clients repository.ClientInfoRepository
	cases   repository.CaseRepository
	folios  repository.FolioAssignmentRepository
	docs    repository.DocumentRepository

	assembler *DocumentAssembler
	stamper   *infrasii.StampService
	builder   *infrasii.DTEBuilder
	signer    pkgsii.Signer
	validator *infrasii.SchemaValidator
	loadCert  CertificateLoader
	renderer  DTERenderer
	log       *logger.Logger
}

// NewDocumentUseCase construye el caso de uso con todas sus dependencias.
func NewDocumentUseCase(
	tx DocumentTxRunner,
	clients repository.ClientInfoRepository,
	cases repository.CaseRepository,
	folios repository.FolioAssignmentRepository,
	docs repository.DocumentRepository,
	assembler *DocumentAssembler,
	stamper *infrasii.StampService,
	builder *infrasii.DTEBuilder,
	signer pkgsii.Signer,
	validator *infrasii.SchemaValidator,
	loadCert CertificateLoader,
	renderer DTERenderer,
	log *logger.Logger,
) *DocumentUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentUseCase{
		tx:        tx,
		clients:   clients,
		cases:     cases,
		folios:    folios,
		docs:      docs,
		assembler: assembler,
		stamper:   stamper,
		builder:   builder,
		signer:    signer,
		validator: validator,
		loadCert:  loadCert,
		renderer:  renderer,
		log:       log,
	}
}

// ValidationReport resultado de la validación de un documento.
type ValidationReport struct {
	Valid    bool
	Messages []string
	Warnings []string
}

// BulkResult resultado de la generación masiva: cuántos documentos se
// generaron y el error de cada caso que falló (la iteración no se aborta).
type BulkResult struct {
	Generated int
	Errors    map[string]string
}

// Generate genera el documento de un caso: reserva el folio, ensambla el
// DTE, timbra y persiste. Si el caso ya tiene un documento en borrador
// (vuelta a borrador), reutiliza su folio en vez de consumir uno nuevo.
func (uc *DocumentUseCase) Generate(caseID string) (*entity.GeneratedDocument, error) {
	c, err := uc.cases.GetByID(caseID)
	if err != nil {
		return nil, err
	}

	client, err := uc.clients.GetByProjectID(c.ProjectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("generar documento: %w", domain.ErrMissingClientConfig)
	}

	refCase, refDoc, err := uc.resolveReference(c)
	if err != nil {
		return nil, err
	}

	existing, err := uc.docs.GetByCaseID(caseID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != entity.DocumentStatusDraft {
		return nil, fmt.Errorf("generar documento: %w: el caso %s ya tiene un documento en estado %s",
			domain.ErrConflict, c.CaseNumber, existing.Status)
	}

	now := time.Now()
	var doc *entity.GeneratedDocument

	err = uc.tx.RunDocumentGeneration(context.Background(), func(
		folioRepo repository.FolioAssignmentRepository,
		docRepo repository.DocumentRepository,
	) error {
		assignment, err := folioRepo.GetByProjectAndType(c.ProjectID, c.DocumentTypeCode)
		if err != nil {
			return err
		}
		if assignment == nil {
			return fmt.Errorf("generar documento: %w (tipo %s)", domain.ErrNoFolioAssignment, c.DocumentTypeCode)
		}

		folio := 0
		if existing != nil && existing.Folio > 0 {
			// El folio ya fue consumido del CAF: se conserva.
			folio = existing.Folio
		} else {
			folio, err = folioRepo.AllocateNextFolio(c.ProjectID, c.DocumentTypeCode)
			if err != nil {
				return err
			}
		}

		built, err := uc.buildArtifacts(c, client, refCase, refDoc, assignment, folio, now)
		if err != nil {
			return err
		}
		doc = built

		if existing != nil {
			doc.ID = existing.ID
			doc.CreatedAt = existing.CreatedAt
			return docRepo.Update(doc)
		}
		return docRepo.Create(doc)
	})
	if err != nil {
		return nil, err
	}

	c.Status = entity.CaseStatusGenerated
	if err := uc.cases.Update(c); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("caso", c.CaseNumber).
		Str("tipo", doc.DocumentTypeCode).
		Int("folio", doc.Folio).
		Msg("documento generado")

	return doc, nil
}

// buildArtifacts ejecuta los pasos puros del pipeline sobre un folio ya
// reservado: ensamblado, TED, código de barras y XML del DTE.
func (uc *DocumentUseCase) buildArtifacts(
	c *entity.CertificationCase,
	client *entity.ClientInfo,
	refCase *entity.CertificationCase,
	refDoc *entity.GeneratedDocument,
	assignment *entity.FolioAssignment,
	folio int,
	now time.Time,
) (*entity.GeneratedDocument, error) {
	data, amounts, err := uc.assembler.Assemble(AssembleInput{
		Case:              c,
		ReferenceCase:     refCase,
		ReferenceDocument: refDoc,
		Client:            client,
		Folio:             folio,
		IssueDate:         now,
	})
	if err != nil {
		return nil, err
	}

	caf, err := infrasii.ParseCAF(assignment.CAFFile)
	if err != nil {
		return nil, err
	}
	if err := infrasii.VerifyFolioInCAF(caf, folio, assignment.FolioStart, assignment.FolioEnd); err != nil {
		return nil, err
	}

	primerItem := ""
	if len(data.Detalle) > 0 {
		primerItem = data.Detalle[0].Nombre
	}
	tedXML, err := uc.stamper.Generate(infrasii.StampData{
		RutEmisor:    data.Emisor.RUT,
		TipoDTE:      data.TipoDTE,
		Folio:        folio,
		FechaEmision: data.FechaEmision,
		RutReceptor:  data.Receptor.RUT,
		RznSocRecep:  data.Receptor.RazonSocial,
		MontoTotal:   fmt.Sprintf("%d", data.Totales.MntTotal),
		PrimerItem:   primerItem,
	}, caf, now)
	if err != nil {
		return nil, err
	}

	barcode, err := infrasii.GenerateBarcode(infrasii.StripTmstFirma(tedXML))
	if err != nil {
		return nil, err
	}

	xmlDTE, err := uc.builder.Build(data, tedXML)
	if err != nil {
		return nil, err
	}

	return &entity.GeneratedDocument{
		ID:               uuid.NewString(),
		ProjectID:        c.ProjectID,
		CaseID:           c.ID,
		DocumentTypeCode: c.DocumentTypeCode,
		Folio:            folio,
		IssueDate:        now,
		ReceiverRUT:      data.Receptor.RUT,
		ReceiverName:     data.Receptor.RazonSocial,
		ReceiverGiro:     data.Receptor.Giro,
		ReceiverAddress:  data.Receptor.Address,
		ReceiverCommune:  data.Receptor.Commune,
		SubtotalTaxable:  amounts.SubtotalTaxable,
		SubtotalExempt:   amounts.SubtotalExempt,
		DiscountAmount:   amounts.DiscountAmount,
		TaxAmount:        amounts.TaxAmount,
		TotalAmount:      amounts.TotalAmount,
		XMLDTE:           []byte(xmlDTE),
		TEDXML:           []byte(tedXML),
		Barcode:          barcode,
		Status:           entity.DocumentStatusGenerated,
	}, nil
}

// GenerateAll genera los documentos de todos los casos pendientes del
// proyecto, uno a uno, acumulando los errores sin abortar. Los casos sin
// referencia se generan primero: las notas necesitan el folio del documento
// que corrigen.
func (uc *DocumentUseCase) GenerateAll(projectID string) (*BulkResult, error) {
	list, err := uc.cases.ListByProject(projectID)
	if err != nil {
		return nil, err
	}

	pending := make([]*entity.CertificationCase, 0, len(list))
	for _, c := range list {
		if c.Status == entity.CaseStatusDraft || c.Status == entity.CaseStatusReady {
			pending = append(pending, c)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		ri, rj := pending[i].ReferenceCaseID != nil, pending[j].ReferenceCaseID != nil
		if ri != rj {
			return !ri
		}
		return pending[i].CaseNumber < pending[j].CaseNumber
	})

	result := &BulkResult{Errors: map[string]string{}}
	for _, c := range pending {
		if _, err := uc.Generate(c.ID); err != nil {
			result.Errors[c.CaseNumber] = err.Error()
			continue
		}
		result.Generated++
	}
	return result, nil
}

// Validate aplica las reglas de negocio y el chequeo de esquema sobre el
// documento generado. Sólo un documento válido transiciona a validated; los
// mensajes quedan registrados en el documento en cualquier caso.
func (uc *DocumentUseCase) Validate(documentID string) (*ValidationReport, error) {
	doc, err := uc.docs.GetByID(documentID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(documentTransitions, "documento", doc.Status, entity.DocumentStatusValidated); err != nil {
		return nil, err
	}

	valid, messages := domainsii.ValidateDocumentRules(doc, time.Now())

	schema, err := uc.validator.Validate(doc.XMLDTE, pkgsii.ShapeDTE)
	if err != nil {
		return nil, err
	}
	if !schema.OK() {
		valid = false
		messages = append(messages, schema.Errors...)
	}

	if valid {
		doc.Status = entity.DocumentStatusValidated
		doc.ErrorMessage = ""
	} else {
		doc.ErrorMessage = strings.Join(messages, "; ")
	}
	if err := uc.docs.Update(doc); err != nil {
		return nil, err
	}

	return &ValidationReport{Valid: valid, Messages: messages, Warnings: schema.Warnings}, nil
}

// Sign firma el Documento del DTE con el certificado del cliente.
func (uc *DocumentUseCase) Sign(documentID string) (*entity.GeneratedDocument, error) {
	doc, err := uc.docs.GetByID(documentID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(documentTransitions, "documento", doc.Status, entity.DocumentStatusSigned); err != nil {
		return nil, err
	}

	cert, err := uc.loadCertificate(doc.ProjectID)
	if err != nil {
		return nil, err
	}

	ref := fmt.Sprintf("F%dT%s", doc.Folio, doc.DocumentTypeCode)
	signed, err := uc.signer.Sign(doc.XMLDTE, pkgsii.ShapeDTE, ref, cert)
	if err != nil {
		doc.ErrorMessage = err.Error()
		_ = uc.docs.Update(doc)
		return nil, err
	}

	doc.XMLSigned = signed
	doc.Status = entity.DocumentStatusSigned
	doc.ErrorMessage = ""
	if err := uc.docs.Update(doc); err != nil {
		return nil, err
	}

	uc.log.Info().Int("folio", doc.Folio).Str("tipo", doc.DocumentTypeCode).Msg("documento firmado")
	return doc, nil
}

// SignAll firma todos los documentos validados del proyecto, acumulando
// errores por caso sin abortar.
func (uc *DocumentUseCase) SignAll(projectID string) (*BulkResult, error) {
	list, err := uc.docs.ListByProject(projectID)
	if err != nil {
		return nil, err
	}
	result := &BulkResult{Errors: map[string]string{}}
	for _, doc := range list {
		if doc.Status != entity.DocumentStatusValidated {
			continue
		}
		if _, err := uc.Sign(doc.ID); err != nil {
			result.Errors[fmt.Sprintf("F%dT%s", doc.Folio, doc.DocumentTypeCode)] = err.Error()
			continue
		}
		result.Generated++
	}
	return result, nil
}

// BackToDraft descarta los artefactos generados y vuelve el documento a
// borrador. El folio asignado se conserva: ya fue consumido del CAF.
func (uc *DocumentUseCase) BackToDraft(documentID string) (*entity.GeneratedDocument, error) {
	doc, err := uc.docs.GetByID(documentID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(documentTransitions, "documento", doc.Status, entity.DocumentStatusDraft); err != nil {
		return nil, err
	}

	doc.ClearArtifacts()
	if err := uc.docs.Update(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RenderPDF genera la representación impresa del documento. Requiere un
// documento ya generado: el PDF incluye el código de barras del timbre.
func (uc *DocumentUseCase) RenderPDF(documentID string) ([]byte, error) {
	doc, err := uc.docs.GetByID(documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == entity.DocumentStatusDraft || len(doc.Barcode) == 0 {
		return nil, fmt.Errorf("pdf del documento %s: %w: el documento no está generado", documentID, domain.ErrConflict)
	}
	client, err := uc.clients.GetByProjectID(doc.ProjectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("pdf: %w", domain.ErrMissingClientConfig)
	}
	// Los documentos de simulación no tienen caso: el renderer usa el
	// snapshot del propio documento.
	var c *entity.CertificationCase
	if doc.CaseID != "" {
		c, err = uc.cases.GetByID(doc.CaseID)
		if err != nil {
			return nil, err
		}
	}
	return uc.renderer.Render(doc, client, c)
}

// GetByID devuelve un documento generado.
func (uc *DocumentUseCase) GetByID(documentID string) (*entity.GeneratedDocument, error) {
	return uc.docs.GetByID(documentID)
}

// ListByProject lista los documentos generados de un proyecto.
func (uc *DocumentUseCase) ListByProject(projectID string) ([]*entity.GeneratedDocument, error) {
	return uc.docs.ListByProject(projectID)
}

// resolveReference resuelve el caso y documento referenciados por una NC/ND.
func (uc *DocumentUseCase) resolveReference(c *entity.CertificationCase) (*entity.CertificationCase, *entity.GeneratedDocument, error) {
	if c.ReferenceCaseID == nil {
		return nil, nil, nil
	}
	refCase, err := uc.cases.GetByID(*c.ReferenceCaseID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolver referencia del caso %s: %w", c.CaseNumber, err)
	}
	refDoc, err := uc.docs.GetByCaseID(refCase.ID)
	if err != nil {
		return nil, nil, err
	}
	if refDoc == nil {
		return nil, nil, fmt.Errorf(
			"generar documento: %w: el caso referenciado %s aún no genera su documento",
			domain.ErrConflict, refCase.CaseNumber)
	}
	return refCase, refDoc, nil
}

// loadCertificate carga el certificado digital del cliente del proyecto.
func (uc *DocumentUseCase) loadCertificate(projectID string) (pkgsii.Certificate, error) {
	client, err := uc.clients.GetByProjectID(projectID)
	if err != nil {
		return pkgsii.Certificate{}, err
	}
	if client == nil {
		return pkgsii.Certificate{}, fmt.Errorf("firmar: %w", domain.ErrMissingClientConfig)
	}
	if len(client.CertificateFile) == 0 {
		return pkgsii.Certificate{}, fmt.Errorf("firmar: %w", domain.ErrMissingCertificate)
	}
	return uc.loadCert(client.CertificateFile, client.CertificatePassword)
}
