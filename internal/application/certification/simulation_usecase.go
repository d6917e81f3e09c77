package certification

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	domainsii "github.com/tu-usuario/certificacion-sii/internal/domain/sii"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// Límites del tamaño de una simulación: el ambiente de certificación del SII
// espera envíos de prueba de entre 20 y 100 documentos.
const (
	simulationMinDocs = 20
	simulationMaxDocs = 100
)

// SimulationUseCase genera sets de documentos inventados para ensayar el
// flujo completo contra el ambiente de certificación: facturas con líneas
// aleatorias del catálogo, notas de crédito y débito que las referencian,
// todo timbrado y firmado, más el sobre de envío y su seguimiento.
type SimulationUseCase struct {
	sims      repository.SimulationRepository
	clients   repository.ClientInfoRepository
	folios    repository.FolioAssignmentRepository
	docs      repository.DocumentRepository
	envRepo   repository.EnvelopeRepository
	envelopes *EnvelopeUseCase

	stamper  *infrasii.StampService
	builder  *infrasii.DTEBuilder
	signer   pkgsii.Signer
	loadCert CertificateLoader
	rng      *rand.Rand
	log      *logger.Logger
}

// NewSimulationUseCase construye el caso de uso.
func NewSimulationUseCase(
	sims repository.SimulationRepository,
	clients repository.ClientInfoRepository,
	folios repository.FolioAssignmentRepository,
	docs repository.DocumentRepository,
	envRepo repository.EnvelopeRepository,
	envelopes *EnvelopeUseCase,
	stamper *infrasii.StampService,
	builder *infrasii.DTEBuilder,
	signer pkgsii.Signer,
	loadCert CertificateLoader,
	log *logger.Logger,
) *SimulationUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &SimulationUseCase{
		sims:      sims,
		clients:   clients,
		folios:    folios,
		docs:      docs,
		envRepo:   envRepo,
		envelopes: envelopes,
		stamper:   stamper,
		builder:   builder,
		signer:    signer,
		loadCert:  loadCert,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       log,
	}
}

// SimulationInput parámetros de una nueva simulación. Los folios de inicio
// en 0 piden asignación automática (próximo folio libre del CAF).
type SimulationInput struct {
	Name     string
	DateFrom time.Time
	DateTo   time.Time

	TotalDocuments int
	NumInvoices    int
	NumCreditNotes int
	NumDebitNotes  int

	StartFolioInvoice    int
	StartFolioCreditNote int
	StartFolioDebitNote  int
}

// Create valida la distribución y los rangos de folio y registra la
// simulación en borrador.
func (uc *SimulationUseCase) Create(projectID string, in SimulationInput) (*entity.Simulation, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("simulación: %w: el nombre es requerido", domain.ErrInvalidInput)
	}
	if in.DateFrom.IsZero() || in.DateTo.IsZero() || in.DateTo.Before(in.DateFrom) {
		return nil, fmt.Errorf("simulación: %w: rango de fechas inválido", domain.ErrInvalidInput)
	}
	if in.TotalDocuments < simulationMinDocs || in.TotalDocuments > simulationMaxDocs {
		return nil, fmt.Errorf("simulación: %w: el total de documentos debe estar entre %d y %d",
			domain.ErrInvalidInput, simulationMinDocs, simulationMaxDocs)
	}
	if in.NumInvoices+in.NumCreditNotes+in.NumDebitNotes != in.TotalDocuments {
		return nil, fmt.Errorf(
			"simulación: %w: la suma de facturas, notas de crédito y notas de débito debe ser igual al total",
			domain.ErrInvalidInput)
	}
	if in.NumInvoices < 1 {
		return nil, fmt.Errorf("simulación: %w: se requiere al menos una factura", domain.ErrInvalidInput)
	}
	if in.StartFolioInvoice < 0 || in.StartFolioCreditNote < 0 || in.StartFolioDebitNote < 0 {
		return nil, fmt.Errorf(
			"simulación: %w: los folios de inicio no pueden ser negativos; use 0 para asignación automática",
			domain.ErrInvalidInput)
	}

	plan := []struct {
		typeCode string
		start    int
		count    int
	}{
		{pkgsii.DocTypeFacturaAfecta, in.StartFolioInvoice, in.NumInvoices},
		{pkgsii.DocTypeNotaCredito, in.StartFolioCreditNote, in.NumCreditNotes},
		{pkgsii.DocTypeNotaDebito, in.StartFolioDebitNote, in.NumDebitNotes},
	}
	for _, p := range plan {
		if p.start == 0 || p.count == 0 {
			continue
		}
		if err := uc.validateManualRange(projectID, p.typeCode, p.start, p.count); err != nil {
			return nil, err
		}
	}

	sim := &entity.Simulation{
		ID:                   uuid.NewString(),
		ProjectID:            projectID,
		Name:                 strings.TrimSpace(in.Name),
		DateFrom:             in.DateFrom,
		DateTo:               in.DateTo,
		TotalDocuments:       in.TotalDocuments,
		NumInvoices:          in.NumInvoices,
		NumCreditNotes:       in.NumCreditNotes,
		NumDebitNotes:        in.NumDebitNotes,
		StartFolioInvoice:    in.StartFolioInvoice,
		StartFolioCreditNote: in.StartFolioCreditNote,
		StartFolioDebitNote:  in.StartFolioDebitNote,
		Status:               entity.SimulationStatusDraft,
	}
	if err := uc.sims.Create(sim); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("simulación", sim.Name).
		Int("documentos", sim.TotalDocuments).
		Msg("simulación creada")
	return sim, nil
}

// validateManualRange un folio de inicio manual debe caber, junto con la
// cantidad pedida, dentro del CAF cargado para el tipo.
func (uc *SimulationUseCase) validateManualRange(projectID, typeCode string, start, count int) error {
	assignment, err := uc.folios.GetByProjectAndType(projectID, typeCode)
	if err != nil {
		return err
	}
	var candidates []domainsii.RangeCandidate
	if assignment != nil {
		candidates = append(candidates, domainsii.RangeCandidate{
			Name:       assignment.CAFFilename,
			FolioStart: assignment.FolioStart,
			FolioEnd:   assignment.FolioEnd,
		})
	}
	if err := domainsii.ValidateRange(candidates, start, start+count-1); err != nil {
		return fmt.Errorf("simulación (tipo %s): %w", typeCode, err)
	}
	return nil
}

// GenerateDocuments genera, timbra y firma todos los documentos de la
// simulación: primero las facturas, después las notas que las referencian.
func (uc *SimulationUseCase) GenerateDocuments(simulationID string) (*entity.Simulation, error) {
	sim, err := uc.sims.GetByID(simulationID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(simulationTransitions, "simulación", sim.Status, entity.SimulationStatusGenerated); err != nil {
		return nil, err
	}

	client, err := uc.clients.GetByProjectID(sim.ProjectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("simulación: %w", domain.ErrMissingClientConfig)
	}
	if len(client.CertificateFile) == 0 {
		return nil, fmt.Errorf("simulación: %w", domain.ErrMissingCertificate)
	}
	cert, err := uc.loadCert(client.CertificateFile, client.CertificatePassword)
	if err != nil {
		return nil, err
	}

	invoices, err := uc.generateInvoices(sim, client, cert)
	if err != nil {
		return nil, err
	}
	if err := uc.generateCreditNotes(sim, client, cert, invoices); err != nil {
		return nil, err
	}
	if err := uc.generateDebitNotes(sim, client, cert, invoices); err != nil {
		return nil, err
	}

	sim.Status = entity.SimulationStatusGenerated
	if err := uc.sims.Update(sim); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("simulación", sim.Name).
		Int("facturas", sim.NumInvoices).
		Int("notas_crédito", sim.NumCreditNotes).
		Int("notas_débito", sim.NumDebitNotes).
		Msg("documentos de simulación generados y firmados")
	return sim, nil
}

// folioPlan rango consecutivo de folios resuelto para un tipo: el CAF
// parseado y el primer folio (manual o próximo libre).
type folioPlan struct {
	assignment *entity.FolioAssignment
	caf        *infrasii.CAF
	start      int
}

// resolveFolios resuelve el plan de folios para count documentos del tipo.
func (uc *SimulationUseCase) resolveFolios(projectID, typeCode string, manualStart, count int) (*folioPlan, error) {
	assignment, err := uc.folios.GetByProjectAndType(projectID, typeCode)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, fmt.Errorf("simulación: %w (tipo %s)", domain.ErrNoFolioAssignment, typeCode)
	}

	start := manualStart
	if start == 0 {
		used, err := uc.folios.UsedFolios(projectID, typeCode)
		if err != nil {
			return nil, err
		}
		start = domainsii.NextFolio(assignment.FolioStart, used)
	}

	candidates := []domainsii.RangeCandidate{{
		Name:       assignment.CAFFilename,
		FolioStart: assignment.FolioStart,
		FolioEnd:   assignment.FolioEnd,
	}}
	if err := domainsii.ValidateRange(candidates, start, start+count-1); err != nil {
		return nil, fmt.Errorf("simulación (tipo %s): %w", typeCode, err)
	}

	caf, err := infrasii.ParseCAF(assignment.CAFFile)
	if err != nil {
		return nil, err
	}
	return &folioPlan{assignment: assignment, caf: caf, start: start}, nil
}

func (uc *SimulationUseCase) generateInvoices(
	sim *entity.Simulation,
	client *entity.ClientInfo,
	cert pkgsii.Certificate,
) ([]*entity.GeneratedDocument, error) {
	plan, err := uc.resolveFolios(sim.ProjectID, pkgsii.DocTypeFacturaAfecta, sim.StartFolioInvoice, sim.NumInvoices)
	if err != nil {
		return nil, err
	}

	invoices := make([]*entity.GeneratedDocument, 0, sim.NumInvoices)
	for i := 0; i < sim.NumInvoices; i++ {
		lines, totals := invoiceLines(uc.rng)
		doc, err := uc.buildDocument(sim, client, plan, cert, pkgsii.DocTypeFacturaAfecta,
			plan.start+i, randomDate(sim.DateFrom, sim.DateTo, uc.rng), lines, totals, nil)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, doc)
	}
	return invoices, nil
}

// generateCreditNotes una NC por factura sorteada: entre el 20% y el 80% del
// neto. CodRef 1 (anula) sólo cuando el total coincide con el de la factura;
// en cualquier otro caso CodRef 3 (corrige montos).
func (uc *SimulationUseCase) generateCreditNotes(
	sim *entity.Simulation,
	client *entity.ClientInfo,
	cert pkgsii.Certificate,
	invoices []*entity.GeneratedDocument,
) error {
	if sim.NumCreditNotes == 0 {
		return nil
	}
	plan, err := uc.resolveFolios(sim.ProjectID, pkgsii.DocTypeNotaCredito, sim.StartFolioCreditNote, sim.NumCreditNotes)
	if err != nil {
		return err
	}

	refs := sampleDocuments(invoices, sim.NumCreditNotes, uc.rng)
	for i, invoice := range refs {
		neto := invoice.SubtotalTaxable.IntPart() * int64(20+uc.rng.Intn(61)) / 100
		totals := taxedTotals(neto)

		codRef := pkgsii.CodRefCorrigeMontos
		if totals.MntTotal == invoice.TotalAmount.IntPart() {
			codRef = pkgsii.CodRefAnula
		}
		reason := creditNoteReasons[uc.rng.Intn(len(creditNoteReasons))]

		_, err := uc.buildDocument(sim, client, plan, cert, pkgsii.DocTypeNotaCredito,
			plan.start+i, noteDate(invoice.IssueDate, sim.DateTo, uc.rng),
			noteLine(reason, neto), totals,
			[]infrasii.Reference{invoiceReference(invoice, codRef, reason)})
		if err != nil {
			return err
		}
	}
	return nil
}

// generateDebitNotes una ND por factura sorteada: entre el 10% y el 30% del
// neto, siempre CodRef 3.
func (uc *SimulationUseCase) generateDebitNotes(
	sim *entity.Simulation,
	client *entity.ClientInfo,
	cert pkgsii.Certificate,
	invoices []*entity.GeneratedDocument,
) error {
	if sim.NumDebitNotes == 0 {
		return nil
	}
	plan, err := uc.resolveFolios(sim.ProjectID, pkgsii.DocTypeNotaDebito, sim.StartFolioDebitNote, sim.NumDebitNotes)
	if err != nil {
		return err
	}

	refs := sampleDocuments(invoices, sim.NumDebitNotes, uc.rng)
	for i, invoice := range refs {
		neto := invoice.SubtotalTaxable.IntPart() * int64(10+uc.rng.Intn(21)) / 100
		reason := debitNoteReasons[uc.rng.Intn(len(debitNoteReasons))]

		_, err := uc.buildDocument(sim, client, plan, cert, pkgsii.DocTypeNotaDebito,
			plan.start+i, noteDate(invoice.IssueDate, sim.DateTo, uc.rng),
			noteLine(reason, neto), taxedTotals(neto),
			[]infrasii.Reference{invoiceReference(invoice, pkgsii.CodRefCorrigeMontos, reason)})
		if err != nil {
			return err
		}
	}
	return nil
}

// buildDocument ejecuta el pipeline completo de un documento simulado:
// TED, código de barras, XML, firma, y lo persiste ya firmado.
func (uc *SimulationUseCase) buildDocument(
	sim *entity.Simulation,
	client *entity.ClientInfo,
	plan *folioPlan,
	cert pkgsii.Certificate,
	typeCode string,
	folio int,
	issueDate time.Time,
	lines []infrasii.DetailLine,
	totals infrasii.Totals,
	refs []infrasii.Reference,
) (*entity.GeneratedDocument, error) {
	if err := infrasii.VerifyFolioInCAF(plan.caf, folio, plan.assignment.FolioStart, plan.assignment.FolioEnd); err != nil {
		return nil, err
	}

	receiver := siiReceiver()
	data := infrasii.DocumentData{
		TipoDTE:      typeCode,
		Folio:        folio,
		FechaEmision: issueDate,
		Emisor:       emitterParty(client),
		Receptor:     receiver,
		Detalle:      lines,
		Referencias:  refs,
		Totales:      totals,
	}

	now := time.Now()
	tedXML, err := uc.stamper.Generate(infrasii.StampData{
		RutEmisor:    data.Emisor.RUT,
		TipoDTE:      typeCode,
		Folio:        folio,
		FechaEmision: issueDate,
		RutReceptor:  receiver.RUT,
		RznSocRecep:  receiver.RazonSocial,
		MontoTotal:   fmt.Sprintf("%d", totals.MntTotal),
		PrimerItem:   lines[0].Nombre,
	}, plan.caf, now)
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

	signed, err := uc.signer.Sign([]byte(xmlDTE), pkgsii.ShapeDTE, data.DocumentID(), cert)
	if err != nil {
		return nil, err
	}

	doc := &entity.GeneratedDocument{
		ID:               uuid.NewString(),
		ProjectID:        sim.ProjectID,
		SimulationID:     sim.ID,
		DocumentTypeCode: typeCode,
		Folio:            folio,
		IssueDate:        issueDate,
		ReceiverRUT:      receiver.RUT,
		ReceiverName:     receiver.RazonSocial,
		ReceiverGiro:     receiver.Giro,
		ReceiverAddress:  receiver.Address,
		ReceiverCommune:  receiver.Commune,
		SubtotalTaxable:  decimal.NewFromInt(totals.MntNeto),
		SubtotalExempt:   decimal.NewFromInt(totals.MntExe),
		TaxAmount:        decimal.NewFromInt(totals.IVA),
		TotalAmount:      decimal.NewFromInt(totals.MntTotal),
		XMLDTE:           []byte(xmlDTE),
		TEDXML:           []byte(tedXML),
		Barcode:          barcode,
		XMLSigned:        signed,
		Status:           entity.DocumentStatusSigned,
	}
	if err := uc.docs.Create(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CreateEnvelope arma, firma y valida el sobre con todos los documentos de
// la simulación.
func (uc *SimulationUseCase) CreateEnvelope(simulationID string) (*entity.Simulation, error) {
	sim, err := uc.sims.GetByID(simulationID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(simulationTransitions, "simulación", sim.Status, entity.SimulationStatusEnvelopeCreated); err != nil {
		return nil, err
	}

	docs, err := uc.docs.ListBySimulation(sim.ID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("simulación: %w: no hay documentos generados", domain.ErrConflict)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}

	envelope, err := uc.envelopes.Create(sim.ProjectID, fmt.Sprintf("Simulación - %s", sim.Name), ids)
	if err != nil {
		return nil, err
	}
	if _, err := uc.envelopes.Sign(envelope.ID); err != nil {
		return nil, err
	}
	schema, err := uc.envelopes.Validate(envelope.ID)
	if err != nil {
		return nil, err
	}
	if !schema.OK() {
		return nil, fmt.Errorf("simulación: %w: el sobre no pasa el esquema: %s",
			domain.ErrConflict, strings.Join(schema.Errors, "; "))
	}

	sim.EnvelopeID = &envelope.ID
	sim.Status = entity.SimulationStatusEnvelopeCreated
	if err := uc.sims.Update(sim); err != nil {
		return nil, err
	}

	uc.log.Info().Str("simulación", sim.Name).Int("documentos", len(ids)).Msg("sobre de simulación creado y firmado")
	return sim, nil
}

// Send envía el sobre de la simulación al SII y registra el track id.
func (uc *SimulationUseCase) Send(ctx context.Context, simulationID string) (*entity.Simulation, error) {
	sim, err := uc.sims.GetByID(simulationID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(simulationTransitions, "simulación", sim.Status, entity.SimulationStatusSent); err != nil {
		return nil, err
	}
	if sim.EnvelopeID == nil {
		return nil, fmt.Errorf("simulación: %w: no tiene sobre creado", domain.ErrConflict)
	}

	envelope, err := uc.envelopes.Send(ctx, *sim.EnvelopeID)
	if err != nil {
		return nil, err
	}

	sim.TrackID = envelope.TrackID
	sim.Status = entity.SimulationStatusSent
	if err := uc.sims.Update(sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// CheckStatus consulta al SII el estado del envío de la simulación.
func (uc *SimulationUseCase) CheckStatus(ctx context.Context, simulationID string) (*entity.Simulation, error) {
	sim, err := uc.sims.GetByID(simulationID)
	if err != nil {
		return nil, err
	}
	if sim.EnvelopeID == nil {
		return nil, fmt.Errorf("simulación: %w: no tiene sobre creado", domain.ErrConflict)
	}

	envelope, err := uc.envelopes.CheckStatus(ctx, *sim.EnvelopeID)
	if err != nil {
		return nil, err
	}

	sim.SiiStatus = envelope.SiiStatus
	switch envelope.Status {
	case entity.EnvelopeStatusAccepted:
		sim.Status = entity.SimulationStatusAccepted
	case entity.EnvelopeStatusRejected:
		sim.Status = entity.SimulationStatusRejected
	}
	if err := uc.sims.Update(sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// BackToDraft borra el sobre y los documentos generados y vuelve la
// simulación a borrador. Los folios consumidos no se recuperan.
func (uc *SimulationUseCase) BackToDraft(simulationID string) (*entity.Simulation, error) {
	sim, err := uc.sims.GetByID(simulationID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(simulationTransitions, "simulación", sim.Status, entity.SimulationStatusDraft); err != nil {
		return nil, err
	}

	// El sobre referencia a los documentos: se borra primero.
	if sim.EnvelopeID != nil {
		if err := uc.envRepo.Delete(*sim.EnvelopeID); err != nil {
			return nil, err
		}
	}
	docs, err := uc.docs.ListBySimulation(sim.ID)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if err := uc.docs.Delete(doc.ID); err != nil {
			return nil, err
		}
	}

	sim.EnvelopeID = nil
	sim.TrackID = ""
	sim.SiiStatus = ""
	sim.ErrorMessage = ""
	sim.Status = entity.SimulationStatusDraft
	if err := uc.sims.Update(sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// GetByID devuelve una simulación.
func (uc *SimulationUseCase) GetByID(simulationID string) (*entity.Simulation, error) {
	return uc.sims.GetByID(simulationID)
}

// ListByProject lista las simulaciones de un proyecto.
func (uc *SimulationUseCase) ListByProject(projectID string) ([]*entity.Simulation, error) {
	return uc.sims.ListByProject(projectID)
}

// Documents lista los documentos generados por la simulación.
func (uc *SimulationUseCase) Documents(simulationID string) ([]*entity.GeneratedDocument, error) {
	return uc.docs.ListBySimulation(simulationID)
}

// sampleDocuments sortea count facturas sin repetir mientras alcancen; si se
// piden más notas que facturas, las sobrantes reutilizan facturas al azar.
func sampleDocuments(docs []*entity.GeneratedDocument, count int, rng *rand.Rand) []*entity.GeneratedDocument {
	picked := make([]*entity.GeneratedDocument, 0, count)
	for _, idx := range rng.Perm(len(docs)) {
		if len(picked) == count {
			return picked
		}
		picked = append(picked, docs[idx])
	}
	for len(picked) < count {
		picked = append(picked, docs[rng.Intn(len(docs))])
	}
	return picked
}
