package certification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	"github.com/tu-usuario/certificacion-sii/pkg/logger"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// BookUseCase arma, firma y envía los libros mensuales de compra/venta.
type BookUseCase struct {
	clients   repository.ClientInfoRepository
	cases     repository.CaseRepository
	docs      repository.DocumentRepository
	books     repository.BookRepository
	responses repository.SiiResponseRepository

	builder   *infrasii.BookBuilder
	signer    pkgsii.Signer
	validator *infrasii.SchemaValidator
	transport SiiTransport
	loadCert  CertificateLoader
	log       *logger.Logger
}

// NewBookUseCase construye el caso de uso.
func NewBookUseCase(
	clients repository.ClientInfoRepository,
	cases repository.CaseRepository,
	docs repository.DocumentRepository,
	books repository.BookRepository,
	responses repository.SiiResponseRepository,
	builder *infrasii.BookBuilder,
	signer pkgsii.Signer,
	validator *infrasii.SchemaValidator,
	transport SiiTransport,
	loadCert CertificateLoader,
	log *logger.Logger,
) *BookUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &BookUseCase{
		clients:   clients,
		cases:     cases,
		docs:      docs,
		books:     books,
		responses: responses,
		builder:   builder,
		signer:    signer,
		validator: validator,
		transport: transport,
		loadCert:  loadCert,
		log:       log,
	}
}

// Create abre un libro en borrador para el período y tipo de operación.
func (uc *BookUseCase) Create(projectID, period, operationType string, folioNotificacion int) (*entity.Book, error) {
	if operationType != entity.BookOperationCompra && operationType != entity.BookOperationVenta {
		return nil, fmt.Errorf("libro: %w: tipo de operación %q", domain.ErrInvalidInput, operationType)
	}
	if _, err := time.Parse("2006-01", period); err != nil {
		return nil, fmt.Errorf("libro: %w: período %q (formato esperado YYYY-MM)", domain.ErrInvalidInput, period)
	}

	book := &entity.Book{
		ID:                uuid.NewString(),
		ProjectID:         projectID,
		Period:            period,
		OperationType:     operationType,
		FolioNotificacion: folioNotificacion,
		Status:            entity.BookStatusDraft,
	}
	if err := uc.books.Create(book); err != nil {
		return nil, err
	}
	return book, nil
}

// PopulateSales reemplaza las líneas de un libro de ventas con los
// documentos generados del proyecto. Las notas de crédito administrativas
// (monto $0) copian los montos de la factura que referencian.
func (uc *BookUseCase) PopulateSales(bookID string) (*entity.Book, error) {
	book, err := uc.books.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if book.OperationType != entity.BookOperationVenta {
		return nil, fmt.Errorf("libro: %w: sólo los libros de venta se pueblan desde documentos",
			domain.ErrInvalidInput)
	}
	if book.Status != entity.BookStatusDraft {
		return nil, fmt.Errorf("libro: %w: estado %s", domain.ErrConflict, book.Status)
	}

	docs, err := uc.docs.ListByProject(book.ProjectID)
	if err != nil {
		return nil, err
	}

	if err := uc.books.DeleteLines(book.ID); err != nil {
		return nil, err
	}

	var lines []entity.BookLine
	for _, doc := range docs {
		if len(doc.XMLDTE) == 0 {
			continue
		}
		line, err := uc.salesLine(book, doc)
		if err != nil {
			return nil, err
		}
		if err := uc.books.CreateLine(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	book.Lines = lines

	uc.log.Info().Str("período", book.Period).Int("líneas", len(lines)).Msg("libro de ventas poblado")
	return book, nil
}

// AddPurchaseLine agrega una línea manual a un libro de compras.
func (uc *BookUseCase) AddPurchaseLine(bookID string, line entity.BookLine) (*entity.BookLine, error) {
	book, err := uc.books.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if book.OperationType != entity.BookOperationCompra {
		return nil, fmt.Errorf("libro: %w: las líneas manuales sólo aplican al libro de compras",
			domain.ErrInvalidInput)
	}
	if book.Status != entity.BookStatusDraft {
		return nil, fmt.Errorf("libro: %w: estado %s", domain.ErrConflict, book.Status)
	}
	if line.PartnerRUT == "" || line.Folio <= 0 {
		return nil, fmt.Errorf("libro: %w: la línea requiere RUT del proveedor y folio", domain.ErrInvalidInput)
	}

	line.ID = uuid.NewString()
	line.BookID = book.ID
	if err := uc.books.CreateLine(&line); err != nil {
		return nil, err
	}
	return &line, nil
}

// Generate arma el XML del libro a partir de sus líneas.
func (uc *BookUseCase) Generate(bookID string) (*entity.Book, error) {
	book, err := uc.books.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(bookTransitions, "libro", book.Status, entity.BookStatusGenerated); err != nil {
		return nil, err
	}

	client, err := uc.clients.GetByProjectID(book.ProjectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("libro: %w", domain.ErrMissingClientConfig)
	}
	nroResol, err := resolutionNumber(client)
	if err != nil {
		return nil, err
	}

	xml, err := uc.builder.Build(infrasii.BookData{
		RutEmisorLibro:    client.RUT,
		RutEnvia:          senderRUT(client),
		Period:            book.Period,
		OperationType:     book.OperationType,
		FolioNotificacion: book.FolioNotificacion,
		FchResol:          client.ResolutionDate,
		NroResol:          nroResol,
		TmstFirma:         time.Now(),
		Lines:             book.Lines,
	})
	if err != nil {
		return nil, err
	}

	book.BookXML = []byte(xml)
	book.Status = entity.BookStatusGenerated
	if err := uc.books.Update(book); err != nil {
		return nil, err
	}
	return book, nil
}

// Sign firma el EnvioLibro con el certificado del cliente.
func (uc *BookUseCase) Sign(bookID string) (*entity.Book, error) {
	book, err := uc.books.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(bookTransitions, "libro", book.Status, entity.BookStatusSigned); err != nil {
		return nil, err
	}

	cert, err := uc.certificate(book.ProjectID)
	if err != nil {
		return nil, err
	}
	signed, err := uc.signer.Sign(book.BookXML, pkgsii.ShapeBook, infrasii.EnvioLibroReferenceID, cert)
	if err != nil {
		return nil, err
	}

	book.BookXMLSigned = signed
	book.Status = entity.BookStatusSigned
	if err := uc.books.Update(book); err != nil {
		return nil, err
	}
	return book, nil
}

// Validate ejecuta el chequeo de esquema del libro firmado y transiciona a
// validated si pasa.
func (uc *BookUseCase) Validate(bookID string) (*infrasii.SchemaResult, error) {
	book, err := uc.books.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(bookTransitions, "libro", book.Status, entity.BookStatusValidated); err != nil {
		return nil, err
	}

	result, err := uc.validator.Validate(book.BookXMLSigned, pkgsii.ShapeBook)
	if err != nil {
		return nil, err
	}
	if result.OK() {
		book.Status = entity.BookStatusValidated
		if err := uc.books.Update(book); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Send autentica contra el SII, carga el libro y registra el track id.
func (uc *BookUseCase) Send(ctx context.Context, bookID string) (*entity.Book, error) {
	book, err := uc.books.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(bookTransitions, "libro", book.Status, entity.BookStatusSent); err != nil {
		return nil, err
	}

	client, err := uc.clients.GetByProjectID(book.ProjectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("enviar libro: %w", domain.ErrMissingClientConfig)
	}
	cert, err := uc.certificate(book.ProjectID)
	if err != nil {
		return nil, err
	}

	auth, err := uc.transport.Authenticate(ctx, cert)
	if err != nil {
		return nil, err
	}

	upload, err := uc.transport.Upload(ctx, auth.Token, senderRUT(client), client.RUT,
		bookFilename(book), book.BookXMLSigned)
	if upload != nil {
		uc.appendResponse(book, entity.SiiResponseKindUpload, upload.TrackID, upload.Status, upload.Raw)
	}
	if err != nil {
		return nil, err
	}

	book.TrackID = upload.TrackID
	book.Status = entity.BookStatusSent
	if err := uc.books.Update(book); err != nil {
		return nil, err
	}

	uc.log.Info().Str("período", book.Period).Str("track_id", upload.TrackID).Msg("libro enviado al SII")
	return book, nil
}

// CheckStatus consulta el estado del envío del libro por track id.
func (uc *BookUseCase) CheckStatus(ctx context.Context, bookID string) (*entity.Book, error) {
	book, err := uc.books.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if book.TrackID == "" {
		return nil, fmt.Errorf("consultar estado: %w: el libro no tiene track id", domain.ErrConflict)
	}

	client, err := uc.clients.GetByProjectID(book.ProjectID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("consultar estado: %w", domain.ErrMissingClientConfig)
	}
	cert, err := uc.certificate(book.ProjectID)
	if err != nil {
		return nil, err
	}

	auth, err := uc.transport.Authenticate(ctx, cert)
	if err != nil {
		return nil, err
	}
	result, err := uc.transport.QueryStatus(ctx, auth.Token, senderRUT(client), book.TrackID)
	if result != nil {
		uc.appendResponse(book, entity.SiiResponseKindStatus, book.TrackID, result.Estado, result.Raw)
	}
	if err != nil {
		return nil, err
	}

	book.SiiStatus = result.Estado
	if status, ok := pkgsii.MapBookStatus(result.Estado); ok {
		switch status {
		case pkgsii.SubmissionAccepted:
			book.Status = entity.BookStatusAccepted
		case pkgsii.SubmissionRejected, pkgsii.SubmissionWithRepairs:
			book.Status = entity.BookStatusRejected
		default:
			// validando: el libro sigue en sent.
		}
	}
	if err := uc.books.Update(book); err != nil {
		return nil, err
	}
	return book, nil
}

// BackToDraft descarta XML, firma y seguimiento del libro.
func (uc *BookUseCase) BackToDraft(bookID string) (*entity.Book, error) {
	book, err := uc.books.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if err := ensureTransition(bookTransitions, "libro", book.Status, entity.BookStatusDraft); err != nil {
		return nil, err
	}
	book.ClearArtifacts()
	if err := uc.books.Update(book); err != nil {
		return nil, err
	}
	return book, nil
}

// GetByID devuelve un libro con sus líneas.
func (uc *BookUseCase) GetByID(bookID string) (*entity.Book, error) {
	return uc.books.GetByID(bookID)
}

// ListByProject lista los libros de un proyecto.
func (uc *BookUseCase) ListByProject(projectID string) ([]*entity.Book, error) {
	return uc.books.ListByProject(projectID)
}

// salesLine convierte un documento generado en línea del libro de ventas.
// Las notas administrativas de $0 copian los montos del documento que
// referencian: el libro declara la operación corregida, no el cero.
func (uc *BookUseCase) salesLine(book *entity.Book, doc *entity.GeneratedDocument) (entity.BookLine, error) {
	source := doc
	if pkgsii.IsNoteType(doc.DocumentTypeCode) && doc.TotalAmount.IsZero() {
		ref, err := uc.referencedDocument(doc)
		if err != nil {
			return entity.BookLine{}, err
		}
		if ref != nil {
			source = ref
		}
	}

	docID := doc.ID
	return entity.BookLine{
		ID:               uuid.NewString(),
		BookID:           book.ID,
		DocumentTypeCode: doc.DocumentTypeCode,
		Folio:            doc.Folio,
		DocumentDate:     doc.IssueDate,
		PartnerRUT:       doc.ReceiverRUT,
		PartnerName:      doc.ReceiverName,
		MntExento:        source.SubtotalExempt,
		MntNeto:          source.SubtotalTaxable,
		MntIVA:           source.TaxAmount,
		MntTotal:         source.TotalAmount,
		DocumentID:       &docID,
	}, nil
}

// referencedDocument resuelve el documento de la factura referenciada por
// una nota. Devuelve nil si el caso no tiene referencia.
func (uc *BookUseCase) referencedDocument(doc *entity.GeneratedDocument) (*entity.GeneratedDocument, error) {
	c, err := uc.cases.GetByID(doc.CaseID)
	if err != nil {
		return nil, err
	}
	if c.ReferenceCaseID == nil {
		return nil, nil
	}
	return uc.docs.GetByCaseID(*c.ReferenceCaseID)
}

func (uc *BookUseCase) certificate(projectID string) (pkgsii.Certificate, error) {
	client, err := uc.clients.GetByProjectID(projectID)
	if err != nil {
		return pkgsii.Certificate{}, err
	}
	if client == nil {
		return pkgsii.Certificate{}, fmt.Errorf("libro: %w", domain.ErrMissingClientConfig)
	}
	if len(client.CertificateFile) == 0 {
		return pkgsii.Certificate{}, fmt.Errorf("libro: %w", domain.ErrMissingCertificate)
	}
	return uc.loadCert(client.CertificateFile, client.CertificatePassword)
}

func (uc *BookUseCase) appendResponse(book *entity.Book, kind, trackID, status string, raw []byte) {
	resp := &entity.SiiResponse{
		ID:        uuid.NewString(),
		ProjectID: book.ProjectID,
		BookID:    &book.ID,
		Kind:      kind,
		TrackID:   trackID,
		Status:    status,
		RawXML:    raw,
	}
	if err := uc.responses.Append(resp); err != nil {
		uc.log.Error().Err(err).Str("período", book.Period).Msg("no se pudo registrar la respuesta del SII")
	}
}

// bookFilename nombre del archivo de carga: Libro{Compras|Ventas}_<período>.xml.
func bookFilename(book *entity.Book) string {
	kind := "Ventas"
	if book.OperationType == entity.BookOperationCompra {
		kind = "Compras"
	}
	return fmt.Sprintf("Libro%s_%s.xml", kind, book.Period)
}
