package certification

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
	infrasii "github.com/tu-usuario/certificacion-sii/internal/infrastructure/sii"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// Repositorios en memoria para ejercitar los casos de uso sin PostgreSQL.

type fakeProjectRepo struct {
	items map[string]*entity.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{items: map[string]*entity.Project{}}
}

func (r *fakeProjectRepo) Create(p *entity.Project) error {
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProjectRepo) Update(p *entity.Project) error {
	if _, ok := r.items[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProjectRepo) GetByID(id string) (*entity.Project, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("proyecto %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProjectRepo) List() ([]*entity.Project, error) {
	var list []*entity.Project
	for _, p := range r.items {
		cp := *p
		list = append(list, &cp)
	}
	return list, nil
}

func (r *fakeProjectRepo) Delete(id string) error {
	delete(r.items, id)
	return nil
}

type fakeClientRepo struct {
	items map[string]*entity.ClientInfo // por project id
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{items: map[string]*entity.ClientInfo{}}
}

func (r *fakeClientRepo) Upsert(info *entity.ClientInfo) error {
	cp := *info
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.items[info.ProjectID] = &cp
	return nil
}

func (r *fakeClientRepo) GetByProjectID(projectID string) (*entity.ClientInfo, error) {
	info, ok := r.items[projectID]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

type fakeCaseRepo struct {
	items map[string]*entity.CertificationCase
}

func newFakeCaseRepo() *fakeCaseRepo {
	return &fakeCaseRepo{items: map[string]*entity.CertificationCase{}}
}

func (r *fakeCaseRepo) Create(c *entity.CertificationCase) error {
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *fakeCaseRepo) Update(c *entity.CertificationCase) error {
	if _, ok := r.items[c.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *fakeCaseRepo) GetByID(id string) (*entity.CertificationCase, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("caso %s: %w", id, domain.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCaseRepo) ListByProject(projectID string) ([]*entity.CertificationCase, error) {
	var list []*entity.CertificationCase
	for _, c := range r.items {
		if c.ProjectID == projectID {
			cp := *c
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CaseNumber < list[j].CaseNumber })
	return list, nil
}

func (r *fakeCaseRepo) Delete(id string) error {
	delete(r.items, id)
	return nil
}

type fakeDocRepo struct {
	items map[string]*entity.GeneratedDocument
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{items: map[string]*entity.GeneratedDocument{}}
}

func (r *fakeDocRepo) Create(doc *entity.GeneratedDocument) error {
	cp := *doc
	r.items[doc.ID] = &cp
	return nil
}

func (r *fakeDocRepo) Update(doc *entity.GeneratedDocument) error {
	if _, ok := r.items[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *doc
	r.items[doc.ID] = &cp
	return nil
}

func (r *fakeDocRepo) GetByID(id string) (*entity.GeneratedDocument, error) {
	doc, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("documento %s: %w", id, domain.ErrNotFound)
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeDocRepo) GetByCaseID(caseID string) (*entity.GeneratedDocument, error) {
	for _, doc := range r.items {
		if doc.CaseID == caseID {
			cp := *doc
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeDocRepo) ListByProject(projectID string) ([]*entity.GeneratedDocument, error) {
	var list []*entity.GeneratedDocument
	for _, doc := range r.items {
		if doc.ProjectID == projectID {
			cp := *doc
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].DocumentTypeCode != list[j].DocumentTypeCode {
			return list[i].DocumentTypeCode < list[j].DocumentTypeCode
		}
		return list[i].Folio < list[j].Folio
	})
	return list, nil
}

func (r *fakeDocRepo) ListBySimulation(simulationID string) ([]*entity.GeneratedDocument, error) {
	var list []*entity.GeneratedDocument
	for _, doc := range r.items {
		if doc.SimulationID == simulationID {
			cp := *doc
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].DocumentTypeCode != list[j].DocumentTypeCode {
			return list[i].DocumentTypeCode < list[j].DocumentTypeCode
		}
		return list[i].Folio < list[j].Folio
	})
	return list, nil
}

func (r *fakeDocRepo) ListByIDs(ids []string) ([]*entity.GeneratedDocument, error) {
	var list []*entity.GeneratedDocument
	for _, id := range ids {
		if doc, ok := r.items[id]; ok {
			cp := *doc
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (r *fakeDocRepo) Delete(id string) error {
	delete(r.items, id)
	return nil
}

type fakeFolioRepo struct {
	items map[string]*entity.FolioAssignment
	docs  *fakeDocRepo
}

func newFakeFolioRepo(docs *fakeDocRepo) *fakeFolioRepo {
	return &fakeFolioRepo{items: map[string]*entity.FolioAssignment{}, docs: docs}
}

func (r *fakeFolioRepo) Create(a *entity.FolioAssignment) error {
	cp := *a
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeFolioRepo) Update(a *entity.FolioAssignment) error {
	if _, ok := r.items[a.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeFolioRepo) GetByID(id string) (*entity.FolioAssignment, error) {
	a, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("asignación %s: %w", id, domain.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (r *fakeFolioRepo) GetByProjectAndType(projectID, typeCode string) (*entity.FolioAssignment, error) {
	for _, a := range r.items {
		if a.ProjectID == projectID && a.DocumentTypeCode == typeCode {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeFolioRepo) ListByProject(projectID string) ([]*entity.FolioAssignment, error) {
	var list []*entity.FolioAssignment
	for _, a := range r.items {
		if a.ProjectID == projectID {
			cp := *a
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DocumentTypeCode < list[j].DocumentTypeCode })
	return list, nil
}

func (r *fakeFolioRepo) Delete(id string) error {
	delete(r.items, id)
	return nil
}

func (r *fakeFolioRepo) AllocateNextFolio(projectID, typeCode string) (int, error) {
	a, err := r.GetByProjectAndType(projectID, typeCode)
	if err != nil {
		return 0, err
	}
	if a == nil {
		return 0, domain.ErrNoFolioAssignment
	}
	used, _ := r.UsedFolios(projectID, typeCode)
	next := a.FolioStart
	for _, f := range used {
		if f >= next {
			next = f + 1
		}
	}
	if next > a.FolioEnd {
		return 0, domain.ErrFolioRangeExceeded
	}
	return next, nil
}

func (r *fakeFolioRepo) UsedFolios(projectID, typeCode string) ([]int, error) {
	var used []int
	for _, doc := range r.docs.items {
		if doc.ProjectID == projectID && doc.DocumentTypeCode == typeCode && doc.Folio > 0 {
			used = append(used, doc.Folio)
		}
	}
	return used, nil
}

type fakeEnvelopeRepo struct {
	items map[string]*entity.Envelope
}

func newFakeEnvelopeRepo() *fakeEnvelopeRepo {
	return &fakeEnvelopeRepo{items: map[string]*entity.Envelope{}}
}

func (r *fakeEnvelopeRepo) Create(e *entity.Envelope) error {
	cp := *e
	r.items[e.ID] = &cp
	return nil
}

func (r *fakeEnvelopeRepo) Update(e *entity.Envelope) error {
	if _, ok := r.items[e.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *e
	r.items[e.ID] = &cp
	return nil
}

func (r *fakeEnvelopeRepo) GetByID(id string) (*entity.Envelope, error) {
	e, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("sobre %s: %w", id, domain.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEnvelopeRepo) ListByProject(projectID string) ([]*entity.Envelope, error) {
	var list []*entity.Envelope
	for _, e := range r.items {
		if e.ProjectID == projectID {
			cp := *e
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (r *fakeEnvelopeRepo) Delete(id string) error {
	delete(r.items, id)
	return nil
}

type fakeBookRepo struct {
	items map[string]*entity.Book
	lines map[string][]entity.BookLine
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{items: map[string]*entity.Book{}, lines: map[string][]entity.BookLine{}}
}

func (r *fakeBookRepo) Create(b *entity.Book) error {
	cp := *b
	r.items[b.ID] = &cp
	return nil
}

func (r *fakeBookRepo) Update(b *entity.Book) error {
	if _, ok := r.items[b.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *b
	r.items[b.ID] = &cp
	return nil
}

func (r *fakeBookRepo) CreateLine(line *entity.BookLine) error {
	r.lines[line.BookID] = append(r.lines[line.BookID], *line)
	return nil
}

func (r *fakeBookRepo) GetByID(id string) (*entity.Book, error) {
	b, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("libro %s: %w", id, domain.ErrNotFound)
	}
	cp := *b
	cp.Lines = append([]entity.BookLine(nil), r.lines[id]...)
	return &cp, nil
}

func (r *fakeBookRepo) ListByProject(projectID string) ([]*entity.Book, error) {
	var list []*entity.Book
	for _, b := range r.items {
		if b.ProjectID == projectID {
			cp := *b
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (r *fakeBookRepo) DeleteLines(bookID string) error {
	delete(r.lines, bookID)
	return nil
}

func (r *fakeBookRepo) Delete(id string) error {
	delete(r.items, id)
	delete(r.lines, id)
	return nil
}

type fakeSimulationRepo struct {
	items map[string]*entity.Simulation
}

func newFakeSimulationRepo() *fakeSimulationRepo {
	return &fakeSimulationRepo{items: map[string]*entity.Simulation{}}
}

func (r *fakeSimulationRepo) Create(s *entity.Simulation) error {
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *fakeSimulationRepo) Update(s *entity.Simulation) error {
	if _, ok := r.items[s.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *fakeSimulationRepo) GetByID(id string) (*entity.Simulation, error) {
	s, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("simulación %s: %w", id, domain.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSimulationRepo) ListByProject(projectID string) ([]*entity.Simulation, error) {
	var list []*entity.Simulation
	for _, s := range r.items {
		if s.ProjectID == projectID {
			cp := *s
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (r *fakeSimulationRepo) Delete(id string) error {
	delete(r.items, id)
	return nil
}

type fakeResponseRepo struct {
	items []*entity.SiiResponse
}

func newFakeResponseRepo() *fakeResponseRepo { return &fakeResponseRepo{} }

func (r *fakeResponseRepo) Append(resp *entity.SiiResponse) error {
	cp := *resp
	cp.CreatedAt = time.Now()
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeResponseRepo) ListByProject(projectID string) ([]*entity.SiiResponse, error) {
	var list []*entity.SiiResponse
	for _, resp := range r.items {
		if resp.ProjectID == projectID {
			list = append(list, resp)
		}
	}
	return list, nil
}

func (r *fakeResponseRepo) ListByEnvelope(envelopeID string) ([]*entity.SiiResponse, error) {
	var list []*entity.SiiResponse
	for _, resp := range r.items {
		if resp.EnvelopeID != nil && *resp.EnvelopeID == envelopeID {
			list = append(list, resp)
		}
	}
	return list, nil
}

// fakeTxRunner ejecuta el cierre directamente sobre los repos en memoria.
type fakeTxRunner struct {
	folios *fakeFolioRepo
	docs   *fakeDocRepo
}

func (r *fakeTxRunner) RunDocumentGeneration(_ context.Context, fn func(
	folioRepo repository.FolioAssignmentRepository,
	docRepo repository.DocumentRepository,
) error) error {
	return fn(r.folios, r.docs)
}

// fakeSigner agrega un nodo Signature sintético al final del documento.
type fakeSigner struct {
	lastShape pkgsii.DocumentShape
	lastRef   string
	fail      bool
}

func (s *fakeSigner) Sign(xmlBytes []byte, shape pkgsii.DocumentShape, ref string, _ pkgsii.Certificate) ([]byte, error) {
	s.lastShape = shape
	s.lastRef = ref
	if s.fail {
		return nil, fmt.Errorf("firma: falla simulada")
	}
	signed := string(xmlBytes) + `<Signature xmlns="http://www.w3.org/2000/09/xmldsig#">fake</Signature>`
	return []byte(signed), nil
}

// fakeTransport devuelve respuestas preprogramadas del SII.
type fakeTransport struct {
	token     string
	upload    *infrasii.UploadResult
	uploadErr error
	status    *infrasii.StatusResult
	statusErr error

	uploads []string // nombres de archivo cargados
}

func (t *fakeTransport) Authenticate(context.Context, pkgsii.Certificate) (*infrasii.AuthResult, error) {
	token := t.token
	if token == "" {
		token = "TOKEN-TEST"
	}
	return &infrasii.AuthResult{Token: token}, nil
}

func (t *fakeTransport) Upload(_ context.Context, _, _, _, filename string, _ []byte) (*infrasii.UploadResult, error) {
	t.uploads = append(t.uploads, filename)
	if t.uploadErr != nil {
		return t.upload, t.uploadErr
	}
	if t.upload != nil {
		return t.upload, nil
	}
	return &infrasii.UploadResult{TrackID: "12345", Status: "0"}, nil
}

func (t *fakeTransport) QueryStatus(context.Context, string, string, string) (*infrasii.StatusResult, error) {
	if t.statusErr != nil {
		return t.status, t.statusErr
	}
	if t.status != nil {
		return t.status, nil
	}
	return &infrasii.StatusResult{Estado: "REC"}, nil
}

// testCert certificado autofirmado con RUT en el serialNumber del subject.
func testCert(t *testing.T) pkgsii.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "Firmante de Prueba",
			SerialNumber: "11111111-1",
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return pkgsii.Certificate{
		PrivateKey: key,
		Leaf:       leaf,
		RUT:        leaf.Subject.SerialNumber,
		NotBefore:  leaf.NotBefore,
		NotAfter:   leaf.NotAfter,
	}
}

// testCertLoader carga el certificado de prueba sin pasar por PKCS#12.
func testCertLoader(t *testing.T) CertificateLoader {
	cert := testCert(t)
	return func([]byte, string) (pkgsii.Certificate, error) {
		return cert, nil
	}
}

// testCAFXML CAF sintético con llave RSA real, igual al del set del SII.
func testCAFXML(t *testing.T, rut, typeCode string, start, end int) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	xml := fmt.Sprintf(`<?xml version="1.0" encoding="ISO-8859-1"?>
<AUTORIZACION>
<CAF version="1.0">
<DA>
<RE>%s</RE>
<RS>EMPRESA DE PRUEBA SPA</RS>
<TD>%s</TD>
<RNG><D>%d</D><H>%d</H></RNG>
<FA>2025-06-01</FA>
<RSAPK><M>bW9kdWxv</M><E>AQAB</E></RSAPK>
<IDK>100</IDK>
</DA>
<FRMA algoritmo="SHA1withRSA">ZmlybWEtZGVsLXNpaQ==</FRMA>
</CAF>
<RSAPK><M>bW9kdWxv</M><E>AQAB</E></RSAPK>
<RSASK>%s</RSASK>
</AUTORIZACION>`, rut, typeCode, start, end, string(keyPEM))

	return []byte(xml)
}

// testClientInfo configuración típica de la empresa certificada.
func testClientInfo(projectID string) *entity.ClientInfo {
	return &entity.ClientInfo{
		ID:                  "client-1",
		ProjectID:           projectID,
		RUT:                 "76354771-K",
		RazonSocial:         "EMPRESA DE PRUEBA SPA",
		Giro:                "Servicios informáticos",
		Acteco:              "620200",
		Address:             "Calle Uno 123",
		Commune:             "Santiago",
		City:                "Santiago",
		ResolutionNumber:    "0",
		ResolutionDate:      time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		CertificateFile:     []byte("p12-de-prueba"),
		CertificatePassword: "secreto",
		SubjectSerialNumber: "11111111-1",
	}
}
