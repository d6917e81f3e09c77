package certification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

type projectFixture struct {
	uc       *ProjectUseCase
	projects *fakeProjectRepo
	clients  *fakeClientRepo
	cases    *fakeCaseRepo
	folios   *fakeFolioRepo
	docs     *fakeDocRepo
}

func newProjectFixture(t *testing.T) *projectFixture {
	t.Helper()
	projects := newFakeProjectRepo()
	clients := newFakeClientRepo()
	cases := newFakeCaseRepo()
	docs := newFakeDocRepo()
	folios := newFakeFolioRepo(docs)

	uc := NewProjectUseCase(
		projects, clients, cases, folios, docs,
		newFakeEnvelopeRepo(), newFakeBookRepo(), nil,
	)
	return &projectFixture{uc: uc, projects: projects, clients: clients, cases: cases, folios: folios, docs: docs}
}

func TestProjectCreateAndRename(t *testing.T) {
	f := newProjectFixture(t)

	_, err := f.uc.Create("")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	project, err := f.uc.Create("Certificación EMPRESA SPA")
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectStatusDraft, project.Status)
	assert.NotEmpty(t, project.ID)

	renamed, err := f.uc.Rename(project.ID, "Certificación 2025")
	require.NoError(t, err)
	assert.Equal(t, "Certificación 2025", renamed.Name)
}

func TestProjectSetClientInfo(t *testing.T) {
	f := newProjectFixture(t)
	project, err := f.uc.Create("p")
	require.NoError(t, err)

	t.Run("RUT inválido", func(t *testing.T) {
		info := testClientInfo(project.ID)
		info.RUT = "76354771-0" // dígito verificador incorrecto
		_, err := f.uc.SetClientInfo(project.ID, info)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("sin razón social", func(t *testing.T) {
		info := testClientInfo(project.ID)
		info.RazonSocial = ""
		_, err := f.uc.SetClientInfo(project.ID, info)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("crea y reemplaza conservando identidad", func(t *testing.T) {
		first, err := f.uc.SetClientInfo(project.ID, testClientInfo(project.ID))
		require.NoError(t, err)

		update := testClientInfo(project.ID)
		update.ID = ""
		update.Giro = "Comercio electrónico"
		second, err := f.uc.SetClientInfo(project.ID, update)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Comercio electrónico", second.Giro)

		stored, err := f.uc.GetClientInfo(project.ID)
		require.NoError(t, err)
		assert.Equal(t, "Comercio electrónico", stored.Giro)
	})
}

func TestProjectStart_Requisitos(t *testing.T) {
	f := newProjectFixture(t)
	project, err := f.uc.Create("p")
	require.NoError(t, err)

	// Sin cliente ni casos ni CAF no puede iniciar.
	_, err = f.uc.Start(project.ID)
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.uc.SetClientInfo(project.ID, testClientInfo(project.ID))
	require.NoError(t, err)
	_, err = f.uc.Start(project.ID)
	require.ErrorIs(t, err, domain.ErrConflict, "aún faltan casos y CAF")

	c := testCase(project.ID)
	require.NoError(t, f.cases.Create(c))
	require.NoError(t, f.folios.Create(&entity.FolioAssignment{
		ID: "fa-1", ProjectID: project.ID, DocumentTypeCode: "33", FolioStart: 1, FolioEnd: 10,
	}))

	started, err := f.uc.Start(project.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectStatusInProgress, started.Status)
}

func TestProjectTransition(t *testing.T) {
	f := newProjectFixture(t)
	project, err := f.uc.Create("p")
	require.NoError(t, err)

	// draft no salta directo a completed.
	_, err = f.uc.Transition(project.ID, entity.ProjectStatusCompleted)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	f.prepareStart(t, project.ID)
	_, err = f.uc.Start(project.ID)
	require.NoError(t, err)

	p, err := f.uc.Transition(project.ID, entity.ProjectStatusValidating)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectStatusValidating, p.Status)

	// De validating puede volver a in_progress o cerrar.
	p, err = f.uc.Transition(project.ID, entity.ProjectStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, entity.ProjectStatusCompleted, p.Status)
}

func (f *projectFixture) prepareStart(t *testing.T, projectID string) {
	t.Helper()
	_, err := f.uc.SetClientInfo(projectID, testClientInfo(projectID))
	require.NoError(t, err)
	require.NoError(t, f.cases.Create(testCase(projectID)))
	require.NoError(t, f.folios.Create(&entity.FolioAssignment{
		ID: "fa-" + projectID, ProjectID: projectID, DocumentTypeCode: "33", FolioStart: 1, FolioEnd: 10,
	}))
}

func TestProjectStats(t *testing.T) {
	f := newProjectFixture(t)
	project, err := f.uc.Create("p")
	require.NoError(t, err)

	c1 := testCase(project.ID)
	c1.ID = "c1"
	c1.Status = entity.CaseStatusGenerated
	require.NoError(t, f.cases.Create(c1))

	c2 := testCase(project.ID)
	c2.ID = "c2"
	c2.CaseNumber = "4329507-2"
	require.NoError(t, f.cases.Create(c2))

	require.NoError(t, f.docs.Create(&entity.GeneratedDocument{
		ID: "d1", ProjectID: project.ID, CaseID: "c1", DocumentTypeCode: "33", Folio: 1,
		Status: entity.DocumentStatusGenerated,
	}))

	stats, err := f.uc.Stats(project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CasesByStatus[entity.CaseStatusGenerated])
	assert.Equal(t, 1, stats.CasesByStatus[entity.CaseStatusReady])
	assert.Equal(t, 1, stats.DocumentsByStatus[entity.DocumentStatusGenerated])
	assert.Zero(t, stats.EnvelopesTotal)
	assert.Zero(t, stats.BooksTotal)
}

func TestProjectDelete(t *testing.T) {
	f := newProjectFixture(t)

	err := f.uc.Delete("no-existe")
	require.ErrorIs(t, err, domain.ErrNotFound)

	project, err := f.uc.Create("p")
	require.NoError(t, err)
	require.NoError(t, f.uc.Delete(project.ID))
	_, err = f.uc.GetByID(project.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
