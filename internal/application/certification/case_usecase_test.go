package certification

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

type caseFixture struct {
	uc       *CaseUseCase
	projects *fakeProjectRepo
	cases    *fakeCaseRepo
	docs     *fakeDocRepo
}

func newCaseFixture(t *testing.T) *caseFixture {
	t.Helper()
	projects := newFakeProjectRepo()
	cases := newFakeCaseRepo()
	docs := newFakeDocRepo()
	require.NoError(t, projects.Create(&entity.Project{ID: "p1", Name: "p", Status: entity.ProjectStatusDraft}))
	return &caseFixture{
		uc:       NewCaseUseCase(projects, cases, docs, nil),
		projects: projects,
		cases:    cases,
		docs:     docs,
	}
}

func TestCaseCreate(t *testing.T) {
	f := newCaseFixture(t)

	c := testCase("p1")
	c.ID = ""
	c.Status = ""
	created, err := f.uc.Create(c)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, entity.CaseStatusDraft, created.Status)
	// Las líneas se renumeran y heredan el caso.
	require.Len(t, created.Lines, 2)
	assert.Equal(t, 1, created.Lines[0].Sequence)
	assert.Equal(t, 2, created.Lines[1].Sequence)
	assert.Equal(t, created.ID, created.Lines[0].CaseID)
}

func TestCaseCreate_Validaciones(t *testing.T) {
	f := newCaseFixture(t)

	t.Run("proyecto inexistente", func(t *testing.T) {
		c := testCase("no-existe")
		_, err := f.uc.Create(c)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("sin número de caso", func(t *testing.T) {
		c := testCase("p1")
		c.CaseNumber = ""
		_, err := f.uc.Create(c)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("tipo no numérico", func(t *testing.T) {
		c := testCase("p1")
		c.DocumentTypeCode = "FACTURA"
		_, err := f.uc.Create(c)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("factura sin líneas", func(t *testing.T) {
		c := testCase("p1")
		c.Lines = nil
		_, err := f.uc.Create(c)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("nota sin líneas se admite", func(t *testing.T) {
		refID := "otro-caso"
		c := &entity.CertificationCase{
			ProjectID:        "p1",
			CaseNumber:       "4329507-9",
			DocumentTypeCode: "61",
			ReferenceCaseID:  &refID,
			ReferenceReason:  "ANULA FACTURA",
		}
		_, err := f.uc.Create(c)
		require.NoError(t, err)
	})

	t.Run("referencia sin razón", func(t *testing.T) {
		refID := "otro-caso"
		c := testCase("p1")
		c.ReferenceCaseID = &refID
		c.ReferenceReason = ""
		_, err := f.uc.Create(c)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("línea sin descripción", func(t *testing.T) {
		c := testCase("p1")
		c.Lines[0].Description = ""
		_, err := f.uc.Create(c)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("cantidad negativa", func(t *testing.T) {
		c := testCase("p1")
		c.Lines[0].Quantity = decimal.NewFromInt(-1)
		_, err := f.uc.Create(c)
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestCaseUpdate(t *testing.T) {
	f := newCaseFixture(t)

	created, err := f.uc.Create(testCase("p1"))
	require.NoError(t, err)

	created.Name = "FACTURA MODIFICADA"
	created.Lines = created.Lines[:1]
	updated, err := f.uc.Update(created)
	require.NoError(t, err)
	assert.Equal(t, "FACTURA MODIFICADA", updated.Name)
	assert.Len(t, updated.Lines, 1)
	assert.Equal(t, "p1", updated.ProjectID, "el proyecto no cambia en la edición")

	// Con documento generado el caso queda congelado.
	frozen, err := f.cases.GetByID(created.ID)
	require.NoError(t, err)
	frozen.Status = entity.CaseStatusGenerated
	require.NoError(t, f.cases.Update(frozen))

	_, err = f.uc.Update(created)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCaseMarkReady(t *testing.T) {
	f := newCaseFixture(t)

	created, err := f.uc.Create(testCase("p1"))
	require.NoError(t, err)

	ready, err := f.uc.MarkReady(created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CaseStatusReady, ready.Status)

	// Marcar listo dos veces no está permitido.
	_, err = f.uc.MarkReady(created.ID)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestCaseDelete(t *testing.T) {
	f := newCaseFixture(t)

	created, err := f.uc.Create(testCase("p1"))
	require.NoError(t, err)

	// Con documento generado la eliminación se rechaza.
	require.NoError(t, f.docs.Create(&entity.GeneratedDocument{
		ID: "d1", ProjectID: "p1", CaseID: created.ID, DocumentTypeCode: "33", Folio: 7,
	}))
	err = f.uc.Delete(created.ID)
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "F7T33")

	require.NoError(t, f.docs.Delete("d1"))
	require.NoError(t, f.uc.Delete(created.ID))
	_, err = f.uc.GetByID(created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
