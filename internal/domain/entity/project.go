package entity

import "time"

// Estados del proyecto de certificación.
const (
	ProjectStatusDraft      = "draft"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusValidating = "validating"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

// Project representa un proceso de certificación DTE de una empresa cliente
// ante el SII. Es dueño (borrado en cascada) de la información del cliente,
// los casos de prueba, las asignaciones de folios, los documentos generados,
// los sobres, los libros y las respuestas del SII.
type Project struct {
	ID        string
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectStats resumen del avance de un proyecto.
type ProjectStats struct {
	CasesByStatus     map[string]int
	DocumentsByStatus map[string]int
	EnvelopesTotal    int
	BooksTotal        int
}

// CanStart indica si el proyecto puede pasar a in_progress: requiere
// información del cliente, al menos un caso y al menos una asignación de folios.
func (p *Project) CanStart(hasClientInfo bool, caseCount, assignmentCount int) bool {
	return p.Status == ProjectStatusDraft && hasClientInfo && caseCount > 0 && assignmentCount > 0
}
