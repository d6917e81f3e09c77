package dto

import (
	"time"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// CreateProjectRequest entrada para crear un proyecto de certificación.
type CreateProjectRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// TransitionRequest entrada para mover un proyecto de estado.
type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

// ProjectResponse salida de un proyecto.
type ProjectResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToProjectResponse convierte la entidad.
func ToProjectResponse(p *entity.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ProjectStatsResponse resumen de avance del proyecto.
type ProjectStatsResponse struct {
	CasesByStatus     map[string]int `json:"cases_by_status"`
	DocumentsByStatus map[string]int `json:"documents_by_status"`
	EnvelopesTotal    int            `json:"envelopes_total"`
	BooksTotal        int            `json:"books_total"`
}

// ClientInfoRequest identidad tributaria de la empresa certificada. El
// certificado viaja en base64 (encoding estándar de []byte en JSON).
type ClientInfoRequest struct {
	RUT         string `json:"rut" validate:"required"`
	RazonSocial string `json:"razon_social" validate:"required"`
	Giro        string `json:"giro"`
	Acteco      string `json:"acteco"`
	Address     string `json:"address"`
	Commune     string `json:"commune"`
	City        string `json:"city"`
	Email       string `json:"email" validate:"omitempty,email"`

	ResolutionNumber string    `json:"resolution_number"`
	ResolutionDate   time.Time `json:"resolution_date"`

	CertificateFile     []byte `json:"certificate_file"`
	CertificatePassword string `json:"certificate_password"`
	SubjectSerialNumber string `json:"subject_serial_number"`
}

// ToEntity convierte la petición a entidad (sin ID ni ProjectID).
func (r ClientInfoRequest) ToEntity() *entity.ClientInfo {
	return &entity.ClientInfo{
		RUT:                 r.RUT,
		RazonSocial:         r.RazonSocial,
		Giro:                r.Giro,
		Acteco:              r.Acteco,
		Address:             r.Address,
		Commune:             r.Commune,
		City:                r.City,
		Email:               r.Email,
		ResolutionNumber:    r.ResolutionNumber,
		ResolutionDate:      r.ResolutionDate,
		CertificateFile:     r.CertificateFile,
		CertificatePassword: r.CertificatePassword,
		SubjectSerialNumber: r.SubjectSerialNumber,
	}
}

// ClientInfoResponse salida de la configuración del cliente. El certificado
// y su contraseña nunca se devuelven; sólo si hay uno cargado.
type ClientInfoResponse struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	RUT         string `json:"rut"`
	RazonSocial string `json:"razon_social"`
	Giro        string `json:"giro"`
	Acteco      string `json:"acteco"`
	Address     string `json:"address"`
	Commune     string `json:"commune"`
	City        string `json:"city"`
	Email       string `json:"email"`

	ResolutionNumber string    `json:"resolution_number"`
	ResolutionDate   time.Time `json:"resolution_date"`

	HasCertificate      bool   `json:"has_certificate"`
	SubjectSerialNumber string `json:"subject_serial_number"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToClientInfoResponse convierte la entidad.
func ToClientInfoResponse(c *entity.ClientInfo) ClientInfoResponse {
	return ClientInfoResponse{
		ID:                  c.ID,
		ProjectID:           c.ProjectID,
		RUT:                 c.RUT,
		RazonSocial:         c.RazonSocial,
		Giro:                c.Giro,
		Acteco:              c.Acteco,
		Address:             c.Address,
		Commune:             c.Commune,
		City:                c.City,
		Email:               c.Email,
		ResolutionNumber:    c.ResolutionNumber,
		ResolutionDate:      c.ResolutionDate,
		HasCertificate:      len(c.CertificateFile) > 0,
		SubjectSerialNumber: c.SubjectSerialNumber,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}
