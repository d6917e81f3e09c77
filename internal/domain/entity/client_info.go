package entity

import "time"

// ClientInfo snapshot inmutable de la identidad tributaria de la empresa
// certificada, más su certificado digital. Uno a uno con Project. El
// certificado (.p12 + contraseña) se usa para TODA firma y autenticación
// ante el SII dentro del proyecto.
type ClientInfo struct {
	ID        string
	ProjectID string

	RUT         string // RUT de la empresa certificada
	RazonSocial string
	Giro        string
	Acteco      string // código de actividad económica
	Address     string
	Commune     string
	City        string
	Email       string

	// Resolución SII que autoriza al contribuyente a emitir DTE.
	ResolutionNumber string
	ResolutionDate   time.Time

	// Certificado digital del cliente (PKCS#12) y RUT del titular del
	// certificado (subject serialNumber). RutEnvia puede diferir del RUT
	// de la empresa: firma un mandatario.
	CertificateFile     []byte
	CertificatePassword string
	SubjectSerialNumber string

	CreatedAt time.Time
	UpdatedAt time.Time
}
