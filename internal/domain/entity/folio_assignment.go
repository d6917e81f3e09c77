package entity

import "time"

// FolioAssignment rango de folios autorizado para un tipo de documento
// dentro de un proyecto, respaldado por un CAF. Única por (proyecto, tipo).
type FolioAssignment struct {
	ID               string
	ProjectID        string
	DocumentTypeCode string

	// Archivo CAF del cliente (XML ISO-8859-1) y datos extraídos de él.
	CAFFile      []byte
	CAFFilename  string
	CAFRutEmisor string
	CAFTypeCode  string

	FolioStart int
	FolioEnd   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FolioStats estadísticas de uso de una asignación. folio_next se deriva
// siempre de max(folio usado)+1, con folio_start como valor inicial.
type FolioStats struct {
	FolioNext       int
	FoliosTotal     int
	FoliosUsed      int
	FoliosAvailable int
	UsagePercentage float64
}
