package repository

import "github.com/tu-usuario/certificacion-sii/internal/domain/entity"

// DocumentRepository puerto de persistencia de documentos generados.
type DocumentRepository interface {
	Create(doc *entity.GeneratedDocument) error
	// Update actualiza artefactos y estado: xml_dte, ted_xml, barcode,
	// xml_signed, track_id, sii_status, status, error_message.
	Update(doc *entity.GeneratedDocument) error
	GetByID(id string) (*entity.GeneratedDocument, error)
	GetByCaseID(caseID string) (*entity.GeneratedDocument, error)
	ListByProject(projectID string) ([]*entity.GeneratedDocument, error)
	ListBySimulation(simulationID string) ([]*entity.GeneratedDocument, error)
	ListByIDs(ids []string) ([]*entity.GeneratedDocument, error)
	Delete(id string) error
}
