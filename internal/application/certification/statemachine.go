package certification

import (
	"fmt"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// Tablas de transición de estado por entidad. Toda mutación de estado pasa
// por ensureTransition; una transición fuera de tabla es ErrInvalidTransition.

var documentTransitions = map[string][]string{
	entity.DocumentStatusDraft:     {entity.DocumentStatusGenerated},
	entity.DocumentStatusGenerated: {entity.DocumentStatusValidated, entity.DocumentStatusDraft},
	entity.DocumentStatusValidated: {entity.DocumentStatusSigned, entity.DocumentStatusDraft},
	entity.DocumentStatusSigned:    {entity.DocumentStatusSent, entity.DocumentStatusDraft},
	entity.DocumentStatusSent:      {entity.DocumentStatusAccepted, entity.DocumentStatusRejected},
	entity.DocumentStatusRejected:  {entity.DocumentStatusDraft},
}

var envelopeTransitions = map[string][]string{
	entity.EnvelopeStatusDraft:   {entity.EnvelopeStatusCreated},
	entity.EnvelopeStatusCreated: {entity.EnvelopeStatusSigned, entity.EnvelopeStatusDraft},
	entity.EnvelopeStatusSigned:  {entity.EnvelopeStatusSent, entity.EnvelopeStatusDraft},
	entity.EnvelopeStatusSent: {
		entity.EnvelopeStatusAccepted,
		entity.EnvelopeStatusRejected,
		entity.EnvelopeStatusWithRepairs,
	},
	entity.EnvelopeStatusRejected:    {entity.EnvelopeStatusDraft},
	entity.EnvelopeStatusWithRepairs: {entity.EnvelopeStatusDraft},
}

var simulationTransitions = map[string][]string{
	entity.SimulationStatusDraft:           {entity.SimulationStatusGenerated},
	entity.SimulationStatusGenerated:       {entity.SimulationStatusEnvelopeCreated, entity.SimulationStatusDraft},
	entity.SimulationStatusEnvelopeCreated: {entity.SimulationStatusSent, entity.SimulationStatusDraft},
	entity.SimulationStatusSent:            {entity.SimulationStatusAccepted, entity.SimulationStatusRejected},
	entity.SimulationStatusRejected:        {entity.SimulationStatusDraft},
}

var bookTransitions = map[string][]string{
	entity.BookStatusDraft:     {entity.BookStatusGenerated},
	entity.BookStatusGenerated: {entity.BookStatusSigned, entity.BookStatusDraft},
	entity.BookStatusSigned:    {entity.BookStatusValidated, entity.BookStatusDraft},
	entity.BookStatusValidated: {entity.BookStatusSent, entity.BookStatusDraft},
	entity.BookStatusSent:      {entity.BookStatusAccepted, entity.BookStatusRejected},
	entity.BookStatusRejected:  {entity.BookStatusDraft},
}

var projectTransitions = map[string][]string{
	entity.ProjectStatusDraft:      {entity.ProjectStatusInProgress, entity.ProjectStatusCancelled},
	entity.ProjectStatusInProgress: {entity.ProjectStatusValidating, entity.ProjectStatusCancelled},
	entity.ProjectStatusValidating: {
		entity.ProjectStatusCompleted,
		entity.ProjectStatusInProgress,
		entity.ProjectStatusCancelled,
	},
}

// ensureTransition valida from→to contra la tabla de la entidad.
func ensureTransition(table map[string][]string, kind, from, to string) error {
	for _, allowed := range table[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%s: %w: %s → %s", kind, domain.ErrInvalidTransition, from, to)
}
