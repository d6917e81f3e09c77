package sii

import (
	"fmt"
	"strings"

	"github.com/tu-usuario/certificacion-sii/internal/domain"
	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

// NextFolio deriva el próximo folio disponible: max(folios usados)+1, o
// folio_start si aún no hay documentos del tipo.
func NextFolio(folioStart int, used []int) int {
	next := folioStart
	for _, f := range used {
		if f >= next {
			next = f + 1
		}
	}
	return next
}

// ComputeFolioStats estadísticas de uso de una asignación de folios.
func ComputeFolioStats(assignment *entity.FolioAssignment, used []int) entity.FolioStats {
	next := NextFolio(assignment.FolioStart, used)
	total := assignment.FolioEnd - assignment.FolioStart + 1
	usedCount := next - assignment.FolioStart
	available := assignment.FolioEnd - next + 1
	if available < 0 {
		available = 0
	}

	var pct float64
	if total > 0 {
		pct = float64(usedCount) / float64(total) * 100
	}
	return entity.FolioStats{
		FolioNext:       next,
		FoliosTotal:     total,
		FoliosUsed:      usedCount,
		FoliosAvailable: available,
		UsagePercentage: pct,
	}
}

// RangeCandidate rango de un CAF cargado, candidato a cubrir una simulación.
type RangeCandidate struct {
	Name       string // nombre del archivo CAF o de la asignación
	FolioStart int
	FolioEnd   int
}

// ValidateRange verifica que [start, end] esté completamente cubierto por
// algún CAF candidato. Si ninguno lo cubre, el error enumera cada CAF con el
// máximo folio de inicio válido para la cantidad pedida, de modo que el
// operador pueda corregir sin adivinar.
func ValidateRange(candidates []RangeCandidate, start, end int) error {
	if start <= 0 || end < start {
		return fmt.Errorf("%w: rango solicitado inválido [%d, %d]", domain.ErrInvalidInput, start, end)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: no hay CAF cargado para el tipo de documento", domain.ErrNoFolioAssignment)
	}

	for _, c := range candidates {
		if start >= c.FolioStart && end <= c.FolioEnd {
			return nil
		}
	}

	count := end - start + 1
	var sb strings.Builder
	fmt.Fprintf(&sb, "ningún CAF cubre el rango [%d, %d] (%d folios). CAFs disponibles:", start, end, count)
	for _, c := range candidates {
		maxStart := c.FolioEnd - count + 1
		if maxStart >= c.FolioStart {
			fmt.Fprintf(&sb, "\n  - %s [%d, %d]: inicio máximo válido para %d folios es %d",
				c.Name, c.FolioStart, c.FolioEnd, count, maxStart)
		} else {
			fmt.Fprintf(&sb, "\n  - %s [%d, %d]: capacidad insuficiente (%d folios); reduzca la cantidad o cargue un CAF más amplio",
				c.Name, c.FolioStart, c.FolioEnd, c.FolioEnd-c.FolioStart+1)
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrFolioRangeExceeded, sb.String())
}
