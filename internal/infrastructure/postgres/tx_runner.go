package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tu-usuario/certificacion-sii/internal/domain/repository"
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunDocumentGeneration ejecuta fn con los repos de folios y documentos
// atados a la misma transacción. La asignación de folio (SELECT ... FOR
// UPDATE) y la creación del documento quedan en una unidad atómica: dos
// generaciones concurrentes del mismo tipo no pueden obtener el mismo folio.
func (r *TxRunner) RunDocumentGeneration(ctx context.Context, fn func(
	folioRepo repository.FolioAssignmentRepository,
	docRepo repository.DocumentRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	folioRepo := NewFolioAssignmentRepository(tx)
	docRepo := NewDocumentRepository(tx)

	if err := fn(folioRepo, docRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
