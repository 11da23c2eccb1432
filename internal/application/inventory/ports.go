package inventory

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad entre la inserción en el libro y la actualización del saldo.
type TxRunner = repository.TxRunner

// AlertTrigger se invoca después de cada commit para re-evaluar el par afectado.
// No devuelve error: una evaluación fallida queda encolada para el barrido.
type AlertTrigger interface {
	EvaluateAfterCommit(ctx context.Context, itemID, locationID string)
}
