package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementFilter filtros para listar movimientos del libro.
type MovementFilter struct {
	ItemID     string
	LocationID string
	Since      *time.Time
	Limit      int
}

// MovementRepository define el puerto del libro de movimientos (solo inserción).
type MovementRepository interface {
	// Append inserta el movimiento y asigna Sequence.
	Append(ctx context.Context, m *entity.Movement) error
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
	// SumDelta recalcula el saldo del par a partir del libro.
	SumDelta(ctx context.Context, itemID, locationID string) (decimal.Decimal, error)
}
