package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// BalanceRepository define el puerto del saldo materializado por (ítem, ubicación).
// Usado dentro de transacciones para garantizar consistencia.
type BalanceRepository interface {
	// Get devuelve el saldo; un par nunca tocado se lee como cero con Version 0.
	Get(ctx context.Context, itemID, locationID string) (*entity.Balance, error)
	// GetForUpdate bloquea el par hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, itemID, locationID string) (*entity.Balance, error)
	// Save escribe el saldo si la versión almacenada coincide con expectedVersion;
	// si no, devuelve domain.ErrConcurrencyConflict. Incrementa balance.Version.
	Save(ctx context.Context, balance *entity.Balance, expectedVersion int64) error
	ListByItem(ctx context.Context, itemID string) ([]*entity.Balance, error)
	// ListPage recorre todos los saldos ordenados por (item_id, location_id).
	ListPage(ctx context.Context, limit, offset int) ([]*entity.Balance, error)
	// HasNonZeroForItem / HasNonZeroForLocation indican si existe algún saldo distinto de cero.
	HasNonZeroForItem(ctx context.Context, itemID string) (bool, error)
	HasNonZeroForLocation(ctx context.Context, locationID string) (bool, error)
}
