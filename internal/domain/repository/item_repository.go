package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para Item, incluidos sus umbrales por ubicación.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	// GetForShare / GetForUpdate leen el ítem dentro de una transacción bloqueándolo hasta el fin
	// (FOR SHARE / FOR UPDATE). Fuera de transacción equivalen a GetByID.
	GetForShare(ctx context.Context, id string) (*entity.Item, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Item, error)
	GetByCode(ctx context.Context, companyID, code string) (*entity.Item, error)
	Update(ctx context.Context, item *entity.Item) error
	SetThreshold(ctx context.Context, itemID, locationID string, t entity.Threshold) error
	ListByCompany(ctx context.Context, companyID string, activeOnly bool, limit, offset int) ([]*entity.Item, error)
	CountByCompany(ctx context.Context, companyID string, activeOnly bool) (int64, error)
	// ListWithExpiry devuelve los ítems activos con fecha de vencimiento (todas las empresas).
	ListWithExpiry(ctx context.Context) ([]*entity.Item, error)
}
