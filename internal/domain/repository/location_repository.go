package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// LocationRepository define el puerto de persistencia para Location (DIP).
type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	// GetForShare / GetForUpdate bloquean la ubicación hasta el fin de la transacción.
	GetForShare(ctx context.Context, id string) (*entity.Location, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Location, error)
	GetByCode(ctx context.Context, companyID, code string) (*entity.Location, error)
	GetPrimary(ctx context.Context, companyID string) (*entity.Location, error)
	Update(ctx context.Context, location *entity.Location) error
	// SetPrimary marca la ubicación como principal y degrada a la anterior en una sola escritura.
	SetPrimary(ctx context.Context, companyID, id string) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Location, error)
	CountByCompany(ctx context.Context, companyID string) (int64, error)
}
