package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// Lecturas intercambiables: GetByID fuera de tx, GetForShare/GetForUpdate dentro.
type (
	itemGetter     func(ctx context.Context, id string) (*entity.Item, error)
	locationGetter func(ctx context.Context, id string) (*entity.Location, error)
)

// loadItem valida existencia, empresa y (opcionalmente) estado activo del ítem.
func loadItem(ctx context.Context, get itemGetter, companyID, id string, requireActive bool) (*entity.Item, error) {
	item, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("ítem %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("ítem %s: %w", id, domain.ErrNotFound)
	}
	if item.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if requireActive && !item.Active {
		return nil, fmt.Errorf("ítem %s: %w", item.Code, domain.ErrInactive)
	}
	return item, nil
}

// loadLocation valida existencia, empresa y (opcionalmente) estado activo de la ubicación.
func loadLocation(ctx context.Context, get locationGetter, companyID, id string, requireActive bool) (*entity.Location, error) {
	loc, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("ubicación %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("ubicación %s: %w", id, domain.ErrNotFound)
	}
	if loc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if requireActive && !loc.Active {
		return nil, fmt.Errorf("ubicación %s: %w", loc.Code, domain.ErrInactive)
	}
	return loc, nil
}
