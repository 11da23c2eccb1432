package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

// LocationUseCase casos de uso del registro de ubicaciones.
type LocationUseCase struct {
	txRunner repository.TxRunner
	repo     repository.LocationRepository
	log      *logger.Logger
	now      func() time.Time
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(txRunner repository.TxRunner, repo repository.LocationRepository, log *logger.Logger) *LocationUseCase {
	return &LocationUseCase{txRunner: txRunner, repo: repo, log: log.Component("locations"), now: time.Now}
}

// Create crea una ubicación. La primera de la empresa queda como principal.
func (uc *LocationUseCase) Create(ctx context.Context, companyID string, in dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return nil, err
	}
	count, err := uc.repo.CountByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	loc := &entity.Location{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Code:      in.Code,
		Name:      in.Name,
		IsPrimary: count == 0,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, loc); err != nil {
		return nil, err
	}
	uc.log.Info().Str("location_id", loc.ID).Str("code", loc.Code).Bool("primary", loc.IsPrimary).Msg("ubicación creada")
	out := dto.ToLocationResponse(loc)
	return &out, nil
}

// GetByID obtiene una ubicación de la empresa.
func (uc *LocationUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.LocationResponse, error) {
	loc, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	out := dto.ToLocationResponse(loc)
	return &out, nil
}

// List lista ubicaciones por empresa con paginación.
func (uc *LocationUseCase) List(ctx context.Context, companyID string, page dto.PageRequest) (*dto.LocationListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.repo.CountByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		items = append(items, dto.ToLocationResponse(l))
	}
	return &dto.LocationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Update actualiza código y/o nombre.
func (uc *LocationUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var loc *entity.Location
	err := uc.txRunner.Run(ctx, func(tx repository.TxRepos) error {
		var err error
		if loc, err = getLocation(ctx, tx.Locations.GetForUpdate, companyID, id); err != nil {
			return err
		}
		if in.Code != nil {
			loc.Code = strings.TrimSpace(*in.Code)
		}
		if in.Name != nil {
			loc.Name = strings.TrimSpace(*in.Name)
		}
		loc.UpdatedAt = uc.now().UTC()
		return tx.Locations.Update(ctx, loc)
	})
	if err != nil {
		return nil, err
	}
	out := dto.ToLocationResponse(loc)
	return &out, nil
}

// SetPrimary promueve la ubicación a principal y degrada a la anterior en la misma escritura.
func (uc *LocationUseCase) SetPrimary(ctx context.Context, companyID, id string) (*dto.LocationResponse, error) {
	loc, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !loc.Active {
		return nil, fmt.Errorf("ubicación %s: %w", loc.Code, domain.ErrInactive)
	}
	if !loc.IsPrimary {
		if err := uc.repo.SetPrimary(ctx, companyID, id); err != nil {
			return nil, err
		}
		uc.log.Info().Str("location_id", id).Msg("ubicación principal cambiada")
	}
	return uc.GetByID(ctx, companyID, id)
}

// Deactivate desactiva (soft) la ubicación. No aplica a la principal ni con saldo distinto de cero.
func (uc *LocationUseCase) Deactivate(ctx context.Context, companyID, id string) (*dto.LocationResponse, error) {
	return uc.setActive(ctx, companyID, id, false)
}

// Reactivate vuelve a activar la ubicación.
func (uc *LocationUseCase) Reactivate(ctx context.Context, companyID, id string) (*dto.LocationResponse, error) {
	return uc.setActive(ctx, companyID, id, true)
}

// setActive cambia el estado con la ubicación bloqueada; los saldos se comprueban en la misma tx.
func (uc *LocationUseCase) setActive(ctx context.Context, companyID, id string, active bool) (*dto.LocationResponse, error) {
	var (
		loc     *entity.Location
		changed bool
	)
	err := uc.txRunner.Run(ctx, func(tx repository.TxRepos) error {
		var err error
		if loc, err = getLocation(ctx, tx.Locations.GetForUpdate, companyID, id); err != nil {
			return err
		}
		if !active && loc.IsPrimary {
			return fmt.Errorf("%w: la ubicación principal no se puede desactivar", domain.ErrConflict)
		}
		changed = loc.Active != active
		if !changed {
			return nil
		}
		if !active {
			nonZero, err := tx.Balances.HasNonZeroForLocation(ctx, id)
			if err != nil {
				return err
			}
			if nonZero {
				return fmt.Errorf("ubicación %s: %w", loc.Code, domain.ErrActiveBalanceExists)
			}
		}
		loc.Active = active
		loc.UpdatedAt = uc.now().UTC()
		return tx.Locations.Update(ctx, loc)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		uc.log.Info().Str("location_id", loc.ID).Bool("active", active).Msg("estado de ubicación actualizado")
	}
	out := dto.ToLocationResponse(loc)
	return &out, nil
}

func (uc *LocationUseCase) get(ctx context.Context, companyID, id string) (*entity.Location, error) {
	return getLocation(ctx, uc.repo.GetByID, companyID, id)
}

func getLocation(ctx context.Context, get func(context.Context, string) (*entity.Location, error), companyID, id string) (*entity.Location, error) {
	loc, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return loc, nil
}
