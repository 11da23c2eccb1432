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

// ItemUseCase casos de uso del catálogo de ítems.
type ItemUseCase struct {
	txRunner     repository.TxRunner
	repo         repository.ItemRepository
	locationRepo repository.LocationRepository
	alerts       ItemEvaluator
	log          *logger.Logger
	now          func() time.Time
}

// NewItemUseCase construye el caso de uso. Las modificaciones corren en txRunner con el ítem
// bloqueado (FOR UPDATE). alerts puede ser nil.
func NewItemUseCase(
	txRunner repository.TxRunner,
	repo repository.ItemRepository,
	locationRepo repository.LocationRepository,
	alerts ItemEvaluator,
	log *logger.Logger,
) *ItemUseCase {
	return &ItemUseCase{
		txRunner:     txRunner,
		repo:         repo,
		locationRepo: locationRepo,
		alerts:       alerts,
		log:          log.Component("items"),
		now:          time.Now,
	}
}

// Create crea un ítem activo. El stock inicial se carga con un movimiento de ajuste, no aquí.
func (uc *ItemUseCase) Create(ctx context.Context, companyID string, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return nil, err
	}
	defaults := entity.Threshold{MinLevel: in.MinLevel, MaxLevel: in.MaxLevel}
	if !defaults.Valid() {
		return nil, fmt.Errorf("%w: se requiere 0 <= min_level <= max_level", domain.ErrInvalidInput)
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
	}
	expiry, err := parseDate(in.ExpiryDate)
	if err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	item := &entity.Item{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		Code:           in.Code,
		Name:           in.Name,
		Description:    in.Description,
		Category:       in.Category,
		Unit:           in.Unit,
		Defaults:       defaults,
		UnitCost:       in.UnitCost,
		ExpiryDate:     expiry,
		BatchID:        in.BatchID,
		Supplier:       in.Supplier,
		SupplierCode:   in.SupplierCode,
		AllowBackorder: in.AllowBackorder,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	uc.log.Info().Str("item_id", item.ID).Str("code", item.Code).Msg("ítem creado")
	out := dto.ToItemResponse(item)
	return &out, nil
}

// GetByID obtiene un ítem de la empresa.
func (uc *ItemUseCase) GetByID(ctx context.Context, companyID, id string) (*dto.ItemResponse, error) {
	item, err := uc.get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	out := dto.ToItemResponse(item)
	return &out, nil
}

// GetByCode obtiene un ítem por su código.
func (uc *ItemUseCase) GetByCode(ctx context.Context, companyID, code string) (*dto.ItemResponse, error) {
	item, err := uc.repo.GetByCode(ctx, companyID, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	out := dto.ToItemResponse(item)
	return &out, nil
}

// List lista ítems por empresa con paginación.
func (uc *ItemUseCase) List(ctx context.Context, companyID string, activeOnly bool, page dto.PageRequest) (*dto.ItemListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.ListByCompany(ctx, companyID, activeOnly, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.repo.CountByCompany(ctx, companyID, activeOnly)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, i := range list {
		items = append(items, dto.ToItemResponse(i))
	}
	return &dto.ItemListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Update actualización parcial de los atributos del catálogo.
func (uc *ItemUseCase) Update(ctx context.Context, companyID, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	var item *entity.Item
	err := uc.txRunner.Run(ctx, func(tx repository.TxRepos) error {
		var err error
		if item, err = getItem(ctx, tx.Items.GetForUpdate, companyID, id); err != nil {
			return err
		}
		if err := patchItem(item, in); err != nil {
			return err
		}
		item.UpdatedAt = uc.now().UTC()
		return tx.Items.Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	uc.reevaluate(ctx, item.ID)
	out := dto.ToItemResponse(item)
	return &out, nil
}

func patchItem(item *entity.Item, in dto.UpdateItemRequest) error {
	if in.Code != nil {
		item.Code = strings.TrimSpace(*in.Code)
	}
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.Unit != nil {
		item.Unit = *in.Unit
	}
	if in.MinLevel != nil {
		item.Defaults.MinLevel = in.MinLevel
	}
	if in.MaxLevel != nil {
		item.Defaults.MaxLevel = in.MaxLevel
	}
	if !item.Defaults.Valid() {
		return fmt.Errorf("%w: se requiere 0 <= min_level <= max_level", domain.ErrInvalidInput)
	}
	if in.UnitCost != nil {
		if in.UnitCost.IsNegative() {
			return fmt.Errorf("%w: costo unitario negativo", domain.ErrInvalidInput)
		}
		item.UnitCost = in.UnitCost
	}
	if in.ExpiryDate != nil {
		expiry, err := parseDate(*in.ExpiryDate)
		if err != nil {
			return err
		}
		item.ExpiryDate = expiry
	}
	if in.BatchID != nil {
		item.BatchID = *in.BatchID
	}
	if in.Supplier != nil {
		item.Supplier = *in.Supplier
	}
	if in.SupplierCode != nil {
		item.SupplierCode = *in.SupplierCode
	}
	if in.AllowBackorder != nil {
		item.AllowBackorder = *in.AllowBackorder
	}
	return nil
}

// SetThreshold fija el umbral específico de una ubicación (prevalece sobre el del ítem).
func (uc *ItemUseCase) SetThreshold(ctx context.Context, companyID, itemID, locationID string, in dto.ThresholdDTO) (*dto.ItemResponse, error) {
	t := entity.Threshold{MinLevel: in.MinLevel, MaxLevel: in.MaxLevel}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: se requiere 0 <= min_level <= max_level", domain.ErrInvalidInput)
	}
	err := uc.txRunner.Run(ctx, func(tx repository.TxRepos) error {
		item, err := getItem(ctx, tx.Items.GetForUpdate, companyID, itemID)
		if err != nil {
			return err
		}
		loc, err := tx.Locations.GetForShare(ctx, locationID)
		if err != nil {
			return err
		}
		if loc.CompanyID != companyID {
			return domain.ErrForbidden
		}
		return tx.Items.SetThreshold(ctx, item.ID, loc.ID, t)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("item_id", itemID).Str("location_id", locationID).Msg("umbral por ubicación actualizado")
	uc.reevaluate(ctx, itemID)
	return uc.GetByID(ctx, companyID, itemID)
}

// Deactivate desactiva (soft) el ítem. Rechazado si tiene saldo distinto de cero en alguna ubicación.
// El ítem queda bloqueado mientras se comprueban los saldos: un movimiento concurrente espera o gana.
func (uc *ItemUseCase) Deactivate(ctx context.Context, companyID, id string) (*dto.ItemResponse, error) {
	return uc.setActive(ctx, companyID, id, false)
}

// Reactivate vuelve a activar el ítem.
func (uc *ItemUseCase) Reactivate(ctx context.Context, companyID, id string) (*dto.ItemResponse, error) {
	return uc.setActive(ctx, companyID, id, true)
}

func (uc *ItemUseCase) setActive(ctx context.Context, companyID, id string, active bool) (*dto.ItemResponse, error) {
	var (
		item    *entity.Item
		changed bool
	)
	err := uc.txRunner.Run(ctx, func(tx repository.TxRepos) error {
		var err error
		if item, err = getItem(ctx, tx.Items.GetForUpdate, companyID, id); err != nil {
			return err
		}
		changed = item.Active != active
		if !changed {
			return nil
		}
		if !active {
			nonZero, err := tx.Balances.HasNonZeroForItem(ctx, id)
			if err != nil {
				return err
			}
			if nonZero {
				return fmt.Errorf("ítem %s: %w", item.Code, domain.ErrActiveBalanceExists)
			}
		}
		item.Active = active
		item.UpdatedAt = uc.now().UTC()
		return tx.Items.Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		uc.log.Info().Str("item_id", item.ID).Bool("active", active).Msg("estado de ítem actualizado")
		uc.reevaluate(ctx, item.ID)
	}
	out := dto.ToItemResponse(item)
	return &out, nil
}

// reevaluate dispara el motor de alertas; un fallo queda en la cola del barrido.
func (uc *ItemUseCase) reevaluate(ctx context.Context, itemID string) {
	if uc.alerts == nil {
		return
	}
	if err := uc.alerts.EvaluateItem(ctx, itemID); err != nil {
		uc.log.Warn().Err(err).Str("item_id", itemID).Msg("re-evaluación de alertas pendiente")
	}
}

func (uc *ItemUseCase) get(ctx context.Context, companyID, id string) (*entity.Item, error) {
	return getItem(ctx, uc.repo.GetByID, companyID, id)
}

func getItem(ctx context.Context, get func(context.Context, string) (*entity.Item, error), companyID, id string) (*entity.Item, error) {
	item, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	return item, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha %q (se espera YYYY-MM-DD)", domain.ErrInvalidInput, s)
	}
	return &t, nil
}

