package inventory

import (
	"context"
	"errors"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

const reconcilePageSize = 500

// BalanceSummary saldos de un ítem por ubicación más el total.
type BalanceSummary struct {
	ItemID     string
	ByLocation map[string]decimal.Decimal
	Total      decimal.Decimal
}

// ReconcileResult compara el saldo materializado con la suma del libro.
type ReconcileResult struct {
	ItemID     string
	LocationID string
	Projected  decimal.Decimal
	Replayed   decimal.Decimal
	Matches    bool
}

// ProjectorUseCase lecturas del saldo materializado y verificación contra el libro.
type ProjectorUseCase struct {
	txRunner     TxRunner
	balanceRepo  repository.BalanceRepository
	itemRepo     repository.ItemRepository
	locationRepo repository.LocationRepository
	log          *logger.Logger
}

// NewProjectorUseCase construye el caso de uso.
func NewProjectorUseCase(
	txRunner TxRunner,
	balanceRepo repository.BalanceRepository,
	itemRepo repository.ItemRepository,
	locationRepo repository.LocationRepository,
	log *logger.Logger,
) *ProjectorUseCase {
	return &ProjectorUseCase{
		txRunner:     txRunner,
		balanceRepo:  balanceRepo,
		itemRepo:     itemRepo,
		locationRepo: locationRepo,
		log:          log.Component("projector"),
	}
}

// GetBalance lee el saldo materializado del par; un par nunca tocado vale cero.
func (uc *ProjectorUseCase) GetBalance(ctx context.Context, companyID, itemID, locationID string) (decimal.Decimal, error) {
	if _, err := loadItem(ctx, uc.itemRepo.GetByID, companyID, itemID, false); err != nil {
		return decimal.Zero, err
	}
	if _, err := loadLocation(ctx, uc.locationRepo.GetByID, companyID, locationID, false); err != nil {
		return decimal.Zero, err
	}
	bal, err := uc.balanceRepo.Get(ctx, itemID, locationID)
	if err != nil {
		return decimal.Zero, err
	}
	return bal.Quantity, nil
}

// GetBalances devuelve el saldo por ubicación (solo pares con registro) y el total sumado.
func (uc *ProjectorUseCase) GetBalances(ctx context.Context, companyID, itemID string) (*BalanceSummary, error) {
	if _, err := loadItem(ctx, uc.itemRepo.GetByID, companyID, itemID, false); err != nil {
		return nil, err
	}
	rows, err := uc.balanceRepo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	out := &BalanceSummary{ItemID: itemID, ByLocation: make(map[string]decimal.Decimal, len(rows)), Total: decimal.Zero}
	for _, b := range rows {
		out.ByLocation[b.LocationID] = b.Quantity
		out.Total = out.Total.Add(b.Quantity)
	}
	return out, nil
}

// Reconcile compara el saldo del par con Σ delta del libro bajo el bloqueo del par.
// Una diferencia se registra en nivel error y se devuelve como *domain.DriftError; nunca se corrige sola.
func (uc *ProjectorUseCase) Reconcile(ctx context.Context, companyID, itemID, locationID string) (*ReconcileResult, error) {
	if _, err := loadItem(ctx, uc.itemRepo.GetByID, companyID, itemID, false); err != nil {
		return nil, err
	}
	if _, err := loadLocation(ctx, uc.locationRepo.GetByID, companyID, locationID, false); err != nil {
		return nil, err
	}
	return uc.reconcilePair(ctx, itemID, locationID)
}

// ReconcileAll recorre todos los saldos por páginas y devuelve los pares con diferencia.
func (uc *ProjectorUseCase) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	var drifted []ReconcileResult
	checked := 0
	for offset := 0; ; offset += reconcilePageSize {
		page, err := uc.balanceRepo.ListPage(ctx, reconcilePageSize, offset)
		if err != nil {
			return drifted, err
		}
		for _, b := range page {
			if err := ctx.Err(); err != nil {
				return drifted, err
			}
			res, err := uc.reconcilePair(ctx, b.ItemID, b.LocationID)
			if err != nil && !errors.Is(err, domain.ErrLedgerDrift) {
				return drifted, err
			}
			checked++
			if !res.Matches {
				drifted = append(drifted, *res)
			}
		}
		if len(page) < reconcilePageSize {
			break
		}
	}
	uc.log.Info().Int("checked", checked).Int("drifted", len(drifted)).Msg("conciliación del libro completada")
	return drifted, nil
}

func (uc *ProjectorUseCase) reconcilePair(ctx context.Context, itemID, locationID string) (*ReconcileResult, error) {
	var res *ReconcileResult
	err := uc.txRunner.Run(ctx, func(tx repository.TxRepos) error {
		bal, err := tx.Balances.GetForUpdate(ctx, itemID, locationID)
		if err != nil {
			return err
		}
		sum, err := tx.Movements.SumDelta(ctx, itemID, locationID)
		if err != nil {
			return err
		}
		res = &ReconcileResult{
			ItemID:     itemID,
			LocationID: locationID,
			Projected:  bal.Quantity,
			Replayed:   sum,
			Matches:    bal.Quantity.Equal(sum),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !res.Matches {
		uc.log.Error().
			Str("item_id", itemID).
			Str("location_id", locationID).
			Str("projected", res.Projected.String()).
			Str("replayed", res.Replayed.String()).
			Msg("diferencia entre saldo y libro")
		return res, &domain.DriftError{ItemID: itemID, LocationID: locationID, Projected: res.Projected, Replayed: res.Replayed}
	}
	return res, nil
}

