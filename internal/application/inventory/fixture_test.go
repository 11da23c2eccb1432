package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

const (
	companyID = "empresa-1"
	actorID   = "bodeguero-1"
)

type fixture struct {
	store     *memory.Store
	txRunner  *memory.TxRunner
	items     *memory.ItemRepo
	locations *memory.LocationRepo
	movements *memory.MovementRepo
	balances  *memory.BalanceRepo
	ledger    *inventory.LedgerUseCase
	projector *inventory.ProjectorUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Nop()
	store := memory.NewStore()
	f := &fixture{
		store:     store,
		items:     memory.NewItemRepository(store),
		locations: memory.NewLocationRepository(store),
		movements: memory.NewMovementRepository(store),
		balances:  memory.NewBalanceRepository(store),
	}
	f.txRunner = memory.NewTxRunner(store)
	retry := inventory.RetryPolicy{Attempts: 20, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	f.ledger = inventory.NewLedgerUseCase(f.txRunner, f.items, f.locations, f.movements, nil, retry, log)
	f.projector = inventory.NewProjectorUseCase(f.txRunner, f.balances, f.items, f.locations, log)
	return f
}

func (f *fixture) location(t *testing.T, code string) *entity.Location {
	t.Helper()
	now := time.Now().UTC()
	loc := &entity.Location{
		ID: uuid.New().String(), CompanyID: companyID, Code: code, Name: "Bodega " + code,
		Active: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.locations.Create(context.Background(), loc))
	return loc
}

func (f *fixture) item(t *testing.T, code string, mutate ...func(*entity.Item)) *entity.Item {
	t.Helper()
	now := time.Now().UTC()
	item := &entity.Item{
		ID: uuid.New().String(), CompanyID: companyID, Code: code, Name: "Rodamiento " + code,
		Category: entity.CategorySparePart, Unit: "unidad", Active: true, CreatedAt: now, UpdatedAt: now,
	}
	for _, m := range mutate {
		m(item)
	}
	require.NoError(t, f.items.Create(context.Background(), item))
	return item
}

func (f *fixture) record(t *testing.T, itemID, locID, movType string, delta int64) string {
	t.Helper()
	id, err := f.ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
		CompanyID: companyID, ActorID: actorID, ItemID: itemID, LocationID: locID,
		Type: movType, Delta: decimal.NewFromInt(delta),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) balance(t *testing.T, itemID, locID string) decimal.Decimal {
	t.Helper()
	qty, err := f.projector.GetBalance(context.Background(), companyID, itemID, locID)
	require.NoError(t, err)
	return qty
}

func repositoryFilter(itemID string) repository.MovementFilter {
	return repository.MovementFilter{ItemID: itemID}
}
