package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

func TestRecordMovement_BalanceMatchesLedgerSum(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	item := f.item(t, "R-100")

	f.record(t, item.ID, loc.ID, entity.MovementTypeReceipt, 12)
	f.record(t, item.ID, loc.ID, entity.MovementTypeConsumption, -5)
	f.record(t, item.ID, loc.ID, entity.MovementTypeIssue, -2)
	f.record(t, item.ID, loc.ID, entity.MovementTypeAdjustment, 3)

	assert.True(t, decimal.NewFromInt(8).Equal(f.balance(t, item.ID, loc.ID)))

	sum, err := f.movements.SumDelta(context.Background(), item.ID, loc.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(f.balance(t, item.ID, loc.ID)))
}

func TestRecordMovement_SignRules(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	item := f.item(t, "R-100")

	cases := []struct {
		name    string
		movType string
		delta   int64
		wantErr error
	}{
		{"entrada negativa", entity.MovementTypeReceipt, -1, domain.ErrInvalidQuantity},
		{"entrada cero", entity.MovementTypeReceipt, 0, domain.ErrInvalidQuantity},
		{"salida positiva", entity.MovementTypeIssue, 3, domain.ErrInvalidQuantity},
		{"consumo positivo", entity.MovementTypeConsumption, 1, domain.ErrInvalidQuantity},
		{"ajuste cero", entity.MovementTypeAdjustment, 0, domain.ErrInvalidQuantity},
		{"traslado directo", entity.MovementTypeTransfer, 1, domain.ErrInvalidInput},
		{"tipo desconocido", "robo", -1, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
				CompanyID: companyID, ActorID: actorID, ItemID: item.ID, LocationID: loc.ID,
				Type: tc.movType, Delta: decimal.NewFromInt(tc.delta),
			})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	list, err := f.movements.List(context.Background(), repositoryFilter(item.ID))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecordMovement_InsufficientStockWritesNothing(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	item := f.item(t, "R-100")
	f.record(t, item.ID, loc.ID, entity.MovementTypeReceipt, 3)

	_, err := f.ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
		CompanyID: companyID, ActorID: actorID, ItemID: item.ID, LocationID: loc.ID,
		Type: entity.MovementTypeIssue, Delta: decimal.NewFromInt(-4),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.True(t, decimal.NewFromInt(3).Equal(f.balance(t, item.ID, loc.ID)))
	list, err := f.movements.List(context.Background(), repositoryFilter(item.ID))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecordMovement_BackorderAllowsNegative(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	item := f.item(t, "R-100", func(i *entity.Item) { i.AllowBackorder = true })

	f.record(t, item.ID, loc.ID, entity.MovementTypeIssue, -2)
	assert.True(t, decimal.NewFromInt(-2).Equal(f.balance(t, item.ID, loc.ID)))
}

func TestRecordMovement_NegativeAdjustmentChecked(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	item := f.item(t, "R-100")
	f.record(t, item.ID, loc.ID, entity.MovementTypeReceipt, 2)

	_, err := f.ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
		CompanyID: companyID, ActorID: actorID, ItemID: item.ID, LocationID: loc.ID,
		Type: entity.MovementTypeAdjustment, Delta: decimal.NewFromInt(-3),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestRecordMovement_RejectsInactiveAndForeign(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	inactive := f.item(t, "R-OFF", func(i *entity.Item) { i.Active = false })
	foreign := f.item(t, "R-EXT", func(i *entity.Item) { i.CompanyID = "empresa-2" })

	in := inventory.RecordMovementInput{
		CompanyID: companyID, ActorID: actorID, LocationID: loc.ID,
		Type: entity.MovementTypeReceipt, Delta: decimal.NewFromInt(1),
	}

	in.ItemID = inactive.ID
	_, err := f.ledger.RecordMovement(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInactive)

	in.ItemID = foreign.ID
	_, err = f.ledger.RecordMovement(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	in.ItemID = "no-existe"
	_, err = f.ledger.RecordMovement(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordTransfer_ZeroSum(t *testing.T) {
	f := newFixture(t)
	from := f.location(t, "BOD-1")
	to := f.location(t, "BOD-2")
	item := f.item(t, "R-100")
	f.record(t, item.ID, from.ID, entity.MovementTypeReceipt, 10)

	outID, inID, err := f.ledger.RecordTransfer(context.Background(), inventory.RecordTransferInput{
		CompanyID: companyID, ActorID: actorID, ItemID: item.ID,
		FromLocationID: from.ID, ToLocationID: to.ID, Quantity: decimal.NewFromInt(4),
	})
	require.NoError(t, err)
	assert.NotEqual(t, outID, inID)

	assert.True(t, decimal.NewFromInt(6).Equal(f.balance(t, item.ID, from.ID)))
	assert.True(t, decimal.NewFromInt(4).Equal(f.balance(t, item.ID, to.ID)))

	summary, err := f.projector.GetBalances(context.Background(), companyID, item.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(summary.Total))

	list, err := f.movements.List(context.Background(), repositoryFilter(item.ID))
	require.NoError(t, err)
	require.Len(t, list, 3)
	legs := list[:2]
	assert.Equal(t, legs[0].TransferID, legs[1].TransferID)
	assert.True(t, legs[0].Delta.Add(legs[1].Delta).IsZero())
	for _, m := range legs {
		assert.Equal(t, entity.MovementTypeTransfer, m.Type)
	}
}

func TestRecordTransfer_Validation(t *testing.T) {
	f := newFixture(t)
	from := f.location(t, "BOD-1")
	to := f.location(t, "BOD-2")
	item := f.item(t, "R-100")
	f.record(t, item.ID, from.ID, entity.MovementTypeReceipt, 2)

	base := inventory.RecordTransferInput{
		CompanyID: companyID, ActorID: actorID, ItemID: item.ID,
		FromLocationID: from.ID, ToLocationID: to.ID, Quantity: decimal.NewFromInt(1),
	}

	same := base
	same.ToLocationID = from.ID
	_, _, err := f.ledger.RecordTransfer(context.Background(), same)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	zero := base
	zero.Quantity = decimal.Zero
	_, _, err = f.ledger.RecordTransfer(context.Background(), zero)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	tooMuch := base
	tooMuch.Quantity = decimal.NewFromInt(3)
	_, _, err = f.ledger.RecordTransfer(context.Background(), tooMuch)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.True(t, decimal.NewFromInt(2).Equal(f.balance(t, item.ID, from.ID)))
	assert.True(t, f.balance(t, item.ID, to.ID).IsZero())
}

func TestRecordMovement_ConcurrentConsumptionNeverOversells(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	item := f.item(t, "R-100")
	f.record(t, item.ID, loc.ID, entity.MovementTypeReceipt, 10)

	const workers = 25
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
				CompanyID: companyID, ActorID: actorID, ItemID: item.ID, LocationID: loc.ID,
				Type: entity.MovementTypeConsumption, Delta: decimal.NewFromInt(-1),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, workers-10, insufficient)
	assert.True(t, f.balance(t, item.ID, loc.ID).IsZero())

	res, err := f.projector.Reconcile(context.Background(), companyID, item.ID, loc.ID)
	require.NoError(t, err)
	assert.True(t, res.Matches)
}

func TestRecordMovement_ConcurrentConsumptionExactStock(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	item := f.item(t, "R-200")
	const n = 20
	f.record(t, item.ID, loc.ID, entity.MovementTypeReceipt, n)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
				CompanyID: companyID, ActorID: actorID, ItemID: item.ID, LocationID: loc.ID,
				Type: entity.MovementTypeConsumption, Delta: decimal.NewFromInt(-1),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, f.balance(t, item.ID, loc.ID).IsZero())

	movs, err := f.movements.List(context.Background(), repositoryFilter(item.ID))
	require.NoError(t, err)
	assert.Len(t, movs, n+1)
}

func TestListMovements_NewestFirstWithFilters(t *testing.T) {
	f := newFixture(t)
	a := f.location(t, "BOD-1")
	b := f.location(t, "BOD-2")
	item := f.item(t, "R-100")

	first := f.record(t, item.ID, a.ID, entity.MovementTypeReceipt, 5)
	f.record(t, item.ID, b.ID, entity.MovementTypeReceipt, 1)
	last := f.record(t, item.ID, a.ID, entity.MovementTypeIssue, -1)

	list, err := f.ledger.ListMovements(context.Background(), inventory.ListMovementsInput{
		CompanyID: companyID, ItemID: item.ID, LocationID: a.ID,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, last, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	assert.Greater(t, list[0].Sequence, list[1].Sequence)

	limited, err := f.ledger.ListMovements(context.Background(), inventory.ListMovementsInput{
		CompanyID: companyID, ItemID: item.ID, Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, last, limited[0].ID)

	future := time.Now().Add(time.Hour)
	none, err := f.ledger.ListMovements(context.Background(), inventory.ListMovementsInput{
		CompanyID: companyID, ItemID: item.ID, Since: &future,
	})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.ledger.ListMovements(context.Background(), inventory.ListMovementsInput{CompanyID: companyID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

type recordingTrigger struct {
	mu    sync.Mutex
	pairs []string
}

func (r *recordingTrigger) EvaluateAfterCommit(_ context.Context, itemID, locationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, itemID+"/"+locationID)
}

func TestRecordTransfer_TriggersBothPairs(t *testing.T) {
	f := newFixture(t)
	from := f.location(t, "BOD-1")
	to := f.location(t, "BOD-2")
	item := f.item(t, "R-100")

	trigger := &recordingTrigger{}
	ledger := inventory.NewLedgerUseCase(f.txRunner, f.items, f.locations, f.movements, trigger, inventory.DefaultRetryPolicy(), logger.Nop())

	_, err := ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
		CompanyID: companyID, ActorID: actorID, ItemID: item.ID, LocationID: from.ID,
		Type: entity.MovementTypeReceipt, Delta: decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	_, _, err = ledger.RecordTransfer(context.Background(), inventory.RecordTransferInput{
		CompanyID: companyID, ActorID: actorID, ItemID: item.ID,
		FromLocationID: from.ID, ToLocationID: to.ID, Quantity: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		item.ID + "/" + from.ID,
		item.ID + "/" + from.ID,
		item.ID + "/" + to.ID,
	}, trigger.pairs)
}

func (f *fixture) setStock(ctx context.Context, itemID, locID string, target int64) (string, error) {
	var movID string
	err := f.ledger.InTx(ctx, func(_ repository.TxRepos, ledger *inventory.LedgerTx) error {
		id, err := ledger.SetStock(ctx, inventory.SetStockInput{
			CompanyID: companyID, ActorID: actorID, ItemID: itemID, LocationID: locID,
			Target: decimal.NewFromInt(target),
		})
		movID = id
		return err
	})
	return movID, err
}

func TestSetStock_AdjustsToTarget(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	item := f.item(t, "R-100")
	f.record(t, item.ID, loc.ID, entity.MovementTypeReceipt, 8)

	id, err := f.setStock(context.Background(), item.ID, loc.ID, 5)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.True(t, decimal.NewFromInt(5).Equal(f.balance(t, item.ID, loc.ID)))

	movs, err := f.movements.List(context.Background(), repositoryFilter(item.ID))
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementTypeAdjustment, movs[0].Type)
	assert.True(t, decimal.NewFromInt(-3).Equal(movs[0].Delta))

	// Saldo ya igual al objetivo: no se escribe nada
	id, err = f.setStock(context.Background(), item.ID, loc.ID, 5)
	require.NoError(t, err)
	assert.Empty(t, id)
	movs, err = f.movements.List(context.Background(), repositoryFilter(item.ID))
	require.NoError(t, err)
	assert.Len(t, movs, 2)

	_, err = f.setStock(context.Background(), item.ID, loc.ID, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestInTx_ErrorDiscardsAllMovements(t *testing.T) {
	f := newFixture(t)
	a := f.location(t, "BOD-1")
	b := f.location(t, "BOD-2")
	item := f.item(t, "R-100")

	boom := errors.New("fila inválida")
	err := f.ledger.InTx(context.Background(), func(_ repository.TxRepos, ledger *inventory.LedgerTx) error {
		for _, loc := range []*entity.Location{a, b} {
			if _, err := ledger.Record(context.Background(), inventory.RecordMovementInput{
				CompanyID: companyID, ActorID: actorID, ItemID: item.ID, LocationID: loc.ID,
				Type: entity.MovementTypeReceipt, Delta: decimal.NewFromInt(4),
			}); err != nil {
				return err
			}
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.True(t, f.balance(t, item.ID, a.ID).IsZero())
	assert.True(t, f.balance(t, item.ID, b.ID).IsZero())
	movs, err := f.movements.List(context.Background(), repositoryFilter(item.ID))
	require.NoError(t, err)
	assert.Empty(t, movs)
}

// El ajuste se calcula sobre el saldo bloqueado: con entradas concurrentes,
// el saldo justo después del ajuste siempre es el objetivo.
func TestSetStock_ConcurrentReceiptsKeepTarget(t *testing.T) {
	f := newFixture(t)
	loc := f.location(t, "BOD-1")
	item := f.item(t, "R-100")
	f.record(t, item.ID, loc.ID, entity.MovementTypeReceipt, 3)

	const receipts = 10
	var (
		wg       sync.WaitGroup
		adjustID string
		setErr   error
	)
	wg.Add(receipts + 1)
	go func() {
		defer wg.Done()
		adjustID, setErr = f.setStock(context.Background(), item.ID, loc.ID, 20)
	}()
	for i := 0; i < receipts; i++ {
		go func() {
			defer wg.Done()
			_, err := f.ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
				CompanyID: companyID, ActorID: actorID, ItemID: item.ID, LocationID: loc.ID,
				Type: entity.MovementTypeReceipt, Delta: decimal.NewFromInt(1),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.NoError(t, setErr)
	require.NotEmpty(t, adjustID)

	movs, err := f.movements.List(context.Background(), repositoryFilter(item.ID))
	require.NoError(t, err)
	running := decimal.Zero
	found := false
	for i := len(movs) - 1; i >= 0; i-- {
		running = running.Add(movs[i].Delta)
		if movs[i].ID == adjustID {
			found = true
			assert.True(t, decimal.NewFromInt(20).Equal(running), "saldo tras el ajuste: %s", running)
		}
	}
	require.True(t, found)
	assert.True(t, running.Equal(f.balance(t, item.ID, loc.ID)))
}
