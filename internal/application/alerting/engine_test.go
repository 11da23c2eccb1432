package alerting_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/alerting"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

const companyID = "empresa-1"

// flakyTx falla mientras down sea verdadero.
type flakyTx struct {
	inner *memory.TxRunner
	mu    sync.Mutex
	down  bool
}

func (f *flakyTx) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *flakyTx) Run(ctx context.Context, fn func(tx repository.TxRepos) error) error {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return errors.New("base de datos no disponible")
	}
	return f.inner.Run(ctx, fn)
}

type recorder struct {
	mu     sync.Mutex
	events []alerting.Event
}

func (r *recorder) Publish(_ context.Context, e alerting.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e.Notification
	r.events = append(r.events, alerting.Event{Type: e.Type, Notification: &cp})
	return nil
}

func (r *recorder) take() []alerting.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

type fixture struct {
	store     *memory.Store
	tx        *flakyTx
	items     *memory.ItemRepo
	locations *memory.LocationRepo
	notifs    *memory.NotificationRepo
	engine    *alerting.Engine
	ledger    *inventory.LedgerUseCase
	events    *recorder
	loc       *entity.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Nop()
	store := memory.NewStore()
	f := &fixture{
		store:     store,
		tx:        &flakyTx{inner: memory.NewTxRunner(store)},
		items:     memory.NewItemRepository(store),
		locations: memory.NewLocationRepository(store),
		notifs:    memory.NewNotificationRepository(store),
		events:    &recorder{},
	}
	retry := inventory.RetryPolicy{Attempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	balances := memory.NewBalanceRepository(store)
	f.engine = alerting.NewEngine(f.tx, f.items, balances, f.notifs, f.events,
		alerting.Config{ExpiryLookaheadDays: 7, Retry: retry}, log)
	f.ledger = inventory.NewLedgerUseCase(memory.NewTxRunner(store), f.items, f.locations,
		memory.NewMovementRepository(store), f.engine, retry, log)

	now := time.Now().UTC()
	f.loc = &entity.Location{ID: uuid.New().String(), CompanyID: companyID, Code: "COCINA", Name: "Cocina",
		IsPrimary: true, Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.locations.Create(context.Background(), f.loc))
	return f
}

func (f *fixture) item(t *testing.T, code string, minLevel, maxLevel int64, mutate ...func(*entity.Item)) *entity.Item {
	t.Helper()
	now := time.Now().UTC()
	item := &entity.Item{
		ID: uuid.New().String(), CompanyID: companyID, Code: code, Name: "Harina " + code,
		Category: entity.CategoryFood, Unit: "kg", Active: true, CreatedAt: now, UpdatedAt: now,
	}
	if minLevel > 0 {
		v := decimal.NewFromInt(minLevel)
		item.Defaults.MinLevel = &v
	}
	if maxLevel > 0 {
		v := decimal.NewFromInt(maxLevel)
		item.Defaults.MaxLevel = &v
	}
	for _, m := range mutate {
		m(item)
	}
	require.NoError(t, f.items.Create(context.Background(), item))
	return item
}

func (f *fixture) move(t *testing.T, itemID, movType string, delta int64) {
	t.Helper()
	_, err := f.ledger.RecordMovement(context.Background(), inventory.RecordMovementInput{
		CompanyID: companyID, ActorID: "cocinero-1", ItemID: itemID, LocationID: f.loc.ID,
		Type: movType, Delta: decimal.NewFromInt(delta),
	})
	require.NoError(t, err)
}

func (f *fixture) open(t *testing.T, itemID, locationID, kind string) *entity.Notification {
	t.Helper()
	n, err := f.notifs.FindOpen(context.Background(), itemID, locationID, kind)
	require.NoError(t, err)
	return n
}

func TestEngine_LowStockLifecycle(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "H-1", 10, 0)

	f.move(t, item.ID, entity.MovementTypeReceipt, 12)
	assert.Empty(t, f.events.take())
	assert.Nil(t, f.open(t, item.ID, f.loc.ID, entity.NotificationLowStock))

	f.move(t, item.ID, entity.MovementTypeConsumption, -5)
	events := f.events.take()
	require.Len(t, events, 1)
	assert.Equal(t, alerting.EventCreated, events[0].Type)
	assert.Equal(t, entity.NotificationLowStock, events[0].Notification.Kind)
	assert.Equal(t, entity.PriorityMedium, events[0].Notification.Priority)
	created := events[0].Notification.ID

	f.move(t, item.ID, entity.MovementTypeConsumption, -3)
	events = f.events.take()
	require.Len(t, events, 1)
	assert.Equal(t, alerting.EventUpdated, events[0].Type)
	assert.Equal(t, entity.PriorityHigh, events[0].Notification.Priority)
	assert.Equal(t, created, events[0].Notification.ID)

	f.move(t, item.ID, entity.MovementTypeReceipt, 7)
	events = f.events.take()
	require.Len(t, events, 1)
	assert.Equal(t, alerting.EventResolved, events[0].Type)
	assert.NotNil(t, events[0].Notification.ResolvedAt)
	assert.Nil(t, f.open(t, item.ID, f.loc.ID, entity.NotificationLowStock))
}

func TestEngine_OutOfStockReplacesLowStock(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "H-2", 5, 0)

	f.move(t, item.ID, entity.MovementTypeReceipt, 4)
	require.NotNil(t, f.open(t, item.ID, f.loc.ID, entity.NotificationLowStock))

	f.move(t, item.ID, entity.MovementTypeIssue, -4)
	out := f.open(t, item.ID, f.loc.ID, entity.NotificationOutOfStock)
	require.NotNil(t, out)
	assert.Equal(t, entity.PriorityCritical, out.Priority)
	assert.Nil(t, f.open(t, item.ID, f.loc.ID, entity.NotificationLowStock))
}

func TestEngine_OverStock(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "H-3", 0, 20)

	f.move(t, item.ID, entity.MovementTypeReceipt, 25)
	over := f.open(t, item.ID, f.loc.ID, entity.NotificationOverStock)
	require.NotNil(t, over)
	assert.Equal(t, entity.PriorityLow, over.Priority)

	f.move(t, item.ID, entity.MovementTypeIssue, -5)
	assert.Nil(t, f.open(t, item.ID, f.loc.ID, entity.NotificationOverStock))
}

func TestEngine_EvaluateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "H-4", 10, 0)
	f.move(t, item.ID, entity.MovementTypeReceipt, 3)
	require.Len(t, f.events.take(), 1)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.engine.Evaluate(context.Background(), item.ID, f.loc.ID))
	}
	assert.Empty(t, f.events.take())

	list, err := f.engine.ListNotifications(context.Background(), alerting.ListNotificationsInput{CompanyID: companyID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEngine_AcknowledgeKeepsAlertOpen(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "H-5", 10, 0)
	f.move(t, item.ID, entity.MovementTypeReceipt, 8)
	n := f.open(t, item.ID, f.loc.ID, entity.NotificationLowStock)
	require.NotNil(t, n)

	acked, err := f.engine.Acknowledge(context.Background(), companyID, n.ID)
	require.NoError(t, err)
	require.NotNil(t, acked.AcknowledgedAt)
	assert.Nil(t, acked.ResolvedAt)

	again, err := f.engine.Acknowledge(context.Background(), companyID, n.ID)
	require.NoError(t, err)
	assert.True(t, acked.AcknowledgedAt.Equal(*again.AcknowledgedAt))

	// Cambia la prioridad: sigue reconocida
	f.move(t, item.ID, entity.MovementTypeIssue, -4)
	still := f.open(t, item.ID, f.loc.ID, entity.NotificationLowStock)
	require.NotNil(t, still)
	assert.Equal(t, n.ID, still.ID)
	assert.Equal(t, entity.PriorityHigh, still.Priority)
	assert.NotNil(t, still.AcknowledgedAt)

	// Se resuelve y vuelve a incumplirse: alerta nueva sin reconocer
	f.move(t, item.ID, entity.MovementTypeReceipt, 20)
	f.move(t, item.ID, entity.MovementTypeIssue, -20)
	fresh := f.open(t, item.ID, f.loc.ID, entity.NotificationLowStock)
	require.NotNil(t, fresh)
	assert.NotEqual(t, n.ID, fresh.ID)
	assert.Nil(t, fresh.AcknowledgedAt)

	_, err = f.engine.Acknowledge(context.Background(), "empresa-2", fresh.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.engine.Acknowledge(context.Background(), companyID, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_ExpiryWarning(t *testing.T) {
	f := newFixture(t)
	today := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	f.engine.SetClock(func() time.Time { return today })

	expiry := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	item := f.item(t, "L-1", 0, 0, func(i *entity.Item) {
		i.ExpiryDate = &expiry
		i.BatchID = "LOTE-7"
	})

	// Sin existencias no hay alerta de vencimiento
	require.NoError(t, f.engine.Evaluate(context.Background(), item.ID, ""))
	assert.Nil(t, f.open(t, item.ID, "", entity.NotificationExpiryWarning))

	f.move(t, item.ID, entity.MovementTypeReceipt, 6)
	warn := f.open(t, item.ID, "", entity.NotificationExpiryWarning)
	require.NotNil(t, warn)
	assert.Equal(t, entity.PriorityHigh, warn.Priority)
	assert.Contains(t, warn.Message, "LOTE-7")

	f.move(t, item.ID, entity.MovementTypeConsumption, -6)
	assert.Nil(t, f.open(t, item.ID, "", entity.NotificationExpiryWarning))
}

func TestEngine_InactiveItemResolvesAlerts(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "H-6", 5, 0)
	f.move(t, item.ID, entity.MovementTypeReceipt, 1)
	f.move(t, item.ID, entity.MovementTypeIssue, -1)
	require.NotNil(t, f.open(t, item.ID, f.loc.ID, entity.NotificationOutOfStock))

	stored, err := f.items.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	stored.Active = false
	require.NoError(t, f.items.Update(context.Background(), stored))

	require.NoError(t, f.engine.EvaluateItem(context.Background(), item.ID))
	assert.Nil(t, f.open(t, item.ID, f.loc.ID, entity.NotificationOutOfStock))
}

func TestEngine_FailedEvaluationQueuedForSweep(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "H-7", 10, 0)

	f.tx.setDown(true)
	f.move(t, item.ID, entity.MovementTypeReceipt, 2)
	assert.Equal(t, 1, f.engine.Pending())
	assert.Nil(t, f.open(t, item.ID, f.loc.ID, entity.NotificationLowStock))

	f.tx.setDown(false)
	rep, err := f.engine.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Retried)
	assert.Equal(t, 0, rep.Failed)
	assert.Equal(t, 0, f.engine.Pending())
	assert.NotNil(t, f.open(t, item.ID, f.loc.ID, entity.NotificationLowStock))
}

func TestEngine_SweepPicksUpThresholdChanges(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "H-8", 0, 0)
	f.move(t, item.ID, entity.MovementTypeReceipt, 6)
	assert.Empty(t, f.events.take())

	minLevel := decimal.NewFromInt(8)
	require.NoError(t, f.items.SetThreshold(context.Background(), item.ID, f.loc.ID, entity.Threshold{MinLevel: &minLevel}))

	rep, err := f.engine.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Pairs)
	events := f.events.take()
	require.Len(t, events, 1)
	assert.Equal(t, entity.NotificationLowStock, events[0].Notification.Kind)
}

func TestEngine_ListNotificationsFilters(t *testing.T) {
	f := newFixture(t)
	low := f.item(t, "H-9", 10, 0)
	out := f.item(t, "H-10", 10, 0)
	f.move(t, low.ID, entity.MovementTypeReceipt, 8)
	f.move(t, out.ID, entity.MovementTypeReceipt, 1)
	f.move(t, out.ID, entity.MovementTypeIssue, -1)

	all, err := f.engine.ListNotifications(context.Background(), alerting.ListNotificationsInput{CompanyID: companyID})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 3)

	critical, err := f.engine.ListNotifications(context.Background(), alerting.ListNotificationsInput{
		CompanyID: companyID, UnresolvedOnly: true, MinPriority: entity.PriorityCritical,
	})
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, entity.NotificationOutOfStock, critical[0].Kind)

	byItem, err := f.engine.ListNotifications(context.Background(), alerting.ListNotificationsInput{
		CompanyID: companyID, UnresolvedOnly: true, ItemID: low.ID,
	})
	require.NoError(t, err)
	require.Len(t, byItem, 1)
	assert.Equal(t, entity.NotificationLowStock, byItem[0].Kind)

	other, err := f.engine.ListNotifications(context.Background(), alerting.ListNotificationsInput{CompanyID: "empresa-2"})
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = f.engine.ListNotifications(context.Background(), alerting.ListNotificationsInput{
		CompanyID: companyID, MinPriority: "urgente",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
