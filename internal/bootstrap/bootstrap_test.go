package bootstrap_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/alerting"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/bootstrap"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

func memoryConfig() *config.Config {
	return &config.Config{Ledger: config.LedgerConfig{
		StorageDriver:       config.StorageDriverMemory,
		ExpiryLookaheadDays: 7,
		RetryAttempts:       10,
		RetryInitialBackoff: time.Millisecond,
	}}
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Ledger.StorageDriver = "sqlite"
	_, err := bootstrap.OpenStorage(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}

func TestRetryPolicy_OverridesDefaults(t *testing.T) {
	def := inventory.DefaultRetryPolicy()
	assert.Equal(t, def, bootstrap.RetryPolicy(config.LedgerConfig{}))

	p := bootstrap.RetryPolicy(config.LedgerConfig{RetryAttempts: 9, RetryInitialBackoff: 3 * time.Millisecond})
	assert.Equal(t, 9, p.Attempts)
	assert.Equal(t, 3*time.Millisecond, p.InitialBackoff)
}

func TestNewServices_MovementRaisesAlert(t *testing.T) {
	cfg := memoryConfig()
	st, err := bootstrap.OpenStorage(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer st.Close()
	assert.Equal(t, config.StorageDriverMemory, st.Driver)

	var (
		mu     sync.Mutex
		events []alerting.Event
	)
	pub := alerting.PublisherFunc(func(_ context.Context, e alerting.Event) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
		return nil
	})
	svc := bootstrap.NewServices(st, cfg.Ledger, pub, logger.Nop())

	ctx := context.Background()
	loc, err := svc.Locations.Create(ctx, "empresa-1", dto.CreateLocationRequest{Code: "BOD-1", Name: "Principal"})
	require.NoError(t, err)
	minLevel := decimal.NewFromInt(5)
	item, err := svc.Items.Create(ctx, "empresa-1", dto.CreateItemRequest{
		Code: "F-1", Name: "Filtro de aceite", Category: entity.CategorySparePart, Unit: "unidad", MinLevel: &minLevel,
	})
	require.NoError(t, err)

	_, err = svc.Ledger.RecordMovement(ctx, inventory.RecordMovementInput{
		CompanyID: "empresa-1", ActorID: "bodeguero-1", ItemID: item.ID, LocationID: loc.ID,
		Type: entity.MovementTypeReceipt, Delta: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	open, err := svc.Engine.ListNotifications(ctx, alerting.ListNotificationsInput{CompanyID: "empresa-1", UnresolvedOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, entity.NotificationLowStock, open[0].Kind)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, alerting.EventCreated, events[0].Type)
}
