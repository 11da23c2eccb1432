// Package bootstrap arma el almacenamiento y los casos de uso a partir de la configuración.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventory-ledger/internal/application/alerting"
	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/application/importexport"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/inventory-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

// Storage repositorios del driver configurado.
type Storage struct {
	Driver        string
	TxRunner      repository.TxRunner
	Items         repository.ItemRepository
	Locations     repository.LocationRepository
	Movements     repository.MovementRepository
	Balances      repository.BalanceRepository
	Notifications repository.NotificationRepository
	close         func()
}

// Close libera las conexiones del driver.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage abre el driver de cfg.Ledger.StorageDriver. Con postgres aplica las migraciones antes de abrir el pool.
func OpenStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Storage, error) {
	switch cfg.Ledger.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		store := memory.NewStore()
		return &Storage{
			Driver:        config.StorageDriverMemory,
			TxRunner:      memory.NewTxRunner(store),
			Items:         memory.NewItemRepository(store),
			Locations:     memory.NewLocationRepository(store),
			Movements:     memory.NewMovementRepository(store),
			Balances:      memory.NewBalanceRepository(store),
			Notifications: memory.NewNotificationRepository(store),
		}, nil

	case config.StorageDriverPostgres, "":
		migrator, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
		if err != nil {
			return nil, err
		}
		upErr := migrator.Up()
		if err := migrator.Close(); err != nil {
			log.Warn().Err(err).Msg("cerrar migrador")
		}
		if upErr != nil {
			return nil, upErr
		}

		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		return &Storage{
			Driver:        config.StorageDriverPostgres,
			TxRunner:      postgres.NewTxRunner(pool),
			Items:         postgres.NewItemRepository(pool),
			Locations:     postgres.NewLocationRepository(pool),
			Movements:     postgres.NewMovementRepository(pool),
			Balances:      postgres.NewBalanceRepository(pool),
			Notifications: postgres.NewNotificationRepository(pool),
			close:         pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("driver de almacenamiento desconocido: %q", cfg.Ledger.StorageDriver)
}

// Services casos de uso listos para los adaptadores (HTTP, CLI).
type Services struct {
	Engine    *alerting.Engine
	Ledger    *inventory.LedgerUseCase
	Projector *inventory.ProjectorUseCase
	Locations *catalog.LocationUseCase
	Items     *catalog.ItemUseCase
	Gateway   *importexport.Gateway
}

// RetryPolicy política de reintentos a partir de la configuración (cero = valor por defecto).
func RetryPolicy(cfg config.LedgerConfig) inventory.RetryPolicy {
	policy := inventory.DefaultRetryPolicy()
	if cfg.RetryAttempts > 0 {
		policy.Attempts = cfg.RetryAttempts
	}
	if cfg.RetryInitialBackoff > 0 {
		policy.InitialBackoff = cfg.RetryInitialBackoff
	}
	return policy
}

// NewServices conecta motor, libro, proyector, catálogo y gateway. publisher puede ser nil.
func NewServices(st *Storage, cfg config.LedgerConfig, publisher alerting.Publisher, log *logger.Logger) *Services {
	retry := RetryPolicy(cfg)

	engine := alerting.NewEngine(
		st.TxRunner, st.Items, st.Balances, st.Notifications,
		publisher,
		alerting.Config{ExpiryLookaheadDays: cfg.ExpiryLookaheadDays, Retry: retry},
		log,
	)
	ledger := inventory.NewLedgerUseCase(st.TxRunner, st.Items, st.Locations, st.Movements, engine, retry, log)
	projector := inventory.NewProjectorUseCase(st.TxRunner, st.Balances, st.Items, st.Locations, log)

	return &Services{
		Engine:    engine,
		Ledger:    ledger,
		Projector: projector,
		Locations: catalog.NewLocationUseCase(st.TxRunner, st.Locations, log),
		Items:     catalog.NewItemUseCase(st.TxRunner, st.Items, st.Locations, engine, log),
		Gateway: importexport.NewGateway(
			st.Items, st.Locations, st.Balances,
			ledger, engine, infrapdf.NewStockReportGenerator(),
			cfg.DefaultLocationID, log,
		),
	}
}
