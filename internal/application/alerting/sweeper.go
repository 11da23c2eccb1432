package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

// IntegrityChecker verificación libro/saldo ejecutada en cada ciclo del barrido.
type IntegrityChecker interface {
	ReconcileAll(ctx context.Context) ([]inventory.ReconcileResult, error)
}

// Sweeper ejecuta Engine.Sweep (y la conciliación, si hay checker) en cada tick.
type Sweeper struct {
	engine   *Engine
	checker  IntegrityChecker
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper construye el barrido periódico. checker puede ser nil.
func NewSweeper(engine *Engine, checker IntegrityChecker, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{engine: engine, checker: checker, interval: interval, log: log.Component("sweeper")}
}

// Start barre de inmediato y luego en cada tick. Llamarlo dos veces no tiene efecto.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.log.Info().Dur("interval", s.interval).Msg("barrido iniciado")
		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop detiene el ticker y espera a que termine el ciclo en curso.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("barrido detenido")
}

// RunOnce un ciclo completo: alertas y conciliación del libro.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if _, err := s.engine.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.log.Error().Err(err).Msg("barrido de alertas fallido")
	}
	if s.checker == nil || ctx.Err() != nil {
		return
	}
	drifted, err := s.checker.ReconcileAll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("conciliación fallida")
		}
		return
	}
	for _, d := range drifted {
		s.log.Error().
			Str("item_id", d.ItemID).
			Str("location_id", d.LocationID).
			Str("projected", d.Projected.String()).
			Str("replayed", d.Replayed.String()).
			Msg("integridad del libro: saldo con diferencia")
	}
}
