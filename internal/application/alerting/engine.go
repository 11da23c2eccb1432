// Package alerting mantiene las notificaciones de umbral y vencimiento sincronizadas con los saldos.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	rules "github.com/jhoicas/inventory-ledger/internal/domain/alerting"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Límites de ListNotifications.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
	sweepPageSize    = 500
)

var _ inventory.AlertTrigger = (*Engine)(nil)

// Config parámetros del motor.
type Config struct {
	ExpiryLookaheadDays int
	Retry               inventory.RetryPolicy
}

// Engine evalúa las reglas por par y crea, actualiza o resuelve notificaciones (una abierta por tipo).
type Engine struct {
	txRunner      TxRunner
	itemRepo      repository.ItemRepository
	balanceRepo   repository.BalanceRepository
	notifRepo     repository.NotificationRepository
	publisher     Publisher
	retry         inventory.RetryPolicy
	lookaheadDays int
	queue         *retryQueue
	log           *logger.Logger
	now           func() time.Time
}

// NewEngine construye el motor. publisher puede ser nil.
func NewEngine(
	txRunner TxRunner,
	itemRepo repository.ItemRepository,
	balanceRepo repository.BalanceRepository,
	notifRepo repository.NotificationRepository,
	publisher Publisher,
	cfg Config,
	log *logger.Logger,
) *Engine {
	return &Engine{
		txRunner:      txRunner,
		itemRepo:      itemRepo,
		balanceRepo:   balanceRepo,
		notifRepo:     notifRepo,
		publisher:     publisher,
		retry:         cfg.Retry,
		lookaheadDays: cfg.ExpiryLookaheadDays,
		queue:         newRetryQueue(),
		log:           log.Component("alerting"),
		now:           time.Now,
	}
}

// SetClock reemplaza el reloj (tests de vencimiento).
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Pending número de evaluaciones encoladas para el próximo barrido.
func (e *Engine) Pending() int { return e.queue.len() }

// Evaluate re-evalúa un par (ítem, ubicación) y la regla de vencimiento del ítem.
// Es idempotente: sin cambios en saldo o umbrales no escribe nada.
// Con locationID vacío solo se evalúa el vencimiento.
func (e *Engine) Evaluate(ctx context.Context, itemID, locationID string) error {
	var events []Event
	err := e.retry.Do(ctx, func() error {
		events = events[:0]
		err := e.txRunner.Run(ctx, func(tx repository.TxRepos) error {
			item, err := tx.Items.GetByID(ctx, itemID)
			if err != nil {
				return fmt.Errorf("evaluar ítem %s: %w", itemID, err)
			}
			var loc *entity.Location
			if locationID != "" {
				if loc, err = tx.Locations.GetByID(ctx, locationID); err != nil {
					return fmt.Errorf("evaluar ubicación %s: %w", locationID, err)
				}
			}
			now := e.now().UTC()
			if loc != nil {
				// Mismo bloqueo que el libro: no se intercala con un movimiento del par
				bal, err := tx.Balances.GetForUpdate(ctx, item.ID, loc.ID)
				if err != nil {
					return err
				}
				var violations map[string]rules.Violation
				if item.Active && loc.Active {
					violations = rules.EvaluatePair(item, loc.Code, bal.Quantity, item.ThresholdFor(loc.ID))
				}
				for _, kind := range rules.PairKinds {
					var v *rules.Violation
					if found, ok := violations[kind]; ok {
						v = &found
					}
					ev, err := e.apply(ctx, tx.Notifications, item, loc.ID, kind, v, now)
					if err != nil {
						return err
					}
					if ev != nil {
						events = append(events, *ev)
					}
				}
			}

			balances, err := tx.Balances.ListByItem(ctx, item.ID)
			if err != nil {
				return err
			}
			total := decimal.Zero
			for _, b := range balances {
				total = total.Add(b.Quantity)
			}
			var v *rules.Violation
			if item.Active {
				v = rules.EvaluateExpiry(item, total, now, e.lookaheadDays)
			}
			ev, err := e.apply(ctx, tx.Notifications, item, "", entity.NotificationExpiryWarning, v, now)
			if err != nil {
				return err
			}
			if ev != nil {
				events = append(events, *ev)
			}
			return nil
		})
		// Dos evaluaciones crearon la misma alerta abierta: se reintenta y la segunda la encuentra
		if errors.Is(err, domain.ErrDuplicate) {
			return fmt.Errorf("%w: alerta abierta concurrente", domain.ErrConcurrencyConflict)
		}
		return err
	})
	if err != nil {
		return err
	}
	e.publish(ctx, events)
	return nil
}

// apply lleva la notificación de un tipo al estado que indica la regla.
func (e *Engine) apply(
	ctx context.Context,
	notifRepo repository.NotificationRepository,
	item *entity.Item,
	locationID, kind string,
	v *rules.Violation,
	now time.Time,
) (*Event, error) {
	open, err := notifRepo.FindOpen(ctx, item.ID, locationID, kind)
	if err != nil {
		return nil, err
	}
	switch {
	case v != nil && open == nil:
		n := &entity.Notification{
			ID:         uuid.New().String(),
			CompanyID:  item.CompanyID,
			ItemID:     item.ID,
			LocationID: locationID,
			Kind:       kind,
			Priority:   v.Priority,
			Message:    v.Message,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := notifRepo.Create(ctx, n); err != nil {
			return nil, err
		}
		return &Event{Type: EventCreated, Notification: n}, nil
	case v != nil && open != nil:
		if open.Priority == v.Priority && open.Message == v.Message {
			return nil, nil
		}
		open.Priority = v.Priority
		open.Message = v.Message
		open.UpdatedAt = now
		if err := notifRepo.Update(ctx, open); err != nil {
			return nil, err
		}
		return &Event{Type: EventUpdated, Notification: open}, nil
	case v == nil && open != nil:
		resolved := now
		open.ResolvedAt = &resolved
		open.UpdatedAt = now
		if err := notifRepo.Update(ctx, open); err != nil {
			return nil, err
		}
		return &Event{Type: EventResolved, Notification: open}, nil
	}
	return nil, nil
}

// EvaluateAfterCommit evalúa el par tras un movimiento confirmado. Si falla, lo encola para el barrido.
func (e *Engine) EvaluateAfterCommit(ctx context.Context, itemID, locationID string) {
	// El movimiento ya está confirmado: la evaluación no depende de la cancelación del request
	if err := e.Evaluate(context.WithoutCancel(ctx), itemID, locationID); err != nil {
		e.log.Warn().Err(err).Str("item_id", itemID).Str("location_id", locationID).Msg("evaluación de alertas encolada")
		e.queue.add(Pair{ItemID: itemID, LocationID: locationID})
	}
}

// EvaluateItem re-evalúa todos los pares con saldo del ítem (p. ej. tras cambiar umbrales o desactivarlo).
func (e *Engine) EvaluateItem(ctx context.Context, itemID string) error {
	balances, err := e.balanceRepo.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}
	pairs := []Pair{{ItemID: itemID}}
	for _, b := range balances {
		pairs = append(pairs, Pair{ItemID: itemID, LocationID: b.LocationID})
	}
	var errs []error
	for _, p := range pairs {
		if err := e.Evaluate(ctx, p.ItemID, p.LocationID); err != nil {
			e.queue.add(p)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// evaluatePairs evalúa cada par; los fallos vuelven a la cola.
func (e *Engine) evaluatePairs(ctx context.Context, pairs []Pair) (ok, failed int) {
	for _, p := range pairs {
		if ctx.Err() != nil {
			return ok, failed
		}
		if err := e.Evaluate(ctx, p.ItemID, p.LocationID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			e.log.Warn().Err(err).Str("item_id", p.ItemID).Str("location_id", p.LocationID).Msg("evaluación fallida en barrido")
			e.queue.add(p)
			failed++
			continue
		}
		ok++
	}
	return ok, failed
}

// SweepReport resultado de un barrido.
type SweepReport struct {
	Retried     int
	Pairs       int
	ExpiryItems int
	Failed      int
}

// Sweep vacía la cola de reintentos, re-evalúa cada par con saldo y cada ítem con fecha de vencimiento.
func (e *Engine) Sweep(ctx context.Context) (SweepReport, error) {
	var rep SweepReport
	var failed int

	rep.Retried, failed = e.evaluatePairs(ctx, e.queue.drain())
	rep.Failed += failed

	for offset := 0; ; offset += sweepPageSize {
		page, err := e.balanceRepo.ListPage(ctx, sweepPageSize, offset)
		if err != nil {
			return rep, err
		}
		pairs := make([]Pair, 0, len(page))
		for _, b := range page {
			pairs = append(pairs, Pair{ItemID: b.ItemID, LocationID: b.LocationID})
		}
		ok, failed := e.evaluatePairs(ctx, pairs)
		rep.Pairs += ok
		rep.Failed += failed
		if len(page) < sweepPageSize {
			break
		}
	}

	items, err := e.itemRepo.ListWithExpiry(ctx)
	if err != nil {
		return rep, err
	}
	pairs := make([]Pair, 0, len(items))
	for _, it := range items {
		pairs = append(pairs, Pair{ItemID: it.ID})
	}
	rep.ExpiryItems, failed = e.evaluatePairs(ctx, pairs)
	rep.Failed += failed

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	e.log.Info().
		Int("retried", rep.Retried).
		Int("pairs", rep.Pairs).
		Int("expiry_items", rep.ExpiryItems).
		Int("failed", rep.Failed).
		Msg("barrido de alertas completado")
	return rep, nil
}

// ListNotificationsInput filtros de consulta.
type ListNotificationsInput struct {
	CompanyID      string
	UnresolvedOnly bool
	MinPriority    string
	ItemID         string
	Limit          int
	Offset         int
}

// ListNotifications devuelve las notificaciones de la empresa, más recientes primero.
func (e *Engine) ListNotifications(ctx context.Context, in ListNotificationsInput) ([]*entity.Notification, error) {
	if in.MinPriority != "" && entity.PriorityRank(in.MinPriority) == 0 {
		return nil, fmt.Errorf("%w: prioridad %q", domain.ErrInvalidInput, in.MinPriority)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}
	return e.notifRepo.List(ctx, repository.NotificationFilter{
		CompanyID:      in.CompanyID,
		UnresolvedOnly: in.UnresolvedOnly,
		MinPriority:    in.MinPriority,
		ItemID:         in.ItemID,
		Limit:          limit,
		Offset:         offset,
	})
}

// Acknowledge marca la notificación como vista. Idempotente; no impide su resolución ni su re-creación.
func (e *Engine) Acknowledge(ctx context.Context, companyID, id string) (*entity.Notification, error) {
	n, err := e.notifRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if n.AcknowledgedAt == nil {
		if err := e.notifRepo.Acknowledge(ctx, id, e.now().UTC()); err != nil {
			return nil, err
		}
	}
	return e.notifRepo.GetByID(ctx, id)
}

func (e *Engine) publish(ctx context.Context, events []Event) {
	for _, ev := range events {
		e.log.Info().
			Str("event", ev.Type).
			Str("item_id", ev.Notification.ItemID).
			Str("location_id", ev.Notification.LocationID).
			Str("kind", ev.Notification.Kind).
			Str("priority", ev.Notification.Priority).
			Msg("notificación")
		if e.publisher == nil {
			continue
		}
		if err := e.publisher.Publish(ctx, ev); err != nil {
			e.log.Warn().Err(err).Str("kind", ev.Notification.Kind).Msg("no se pudo publicar el evento")
		}
	}
}
