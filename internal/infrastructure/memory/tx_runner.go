package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks con repositorios atados a una transacción en memoria.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// tx acumula las escrituras hasta el commit y mantiene los bloqueos de fila tomados.
type tx struct {
	store         *Store
	locked        map[string]struct{}
	items         map[string]*entity.Item
	locations     map[string]*entity.Location
	movements     []*entity.Movement
	balances      map[pairKey]*entity.Balance
	notifications map[string]*entity.Notification
	notifOrder    []string
}

// Run ejecuta fn; si devuelve nil aplica las escrituras, si no las descarta. Siempre libera los bloqueos.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	t := &tx{
		store:         r.store,
		locked:        make(map[string]struct{}),
		items:         make(map[string]*entity.Item),
		locations:     make(map[string]*entity.Location),
		balances:      make(map[pairKey]*entity.Balance),
		notifications: make(map[string]*entity.Notification),
	}
	defer t.release()

	repos := repository.TxRepos{
		Items:         &ItemRepo{store: r.store, tx: t},
		Locations:     &LocationRepo{store: r.store, tx: t},
		Movements:     &MovementRepo{store: r.store, tx: t},
		Balances:      &BalanceRepo{store: r.store, tx: t},
		Notifications: &NotificationRepo{store: r.store, tx: t},
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// lock toma el bloqueo de la fila una sola vez por transacción.
func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.locked[key]; ok {
		return nil
	}
	if err := t.store.lockRow(ctx, key); err != nil {
		return err
	}
	t.locked[key] = struct{}{}
	return nil
}

func (t *tx) release() {
	for k := range t.locked {
		t.store.unlockRow(k)
	}
	t.locked = nil
}

// commit verifica versiones, unicidad del catálogo y de alertas abiertas, y aplica todo bajo el mutex del store.
func (t *tx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.checkCatalog(); err != nil {
		return err
	}
	for k, b := range t.balances {
		var current int64
		if cur, ok := s.balances[k]; ok {
			current = cur.Version
		}
		if current != b.Version-1 {
			return domain.ErrConcurrencyConflict
		}
	}
	if err := t.checkNotifications(); err != nil {
		return err
	}

	for id, i := range t.items {
		s.items[id] = i
	}
	for id, l := range t.locations {
		s.locations[id] = l
	}
	for _, m := range t.movements {
		s.seq++
		m.Sequence = s.seq
		s.movements = append(s.movements, m)
	}
	for k, b := range t.balances {
		s.balances[k] = b
	}
	for _, id := range t.notifOrder {
		n := t.notifications[id]
		if cur, ok := s.notifications[id]; ok {
			n.AcknowledgedAt = cur.AcknowledgedAt
		}
		s.notifications[id] = n
	}
	return nil
}

// checkCatalog exige códigos únicos por empresa y una sola ubicación principal sobre la vista final.
func (t *tx) checkCatalog() error {
	s := t.store
	for id, i := range t.items {
		for otherID, other := range s.items {
			if staged, ok := t.items[otherID]; ok {
				other = staged
			}
			if otherID != id && other.CompanyID == i.CompanyID && other.Code == i.Code {
				return domain.ErrDuplicate
			}
		}
		for otherID, other := range t.items {
			if _, ok := s.items[otherID]; ok {
				continue
			}
			if otherID != id && other.CompanyID == i.CompanyID && other.Code == i.Code {
				return domain.ErrDuplicate
			}
		}
	}
	final := make(map[string]*entity.Location, len(s.locations)+len(t.locations))
	for id, l := range s.locations {
		final[id] = l
	}
	for id, l := range t.locations {
		final[id] = l
	}
	for id, l := range t.locations {
		for otherID, other := range final {
			if otherID == id || other.CompanyID != l.CompanyID {
				continue
			}
			if other.Code == l.Code || (l.IsPrimary && other.IsPrimary) {
				return domain.ErrDuplicate
			}
		}
	}
	return nil
}

// checkNotifications rechaza abrir un duplicado y modificar una alerta que otra transacción ya resolvió.
func (t *tx) checkNotifications() error {
	s := t.store
	for _, id := range t.notifOrder {
		n := t.notifications[id]
		if cur, ok := s.notifications[id]; ok && cur.ResolvedAt != nil {
			return domain.ErrConcurrencyConflict
		}
		if n.ResolvedAt != nil {
			continue
		}
		for _, existing := range s.notifications {
			if existing.ID != n.ID && existing.ResolvedAt == nil && sameAlertKey(existing, n) {
				if staged, ok := t.notifications[existing.ID]; ok && staged.ResolvedAt != nil {
					continue
				}
				return domain.ErrDuplicate
			}
		}
	}
	return nil
}

func sameAlertKey(a, b *entity.Notification) bool {
	return a.ItemID == b.ItemID && a.LocationID == b.LocationID && a.Kind == b.Kind
}
