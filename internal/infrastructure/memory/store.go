// Package memory implementa los repositorios en memoria con las mismas garantías
// transaccionales que el driver PostgreSQL: bloqueo por fila y escrituras aplicadas al commit.
// Los bloqueos compartidos (FOR SHARE) se toman como exclusivos.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

type pairKey struct {
	itemID     string
	locationID string
}

// Store estado compartido de todos los repositorios en memoria.
type Store struct {
	mu            sync.RWMutex
	locations     map[string]*entity.Location
	items         map[string]*entity.Item
	movements     []*entity.Movement
	seq           int64
	balances      map[pairKey]*entity.Balance
	notifications map[string]*entity.Notification

	locksMu  sync.Mutex
	rowLocks map[string]chan struct{}
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		locations:     make(map[string]*entity.Location),
		items:         make(map[string]*entity.Item),
		balances:      make(map[pairKey]*entity.Balance),
		notifications: make(map[string]*entity.Notification),
		rowLocks:      make(map[string]chan struct{}),
	}
}

// Claves de bloqueo por fila.
func pairLockKey(k pairKey) string {
	return "pair:" + k.itemID + "/" + k.locationID
}

func itemLockKey(id string) string {
	return "item:" + id
}

func locationLockKey(id string) string {
	return "location:" + id
}

func (s *Store) rowLock(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.rowLocks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.rowLocks[key] = l
	}
	return l
}

// lockRow bloquea la fila hasta unlockRow; respeta la cancelación del contexto mientras espera.
func (s *Store) lockRow(ctx context.Context, key string) error {
	select {
	case s.rowLock(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlockRow(key string) {
	<-s.rowLock(key)
}

func cloneItem(i *entity.Item) *entity.Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Thresholds != nil {
		c.Thresholds = make(map[string]entity.Threshold, len(i.Thresholds))
		for k, v := range i.Thresholds {
			c.Thresholds[k] = v
		}
	}
	return &c
}

func cloneLocation(l *entity.Location) *entity.Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func cloneBalance(b *entity.Balance) *entity.Balance {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func cloneMovement(m *entity.Movement) *entity.Movement {
	c := *m
	if m.Reference != nil {
		r := *m.Reference
		c.Reference = &r
	}
	return &c
}

func cloneNotification(n *entity.Notification) *entity.Notification {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
