package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos en memoria. Con tx != nil las inserciones se aplican al commit.
type MovementRepo struct {
	store *Store
	tx    *tx
}

// NewMovementRepository repositorio fuera de transacción (lecturas).
func NewMovementRepository(store *Store) *MovementRepo {
	return &MovementRepo{store: store}
}

func (r *MovementRepo) Append(_ context.Context, m *entity.Movement) error {
	if r.tx != nil {
		r.tx.movements = append(r.tx.movements, cloneMovement(m))
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.seq++
	m.Sequence = r.store.seq
	r.store.movements = append(r.store.movements, cloneMovement(m))
	return nil
}

func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*entity.Movement
	for _, m := range r.store.movements {
		if m.ItemID != f.ItemID {
			continue
		}
		if f.LocationID != "" && m.LocationID != f.LocationID {
			continue
		}
		if f.Since != nil && m.CreatedAt.Before(*f.Since) {
			continue
		}
		out = append(out, cloneMovement(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence > out[j].Sequence })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MovementRepo) SumDelta(_ context.Context, itemID, locationID string) (decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	sum := decimal.Zero
	for _, m := range r.store.movements {
		if m.ItemID == itemID && m.LocationID == locationID {
			sum = sum.Add(m.Delta)
		}
	}
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if m.ItemID == itemID && m.LocationID == locationID {
				sum = sum.Add(m.Delta)
			}
		}
	}
	return sum, nil
}

// Corrupt altera el saldo materializado sin pasar por el libro (solo tests de conciliación).
func (s *Store) Corrupt(itemID, locationID string, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := pairKey{itemID, locationID}
	b, ok := s.balances[k]
	if !ok {
		b = &entity.Balance{ItemID: itemID, LocationID: locationID}
		s.balances[k] = b
	}
	b.Quantity = qty
}
