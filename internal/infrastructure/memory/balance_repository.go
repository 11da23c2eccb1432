package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo saldos materializados en memoria.
type BalanceRepo struct {
	store *Store
	tx    *tx
}

// NewBalanceRepository repositorio fuera de transacción.
func NewBalanceRepository(store *Store) *BalanceRepo {
	return &BalanceRepo{store: store}
}

func (r *BalanceRepo) read(k pairKey) *entity.Balance {
	if r.tx != nil {
		if b, ok := r.tx.balances[k]; ok {
			return cloneBalance(b)
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if b, ok := r.store.balances[k]; ok {
		return cloneBalance(b)
	}
	return &entity.Balance{ItemID: k.itemID, LocationID: k.locationID, Quantity: decimal.Zero}
}

func (r *BalanceRepo) Get(_ context.Context, itemID, locationID string) (*entity.Balance, error) {
	return r.read(pairKey{itemID, locationID}), nil
}

func (r *BalanceRepo) GetForUpdate(ctx context.Context, itemID, locationID string) (*entity.Balance, error) {
	k := pairKey{itemID, locationID}
	if r.tx != nil {
		if err := r.tx.lock(ctx, pairLockKey(k)); err != nil {
			return nil, err
		}
	}
	return r.read(k), nil
}

func (r *BalanceRepo) Save(_ context.Context, b *entity.Balance, expectedVersion int64) error {
	k := pairKey{b.ItemID, b.LocationID}
	current := r.read(k)
	if current.Version != expectedVersion {
		return domain.ErrConcurrencyConflict
	}
	b.Version = expectedVersion + 1
	if r.tx != nil {
		r.tx.balances[k] = cloneBalance(b)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if cur, ok := r.store.balances[k]; ok && cur.Version != expectedVersion {
		b.Version = expectedVersion
		return domain.ErrConcurrencyConflict
	}
	r.store.balances[k] = cloneBalance(b)
	return nil
}

func (r *BalanceRepo) ListByItem(_ context.Context, itemID string) ([]*entity.Balance, error) {
	r.store.mu.RLock()
	var out []*entity.Balance
	for k, b := range r.store.balances {
		if k.itemID != itemID {
			continue
		}
		if r.tx != nil {
			if staged, ok := r.tx.balances[k]; ok {
				b = staged
			}
		}
		out = append(out, cloneBalance(b))
	}
	r.store.mu.RUnlock()
	if r.tx != nil {
		for k, b := range r.tx.balances {
			if k.itemID == itemID && !r.committed(k) {
				out = append(out, cloneBalance(b))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

func (r *BalanceRepo) committed(k pairKey) bool {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.balances[k]
	return ok
}

func (r *BalanceRepo) ListPage(_ context.Context, limit, offset int) ([]*entity.Balance, error) {
	r.store.mu.RLock()
	all := make([]*entity.Balance, 0, len(r.store.balances))
	for _, b := range r.store.balances {
		all = append(all, cloneBalance(b))
	}
	r.store.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if all[i].ItemID != all[j].ItemID {
			return all[i].ItemID < all[j].ItemID
		}
		return all[i].LocationID < all[j].LocationID
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// HasNonZeroForItem dentro de una tx también considera los saldos preparados.
func (r *BalanceRepo) HasNonZeroForItem(_ context.Context, itemID string) (bool, error) {
	return r.anyNonZero(func(k pairKey) bool { return k.itemID == itemID }), nil
}

func (r *BalanceRepo) HasNonZeroForLocation(_ context.Context, locationID string) (bool, error) {
	return r.anyNonZero(func(k pairKey) bool { return k.locationID == locationID }), nil
}

func (r *BalanceRepo) anyNonZero(match func(pairKey) bool) bool {
	if r.tx != nil {
		for k, b := range r.tx.balances {
			if match(k) && !b.Quantity.IsZero() {
				return true
			}
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for k, b := range r.store.balances {
		if !match(k) {
			continue
		}
		if r.tx != nil {
			if _, ok := r.tx.balances[k]; ok {
				continue
			}
		}
		if !b.Quantity.IsZero() {
			return true
		}
	}
	return false
}
