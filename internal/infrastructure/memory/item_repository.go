package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo catálogo de ítems en memoria. Dentro de una tx las escrituras se aplican al commit.
type ItemRepo struct {
	store *Store
	tx    *tx
}

// NewItemRepository construye el repositorio.
func NewItemRepository(store *Store) *ItemRepo {
	return &ItemRepo{store: store}
}

// get devuelve una copia del ítem visible en la tx (lo preparado tapa lo confirmado).
func (r *ItemRepo) get(id string) (*entity.Item, bool) {
	if r.tx != nil {
		if i, ok := r.tx.items[id]; ok {
			return cloneItem(i), true
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	i, ok := r.store.items[id]
	return cloneItem(i), ok
}

func (r *ItemRepo) all() []*entity.Item {
	r.store.mu.RLock()
	out := make([]*entity.Item, 0, len(r.store.items))
	for id, i := range r.store.items {
		if r.tx != nil {
			if _, ok := r.tx.items[id]; ok {
				continue
			}
		}
		out = append(out, cloneItem(i))
	}
	r.store.mu.RUnlock()
	if r.tx != nil {
		for _, i := range r.tx.items {
			out = append(out, cloneItem(i))
		}
	}
	return out
}

func codeTaken(items []*entity.Item, i *entity.Item) bool {
	for _, existing := range items {
		if existing.ID != i.ID && existing.CompanyID == i.CompanyID && existing.Code == i.Code {
			return true
		}
	}
	return false
}

func (r *ItemRepo) Create(_ context.Context, i *entity.Item) error {
	if r.tx != nil {
		if _, ok := r.get(i.ID); ok || codeTaken(r.all(), i) {
			return domain.ErrDuplicate
		}
		r.tx.items[i.ID] = cloneItem(i)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.items {
		if existing.CompanyID == i.CompanyID && existing.Code == i.Code {
			return domain.ErrDuplicate
		}
	}
	r.store.items[i.ID] = cloneItem(i)
	return nil
}

func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	i, ok := r.get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return i, nil
}

// GetForUpdate bloquea el ítem hasta el fin de la tx.
func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	if r.tx != nil {
		if err := r.tx.lock(ctx, itemLockKey(id)); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *ItemRepo) GetForShare(ctx context.Context, id string) (*entity.Item, error) {
	return r.GetForUpdate(ctx, id)
}

func (r *ItemRepo) GetByCode(_ context.Context, companyID, code string) (*entity.Item, error) {
	for _, i := range r.all() {
		if i.CompanyID == companyID && i.Code == code {
			return i, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Update reemplaza los campos del catálogo; los umbrales por ubicación se gestionan con SetThreshold.
func (r *ItemRepo) Update(_ context.Context, i *entity.Item) error {
	if r.tx != nil {
		cur, ok := r.get(i.ID)
		if !ok {
			return domain.ErrNotFound
		}
		if codeTaken(r.all(), i) {
			return domain.ErrDuplicate
		}
		c := cloneItem(i)
		c.Thresholds = cur.Thresholds
		r.tx.items[i.ID] = c
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.items[i.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, existing := range r.store.items {
		if existing.ID != i.ID && existing.CompanyID == i.CompanyID && existing.Code == i.Code {
			return domain.ErrDuplicate
		}
	}
	c := cloneItem(i)
	c.Thresholds = cloneItem(cur).Thresholds
	r.store.items[i.ID] = c
	return nil
}

func (r *ItemRepo) SetThreshold(_ context.Context, itemID, locationID string, t entity.Threshold) error {
	if r.tx != nil {
		i, ok := r.get(itemID)
		if !ok {
			return domain.ErrNotFound
		}
		if i.Thresholds == nil {
			i.Thresholds = make(map[string]entity.Threshold)
		}
		i.Thresholds[locationID] = t
		r.tx.items[itemID] = i
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	i, ok := r.store.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	if i.Thresholds == nil {
		i.Thresholds = make(map[string]entity.Threshold)
	}
	i.Thresholds[locationID] = t
	return nil
}

func (r *ItemRepo) ListByCompany(_ context.Context, companyID string, activeOnly bool, limit, offset int) ([]*entity.Item, error) {
	var all []*entity.Item
	for _, i := range r.all() {
		if i.CompanyID == companyID && (!activeOnly || i.Active) {
			all = append(all, i)
		}
	}
	sort.Slice(all, func(a, b int) bool { return all[a].Code < all[b].Code })
	return page(all, limit, offset), nil
}

func (r *ItemRepo) CountByCompany(_ context.Context, companyID string, activeOnly bool) (int64, error) {
	var n int64
	for _, i := range r.all() {
		if i.CompanyID == companyID && (!activeOnly || i.Active) {
			n++
		}
	}
	return n, nil
}

func (r *ItemRepo) ListWithExpiry(_ context.Context) ([]*entity.Item, error) {
	var out []*entity.Item
	for _, i := range r.all() {
		if i.Active && i.ExpiryDate != nil {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}
