package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.LocationRepository = (*LocationRepo)(nil)

// LocationRepo ubicaciones en memoria.
type LocationRepo struct {
	store *Store
	tx    *tx
}

// NewLocationRepository construye el repositorio.
func NewLocationRepository(store *Store) *LocationRepo {
	return &LocationRepo{store: store}
}

func (r *LocationRepo) get(id string) (*entity.Location, bool) {
	if r.tx != nil {
		if l, ok := r.tx.locations[id]; ok {
			return cloneLocation(l), true
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	l, ok := r.store.locations[id]
	return cloneLocation(l), ok
}

func (r *LocationRepo) all() []*entity.Location {
	r.store.mu.RLock()
	out := make([]*entity.Location, 0, len(r.store.locations))
	for id, l := range r.store.locations {
		if r.tx != nil {
			if _, ok := r.tx.locations[id]; ok {
				continue
			}
		}
		out = append(out, cloneLocation(l))
	}
	r.store.mu.RUnlock()
	if r.tx != nil {
		for _, l := range r.tx.locations {
			out = append(out, cloneLocation(l))
		}
	}
	return out
}

func locationConflict(all []*entity.Location, l *entity.Location) bool {
	for _, existing := range all {
		if existing.ID == l.ID || existing.CompanyID != l.CompanyID {
			continue
		}
		if existing.Code == l.Code || (l.IsPrimary && existing.IsPrimary) {
			return true
		}
	}
	return false
}

func (r *LocationRepo) Create(_ context.Context, l *entity.Location) error {
	if r.tx != nil {
		if _, ok := r.get(l.ID); ok || locationConflict(r.all(), l) {
			return domain.ErrDuplicate
		}
		r.tx.locations[l.ID] = cloneLocation(l)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.locations {
		if existing.CompanyID == l.CompanyID && existing.Code == l.Code {
			return domain.ErrDuplicate
		}
		if l.IsPrimary && existing.CompanyID == l.CompanyID && existing.IsPrimary {
			return domain.ErrDuplicate
		}
	}
	r.store.locations[l.ID] = cloneLocation(l)
	return nil
}

func (r *LocationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	l, ok := r.get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

// GetForUpdate bloquea la ubicación hasta el fin de la tx.
func (r *LocationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Location, error) {
	if r.tx != nil {
		if err := r.tx.lock(ctx, locationLockKey(id)); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *LocationRepo) GetForShare(ctx context.Context, id string) (*entity.Location, error) {
	return r.GetForUpdate(ctx, id)
}

func (r *LocationRepo) GetByCode(_ context.Context, companyID, code string) (*entity.Location, error) {
	for _, l := range r.all() {
		if l.CompanyID == companyID && l.Code == code {
			return l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *LocationRepo) GetPrimary(_ context.Context, companyID string) (*entity.Location, error) {
	for _, l := range r.all() {
		if l.CompanyID == companyID && l.IsPrimary {
			return l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *LocationRepo) Update(_ context.Context, l *entity.Location) error {
	if r.tx != nil {
		cur, ok := r.get(l.ID)
		if !ok {
			return domain.ErrNotFound
		}
		c := cloneLocation(l)
		c.IsPrimary = cur.IsPrimary
		if locationConflict(r.all(), c) {
			return domain.ErrDuplicate
		}
		r.tx.locations[l.ID] = c
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.locations[l.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, existing := range r.store.locations {
		if existing.ID != l.ID && existing.CompanyID == l.CompanyID && existing.Code == l.Code {
			return domain.ErrDuplicate
		}
	}
	c := cloneLocation(l)
	c.IsPrimary = cur.IsPrimary
	r.store.locations[l.ID] = c
	return nil
}

func (r *LocationRepo) SetPrimary(_ context.Context, companyID, id string) error {
	if r.tx != nil {
		target, ok := r.get(id)
		if !ok || target.CompanyID != companyID {
			return domain.ErrNotFound
		}
		for _, l := range r.all() {
			if l.CompanyID == companyID && l.IsPrimary != (l.ID == id) {
				l.IsPrimary = l.ID == id
				r.tx.locations[l.ID] = l
			}
		}
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	target, ok := r.store.locations[id]
	if !ok || target.CompanyID != companyID {
		return domain.ErrNotFound
	}
	for _, l := range r.store.locations {
		if l.CompanyID == companyID {
			l.IsPrimary = l.ID == id
		}
	}
	return nil
}

func (r *LocationRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]*entity.Location, error) {
	var all []*entity.Location
	for _, l := range r.all() {
		if l.CompanyID == companyID {
			all = append(all, l)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return page(all, limit, offset), nil
}

func (r *LocationRepo) CountByCompany(_ context.Context, companyID string) (int64, error) {
	var n int64
	for _, l := range r.all() {
		if l.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
