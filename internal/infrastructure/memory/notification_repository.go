package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.NotificationRepository = (*NotificationRepo)(nil)

// NotificationRepo alertas en memoria. Dentro de una tx las escrituras se aplican al commit.
type NotificationRepo struct {
	store *Store
	tx    *tx
}

// NewNotificationRepository repositorio fuera de transacción.
func NewNotificationRepository(store *Store) *NotificationRepo {
	return &NotificationRepo{store: store}
}

func (r *NotificationRepo) FindOpen(_ context.Context, itemID, locationID, kind string) (*entity.Notification, error) {
	key := &entity.Notification{ItemID: itemID, LocationID: locationID, Kind: kind}
	if r.tx != nil {
		for _, id := range r.tx.notifOrder {
			n := r.tx.notifications[id]
			if n.ResolvedAt == nil && sameAlertKey(n, key) {
				return cloneNotification(n), nil
			}
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, n := range r.store.notifications {
		if n.ResolvedAt != nil || !sameAlertKey(n, key) {
			continue
		}
		if r.tx != nil {
			if staged, ok := r.tx.notifications[n.ID]; ok && staged.ResolvedAt != nil {
				continue
			}
		}
		return cloneNotification(n), nil
	}
	return nil, nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if r.tx != nil {
		r.stage(n)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.notifications {
		if existing.ResolvedAt == nil && sameAlertKey(existing, n) {
			return domain.ErrDuplicate
		}
	}
	r.store.notifications[n.ID] = cloneNotification(n)
	return nil
}

// Update sobre una notificación ya resuelta devuelve domain.ErrConcurrencyConflict.
func (r *NotificationRepo) Update(_ context.Context, n *entity.Notification) error {
	if r.tx != nil {
		r.stage(n)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.notifications[n.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.ResolvedAt != nil {
		return domain.ErrConcurrencyConflict
	}
	c := cloneNotification(n)
	c.AcknowledgedAt = cur.AcknowledgedAt
	r.store.notifications[n.ID] = c
	return nil
}

func (r *NotificationRepo) Acknowledge(_ context.Context, id string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n, ok := r.store.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	if n.AcknowledgedAt == nil {
		t := at
		n.AcknowledgedAt = &t
	}
	return nil
}

func (r *NotificationRepo) stage(n *entity.Notification) {
	if _, ok := r.tx.notifications[n.ID]; !ok {
		r.tx.notifOrder = append(r.tx.notifOrder, n.ID)
	}
	r.tx.notifications[n.ID] = cloneNotification(n)
}

func (r *NotificationRepo) GetByID(_ context.Context, id string) (*entity.Notification, error) {
	if r.tx != nil {
		if n, ok := r.tx.notifications[id]; ok {
			return cloneNotification(n), nil
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n, ok := r.store.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneNotification(n), nil
}

func (r *NotificationRepo) List(_ context.Context, f repository.NotificationFilter) ([]*entity.Notification, error) {
	minRank := entity.PriorityRank(f.MinPriority)
	r.store.mu.RLock()
	var all []*entity.Notification
	for _, n := range r.store.notifications {
		if f.CompanyID != "" && n.CompanyID != f.CompanyID {
			continue
		}
		if f.UnresolvedOnly && n.ResolvedAt != nil {
			continue
		}
		if f.ItemID != "" && n.ItemID != f.ItemID {
			continue
		}
		if entity.PriorityRank(n.Priority) < minRank {
			continue
		}
		all = append(all, cloneNotification(n))
	}
	r.store.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return page(all, f.Limit, f.Offset), nil
}
