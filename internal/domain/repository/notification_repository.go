package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// NotificationFilter filtros para listar notificaciones.
type NotificationFilter struct {
	CompanyID      string
	UnresolvedOnly bool
	MinPriority    string
	ItemID         string
	Limit          int
	Offset         int
}

// NotificationRepository define el puerto de persistencia de alertas.
type NotificationRepository interface {
	// FindOpen devuelve la notificación sin resolver para (ítem, ubicación, tipo) o nil.
	// Dentro de una transacción la fila queda bloqueada hasta el fin.
	FindOpen(ctx context.Context, itemID, locationID, kind string) (*entity.Notification, error)
	Create(ctx context.Context, n *entity.Notification) error
	// Update persiste prioridad, mensaje y resolución. No toca el reconocimiento.
	// Si otra transacción ya la resolvió devuelve domain.ErrConcurrencyConflict.
	Update(ctx context.Context, n *entity.Notification) error
	// Acknowledge marca la notificación como reconocida si aún no lo estaba (escritura independiente).
	Acknowledge(ctx context.Context, id string, at time.Time) error
	GetByID(ctx context.Context, id string) (*entity.Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]*entity.Notification, error)
}
