package alerting

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// TxRunner el mismo runner del libro: la evaluación corre con el bloqueo del par.
type TxRunner = repository.TxRunner

// Tipos de evento publicados a los suscriptores.
const (
	EventCreated  = "created"
	EventUpdated  = "updated"
	EventResolved = "resolved"
)

// Event cambio de estado de una notificación.
type Event struct {
	Type         string
	Notification *entity.Notification
}

// Publisher entrega eventos a los suscriptores (hub WebSocket, canal Redis).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapta una función a Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
