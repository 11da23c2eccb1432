// Package ws difunde los eventos de notificaciones a los clientes WebSocket conectados.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/jhoicas/inventory-ledger/internal/application/alerting"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

// Client conexión suscrita al stream de una empresa.
type Client struct {
	Conn      *websocket.Conn
	CompanyID string
}

// Hub registra clientes y difunde mensajes filtrando por empresa.
type Hub struct {
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan []byte
	mutex      sync.Mutex
	log        *logger.Logger
}

// NewHub construye el hub. Run debe ejecutarse en su propia goroutine.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		log:        log.Component("ws_hub"),
	}
}

// Run atiende registro, baja y difusión hasta que ctx se cancele.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for c := range h.clients {
				_ = c.Conn.Close()
				delete(h.clients, c)
			}
			h.mutex.Unlock()
			return

		case c := <-h.Register:
			h.mutex.Lock()
			h.clients[c] = true
			h.mutex.Unlock()
			h.log.Debug().Str("company_id", c.CompanyID).Msg("cliente WS conectado")

		case c := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				_ = c.Conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Broadcast encola un dto.NotificationEvent ya serializado. Descarta si la cola está llena.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.log.Warn().Msg("cola WS llena: evento descartado")
	}
}

// Publish implementa alerting.Publisher para el modo de una sola instancia (sin Redis).
func (h *Hub) Publish(_ context.Context, e alerting.Event) error {
	data, err := json.Marshal(dto.ToNotificationEvent(e.Type, e.Notification))
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// Clients número de conexiones activas.
func (h *Hub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) deliver(message []byte) {
	var ev struct {
		CompanyID string `json:"company_id"`
	}
	if err := json.Unmarshal(message, &ev); err != nil {
		h.log.Error().Err(err).Msg("evento WS inválido")
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		if c.CompanyID != ev.CompanyID {
			continue
		}
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			_ = c.Conn.Close()
			delete(h.clients, c)
		}
	}
}

var _ alerting.Publisher = (*Hub)(nil)
