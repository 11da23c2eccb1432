package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventory-ledger/internal/application/alerting"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/interfaces/ws"
)

// NotificationHandler consulta y reconocimiento de alertas, más el stream WebSocket (protegido).
type NotificationHandler struct {
	engine *alerting.Engine
	hub    *ws.Hub
}

// NewNotificationHandler construye el handler. hub puede ser nil (sin stream).
func NewNotificationHandler(engine *alerting.Engine, hub *ws.Hub) *NotificationHandler {
	return &NotificationHandler{engine: engine, hub: hub}
}

// List godoc
// @Summary      Listar notificaciones
// @Tags         notifications
// @Security     Bearer
// @Produce      json
// @Param        unresolved    query  bool    false  "Solo sin resolver"
// @Param        min_priority  query  string  false  "low | medium | high | critical"
// @Param        item_id       query  string  false  "Filtrar por ítem"
// @Param        limit         query  int     false  "Límite"  default(50)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {array}   dto.NotificationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	list, err := h.engine.ListNotifications(c.UserContext(), alerting.ListNotificationsInput{
		CompanyID:      companyID,
		UnresolvedOnly: c.QueryBool("unresolved", false),
		MinPriority:    c.Query("min_priority"),
		ItemID:         c.Query("item_id"),
		Limit:          c.QueryInt("limit", 0),
		Offset:         c.QueryInt("offset", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, dto.ToNotificationResponse(n))
	}
	return c.JSON(out)
}

// Acknowledge godoc
// @Summary      Reconocer notificación
// @Description  Idempotente. No resuelve la alerta: se resuelve sola cuando la condición desaparece.
// @Tags         notifications
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la notificación"
// @Success      200  {object}  dto.NotificationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/notifications/{id}/ack [post]
func (h *NotificationHandler) Acknowledge(c *fiber.Ctx) error {
	n, err := h.engine.Acknowledge(c.UserContext(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToNotificationResponse(n))
}

// UpgradeOnly rechaza peticiones que no son upgrade a WebSocket.
func UpgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}

// Stream registra la conexión en el hub con la empresa del token y la mantiene hasta que el cliente cierre.
func (h *NotificationHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		companyID, _ := conn.Locals(LocalCompanyID).(string)
		client := &ws.Client{Conn: conn, CompanyID: companyID}
		h.hub.Register <- client
		defer func() { h.hub.Unregister <- client }()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})
}
