package dto

import "time"

// NotificationResponse salida de una alerta.
type NotificationResponse struct {
	ID             string     `json:"id"`
	ItemID         string     `json:"item_id"`
	LocationID     string     `json:"location_id,omitempty"`
	Kind           string     `json:"kind"`
	Priority       string     `json:"priority"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// NotificationEvent mensaje del stream (WebSocket / Redis).
type NotificationEvent struct {
	Event        string               `json:"event"`
	CompanyID    string               `json:"company_id"`
	Notification NotificationResponse `json:"notification"`
}

// ImportMessage advertencia o error de una fila importada.
type ImportMessage struct {
	Row     int    `json:"row"`
	Code    string `json:"item_code,omitempty"`
	Message string `json:"message"`
}

// ImportResultResponse resumen de una importación.
type ImportResultResponse struct {
	SuccessCount int             `json:"success_count"`
	Warnings     []ImportMessage `json:"warnings"`
	Errors       []ImportMessage `json:"errors"`
}
