package entity

import "time"

// Tipos de notificación.
const (
	NotificationLowStock      = "low_stock"
	NotificationOutOfStock    = "out_of_stock"
	NotificationOverStock     = "over_stock"
	NotificationExpiryWarning = "expiry_warning"
)

// Prioridades de notificación, de menor a mayor.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// PriorityRank devuelve el orden numérico de la prioridad (0 si es desconocida).
func PriorityRank(p string) int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	}
	return 0
}

// Notification alerta generada por el motor. Como máximo una sin resolver por (ítem, ubicación, tipo).
// LocationID vacío = alerta a nivel de ítem (vencimiento).
type Notification struct {
	ID             string
	CompanyID      string
	ItemID         string
	LocationID     string
	Kind           string
	Priority       string
	Message        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
}

// Acknowledged indica si un usuario ya la reconoció.
func (n *Notification) Acknowledged() bool { return n.AcknowledgedAt != nil }

// Resolved indica si la regla dejó de incumplirse.
func (n *Notification) Resolved() bool { return n.ResolvedAt != nil }
