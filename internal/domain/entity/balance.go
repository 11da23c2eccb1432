package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance es la proyección materializada del stock de un ítem en una ubicación.
// Invariante: Quantity = Σ Movement.Delta del par. Version sirve para control optimista.
type Balance struct {
	ItemID         string
	LocationID     string
	Quantity       decimal.Decimal
	Version        int64
	LastMovementID string
	UpdatedAt      time.Time
}
