package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferenceDTO documento externo que origina el movimiento.
type ReferenceDTO struct {
	Kind string `json:"kind" validate:"required,max=64"`
	ID   string `json:"id" validate:"required,max=128"`
}

// RecordMovementRequest body para POST /api/inventory/movements.
type RecordMovementRequest struct {
	ItemID     string           `json:"item_id" validate:"required"`
	LocationID string           `json:"location_id" validate:"required"`
	Type       string           `json:"type" validate:"required,movement_type"`
	Delta      decimal.Decimal  `json:"delta"`
	Reference  *ReferenceDTO    `json:"reference,omitempty"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes      string           `json:"notes,omitempty" validate:"max=1000"`
}

// RecordTransferRequest body para POST /api/inventory/transfers.
type RecordTransferRequest struct {
	ItemID         string          `json:"item_id" validate:"required"`
	FromLocationID string          `json:"from_location_id" validate:"required"`
	ToLocationID   string          `json:"to_location_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	Reference      *ReferenceDTO   `json:"reference,omitempty"`
	Notes          string          `json:"notes,omitempty" validate:"max=1000"`
}

// MovementCreatedResponse id del movimiento registrado.
type MovementCreatedResponse struct {
	MovementID string `json:"movement_id"`
}

// TransferCreatedResponse ids de las dos patas del traslado.
type TransferCreatedResponse struct {
	OutMovementID string `json:"out_movement_id"`
	InMovementID  string `json:"in_movement_id"`
}

// MovementResponse fila del libro.
type MovementResponse struct {
	ID                string           `json:"id"`
	TransferID        string           `json:"transfer_id,omitempty"`
	ItemID            string           `json:"item_id"`
	LocationID        string           `json:"location_id"`
	CounterLocationID string           `json:"counter_location_id,omitempty"`
	Delta             decimal.Decimal  `json:"delta"`
	Type              string           `json:"type"`
	Reference         *ReferenceDTO    `json:"reference,omitempty"`
	UnitCost          *decimal.Decimal `json:"unit_cost,omitempty"`
	ActorID           string           `json:"actor_id"`
	Notes             string           `json:"notes,omitempty"`
	Sequence          int64            `json:"sequence"`
	CreatedAt         time.Time        `json:"created_at"`
}

// BalanceResponse saldo de un par.
type BalanceResponse struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// BalancesResponse saldos por ubicación y total.
type BalancesResponse struct {
	ItemID     string                     `json:"item_id"`
	ByLocation map[string]decimal.Decimal `json:"by_location"`
	Total      decimal.Decimal            `json:"total"`
}

// ReconcileResponse resultado de conciliar un par.
type ReconcileResponse struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Projected  decimal.Decimal `json:"projected"`
	Replayed   decimal.Decimal `json:"replayed"`
	Matches    bool            `json:"matches"`
}
