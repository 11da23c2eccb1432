package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro.
const (
	MovementTypeReceipt     = "receipt"     // entrada
	MovementTypeIssue       = "issue"       // salida
	MovementTypeTransfer    = "transfer"    // traslado entre ubicaciones (dos filas)
	MovementTypeAdjustment  = "adjustment"  // ajuste (conteo, carga inicial, importación)
	MovementTypeConsumption = "consumption" // consumo (p. ej. orden de mantenimiento)
)

// IsValidMovementType indica si t es un tipo de movimiento conocido.
func IsValidMovementType(t string) bool {
	switch t {
	case MovementTypeReceipt, MovementTypeIssue, MovementTypeTransfer, MovementTypeAdjustment, MovementTypeConsumption:
		return true
	}
	return false
}

// Reference identifica el documento externo que origina el movimiento (work_order, maintenance_request...).
type Reference struct {
	Kind string
	ID   string
}

// Movement es una fila inmutable del libro: un delta con signo para un par (ítem, ubicación).
// Las correcciones se hacen con un movimiento compensatorio, nunca editando.
type Movement struct {
	ID                string
	TransferID        string // compartido por las dos patas de un traslado
	ItemID            string
	LocationID        string
	CounterLocationID string // destino (pata de salida) u origen (pata de entrada) de un traslado
	Delta             decimal.Decimal
	Type              string
	Reference         *Reference
	UnitCost          *decimal.Decimal
	ActorID           string
	Notes             string
	Sequence          int64 // asignado al persistir; orden estable
	CreatedAt         time.Time
}
