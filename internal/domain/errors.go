package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrInactive            = errors.New("el recurso está inactivo")
	ErrInvalidQuantity     = errors.New("cantidad inválida")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrActiveBalanceExists = errors.New("existe saldo distinto de cero")
	ErrLedgerDrift         = errors.New("el saldo materializado no coincide con el libro de movimientos")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia al actualizar el saldo")
)

// DriftError detalla una diferencia entre el saldo materializado y la suma del libro.
// errors.Is(err, ErrLedgerDrift) es verdadero para este tipo.
type DriftError struct {
	ItemID     string
	LocationID string
	Projected  decimal.Decimal
	Replayed   decimal.Decimal
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("%s: item=%s location=%s projected=%s replayed=%s",
		ErrLedgerDrift.Error(), e.ItemID, e.LocationID, e.Projected.String(), e.Replayed.String())
}

func (e *DriftError) Unwrap() error { return ErrLedgerDrift }
