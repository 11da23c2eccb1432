// Package alerting contiene las reglas puras de umbral y vencimiento.
// No hace I/O: recibe saldos y umbrales y decide qué alertas deben existir.
package alerting

import (
	"fmt"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// DefaultExpiryLookaheadDays ventana por defecto para expiry_warning.
const DefaultExpiryLookaheadDays = 7

// PairKinds tipos evaluados por cada par (ítem, ubicación).
var PairKinds = []string{
	entity.NotificationOutOfStock,
	entity.NotificationLowStock,
	entity.NotificationOverStock,
}

var half = decimal.NewFromFloat(0.5)

// Violation regla incumplida: tipo, prioridad y mensaje de la alerta resultante.
type Violation struct {
	Kind     string
	Priority string
	Message  string
}

// EvaluatePair aplica las reglas de stock a un saldo con su umbral efectivo.
// Devuelve las violaciones indexadas por tipo; un tipo ausente significa "no violado".
func EvaluatePair(item *entity.Item, locationLabel string, balance decimal.Decimal, t entity.Threshold) map[string]Violation {
	out := make(map[string]Violation, 1)

	if !balance.IsPositive() {
		out[entity.NotificationOutOfStock] = Violation{
			Kind:     entity.NotificationOutOfStock,
			Priority: entity.PriorityCritical,
			Message:  fmt.Sprintf("%s (%s) agotado en %s: saldo %s %s", item.Name, item.Code, locationLabel, balance.String(), item.Unit),
		}
		return out
	}

	if t.MinLevel != nil && balance.LessThanOrEqual(*t.MinLevel) {
		priority := entity.PriorityMedium
		if balance.LessThanOrEqual(t.MinLevel.Mul(half)) {
			priority = entity.PriorityHigh
		}
		out[entity.NotificationLowStock] = Violation{
			Kind:     entity.NotificationLowStock,
			Priority: priority,
			Message: fmt.Sprintf("%s (%s) con stock bajo en %s: saldo %s %s, mínimo %s",
				item.Name, item.Code, locationLabel, balance.String(), item.Unit, t.MinLevel.String()),
		}
	}

	if t.MaxLevel != nil && balance.GreaterThan(*t.MaxLevel) {
		out[entity.NotificationOverStock] = Violation{
			Kind:     entity.NotificationOverStock,
			Priority: entity.PriorityLow,
			Message: fmt.Sprintf("%s (%s) sobre el máximo en %s: saldo %s %s, máximo %s",
				item.Name, item.Code, locationLabel, balance.String(), item.Unit, t.MaxLevel.String()),
		}
	}
	return out
}

// EvaluateExpiry aplica la regla de vencimiento a nivel de ítem.
// Vence dentro de la ventana (inclusive, fechas ya vencidas cuentan) y total > 0 → expiry_warning.
func EvaluateExpiry(item *entity.Item, total decimal.Decimal, now time.Time, lookaheadDays int) *Violation {
	if item.ExpiryDate == nil || !total.IsPositive() {
		return nil
	}
	if lookaheadDays < 0 {
		lookaheadDays = 0
	}
	today := truncateDay(now)
	expiry := truncateDay(*item.ExpiryDate)
	limit := today.AddDate(0, 0, lookaheadDays)
	if expiry.After(limit) {
		return nil
	}
	var msg string
	if expiry.Before(today) {
		msg = fmt.Sprintf("%s (%s) vencido desde %s con %s %s en existencia", item.Name, item.Code, expiry.Format("2006-01-02"), total.String(), item.Unit)
	} else {
		msg = fmt.Sprintf("%s (%s) vence el %s con %s %s en existencia", item.Name, item.Code, expiry.Format("2006-01-02"), total.String(), item.Unit)
	}
	if item.BatchID != "" {
		msg += fmt.Sprintf(" (lote %s)", item.BatchID)
	}
	return &Violation{Kind: entity.NotificationExpiryWarning, Priority: entity.PriorityHigh, Message: msg}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
