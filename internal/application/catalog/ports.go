package catalog

import "context"

// ItemEvaluator re-evalúa las alertas de un ítem tras cambios de catálogo (umbrales, activación, vencimiento).
type ItemEvaluator interface {
	EvaluateItem(ctx context.Context, itemID string) error
}
