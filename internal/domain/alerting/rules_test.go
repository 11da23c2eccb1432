package alerting_test

import (
	"testing"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/domain/alerting"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func testItem() *entity.Item {
	return &entity.Item{ID: "i1", Code: "FLT-01", Name: "Filtro de aceite", Unit: "und"}
}

func TestEvaluatePair_CicloDeVidaBajoStock(t *testing.T) {
	th := entity.Threshold{MinLevel: ptr(dec("10"))}
	item := testItem()

	assert.Empty(t, alerting.EvaluatePair(item, "BOD-1", dec("12"), th))

	v := alerting.EvaluatePair(item, "BOD-1", dec("7"), th)
	require.Contains(t, v, entity.NotificationLowStock)
	assert.Equal(t, entity.PriorityMedium, v[entity.NotificationLowStock].Priority)

	v = alerting.EvaluatePair(item, "BOD-1", dec("4"), th)
	require.Contains(t, v, entity.NotificationLowStock)
	assert.Equal(t, entity.PriorityHigh, v[entity.NotificationLowStock].Priority)

	assert.Empty(t, alerting.EvaluatePair(item, "BOD-1", dec("11"), th))
}

func TestEvaluatePair_LimitesExactos(t *testing.T) {
	th := entity.Threshold{MinLevel: ptr(dec("10")), MaxLevel: ptr(dec("20"))}
	item := testItem()

	v := alerting.EvaluatePair(item, "BOD-1", dec("10"), th)
	assert.Equal(t, entity.PriorityMedium, v[entity.NotificationLowStock].Priority)

	v = alerting.EvaluatePair(item, "BOD-1", dec("5"), th)
	assert.Equal(t, entity.PriorityHigh, v[entity.NotificationLowStock].Priority)

	assert.Empty(t, alerting.EvaluatePair(item, "BOD-1", dec("20"), th))

	v = alerting.EvaluatePair(item, "BOD-1", dec("20.5"), th)
	require.Contains(t, v, entity.NotificationOverStock)
	assert.Equal(t, entity.PriorityLow, v[entity.NotificationOverStock].Priority)
}

func TestEvaluatePair_AgotadoEsCriticoYExclusivo(t *testing.T) {
	th := entity.Threshold{MinLevel: ptr(dec("10"))}
	for _, b := range []string{"0", "-3"} {
		v := alerting.EvaluatePair(testItem(), "BOD-1", dec(b), th)
		require.Len(t, v, 1, b)
		assert.Equal(t, entity.PriorityCritical, v[entity.NotificationOutOfStock].Priority)
	}
}

func TestEvaluatePair_SinUmbrales(t *testing.T) {
	assert.Empty(t, alerting.EvaluatePair(testItem(), "BOD-1", dec("1"), entity.Threshold{}))
	assert.Contains(t, alerting.EvaluatePair(testItem(), "BOD-1", decimal.Zero, entity.Threshold{}), entity.NotificationOutOfStock)
}

func TestEvaluateExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	item := testItem()

	assert.Nil(t, alerting.EvaluateExpiry(item, dec("5"), now, 7), "sin fecha")

	in7 := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	item.ExpiryDate = &in7
	v := alerting.EvaluateExpiry(item, dec("5"), now, 7)
	require.NotNil(t, v, "ventana inclusiva")
	assert.Equal(t, entity.PriorityHigh, v.Priority)

	in8 := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	item.ExpiryDate = &in8
	assert.Nil(t, alerting.EvaluateExpiry(item, dec("5"), now, 7))

	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	item.ExpiryDate = &past
	assert.NotNil(t, alerting.EvaluateExpiry(item, dec("5"), now, 7), "ya vencido")
	assert.Nil(t, alerting.EvaluateExpiry(item, decimal.Zero, now, 7), "sin existencias")
}

func TestThresholdFor_OverrideSobreDefecto(t *testing.T) {
	item := testItem()
	item.Defaults = entity.Threshold{MinLevel: ptr(dec("10"))}
	item.Thresholds = map[string]entity.Threshold{"loc-2": {MinLevel: ptr(dec("3"))}}

	assert.True(t, item.ThresholdFor("loc-1").MinLevel.Equal(dec("10")))
	assert.True(t, item.ThresholdFor("loc-2").MinLevel.Equal(dec("3")))
	assert.False(t, entity.Threshold{MinLevel: ptr(dec("5")), MaxLevel: ptr(dec("4"))}.Valid())
}
