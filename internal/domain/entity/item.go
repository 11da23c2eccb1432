package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Categorías de ítem (enumeración cerrada).
const (
	CategorySparePart    = "spare_part"
	CategoryConsumable   = "consumable"
	CategoryFood         = "food"
	CategoryBeverage     = "beverage"
	CategoryRawMaterial  = "raw_material"
	CategoryFinishedGood = "finished_good"
	CategoryTool         = "tool"
	CategoryOther        = "other"
)

var validCategories = map[string]struct{}{
	CategorySparePart: {}, CategoryConsumable: {}, CategoryFood: {}, CategoryBeverage: {},
	CategoryRawMaterial: {}, CategoryFinishedGood: {}, CategoryTool: {}, CategoryOther: {},
}

// IsValidCategory indica si la categoría pertenece a la enumeración cerrada.
func IsValidCategory(c string) bool {
	_, ok := validCategories[c]
	return ok
}

// Threshold límites de stock mínimo/máximo. Nil = no configurado.
type Threshold struct {
	MinLevel *decimal.Decimal
	MaxLevel *decimal.Decimal
}

// Valid verifica min ≥ 0, max ≥ 0 y min ≤ max cuando ambos existen.
func (t Threshold) Valid() bool {
	if t.MinLevel != nil && t.MinLevel.IsNegative() {
		return false
	}
	if t.MaxLevel != nil && t.MaxLevel.IsNegative() {
		return false
	}
	if t.MinLevel != nil && t.MaxLevel != nil && t.MinLevel.GreaterThan(*t.MaxLevel) {
		return false
	}
	return true
}

// Item representa un artículo inventariable (repuesto, insumo de cocina/bar, mercancía de bodega).
// El stock NO vive aquí: se deriva del libro de movimientos (ver Balance).
type Item struct {
	ID             string
	CompanyID      string
	Code           string // código único por empresa
	Name           string
	Description    string
	Category       string
	Unit           string
	Defaults       Threshold            // umbrales por defecto
	Thresholds     map[string]Threshold // LocationID -> umbral específico
	UnitCost       *decimal.Decimal
	ExpiryDate     *time.Time
	BatchID        string
	Supplier       string
	SupplierCode   string
	AllowBackorder bool
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ThresholdFor devuelve el umbral efectivo de una ubicación: el específico si existe, si no el del ítem.
func (i *Item) ThresholdFor(locationID string) Threshold {
	if t, ok := i.Thresholds[locationID]; ok {
		return t
	}
	return i.Defaults
}
