package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ThresholdDTO umbrales mínimo/máximo (nil = sin configurar).
type ThresholdDTO struct {
	MinLevel *decimal.Decimal `json:"min_level,omitempty"`
	MaxLevel *decimal.Decimal `json:"max_level,omitempty"`
}

// CreateItemRequest entrada para crear un ítem.
type CreateItemRequest struct {
	Code           string           `json:"code" validate:"required,min=1,max=64"`
	Name           string           `json:"name" validate:"required,min=1,max=200"`
	Description    string           `json:"description" validate:"max=2000"`
	Category       string           `json:"category" validate:"required,item_category"`
	Unit           string           `json:"unit" validate:"required,min=1,max=20"`
	MinLevel       *decimal.Decimal `json:"min_level,omitempty"`
	MaxLevel       *decimal.Decimal `json:"max_level,omitempty"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	ExpiryDate     string           `json:"expiry_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	BatchID        string           `json:"batch_id" validate:"max=64"`
	Supplier       string           `json:"supplier" validate:"max=200"`
	SupplierCode   string           `json:"supplier_code" validate:"max=64"`
	AllowBackorder bool             `json:"allow_backorder"`
}

// UpdateItemRequest actualización parcial; ExpiryDate "" elimina la fecha.
type UpdateItemRequest struct {
	Code           *string          `json:"code" validate:"omitempty,min=1,max=64"`
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description    *string          `json:"description" validate:"omitempty,max=2000"`
	Category       *string          `json:"category" validate:"omitempty,item_category"`
	Unit           *string          `json:"unit" validate:"omitempty,min=1,max=20"`
	MinLevel       *decimal.Decimal `json:"min_level,omitempty"`
	MaxLevel       *decimal.Decimal `json:"max_level,omitempty"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"`
	ExpiryDate     *string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	BatchID        *string          `json:"batch_id" validate:"omitempty,max=64"`
	Supplier       *string          `json:"supplier" validate:"omitempty,max=200"`
	SupplierCode   *string          `json:"supplier_code" validate:"omitempty,max=64"`
	AllowBackorder *bool            `json:"allow_backorder"`
}

// ItemResponse salida de un ítem.
type ItemResponse struct {
	ID             string                  `json:"id"`
	CompanyID      string                  `json:"company_id"`
	Code           string                  `json:"code"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description"`
	Category       string                  `json:"category"`
	Unit           string                  `json:"unit"`
	MinLevel       *decimal.Decimal        `json:"min_level,omitempty"`
	MaxLevel       *decimal.Decimal        `json:"max_level,omitempty"`
	Thresholds     map[string]ThresholdDTO `json:"thresholds,omitempty"`
	UnitCost       *decimal.Decimal        `json:"unit_cost,omitempty"`
	ExpiryDate     string                  `json:"expiry_date,omitempty"`
	BatchID        string                  `json:"batch_id,omitempty"`
	Supplier       string                  `json:"supplier,omitempty"`
	SupplierCode   string                  `json:"supplier_code,omitempty"`
	AllowBackorder bool                    `json:"allow_backorder"`
	Active         bool                    `json:"active"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// ItemListResponse lista paginada de ítems.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}
