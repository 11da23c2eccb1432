package entity

import "time"

// Location representa una bodega o punto de almacenamiento contra el cual se lleva el stock.
// Solo una ubicación activa por empresa puede ser la principal (IsPrimary).
type Location struct {
	ID        string
	CompanyID string
	Code      string // código único por empresa
	Name      string
	IsPrimary bool
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
