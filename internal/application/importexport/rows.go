// Package importexport intercambia el catálogo en formato tabular (CSV / PDF).
// El stock solo entra al sistema mediante movimientos de ajuste.
package importexport

// Columnas del formato tabular, en orden fijo.
const (
	ColItemCode     = "item_code"
	ColName         = "name"
	ColDescription  = "description"
	ColCategory     = "category"
	ColUnit         = "unit"
	ColCurrentStock = "current_stock"
	ColMinStock     = "min_stock"
	ColMaxStock     = "max_stock"
	ColUnitCost     = "unit_cost"
	ColSupplier     = "supplier"
	ColSupplierCode = "supplier_code"
	ColExpiryDate   = "expiry_date"
	ColBatchNumber  = "batch_number"
	ColLocation     = "location"
	ColActive       = "active"
)

// Columns encabezado de exportación.
var Columns = []string{
	ColItemCode, ColName, ColDescription, ColCategory, ColUnit,
	ColCurrentStock, ColMinStock, ColMaxStock, ColUnitCost,
	ColSupplier, ColSupplierCode, ColExpiryDate, ColBatchNumber,
	ColLocation, ColActive,
}

// Valores de la columna active.
const (
	ActiveYes = "Yes"
	ActiveNo  = "No"
)

// CatalogRow fila del catálogo con los valores como texto, tal como viajan en el archivo.
type CatalogRow struct {
	Line         int // número de línea en el archivo (encabezado = 1); 0 si no viene de un archivo
	ItemCode     string
	Name         string
	Description  string
	Category     string
	Unit         string
	CurrentStock string
	MinStock     string
	MaxStock     string
	UnitCost     string
	Supplier     string
	SupplierCode string
	ExpiryDate   string
	BatchNumber  string
	Location     string
	Active       string
}

// Values devuelve los valores en el orden de Columns.
func (r CatalogRow) Values() []string {
	return []string{
		r.ItemCode, r.Name, r.Description, r.Category, r.Unit,
		r.CurrentStock, r.MinStock, r.MaxStock, r.UnitCost,
		r.Supplier, r.SupplierCode, r.ExpiryDate, r.BatchNumber,
		r.Location, r.Active,
	}
}

// set asigna el valor de una columna por nombre; columnas desconocidas se ignoran.
func (r *CatalogRow) set(col, v string) {
	switch col {
	case ColItemCode:
		r.ItemCode = v
	case ColName:
		r.Name = v
	case ColDescription:
		r.Description = v
	case ColCategory:
		r.Category = v
	case ColUnit:
		r.Unit = v
	case ColCurrentStock:
		r.CurrentStock = v
	case ColMinStock:
		r.MinStock = v
	case ColMaxStock:
		r.MaxStock = v
	case ColUnitCost:
		r.UnitCost = v
	case ColSupplier:
		r.Supplier = v
	case ColSupplierCode:
		r.SupplierCode = v
	case ColExpiryDate:
		r.ExpiryDate = v
	case ColBatchNumber:
		r.BatchNumber = v
	case ColLocation:
		r.Location = v
	case ColActive:
		r.Active = v
	}
}

// RowMessage advertencia o error asociado a una fila.
type RowMessage struct {
	Row      int
	ItemCode string
	Message  string
}

// ImportResult resumen de una importación (best effort por fila).
type ImportResult struct {
	SuccessCount int
	Warnings     []RowMessage
	Errors       []RowMessage
}
