// Package pdf implementa el reporte imprimible de stock del catálogo.
//
// Layout de la página A4 horizontal:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título                     │  Fecha de generación  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Código | Ítem | Ubicación | Stock | Mín | Máx | ... │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: total de filas + filas bajo mínimo                 │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/application/importexport"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 180, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ importexport.ReportRenderer = (*StockReportGenerator)(nil)

// StockReportGenerator implementa importexport.ReportRenderer usando Maroto v2.
type StockReportGenerator struct{}

// NewStockReportGenerator construye el generador.
func NewStockReportGenerator() *StockReportGenerator { return &StockReportGenerator{} }

// RenderStockReport genera el PDF y devuelve sus bytes.
func (g *StockReportGenerator) RenderStockReport(title string, generatedAt time.Time, rows []importexport.CatalogRow) ([]byte, error) {
	if title == "" {
		title = "Reporte de stock"
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(title, generatedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	below := 0
	for _, r := range rows {
		low := belowMin(r)
		if low {
			below++
		}
		m.AddRows(tableDetailRow(r, low))
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(len(rows), below))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(title string, generatedAt time.Time) core.Row {
	return row.New(14).Add(
		col.New(8).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 2}),
		),
		col.New(4).Add(
			text.New("Generado: "+generatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 4, Color: colorGray,
			}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla (12 columnas de grilla).
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Código", 2, align.Left),
		h("Ítem", 3, align.Left),
		h("Ubicación", 2, align.Left),
		h("Stock", 1, align.Right),
		h("Mín.", 1, align.Right),
		h("Máx.", 1, align.Right),
		h("Unidad", 1, align.Center),
		h("Vence", 1, align.Center),
	)
}

// tableDetailRow: una fila por ítem/ubicación; stock en rojo si está en o bajo el mínimo.
func tableDetailRow(r importexport.CatalogRow, low bool) core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	stockProps := props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1}
	if low {
		stockProps.Style = fontstyle.Bold
		stockProps.Color = colorAlert
	}
	return row.New(6).Add(
		cell(r.ItemCode, 2, align.Left),
		cell(r.Name, 3, align.Left),
		cell(nonEmpty(r.Location, "—"), 2, align.Left),
		col.New(1).Add(text.New(r.CurrentStock, stockProps)),
		cell(nonEmpty(r.MinStock, "—"), 1, align.Right),
		cell(nonEmpty(r.MaxStock, "—"), 1, align.Right),
		cell(r.Unit, 1, align.Center),
		cell(nonEmpty(r.ExpiryDate, "—"), 1, align.Center),
	)
}

func footerRow(total, below int) core.Row {
	return row.New(8).Add(
		col.New(12).Add(text.New(
			fmt.Sprintf("%d filas   |   %d en o bajo el mínimo", total, below),
			props.Text{Size: 8, Top: 2, Color: colorGray},
		)),
	)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func belowMin(r importexport.CatalogRow) bool {
	if r.MinStock == "" {
		return false
	}
	stock, err := decimal.NewFromString(r.CurrentStock)
	if err != nil {
		return false
	}
	minLevel, err := decimal.NewFromString(r.MinStock)
	if err != nil {
		return false
	}
	return stock.LessThanOrEqual(minLevel)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
