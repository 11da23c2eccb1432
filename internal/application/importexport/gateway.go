package importexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	exportPageSize      = 200
	referenceKindImport = "catalog_import"
	defaultActorImport  = "catalog-import"
)

// Ledger lo que la importación necesita del libro: una transacción donde escribir catálogo y ajustes juntos.
type Ledger interface {
	InTx(ctx context.Context, fn func(tx repository.TxRepos, ledger *inventory.LedgerTx) error) error
}

// ItemEvaluator re-evalúa alertas de un ítem tras cambiar sus umbrales.
type ItemEvaluator interface {
	EvaluateItem(ctx context.Context, itemID string) error
}

// ReportRenderer genera el reporte imprimible de stock.
type ReportRenderer interface {
	RenderStockReport(title string, generatedAt time.Time, rows []CatalogRow) ([]byte, error)
}

// Gateway importa y exporta el catálogo con su stock.
type Gateway struct {
	itemRepo          repository.ItemRepository
	locationRepo      repository.LocationRepository
	balanceRepo       repository.BalanceRepository
	ledger            Ledger
	alerts            ItemEvaluator
	renderer          ReportRenderer
	defaultLocationID string
	log               *logger.Logger
	now               func() time.Time
}

// NewGateway construye el gateway. alerts y renderer pueden ser nil.
// defaultLocationID vacío = se usa la ubicación principal de la empresa.
func NewGateway(
	itemRepo repository.ItemRepository,
	locationRepo repository.LocationRepository,
	balanceRepo repository.BalanceRepository,
	ledger Ledger,
	alerts ItemEvaluator,
	renderer ReportRenderer,
	defaultLocationID string,
	log *logger.Logger,
) *Gateway {
	return &Gateway{
		itemRepo:          itemRepo,
		locationRepo:      locationRepo,
		balanceRepo:       balanceRepo,
		ledger:            ledger,
		alerts:            alerts,
		renderer:          renderer,
		defaultLocationID: defaultLocationID,
		log:               log.Component("importexport"),
		now:               time.Now,
	}
}

// ── Exportación ───────────────────────────────────────────────────────────────

// Export una fila por ítem activo y ubicación activa con saldo registrado.
// Un ítem activo sin saldos se exporta una vez, sin ubicación y con stock 0.
func (g *Gateway) Export(ctx context.Context, companyID string) ([]CatalogRow, error) {
	locations, err := g.locationsByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	var rows []CatalogRow
	for offset := 0; ; offset += exportPageSize {
		items, err := g.itemRepo.ListByCompany(ctx, companyID, true, exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			balances, err := g.balanceRepo.ListByItem(ctx, item.ID)
			if err != nil {
				return nil, err
			}
			// Las filas con los umbrales del ítem van primero: al reimportar, la primera fila
			// de un ítem nuevo fija sus umbrales por defecto.
			var withDefaults, withOverride []CatalogRow
			for _, b := range balances {
				loc, ok := locations[b.LocationID]
				if !ok || !loc.Active {
					continue
				}
				if hasOverride(item, loc.ID) {
					withOverride = append(withOverride, exportRow(item, loc.Code, b.Quantity, item.Thresholds[loc.ID]))
					continue
				}
				withDefaults = append(withDefaults, exportRow(item, loc.Code, b.Quantity, item.Defaults))
			}
			if len(withDefaults)+len(withOverride) == 0 {
				withDefaults = append(withDefaults, exportRow(item, "", decimal.Zero, item.Defaults))
			}
			rows = append(rows, withDefaults...)
			rows = append(rows, withOverride...)
		}
		if len(items) < exportPageSize {
			break
		}
	}
	return rows, nil
}

// ExportCSV escribe el catálogo como CSV UTF-8.
func (g *Gateway) ExportCSV(ctx context.Context, companyID string, w io.Writer) error {
	rows, err := g.Export(ctx, companyID)
	if err != nil {
		return err
	}
	return WriteCSV(w, rows)
}

// ExportPDF genera el reporte de stock imprimible.
func (g *Gateway) ExportPDF(ctx context.Context, companyID, title string) ([]byte, error) {
	if g.renderer == nil {
		return nil, fmt.Errorf("%w: exportación PDF no configurada", domain.ErrInvalidInput)
	}
	rows, err := g.Export(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return g.renderer.RenderStockReport(title, g.now(), rows)
}

func (g *Gateway) locationsByID(ctx context.Context, companyID string) (map[string]*entity.Location, error) {
	out := make(map[string]*entity.Location)
	for offset := 0; ; offset += exportPageSize {
		page, err := g.locationRepo.ListByCompany(ctx, companyID, exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, l := range page {
			out[l.ID] = l
		}
		if len(page) < exportPageSize {
			return out, nil
		}
	}
}

func exportRow(item *entity.Item, locationCode string, qty decimal.Decimal, t entity.Threshold) CatalogRow {
	row := CatalogRow{
		ItemCode:     item.Code,
		Name:         item.Name,
		Description:  item.Description,
		Category:     item.Category,
		Unit:         item.Unit,
		CurrentStock: qty.String(),
		MinStock:     decString(t.MinLevel),
		MaxStock:     decString(t.MaxLevel),
		UnitCost:     decString(item.UnitCost),
		Supplier:     item.Supplier,
		SupplierCode: item.SupplierCode,
		BatchNumber:  item.BatchID,
		Location:     locationCode,
		Active:       ActiveYes,
	}
	if item.ExpiryDate != nil {
		row.ExpiryDate = item.ExpiryDate.Format(dateLayout)
	}
	return row
}

func decString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// ── Importación ───────────────────────────────────────────────────────────────

const dateLayout = "2006-01-02"

// parsedRow fila validada y tipada.
type parsedRow struct {
	line             int
	code             string
	name             string
	description      string
	category         string
	unit             string
	stock            decimal.Decimal
	threshold        entity.Threshold
	unitCost         *decimal.Decimal
	supplier         string
	supplierCode     string
	expiry           *time.Time
	batch            string
	location         *entity.Location
	explicitLocation bool
	active           bool
}

// ImportCSV decodifica el archivo y lo importa.
func (g *Gateway) ImportCSV(ctx context.Context, companyID, actorID string, r io.Reader, charset string) (*ImportResult, error) {
	rows, err := ReadCSV(r, charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return g.Import(ctx, companyID, actorID, rows)
}

// Import valida cada fila antes de escribir; las filas con error no escriben nada y se informan con su número.
// Un código existente actualiza el catálogo (advertencia) y ajusta el stock a la cantidad indicada.
func (g *Gateway) Import(ctx context.Context, companyID, actorID string, rows []CatalogRow) (*ImportResult, error) {
	if actorID == "" {
		actorID = defaultActorImport
	}
	res := &ImportResult{Warnings: []RowMessage{}, Errors: []RowMessage{}}
	importID := uuid.New().String()
	locCache := make(map[string]*entity.Location)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if row.Line == 0 {
			row.Line = i + 2 // el encabezado ocupa la línea 1
		}
		p, err := g.validateRow(ctx, companyID, row, locCache)
		if err != nil {
			res.Errors = append(res.Errors, RowMessage{Row: row.Line, ItemCode: row.ItemCode, Message: err.Error()})
			continue
		}
		warning, err := g.applyRow(ctx, companyID, actorID, importID, p)
		if err != nil {
			res.Errors = append(res.Errors, RowMessage{Row: row.Line, ItemCode: row.ItemCode, Message: err.Error()})
			continue
		}
		if warning != "" {
			res.Warnings = append(res.Warnings, RowMessage{Row: row.Line, ItemCode: row.ItemCode, Message: warning})
		}
		res.SuccessCount++
	}

	g.log.Info().
		Str("import_id", importID).
		Int("rows", len(rows)).
		Int("success", res.SuccessCount).
		Int("warnings", len(res.Warnings)).
		Int("errors", len(res.Errors)).
		Msg("importación de catálogo completada")
	return res, nil
}

func (g *Gateway) validateRow(ctx context.Context, companyID string, row CatalogRow, locCache map[string]*entity.Location) (*parsedRow, error) {
	p := &parsedRow{
		line:         row.Line,
		code:         strings.TrimSpace(row.ItemCode),
		name:         strings.TrimSpace(row.Name),
		description:  row.Description,
		category:     strings.ToLower(strings.TrimSpace(row.Category)),
		unit:         strings.TrimSpace(row.Unit),
		supplier:     row.Supplier,
		supplierCode: row.SupplierCode,
		batch:        strings.TrimSpace(row.BatchNumber),
	}
	var missing []string
	if p.code == "" {
		missing = append(missing, ColItemCode)
	}
	if p.name == "" {
		missing = append(missing, ColName)
	}
	if p.category == "" {
		missing = append(missing, ColCategory)
	}
	if p.unit == "" {
		missing = append(missing, ColUnit)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("campos obligatorios vacíos: %s", strings.Join(missing, ", "))
	}
	if !entity.IsValidCategory(p.category) {
		return nil, fmt.Errorf("categoría desconocida %q", row.Category)
	}

	var err error
	if p.stock, err = parseDecimal(ColCurrentStock, row.CurrentStock); err != nil {
		return nil, err
	}
	if p.stock.IsNegative() {
		return nil, fmt.Errorf("%s no puede ser negativo", ColCurrentStock)
	}
	if p.threshold.MinLevel, err = parseOptionalDecimal(ColMinStock, row.MinStock); err != nil {
		return nil, err
	}
	if p.threshold.MaxLevel, err = parseOptionalDecimal(ColMaxStock, row.MaxStock); err != nil {
		return nil, err
	}
	if !p.threshold.Valid() {
		return nil, fmt.Errorf("se requiere 0 <= %s <= %s", ColMinStock, ColMaxStock)
	}
	if p.unitCost, err = parseOptionalDecimal(ColUnitCost, row.UnitCost); err != nil {
		return nil, err
	}
	if p.unitCost != nil && p.unitCost.IsNegative() {
		return nil, fmt.Errorf("%s no puede ser negativo", ColUnitCost)
	}
	if s := strings.TrimSpace(row.ExpiryDate); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("%s inválida %q (se espera YYYY-MM-DD)", ColExpiryDate, s)
		}
		p.expiry = &t
	}
	switch {
	case strings.TrimSpace(row.Active) == "", strings.EqualFold(strings.TrimSpace(row.Active), ActiveYes):
		p.active = true
	case strings.EqualFold(strings.TrimSpace(row.Active), ActiveNo):
		p.active = false
	default:
		return nil, fmt.Errorf("%s debe ser Yes o No, no %q", ColActive, row.Active)
	}
	if !p.active && !p.stock.IsZero() {
		return nil, fmt.Errorf("un ítem inactivo no puede tener stock (%s)", p.stock.String())
	}

	code := strings.TrimSpace(row.Location)
	p.explicitLocation = code != ""
	if p.location, err = g.resolveLocation(ctx, companyID, code, locCache); err != nil {
		return nil, err
	}
	if p.location == nil && !p.stock.IsZero() {
		return nil, errors.New("sin ubicación: la fila no indica location y no hay ubicación por defecto")
	}
	return p, nil
}

// resolveLocation código → ubicación activa; código vacío → ubicación por defecto (o nil si no hay).
func (g *Gateway) resolveLocation(ctx context.Context, companyID, code string, cache map[string]*entity.Location) (*entity.Location, error) {
	if loc, ok := cache[code]; ok {
		return loc, nil
	}
	var loc *entity.Location
	var err error
	switch {
	case code != "":
		loc, err = g.locationRepo.GetByCode(ctx, companyID, code)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("ubicación desconocida %q", code)
		}
	case g.defaultLocationID != "":
		loc, err = g.locationRepo.GetByID(ctx, g.defaultLocationID)
		if err == nil && loc.CompanyID != companyID {
			loc, err = nil, domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrNotFound) {
			loc, err = g.locationRepo.GetPrimary(ctx, companyID)
		}
	default:
		loc, err = g.locationRepo.GetPrimary(ctx, companyID)
	}
	if code == "" && errors.Is(err, domain.ErrNotFound) {
		cache[code] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !loc.Active {
		return nil, fmt.Errorf("ubicación %s inactiva", loc.Code)
	}
	cache[code] = loc
	return loc, nil
}

// applyRow escribe la fila validada en una sola transacción: catálogo, umbral, ajuste de stock y
// desactivación se confirman juntos o no se escribe nada. Devuelve una advertencia si el ítem ya existía.
func (g *Gateway) applyRow(ctx context.Context, companyID, actorID, importID string, p *parsedRow) (string, error) {
	var (
		warning string
		itemID  string
	)
	err := g.ledger.InTx(ctx, func(tx repository.TxRepos, ledger *inventory.LedgerTx) error {
		now := g.now().UTC()
		warning = ""

		item, created, err := g.upsertItem(ctx, tx, companyID, p, now)
		if err != nil {
			return err
		}
		itemID = item.ID
		if !created {
			warning = fmt.Sprintf("ítem %s existente: catálogo actualizado", p.code)
		}

		if !created && p.explicitLocation && (hasOverride(item, p.location.ID) || !sameThreshold(p.threshold, item.Defaults)) {
			if err := tx.Items.SetThreshold(ctx, item.ID, p.location.ID, p.threshold); err != nil {
				return err
			}
		}

		// Un ítem que sigue inactivo no admite movimientos; la fila trae stock 0
		if p.location != nil && item.Active {
			_, err := ledger.SetStock(ctx, inventory.SetStockInput{
				CompanyID:  companyID,
				ActorID:    actorID,
				ItemID:     item.ID,
				LocationID: p.location.ID,
				Target:     p.stock,
				Reference:  &entity.Reference{Kind: referenceKindImport, ID: importID},
				Notes:      fmt.Sprintf("importación de catálogo, fila %d", p.line),
				UnitCost:   p.unitCost,
			})
			if err != nil {
				return fmt.Errorf("ajuste de stock: %w", err)
			}
		}

		if !p.active && item.Active {
			nonZero, err := tx.Balances.HasNonZeroForItem(ctx, item.ID)
			if err != nil {
				return err
			}
			if nonZero {
				return fmt.Errorf("no se puede desactivar %s: %w", item.Code, domain.ErrActiveBalanceExists)
			}
			item.Active = false
			item.UpdatedAt = now
			if err := tx.Items.Update(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if g.alerts != nil {
		if err := g.alerts.EvaluateItem(ctx, itemID); err != nil {
			g.log.Warn().Err(err).Str("item_id", itemID).Msg("re-evaluación de alertas pendiente")
		}
	}
	return warning, nil
}

// upsertItem bloquea y actualiza el ítem del código, o lo crea con los umbrales de la fila como
// umbrales por defecto.
func (g *Gateway) upsertItem(ctx context.Context, tx repository.TxRepos, companyID string, p *parsedRow, now time.Time) (*entity.Item, bool, error) {
	existing, err := tx.Items.GetByCode(ctx, companyID, p.code)
	switch {
	case err == nil:
		item, err := tx.Items.GetForUpdate(ctx, existing.ID)
		if err != nil {
			return nil, false, err
		}
		p.fill(item, now)
		if !p.explicitLocation {
			item.Defaults = p.threshold
		}
		if err := tx.Items.Update(ctx, item); err != nil {
			return nil, false, err
		}
		return item, false, nil
	case errors.Is(err, domain.ErrNotFound):
		item := &entity.Item{
			ID:        uuid.New().String(),
			CompanyID: companyID,
			Defaults:  p.threshold,
			CreatedAt: now,
		}
		p.fill(item, now)
		item.Active = true
		if err := tx.Items.Create(ctx, item); err != nil {
			return nil, false, err
		}
		return item, true, nil
	default:
		return nil, false, err
	}
}

// fill copia los atributos del catálogo; los umbrales los decide upsertItem.
// Un ítem inactivo que vuelve con active=Yes se reactiva aquí; la desactivación ocurre tras el ajuste.
func (p *parsedRow) fill(item *entity.Item, now time.Time) {
	item.Code = p.code
	item.Name = p.name
	item.Description = p.description
	item.Category = p.category
	item.Unit = p.unit
	item.UnitCost = p.unitCost
	item.Supplier = p.supplier
	item.SupplierCode = p.supplierCode
	item.ExpiryDate = p.expiry
	item.BatchID = p.batch
	if p.active {
		item.Active = true
	}
	item.UpdatedAt = now
}

func sameThreshold(a, b entity.Threshold) bool {
	return sameLevel(a.MinLevel, b.MinLevel) && sameLevel(a.MaxLevel, b.MaxLevel)
}

func sameLevel(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func hasOverride(item *entity.Item, locationID string) bool {
	_, ok := item.Thresholds[locationID]
	return ok
}

func parseDecimal(col, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s no es un número: %q", col, s)
	}
	return d, nil
}

func parseOptionalDecimal(col, s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := parseDecimal(col, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
