package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación de ItemRepository sobre PostgreSQL.
// Los umbrales por ubicación viven en item_location_thresholds.
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de ítems. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

const itemColumns = `id, company_id, code, name, description, category, unit, min_level, max_level,
	unit_cost, expiry_date, batch_id, supplier, supplier_code, allow_backorder, active, created_at, updated_at`

func scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	err := row.Scan(
		&it.ID, &it.CompanyID, &it.Code, &it.Name, &it.Description, &it.Category, &it.Unit,
		&it.Defaults.MinLevel, &it.Defaults.MaxLevel, &it.UnitCost, &it.ExpiryDate,
		&it.BatchID, &it.Supplier, &it.SupplierCode, &it.AllowBackorder, &it.Active,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.Thresholds = map[string]entity.Threshold{}
	return &it, nil
}

// Create persiste el ítem junto con sus umbrales por ubicación.
func (r *ItemRepo) Create(ctx context.Context, it *entity.Item) error {
	err := pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		query := `
			INSERT INTO items (` + itemColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
		if _, err := tx.Exec(ctx, query,
			it.ID, it.CompanyID, it.Code, it.Name, it.Description, it.Category, it.Unit,
			it.Defaults.MinLevel, it.Defaults.MaxLevel, it.UnitCost, it.ExpiryDate,
			it.BatchID, it.Supplier, it.SupplierCode, it.AllowBackorder, it.Active,
			it.CreatedAt, it.UpdatedAt,
		); err != nil {
			return err
		}
		for locID, t := range it.Thresholds {
			if err := upsertThreshold(ctx, tx, it.ID, locID, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create item: %w", mapError(err))
	}
	return nil
}

func upsertThreshold(ctx context.Context, q Querier, itemID, locationID string, t entity.Threshold) error {
	query := `
		INSERT INTO item_location_thresholds (item_id, location_id, min_level, max_level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id, location_id)
		DO UPDATE SET min_level = EXCLUDED.min_level, max_level = EXCLUDED.max_level`
	_, err := q.Exec(ctx, query, itemID, locationID, t.MinLevel, t.MaxLevel)
	return err
}

func (r *ItemRepo) getOne(ctx context.Context, op, where string, args ...any) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE ` + where
	it, err := scanItem(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.loadThresholds(ctx, []*entity.Item{it}); err != nil {
		return nil, err
	}
	return it, nil
}

// loadThresholds completa el mapa de umbrales de los ítems con una sola consulta.
func (r *ItemRepo) loadThresholds(ctx context.Context, items []*entity.Item) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Item, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		byID[it.ID] = it
		ids = append(ids, it.ID)
	}
	rows, err := r.q.Query(ctx, `
		SELECT item_id, location_id, min_level, max_level
		FROM item_location_thresholds WHERE item_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("list thresholds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var itemID, locID string
		var t entity.Threshold
		if err := rows.Scan(&itemID, &locID, &t.MinLevel, &t.MaxLevel); err != nil {
			return fmt.Errorf("scan threshold: %w", err)
		}
		if it, ok := byID[itemID]; ok {
			it.Thresholds[locID] = t
		}
	}
	return rows.Err()
}

// GetByID obtiene un ítem por ID.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	return r.getOne(ctx, "get item", `id = $1`, id)
}

// GetForShare lee el ítem con FOR SHARE: bloquea cambios de catálogo hasta el fin de la tx.
func (r *ItemRepo) GetForShare(ctx context.Context, id string) (*entity.Item, error) {
	return r.getOne(ctx, "get item for share", `id = $1 FOR SHARE`, id)
}

// GetForUpdate lee el ítem con FOR UPDATE.
func (r *ItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.Item, error) {
	return r.getOne(ctx, "get item for update", `id = $1 FOR UPDATE`, id)
}

// GetByCode obtiene un ítem por código dentro de la empresa.
func (r *ItemRepo) GetByCode(ctx context.Context, companyID, code string) (*entity.Item, error) {
	return r.getOne(ctx, "get item by code", `company_id = $1 AND code = $2`, companyID, code)
}

// Update actualiza los atributos del ítem. Los umbrales por ubicación se cambian con SetThreshold.
func (r *ItemRepo) Update(ctx context.Context, it *entity.Item) error {
	query := `
		UPDATE items SET
			code = $2, name = $3, description = $4, category = $5, unit = $6,
			min_level = $7, max_level = $8, unit_cost = $9, expiry_date = $10,
			batch_id = $11, supplier = $12, supplier_code = $13, allow_backorder = $14,
			active = $15, updated_at = $16
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		it.ID, it.Code, it.Name, it.Description, it.Category, it.Unit,
		it.Defaults.MinLevel, it.Defaults.MaxLevel, it.UnitCost, it.ExpiryDate,
		it.BatchID, it.Supplier, it.SupplierCode, it.AllowBackorder,
		it.Active, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetThreshold crea o reemplaza el umbral del ítem en una ubicación.
func (r *ItemRepo) SetThreshold(ctx context.Context, itemID, locationID string, t entity.Threshold) error {
	if err := upsertThreshold(ctx, r.q, itemID, locationID, t); err != nil {
		return fmt.Errorf("set threshold: %w", mapError(err))
	}
	return nil
}

func (r *ItemRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Item, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var list []*entity.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.loadThresholds(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListByCompany lista ítems de la empresa ordenados por código.
func (r *ItemRepo) ListByCompany(ctx context.Context, companyID string, activeOnly bool, limit, offset int) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE company_id = $1 AND (active OR NOT $2) ORDER BY code`
	args := []any{companyID, activeOnly}
	if limit > 0 {
		query += ` LIMIT $3 OFFSET $4`
		args = append(args, limit, offset)
	}
	return r.list(ctx, "list items", query, args...)
}

// CountByCompany cuenta los ítems de la empresa.
func (r *ItemRepo) CountByCompany(ctx context.Context, companyID string, activeOnly bool) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM items WHERE company_id = $1 AND (active OR NOT $2)`, companyID, activeOnly,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// ListWithExpiry devuelve los ítems activos con fecha de vencimiento (todas las empresas).
func (r *ItemRepo) ListWithExpiry(ctx context.Context) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE active AND expiry_date IS NOT NULL ORDER BY expiry_date, id`
	return r.list(ctx, "list items with expiry", query)
}
