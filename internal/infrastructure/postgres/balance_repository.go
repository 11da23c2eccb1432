package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo saldos materializados sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

const balanceColumns = `item_id, location_id, quantity, version, last_movement_id, updated_at`

func scanBalance(row pgx.Row) (*entity.Balance, error) {
	var b entity.Balance
	if err := row.Scan(&b.ItemID, &b.LocationID, &b.Quantity, &b.Version, &b.LastMovementID, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BalanceRepo) get(ctx context.Context, itemID, locationID, suffix string) (*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE item_id = $1 AND location_id = $2` + suffix
	b, err := scanBalance(r.q.QueryRow(ctx, query, itemID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Balance{ItemID: itemID, LocationID: locationID, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get balance: %w", mapError(err))
	}
	return b, nil
}

// Get obtiene el saldo actual del par; sin fila se lee como cero.
func (r *BalanceRepo) Get(ctx context.Context, itemID, locationID string) (*entity.Balance, error) {
	return r.get(ctx, itemID, locationID, "")
}

// GetForUpdate obtiene el saldo y bloquea la fila para update (SELECT FOR UPDATE).
// Un par sin fila no queda bloqueado: la carrera de la primera inserción la resuelve Save por versión.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, itemID, locationID string) (*entity.Balance, error) {
	return r.get(ctx, itemID, locationID, " FOR UPDATE")
}

// Save inserta o actualiza el saldo solo si la versión almacenada es expectedVersion.
func (r *BalanceRepo) Save(ctx context.Context, b *entity.Balance, expectedVersion int64) error {
	query := `
		INSERT INTO balances (item_id, location_id, quantity, version, last_movement_id, updated_at)
		VALUES ($1, $2, $3, $4::bigint + 1, $5, $6)
		ON CONFLICT (item_id, location_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			version = EXCLUDED.version,
			last_movement_id = EXCLUDED.last_movement_id,
			updated_at = EXCLUDED.updated_at
		WHERE balances.version = $4::bigint`
	tag, err := r.q.Exec(ctx, query, b.ItemID, b.LocationID, b.Quantity, expectedVersion, b.LastMovementID, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save balance: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	b.Version = expectedVersion + 1
	return nil
}

func (r *BalanceRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Balance, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()
	var list []*entity.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// ListByItem lista los saldos del ítem en todas sus ubicaciones.
func (r *BalanceRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.Balance, error) {
	return r.list(ctx, `SELECT `+balanceColumns+` FROM balances WHERE item_id = $1 ORDER BY location_id`, itemID)
}

// ListPage recorre todos los saldos ordenados por (item_id, location_id).
func (r *BalanceRepo) ListPage(ctx context.Context, limit, offset int) ([]*entity.Balance, error) {
	return r.list(ctx,
		`SELECT `+balanceColumns+` FROM balances ORDER BY item_id, location_id LIMIT $1 OFFSET $2`,
		limit, offset)
}

func (r *BalanceRepo) exists(ctx context.Context, where, id string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM balances WHERE `+where+` AND quantity <> 0)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check balances: %w", err)
	}
	return ok, nil
}

func (r *BalanceRepo) HasNonZeroForItem(ctx context.Context, itemID string) (bool, error) {
	return r.exists(ctx, "item_id = $1", itemID)
}

func (r *BalanceRepo) HasNonZeroForLocation(ctx context.Context, locationID string) (bool, error) {
	return r.exists(ctx, "location_id = $1", locationID)
}
