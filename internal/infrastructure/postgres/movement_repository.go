package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos sobre PostgreSQL (tabla de solo inserción).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador del libro. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `sequence, id, transfer_id, item_id, location_id, counter_location_id, delta, type,
	reference_kind, reference_id, unit_cost, actor_id, notes, created_at`

// Append inserta el movimiento; la secuencia la asigna la base de datos.
func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) error {
	var refKind, refID string
	if m.Reference != nil {
		refKind, refID = m.Reference.Kind, m.Reference.ID
	}
	query := `
		INSERT INTO movements (id, transfer_id, item_id, location_id, counter_location_id, delta, type,
			reference_kind, reference_id, unit_cost, actor_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING sequence`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.TransferID, m.ItemID, m.LocationID, m.CounterLocationID, m.Delta, m.Type,
		refKind, refID, m.UnitCost, m.ActorID, m.Notes, m.CreatedAt,
	).Scan(&m.Sequence)
	if err != nil {
		return fmt.Errorf("append movement: %w", mapError(err))
	}
	return nil
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var refKind, refID string
	err := row.Scan(
		&m.Sequence, &m.ID, &m.TransferID, &m.ItemID, &m.LocationID, &m.CounterLocationID, &m.Delta, &m.Type,
		&refKind, &refID, &m.UnitCost, &m.ActorID, &m.Notes, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if refKind != "" || refID != "" {
		m.Reference = &entity.Reference{Kind: refKind, ID: refID}
	}
	return &m, nil
}

// List devuelve movimientos filtrados, del más reciente al más antiguo.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.ItemID != "" {
		add("item_id = ?", f.ItemID)
	}
	if f.LocationID != "" {
		add("location_id = ?", f.LocationID)
	}
	if f.Since != nil {
		add("created_at >= ?", *f.Since)
	}
	query := `SELECT ` + movementColumns + ` FROM movements`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY sequence DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// SumDelta recalcula el saldo del par sumando el libro.
func (r *MovementRepo) SumDelta(ctx context.Context, itemID, locationID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM movements WHERE item_id = $1 AND location_id = $2`,
		itemID, locationID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum movements: %w", err)
	}
	return sum, nil
}
