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

var _ repository.LocationRepository = (*LocationRepo)(nil)

// LocationRepo implementación de LocationRepository sobre PostgreSQL.
type LocationRepo struct {
	q Querier
}

// NewLocationRepository construye el adaptador de ubicaciones. Pasar pool o tx (Querier).
func NewLocationRepository(q Querier) *LocationRepo {
	return &LocationRepo{q: q}
}

const locationColumns = `id, company_id, code, name, is_primary, active, created_at, updated_at`

func scanLocation(row pgx.Row) (*entity.Location, error) {
	var l entity.Location
	err := row.Scan(&l.ID, &l.CompanyID, &l.Code, &l.Name, &l.IsPrimary, &l.Active, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create persiste una nueva ubicación.
func (r *LocationRepo) Create(ctx context.Context, l *entity.Location) error {
	query := `
		INSERT INTO locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query, l.ID, l.CompanyID, l.Code, l.Name, l.IsPrimary, l.Active, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create location: %w", mapError(err))
	}
	return nil
}

func (r *LocationRepo) getOne(ctx context.Context, op, where string, args ...any) (*entity.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE ` + where
	l, err := scanLocation(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

// GetByID obtiene una ubicación por ID.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	return r.getOne(ctx, "get location", `id = $1`, id)
}

// GetForShare lee la ubicación con FOR SHARE.
func (r *LocationRepo) GetForShare(ctx context.Context, id string) (*entity.Location, error) {
	return r.getOne(ctx, "get location for share", `id = $1 FOR SHARE`, id)
}

// GetForUpdate lee la ubicación con FOR UPDATE.
func (r *LocationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Location, error) {
	return r.getOne(ctx, "get location for update", `id = $1 FOR UPDATE`, id)
}

// GetByCode obtiene una ubicación por código dentro de la empresa.
func (r *LocationRepo) GetByCode(ctx context.Context, companyID, code string) (*entity.Location, error) {
	return r.getOne(ctx, "get location by code", `company_id = $1 AND code = $2`, companyID, code)
}

// GetPrimary obtiene la ubicación principal de la empresa.
func (r *LocationRepo) GetPrimary(ctx context.Context, companyID string) (*entity.Location, error) {
	return r.getOne(ctx, "get primary location", `company_id = $1 AND is_primary`, companyID)
}

// Update actualiza código, nombre y estado. is_primary solo cambia vía SetPrimary.
func (r *LocationRepo) Update(ctx context.Context, l *entity.Location) error {
	query := `
		UPDATE locations SET code = $2, name = $3, active = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, l.ID, l.Code, l.Name, l.Active, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update location: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetPrimary degrada la principal actual y promueve id en la misma transacción.
// El índice único parcial no admite dos principales ni siquiera de forma transitoria.
func (r *LocationRepo) SetPrimary(ctx context.Context, companyID, id string) error {
	err := pgx.BeginFunc(ctx, r.q, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE locations SET is_primary = FALSE, updated_at = now() WHERE company_id = $1 AND is_primary AND id <> $2`,
			companyID, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE locations SET is_primary = TRUE, updated_at = now() WHERE company_id = $1 AND id = $2`,
			companyID, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("set primary location: %w", mapError(err))
	}
	return nil
}

// ListByCompany lista ubicaciones de la empresa ordenadas por código.
func (r *LocationRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE company_id = $1 ORDER BY code`
	args := []any{companyID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// CountByCompany cuenta las ubicaciones de la empresa.
func (r *LocationRepo) CountByCompany(ctx context.Context, companyID string) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM locations WHERE company_id = $1`, companyID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count locations: %w", err)
	}
	return n, nil
}
