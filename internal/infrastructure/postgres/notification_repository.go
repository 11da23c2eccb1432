package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.NotificationRepository = (*NotificationRepo)(nil)

// NotificationRepo alertas sobre PostgreSQL. El índice único parcial ux_notifications_open
// impide dos notificaciones abiertas para el mismo (ítem, ubicación, tipo).
type NotificationRepo struct {
	q Querier
}

// NewNotificationRepository construye el adaptador de notificaciones. Pasar pool o tx (Querier).
func NewNotificationRepository(q Querier) *NotificationRepo {
	return &NotificationRepo{q: q}
}

const notificationColumns = `id, company_id, item_id, location_id, kind, priority, message,
	created_at, updated_at, acknowledged_at, resolved_at`

// priorityRankSQL ordena las prioridades igual que entity.PriorityRank.
const priorityRankSQL = `CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'critical' THEN 4 ELSE 0 END`

func scanNotification(row pgx.Row) (*entity.Notification, error) {
	var n entity.Notification
	err := row.Scan(&n.ID, &n.CompanyID, &n.ItemID, &n.LocationID, &n.Kind, &n.Priority, &n.Message,
		&n.CreatedAt, &n.UpdatedAt, &n.AcknowledgedAt, &n.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// FindOpen devuelve la notificación sin resolver del (ítem, ubicación, tipo) o nil.
// FOR UPDATE serializa a los evaluadores que comparten la alerta a nivel de ítem (ubicación "").
func (r *NotificationRepo) FindOpen(ctx context.Context, itemID, locationID, kind string) (*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE item_id = $1 AND location_id = $2 AND kind = $3 AND resolved_at IS NULL
		FOR UPDATE`
	n, err := scanNotification(r.q.QueryRow(ctx, query, itemID, locationID, kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open notification: %w", err)
	}
	return n, nil
}

// Create inserta la notificación; una abierta duplicada devuelve domain.ErrDuplicate.
func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query, n.ID, n.CompanyID, n.ItemID, n.LocationID, n.Kind, n.Priority, n.Message,
		n.CreatedAt, n.UpdatedAt, n.AcknowledgedAt, n.ResolvedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create notification: %w", mapError(err))
	}
	return nil
}

// Update persiste prioridad, mensaje y resolución. acknowledged_at no se toca.
// Una notificación ya resuelta no se modifica: devuelve domain.ErrConcurrencyConflict.
func (r *NotificationRepo) Update(ctx context.Context, n *entity.Notification) error {
	var updated, found bool
	err := r.q.QueryRow(ctx, `
		WITH upd AS (
			UPDATE notifications SET priority = $2, message = $3, updated_at = $4, resolved_at = $5
			WHERE id = $1 AND resolved_at IS NULL
			RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM upd), EXISTS (SELECT 1 FROM notifications WHERE id = $1)`,
		n.ID, n.Priority, n.Message, n.UpdatedAt, n.ResolvedAt).Scan(&updated, &found)
	if err != nil {
		return fmt.Errorf("update notification: %w", mapError(err))
	}
	if !found {
		return domain.ErrNotFound
	}
	if !updated {
		return domain.ErrConcurrencyConflict
	}
	return nil
}

// Acknowledge fija acknowledged_at si aún era nulo. Reconocer dos veces no cambia la fecha.
func (r *NotificationRepo) Acknowledge(ctx context.Context, id string, at time.Time) error {
	var found bool
	err := r.q.QueryRow(ctx, `
		WITH upd AS (
			UPDATE notifications SET acknowledged_at = $2
			WHERE id = $1 AND acknowledged_at IS NULL
			RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1)`, id, at).Scan(&found)
	if err != nil {
		return fmt.Errorf("acknowledge notification: %w", err)
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene una notificación por ID.
func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	n, err := scanNotification(r.q.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// List devuelve notificaciones filtradas, de la más reciente a la más antigua.
func (r *NotificationRepo) List(ctx context.Context, f repository.NotificationFilter) ([]*entity.Notification, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.CompanyID != "" {
		add("company_id = ?", f.CompanyID)
	}
	if f.ItemID != "" {
		add("item_id = ?", f.ItemID)
	}
	if f.MinPriority != "" {
		add(priorityRankSQL+" >= ?", entity.PriorityRank(f.MinPriority))
	}
	if f.UnresolvedOnly {
		conds = append(conds, "resolved_at IS NULL")
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var list []*entity.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}
