package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository membaca audit_logs dari PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat repository berbasis pgx.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Window mengambil satu jendela baris audit sesuai filter.
func (r *PGRepository) Window(ctx context.Context, q WindowQuery) ([]TimelineRow, error) {
	var (
		where []string
		args  []any
	)
	if q.Action != "" {
		args = append(args, q.Action)
		where = append(where, fmt.Sprintf("l.action = $%d", len(args)))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("l.occurred_at >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("l.occurred_at < $%d", len(args)))
	}
	sql := `SELECT l.id, l.occurred_at, COALESCE(l.actor_id, 0), COALESCE(a.full_name, ''), COALESCE(a.account_number, ''),
       l.action, l.entity, l.entity_id, l.meta
FROM audit_logs l
LEFT JOIN accounts a ON a.id = l.actor_id`
	if len(where) > 0 {
		sql += "\nWHERE " + strings.Join(where, " AND ")
	}
	args = append(args, q.Limit, q.Offset)
	sql += fmt.Sprintf("\nORDER BY l.occurred_at DESC, l.id DESC\nLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			at   time.Time
			meta []byte
		)
		if err := rows.Scan(&row.ID, &at, &row.ActorID, &row.ActorName, &row.ActorAccount, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		row.At = at.UTC()
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta %d: %w", row.ID, err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
