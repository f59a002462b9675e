package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"devsecops_api/internal/dbx"
	"devsecops_api/internal/models"

	"github.com/google/uuid"
)

type EventRepository struct {
	db      *sql.DB
	dialect dbx.Dialect
	now     func() time.Time
}

func NewEventRepository(db *sql.DB, dialect dbx.Dialect) *EventRepository {
	return &EventRepository{db: db, dialect: dialect, now: time.Now}
}

var _ Events = (*EventRepository)(nil)

const (
	insertEventSQL = `INSERT INTO auth_events (id, user_id, occurred_at, type, message, meta) VALUES (?, ?, ?, ?, ?, ?)`
	selectEventSQL = `SELECT id, occurred_at, type, message, meta FROM auth_events`
)

// Append inserts a new event. If EventID or OccurredAt are empty, they're set.
func (r *EventRepository) Append(ctx context.Context, e models.Event) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now()
	}

	// marshal metadata if present
	var metaPtr *string
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		s := string(b)
		metaPtr = &s
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(insertEventSQL),
		e.EventID,
		e.UserID,
		e.OccurredAt.UTC(),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.Description,
		metaPtr,
	)
	if err != nil {
		return fmt.Errorf("insert event for user %d: %w", e.UserID, err)
	}
	return nil
}

// List returns userID's events filtered by [from, to] (inclusive) and/or
// type, oldest first.
func (r *EventRepository) List(ctx context.Context, userID int64, from, to time.Time, typ string) ([]models.Event, error) {
	conds := []string{"user_id = ?"}
	args := []any{userID}

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC())
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectEventSQL + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list events for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := make([]models.Event, 0, 16)
	for rows.Next() {
		ev := models.Event{UserID: userID}
		var metaStr sql.NullString
		if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &metaStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
