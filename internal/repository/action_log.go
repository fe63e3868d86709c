package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/ids"
)

const insertActionSQL = `
        INSERT INTO action_log (id, ticket_id, actor, software, status, action, details, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const insertActionOnceSQL = `
        INSERT INTO action_log (id, ticket_id, actor, software, status, action, details, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO NOTHING`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAction(ctx context.Context, db execer, dialect Dialect, entry *domain.ActionLogEntry, now time.Time) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if _, err := db.ExecContext(ctx, dialect.Rebind(insertActionSQL),
		entry.ID,
		entry.TicketID,
		entry.Actor,
		entry.Software,
		string(entry.Status),
		entry.Action,
		entry.Details,
		entry.CreatedAt,
	); err != nil {
		return storeErr("append action", err)
	}
	return nil
}
