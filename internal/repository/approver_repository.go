package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// ApproverRepository stores the humans allowed to decide from a card.
type ApproverRepository interface {
	Upsert(ctx context.Context, approver *domain.Approver) error
	GetByEmail(ctx context.Context, email string) (*domain.Approver, error)
}

type approverRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewApproverRepository returns a database/sql backed ApproverRepository.
func NewApproverRepository(db *sql.DB, dialect Dialect) ApproverRepository {
	return &approverRepository{db: db, dialect: dialect}
}

func (r *approverRepository) Upsert(ctx context.Context, approver *domain.Approver) error {
	const query = `
        INSERT INTO approvers (email, display_name, password_hash, created_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (email) DO UPDATE SET display_name = excluded.display_name, password_hash = excluded.password_hash`
	approver.Email = strings.ToLower(strings.TrimSpace(approver.Email))
	if approver.CreatedAt.IsZero() {
		approver.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		approver.Email,
		approver.DisplayName,
		approver.PasswordHash,
		approver.CreatedAt,
	); err != nil {
		return storeErr("upsert approver", err)
	}
	return nil
}

func (r *approverRepository) GetByEmail(ctx context.Context, email string) (*domain.Approver, error) {
	const query = `SELECT email, display_name, password_hash, created_at FROM approvers WHERE email = ?`
	var (
		approver domain.Approver
		created  sqlTime
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), strings.ToLower(strings.TrimSpace(email))).Scan(
		&approver.Email,
		&approver.DisplayName,
		&approver.PasswordHash,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrApproverNotFound
	}
	if err != nil {
		return nil, storeErr("get approver", err)
	}
	approver.CreatedAt = created.Time
	return &approver, nil
}
