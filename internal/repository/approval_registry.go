package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// ApprovalRegistry resolves single use approval tokens.
type ApprovalRegistry interface {
	Resolve(ctx context.Context, token string, decision domain.ApprovalStatus, approver string) (string, error)
	StatusOf(ctx context.Context, ticketID string) (domain.ApprovalStatus, error)
	GetByTicket(ctx context.Context, ticketID string) (*domain.ApprovalRecord, error)
}

type approvalRegistry struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	logger  *zap.Logger
}

// NewApprovalRegistry returns a database/sql backed ApprovalRegistry.
func NewApprovalRegistry(db *sql.DB, dialect Dialect, now func() time.Time, logger *zap.Logger) ApprovalRegistry {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &approvalRegistry{db: db, dialect: dialect, now: now, logger: logger}
}

const (
	claimApprovalSQL = `
        UPDATE approvals SET status = ?, approved_by = ?, approved_at = ?
        WHERE token = ? AND status = ?
        RETURNING ticket_id`

	decideTicketSQL = `
        UPDATE tickets SET status = ?, updated_at = ?
        WHERE ticket_id = ? AND status = ?
        RETURNING software, version`
)

func (r *approvalRegistry) Resolve(ctx context.Context, token string, decision domain.ApprovalStatus, approver string) (string, error) {
	if decision != domain.ApprovalApproved && decision != domain.ApprovalRejected {
		return "", fmt.Errorf("unsupported decision %q", decision)
	}
	if token == "" {
		return "", domain.ErrInvalidToken
	}

	now := r.now().UTC()
	var ticketID string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, r.dialect.Rebind(claimApprovalSQL),
			string(decision), approver, now, token, string(domain.ApprovalPending),
		).Scan(&ticketID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrInvalidToken
		}
		if err != nil {
			return storeErr("claim approval", err)
		}

		next := decision.TicketStatus()
		var software, version string
		err = tx.QueryRowContext(ctx, r.dialect.Rebind(decideTicketSQL),
			string(next), now, ticketID, string(domain.TicketStatusPendingApproval),
		).Scan(&software, &version)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: ticket %s is no longer pending", domain.ErrInvalidTransition, ticketID)
		}
		if err != nil {
			return storeErr("update ticket status", err)
		}

		action, verb := domain.ActionAdminApproval, "approved"
		if decision == domain.ApprovalRejected {
			action, verb = domain.ActionAdminRejection, "rejected"
		}
		return insertAction(ctx, tx, r.dialect, &domain.ActionLogEntry{
			TicketID: ticketID,
			Actor:    approver,
			Software: domain.Ticket{Software: software, Version: version}.Label(),
			Status:   next,
			Action:   action,
			Details:  fmt.Sprintf("Ticket %s %s by %s", ticketID, verb, approver),
		}, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			r.logger.Warn("approval token rejected", zap.String("decision", string(decision)))
		}
		return "", err
	}

	r.logger.Info("approval resolved",
		zap.String("ticket_id", ticketID),
		zap.String("decision", string(decision)),
		zap.String("approver", approver))
	return ticketID, nil
}

func (r *approvalRegistry) StatusOf(ctx context.Context, ticketID string) (domain.ApprovalStatus, error) {
	record, err := r.GetByTicket(ctx, ticketID)
	if errors.Is(err, domain.ErrTicketNotFound) {
		return domain.ApprovalPending, nil
	}
	if err != nil {
		return "", err
	}
	return record.Status, nil
}

func (r *approvalRegistry) GetByTicket(ctx context.Context, ticketID string) (*domain.ApprovalRecord, error) {
	const query = `
        SELECT token, ticket_id, status, approved_by, approved_at, created_at
        FROM approvals WHERE ticket_id = ?`
	var (
		record     domain.ApprovalRecord
		status     string
		approvedBy sql.NullString
		approvedAt sqlTime
		created    sqlTime
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), ticketID).Scan(
		&record.Token,
		&record.TicketID,
		&status,
		&approvedBy,
		&approvedAt,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTicketNotFound
	}
	if err != nil {
		return nil, storeErr("get approval", err)
	}
	record.Status = domain.ApprovalStatus(status)
	if approvedBy.Valid {
		v := approvedBy.String
		record.ApprovedBy = &v
	}
	record.DecidedAt = approvedAt.ptr()
	record.CreatedAt = created.Time
	return &record, nil
}
