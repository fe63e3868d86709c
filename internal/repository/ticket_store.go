package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/ids"
)

// TicketStore persists tickets and their audit trail.
type TicketStore interface {
	CreateTicket(ctx context.Context, requester, software, version string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID string, next domain.TicketStatus) error
	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
	AppendAction(ctx context.Context, entry domain.ActionLogEntry)
	AppendActionOnce(ctx context.Context, entry domain.ActionLogEntry) (bool, error)
	ListActions(ctx context.Context, ticketID string) ([]domain.ActionLogEntry, error)
}

// TicketStoreOptions tunes id allocation.
type TicketStoreOptions struct {
	Prefix   string
	Now      func() time.Time
	NewToken func() string
}

type ticketStore struct {
	db       *sql.DB
	dialect  Dialect
	prefix   string
	now      func() time.Time
	newToken func() string
	logger   *zap.Logger
}

// NewTicketStore returns a database/sql backed TicketStore.
func NewTicketStore(db *sql.DB, dialect Dialect, opts TicketStoreOptions, logger *zap.Logger) TicketStore {
	if opts.Prefix == "" {
		opts.Prefix = "SNW"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewToken == nil {
		opts.NewToken = ids.NewToken
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ticketStore{
		db:       db,
		dialect:  dialect,
		prefix:   opts.Prefix,
		now:      opts.Now,
		newToken: opts.NewToken,
		logger:   logger,
	}
}

const (
	nextSequenceSQL = `
        INSERT INTO ticket_sequences (day_tag, last_seq) VALUES (?, 1)
        ON CONFLICT (day_tag) DO UPDATE SET last_seq = ticket_sequences.last_seq + 1
        RETURNING last_seq`

	insertTicketSQL = `
        INSERT INTO tickets (ticket_id, requester, software, version, status, approval_token, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertApprovalSQL = `
        INSERT INTO approvals (token, ticket_id, status, created_at)
        VALUES (?, ?, ?, ?)`

	selectTicketSQL = `
        SELECT ticket_id, requester, software, version, status, approval_token, created_at, updated_at
        FROM tickets WHERE ticket_id = ?`
)

// FormatTicketID renders the human readable id for a day tag and sequence.
func FormatTicketID(prefix, dayTag string, seq int64) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, dayTag, seq)
}

func (s *ticketStore) CreateTicket(ctx context.Context, requester, software, version string) (*domain.Ticket, error) {
	if strings.TrimSpace(software) == "" {
		return nil, errors.New("software name is required")
	}
	if version == "" {
		version = domain.DefaultVersion
	}

	now := s.now().UTC()
	dayTag := now.Format("20060102")
	ticket := &domain.Ticket{
		Requester:     requester,
		Software:      software,
		Version:       version,
		Status:        domain.TicketStatusPendingApproval,
		ApprovalToken: s.newToken(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, s.dialect.Rebind(nextSequenceSQL), dayTag).Scan(&seq); err != nil {
			return storeErr("allocate ticket sequence", err)
		}
		ticket.ID = FormatTicketID(s.prefix, dayTag, seq)

		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(insertTicketSQL),
			ticket.ID,
			ticket.Requester,
			ticket.Software,
			ticket.Version,
			string(ticket.Status),
			ticket.ApprovalToken,
			ticket.CreatedAt,
			ticket.UpdatedAt,
		); err != nil {
			return storeErr("insert ticket", err)
		}

		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(insertApprovalSQL),
			ticket.ApprovalToken,
			ticket.ID,
			string(domain.ApprovalPending),
			now,
		); err != nil {
			return storeErr("insert approval", err)
		}

		return insertAction(ctx, tx, s.dialect, &domain.ActionLogEntry{
			TicketID: ticket.ID,
			Actor:    requester,
			Software: ticket.Label(),
			Status:   ticket.Status,
			Action:   domain.ActionRequestCreated,
			Details:  fmt.Sprintf("User requested %s %s. Ticket created, awaiting approval.", ticket.Software, ticket.Version),
		}, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("software", ticket.Label()))
	return ticket, nil
}

func (s *ticketStore) UpdateStatus(ctx context.Context, ticketID string, next domain.TicketStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, next)
	}

	preds := domain.PredecessorsOf(next)
	if len(preds) == 0 {
		s.logger.Warn("rejected status transition",
			zap.String("ticket_id", ticketID),
			zap.String("next", string(next)))
		return fmt.Errorf("%w: nothing may move to %q", domain.ErrInvalidTransition, next)
	}

	query := fmt.Sprintf(`UPDATE tickets SET status = ?, updated_at = ? WHERE ticket_id = ? AND status IN (%s)`, placeholders(len(preds)))
	args := []any{string(next), s.now().UTC(), ticketID}
	for _, p := range preds {
		args = append(args, string(p))
	}

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return storeErr("update ticket status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("update ticket status", err)
	}
	if affected == 1 {
		return nil
	}

	current, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	s.logger.Warn("rejected status transition",
		zap.String("ticket_id", ticketID),
		zap.String("current", string(current.Status)),
		zap.String("next", string(next)))
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, next)
}

func (s *ticketStore) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		status   string
		created  sqlTime
		modified sqlTime
	)
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(selectTicketSQL), ticketID).Scan(
		&ticket.ID,
		&ticket.Requester,
		&ticket.Software,
		&ticket.Version,
		&status,
		&ticket.ApprovalToken,
		&created,
		&modified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTicketNotFound
	}
	if err != nil {
		return nil, storeErr("get ticket", err)
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.CreatedAt = created.Time
	ticket.UpdatedAt = modified.Time
	return &ticket, nil
}

func (s *ticketStore) AppendAction(ctx context.Context, entry domain.ActionLogEntry) {
	if err := insertAction(ctx, s.db, s.dialect, &entry, s.now().UTC()); err != nil {
		s.logger.Warn("failed to append audit entry",
			zap.String("ticket_id", entry.TicketID),
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}

// AppendActionOnce records entry at most once per ticket and action.
func (s *ticketStore) AppendActionOnce(ctx context.Context, entry domain.ActionLogEntry) (bool, error) {
	entry.ID = OnceActionID(entry.TicketID, entry.Action)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(insertActionOnceSQL),
		entry.ID,
		entry.TicketID,
		entry.Actor,
		entry.Software,
		string(entry.Status),
		entry.Action,
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		return false, storeErr("append action once", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("append action once", err)
	}
	return affected == 1, nil
}

// OnceActionID is the deterministic id used for actions recorded at most once.
func OnceActionID(ticketID, action string) string {
	return ticketID + "/" + strings.ToLower(strings.ReplaceAll(action, " ", "-"))
}

func (s *ticketStore) ListActions(ctx context.Context, ticketID string) ([]domain.ActionLogEntry, error) {
	const query = `
        SELECT id, ticket_id, actor, software, status, action, details, created_at
        FROM action_log WHERE ticket_id = ? ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), ticketID)
	if err != nil {
		return nil, storeErr("list actions", err)
	}
	defer rows.Close()

	var entries []domain.ActionLogEntry
	for rows.Next() {
		var (
			entry   domain.ActionLogEntry
			status  string
			created sqlTime
		)
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.Actor, &entry.Software, &status, &entry.Action, &entry.Details, &created); err != nil {
			return nil, storeErr("scan action", err)
		}
		entry.Status = domain.TicketStatus(status)
		entry.CreatedAt = created.Time
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list actions", err)
	}
	return entries, nil
}
