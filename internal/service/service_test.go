package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/provisioning-assistant/internal/auth"
	"github.com/spec-kit/provisioning-assistant/internal/config"
	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/events"
	"github.com/spec-kit/provisioning-assistant/internal/persistence"
	"github.com/spec-kit/provisioning-assistant/internal/repository"
	apperrors "github.com/spec-kit/provisioning-assistant/pkg/errorutil"
)

type fixture struct {
	tickets   repository.TicketStore
	approvals repository.ApprovalRegistry
	approvers repository.ApproverRepository
	events    []events.EventType
	mu        sync.Mutex
	db        *persistence.SQLite
}

func newFixture(t *testing.T) (*fixture, events.Dispatcher) {
	t.Helper()
	ctx := context.Background()
	db, err := persistence.NewSQLite(ctx, config.StoreConfig{SQLitePath: filepath.Join(t.TempDir(), "svc.db")}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)
	if err := persistence.RunMigrations(ctx, db.DB, config.StoreDriverSQLite, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	f := &fixture{
		tickets:   repository.NewTicketStore(db.DB, repository.DialectSQLite, repository.TicketStoreOptions{}, zap.NewNop()),
		approvals: repository.NewApprovalRegistry(db.DB, repository.DialectSQLite, nil, zap.NewNop()),
		approvers: repository.NewApproverRepository(db.DB, repository.DialectSQLite),
		db:        db,
	}
	d := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventApprovalResolved, events.EventInvalidToken} {
		d.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.mu.Lock()
			f.events = append(f.events, e.Type)
			f.mu.Unlock()
			return nil
		})
	}
	return f, d
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()
	f, d := newFixture(t)
	svc := NewApprovalService(ApprovalDependencies{
		Approvals:       f.approvals,
		Tickets:         f.tickets,
		Dispatcher:      d,
		DefaultApprover: "admin@example.com",
	})

	ticket, err := f.tickets.CreateTicket(ctx, "alice", "Git", "2.43.0")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	outcome, err := svc.HandleCallback(ctx, "approve", ticket.ApprovalToken, "")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if outcome.TicketID != ticket.ID || outcome.Approver != "admin@example.com" || outcome.Ticket.Status != domain.TicketStatusApproved {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	_, err = svc.HandleCallback(ctx, "reject", ticket.ApprovalToken, "")
	var de *apperrors.DomainError
	if !errors.As(err, &de) || de.Code != "INVALID_OR_EXPIRED_TOKEN" {
		t.Fatalf("second callback should be invalid, got %v", err)
	}
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken in chain, got %v", err)
	}

	if _, err := svc.HandleCallback(ctx, "escalate", ticket.ApprovalToken, ""); !errors.As(err, &de) || de.Code != "VALIDATION_FAILED" {
		t.Fatalf("unknown action should fail validation, got %v", err)
	}

	if len(f.events) != 2 || f.events[0] != events.EventApprovalResolved || f.events[1] != events.EventInvalidToken {
		t.Fatalf("unexpected events: %v", f.events)
	}
}

func TestTicketStatus(t *testing.T) {
	ctx := context.Background()
	f, _ := newFixture(t)
	svc := NewTicketService(f.tickets, f.approvals)

	ticket, err := f.tickets.CreateTicket(ctx, "alice", "Git", "latest")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	view, err := svc.Status(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Approval != domain.ApprovalPending || view.Ticket.Status != domain.TicketStatusPendingApproval {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, err := f.approvals.Resolve(ctx, ticket.ApprovalToken, domain.ApprovalRejected, "admin"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	view, err = svc.Status(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Approval != domain.ApprovalRejected || view.Record.ApprovedBy == nil {
		t.Fatalf("rejection not reflected: %+v", view)
	}

	history, err := svc.History(ctx, ticket.ID)
	if err != nil || len(history) != 2 {
		t.Fatalf("History: %v %+v", err, history)
	}

	if _, err := svc.Status(ctx, "SNW-19990101-001"); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	f.db.Close()
	if _, err := svc.Status(ctx, ticket.ID); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	f, _ := newFixture(t)
	svc := NewAuthService(config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}, f.approvers)

	if _, err := svc.RegisterApprover(ctx, "Admin@Example.com", "Admin", "correct horse"); err != nil {
		t.Fatalf("RegisterApprover: %v", err)
	}
	approver, token, _, err := svc.Login(ctx, "admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if approver.Email != "admin@example.com" || token == "" {
		t.Fatalf("unexpected login result: %+v %q", approver, token)
	}
	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil || claims.Email != "admin@example.com" {
		t.Fatalf("ParseToken: %v %+v", err, claims)
	}

	if _, _, _, err := svc.Login(ctx, "admin@example.com", "wrong horse"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown approver should look like bad credentials, got %v", err)
	}
}
