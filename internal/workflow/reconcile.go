package workflow

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/events"
)

const systemActor = "system"

// check reads the current state of every ticket, installs approved tickets and
// records cancellations. It is safe to call any number of times.
func (w *Workflow) check(ctx context.Context, inv *Invocation) {
	var approved []int
	for i := range inv.Items {
		it := &inv.Items[i]
		if it.TicketID == "" || !it.Found {
			continue
		}
		ticket, err := w.tickets.GetTicket(ctx, it.TicketID)
		if err != nil {
			w.logger.Warn("ticket status unavailable", zap.String("ticket_id", it.TicketID), zap.Error(err))
			it.Status = ""
			it.Approval = ""
			it.Note = "status unknown"
			continue
		}
		it.Status = ticket.Status
		it.Note = ""
		if approval, err := w.approvals.StatusOf(ctx, ticket.ID); err != nil {
			w.logger.Warn("approval status unavailable", zap.String("ticket_id", ticket.ID), zap.Error(err))
			it.Approval = ""
		} else {
			it.Approval = approval
		}

		switch ticket.Status {
		case domain.TicketStatusApproved:
			approved = append(approved, i)
		case domain.TicketStatusRejected:
			w.cancel(ctx, ticket)
			it.Note = "Installation cancelled due to admin rejection"
		}
	}

	if len(approved) > 0 {
		var g errgroup.Group
		g.SetLimit(w.opts.MaxParallelInstalls)
		for _, idx := range approved {
			it := &inv.Items[idx]
			g.Go(func() error {
				status, err := w.install(ctx, it.TicketID, it.Software, it.Version)
				if status != "" {
					it.Status = status
				}
				if err != nil {
					w.logger.Warn("installation interrupted", zap.String("ticket_id", it.TicketID), zap.Error(err))
					it.Note = "installation interrupted"
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	inv.Stage = StageReconciled
	for _, it := range inv.Items {
		if !it.Found || it.TicketID == "" {
			continue
		}
		if it.Status == domain.TicketStatusPendingApproval || it.Status == "" || it.Status == domain.TicketStatusInstalling {
			inv.Stage = StageAwaitingApproval
			break
		}
	}
}

func (w *Workflow) cancel(ctx context.Context, ticket *domain.Ticket) {
	inserted, err := w.tickets.AppendActionOnce(ctx, domain.ActionLogEntry{
		TicketID: ticket.ID,
		Actor:    systemActor,
		Software: ticket.Label(),
		Status:   domain.TicketStatusRejected,
		Action:   domain.ActionInstallationCancelled,
		Details:  "Installation cancelled due to admin rejection",
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.logger.Warn("failed to record cancellation", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
		return
	}
	if inserted {
		w.publish(ctx, events.New(events.EventInstallCancelled, ticket.ID, events.Actor{Type: events.ActorSystem}, nil))
	}
}
