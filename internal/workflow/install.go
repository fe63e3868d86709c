package workflow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/events"
)

// InstallSteps is the fixed order of the simulated installation.
var InstallSteps = []string{
	"Queueing job",
	"Checking prerequisites",
	"Downloading",
	"Installing",
	"Configuring",
	"Finalizing",
}

// ProgressFunc observes installation steps as they run. index is 1 based.
type ProgressFunc func(ticketID, step string, index, total int)

// install claims an approved ticket and runs the simulated installation.
// It returns the status the ticket ended in.
func (w *Workflow) install(ctx context.Context, ticketID, software, version string) (domain.TicketStatus, error) {
	label := domain.Ticket{Software: software, Version: version}.Label()

	if err := w.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusInstalling); err != nil {
		if !errors.Is(err, domain.ErrInvalidTransition) {
			return "", err
		}
		// another poller claimed the ticket first
		current, gerr := w.tickets.GetTicket(ctx, ticketID)
		if gerr != nil {
			return "", gerr
		}
		return current.Status, nil
	}
	w.tickets.AppendAction(ctx, domain.ActionLogEntry{
		TicketID: ticketID,
		Actor:    systemActor,
		Software: label,
		Status:   domain.TicketStatusInstalling,
		Action:   domain.ActionInstallation,
		Details:  "Installation initialized after admin approval",
	})

	total := len(InstallSteps)
	actor := events.Actor{Type: events.ActorSystem}
	for i, step := range InstallSteps {
		w.logger.Info("install step",
			zap.String("ticket_id", ticketID),
			zap.String("step", step),
			zap.Int("index", i+1),
			zap.Int("total", total))
		if w.opts.Progress != nil {
			w.opts.Progress(ticketID, step, i+1, total)
		}
		w.publish(ctx, events.New(events.EventInstallStep, ticketID, actor, events.InstallStepPayload{
			Step:  step,
			Index: i + 1,
			Total: total,
		}))
		if err := sleep(ctx, w.opts.StepDelay); err != nil {
			return domain.TicketStatusInstalling, err
		}
	}

	if err := w.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusInstalled); err != nil {
		return domain.TicketStatusInstalling, err
	}
	if _, err := w.tickets.AppendActionOnce(ctx, domain.ActionLogEntry{
		TicketID: ticketID,
		Actor:    systemActor,
		Software: label,
		Status:   domain.TicketStatusInstalled,
		Action:   domain.ActionCompleted,
		Details:  "Installation completed successfully",
	}); err != nil {
		w.logger.Warn("failed to record completion", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	w.publish(ctx, events.New(events.EventInstallCompleted, ticketID, actor, nil))
	return domain.TicketStatusInstalled, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
