package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/events"
)

// MetricsRecorder is the subset of observability.Metrics driven by events.
type MetricsRecorder interface {
	TicketCreated()
	ApprovalResolved(decision string)
	InstallCompleted()
	InstallCancelled()
	NotificationFailed()
	InvalidToken()
	CatalogMiss()
}

// StartMetricsWorker maps domain events onto metric counters.
func StartMetricsWorker(dispatcher events.Dispatcher, metrics MetricsRecorder) {
	if dispatcher == nil || metrics == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		metrics.TicketCreated()
		return nil
	})
	dispatcher.Subscribe(events.EventApprovalResolved, func(_ context.Context, e events.Event) error {
		decision := "unknown"
		if p, ok := e.Payload.(events.ApprovalResolvedPayload); ok {
			decision = string(p.Decision)
		}
		metrics.ApprovalResolved(decision)
		return nil
	})
	dispatcher.Subscribe(events.EventInstallCompleted, func(context.Context, events.Event) error {
		metrics.InstallCompleted()
		return nil
	})
	dispatcher.Subscribe(events.EventInstallCancelled, func(context.Context, events.Event) error {
		metrics.InstallCancelled()
		return nil
	})
	dispatcher.Subscribe(events.EventNotificationFailed, func(context.Context, events.Event) error {
		metrics.NotificationFailed()
		return nil
	})
	dispatcher.Subscribe(events.EventInvalidToken, func(context.Context, events.Event) error {
		metrics.InvalidToken()
		return nil
	})
	dispatcher.Subscribe(events.EventCatalogMiss, func(context.Context, events.Event) error {
		metrics.CatalogMiss()
		return nil
	})
}

// StartAuditWorker writes one structured log line per domain event.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	handler := func(_ context.Context, e events.Event) error {
		fields := []zap.Field{
			zap.String("event_id", e.ID),
			zap.String("event_type", string(e.Type)),
			zap.String("actor_type", e.Actor.Type),
			zap.Time("timestamp", e.Timestamp),
		}
		if e.TicketID != "" {
			fields = append(fields, zap.String("ticket_id", e.TicketID))
		}
		if e.Actor.ID != "" {
			fields = append(fields, zap.String("actor_id", e.Actor.ID))
		}
		if e.Payload != nil {
			fields = append(fields, zap.Any("payload", e.Payload))
		}
		switch e.Type {
		case events.EventNotificationFailed, events.EventInvalidToken:
			logger.Warn("domain event", fields...)
		case events.EventInstallStep:
			logger.Debug("domain event", fields...)
		default:
			logger.Info("domain event", fields...)
		}
		return nil
	}
	for _, t := range []events.EventType{
		events.EventTicketCreated,
		events.EventApprovalResolved,
		events.EventInstallStep,
		events.EventInstallCompleted,
		events.EventInstallCancelled,
		events.EventNotificationFailed,
		events.EventInvalidToken,
		events.EventCatalogMiss,
	} {
		dispatcher.Subscribe(t, handler)
	}
}
