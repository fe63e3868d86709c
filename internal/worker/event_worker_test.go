package worker

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/events"
)

type countingMetrics struct {
	created, completed, cancelled, failed, invalid, misses int
	decisions                                             []string
}

func (c *countingMetrics) TicketCreated()            { c.created++ }
func (c *countingMetrics) ApprovalResolved(d string) { c.decisions = append(c.decisions, d) }
func (c *countingMetrics) InstallCompleted()         { c.completed++ }
func (c *countingMetrics) InstallCancelled()         { c.cancelled++ }
func (c *countingMetrics) NotificationFailed()       { c.failed++ }
func (c *countingMetrics) InvalidToken()             { c.invalid++ }
func (c *countingMetrics) CatalogMiss()              { c.misses++ }

func TestMetricsWorker(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	m := &countingMetrics{}
	StartMetricsWorker(d, m)

	ctx := context.Background()
	actor := events.Actor{Type: events.ActorSystem}
	_ = d.Publish(ctx, events.New(events.EventTicketCreated, "T-1", actor, nil))
	_ = d.Publish(ctx, events.New(events.EventTicketCreated, "T-2", actor, nil))
	_ = d.Publish(ctx, events.New(events.EventApprovalResolved, "T-1", actor, events.ApprovalResolvedPayload{Decision: domain.ApprovalApproved}))
	_ = d.Publish(ctx, events.New(events.EventInstallCompleted, "T-1", actor, nil))
	_ = d.Publish(ctx, events.New(events.EventInvalidToken, "", actor, nil))

	if m.created != 2 || m.completed != 1 || m.invalid != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if len(m.decisions) != 1 || m.decisions[0] != "approved" {
		t.Fatalf("unexpected decisions: %v", m.decisions)
	}
}

func TestAuditWorkerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := events.NewInMemoryDispatcher()
	StartAuditWorker(d, zap.New(core))

	ctx := context.Background()
	_ = d.Publish(ctx, events.New(events.EventNotificationFailed, "T-1", events.Actor{Type: events.ActorSystem}, events.NotificationFailedPayload{Reason: "smtp down"}))
	_ = d.Publish(ctx, events.New(events.EventTicketCreated, "T-2", events.Actor{Type: events.ActorRequester, ID: "alice"}, nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("notification failure should warn, got %v", entries[0].Level)
	}
	if entries[1].ContextMap()["actor_id"] != "alice" {
		t.Fatalf("actor id missing: %v", entries[1].ContextMap())
	}
}
