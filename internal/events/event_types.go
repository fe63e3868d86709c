package events

import (
	"time"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventApprovalResolved   EventType = "approval_resolved"
	EventInstallStep        EventType = "install_step"
	EventInstallCompleted   EventType = "install_completed"
	EventInstallCancelled   EventType = "install_cancelled"
	EventNotificationFailed EventType = "notification_failed"
	EventInvalidToken       EventType = "invalid_token"
	EventCatalogMiss        EventType = "catalog_miss"
)

// Actor types carried on events.
const (
	ActorRequester = "requester"
	ActorApprover  = "approver"
	ActorSystem    = "system"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Software string `json:"software"`
	Version  string `json:"version"`
}

// ApprovalResolvedPayload payload.
type ApprovalResolvedPayload struct {
	Decision domain.ApprovalStatus `json:"decision"`
	Software string                `json:"software,omitempty"`
}

// InstallStepPayload payload.
type InstallStepPayload struct {
	Step  string `json:"step"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

// NotificationFailedPayload payload.
type NotificationFailedPayload struct {
	Reason string `json:"reason"`
}

// CatalogMissPayload payload.
type CatalogMissPayload struct {
	Software string `json:"software"`
	Version  string `json:"version"`
}
