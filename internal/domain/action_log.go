package domain

import "time"

// Audit actions written to the action log.
const (
	ActionRequestCreated        = "Request Created"
	ActionAdminApproval         = "Admin Approval"
	ActionAdminRejection        = "Admin Rejection"
	ActionInstallation          = "Installation"
	ActionCompleted             = "Completed"
	ActionInstallationCancelled = "Installation Cancelled"
	ActionNotificationFailed    = "Notification Failed"
)

// ActionLogEntry is an immutable audit trail entry.
type ActionLogEntry struct {
	ID        string
	TicketID  string
	Actor     string
	Software  string
	Status    TicketStatus
	Action    string
	Details   string
	CreatedAt time.Time
}
