package workflow

import (
	"time"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// Stage is where an invocation currently stands.
type Stage string

const (
	StageClassifying      Stage = "classifying"
	StageAnswered         Stage = "answered"
	StageNothingFound     Stage = "nothing_found"
	StageAwaitingApproval Stage = "awaiting_approval"
	StageReconciled       Stage = "reconciled"
)

// ItemResult reports one extracted line item and the ticket raised for it.
type ItemResult struct {
	Requested domain.LineItem       `json:"requested"`
	Software  string                `json:"software,omitempty"`
	Version   string                `json:"version,omitempty"`
	Found     bool                  `json:"found"`
	TicketID  string                `json:"ticket_id,omitempty"`
	Status    domain.TicketStatus   `json:"status,omitempty"`
	Approval  domain.ApprovalStatus `json:"approval,omitempty"`
	Notified  bool                  `json:"notified"`
	Note      string                `json:"note,omitempty"`
}

// Summary counts tickets of one invocation by status.
type Summary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	Installing int `json:"installing"`
	Installed  int `json:"installed"`
	Unknown    int `json:"unknown"`
}

// Invocation is the persisted record of one submitted prompt.
type Invocation struct {
	ID          string        `json:"id"`
	Requester   string        `json:"requester"`
	Prompt      string        `json:"prompt"`
	Intent      domain.Intent `json:"intent"`
	Stage       Stage         `json:"stage"`
	Answer      string        `json:"answer,omitempty"`
	Items       []ItemResult  `json:"items,omitempty"`
	Suggestions []string      `json:"suggestions,omitempty"`
	Messages    []string      `json:"messages,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Result is what callers of the workflow see.
type Result struct {
	InvocationID string        `json:"invocation_id,omitempty"`
	Intent       domain.Intent `json:"intent"`
	Stage        Stage         `json:"stage"`
	Answer       string        `json:"answer,omitempty"`
	Items        []ItemResult  `json:"items,omitempty"`
	Summary      Summary       `json:"summary"`
	Suggestions  []string      `json:"suggestions,omitempty"`
	Messages     []string      `json:"messages,omitempty"`
}

// TicketIDs lists the tickets raised by the invocation in item order.
func (inv *Invocation) TicketIDs() []string {
	var out []string
	for _, it := range inv.Items {
		if it.TicketID != "" {
			out = append(out, it.TicketID)
		}
	}
	return out
}

func (inv *Invocation) result() Result {
	return Result{
		InvocationID: inv.ID,
		Intent:       inv.Intent,
		Stage:        inv.Stage,
		Answer:       inv.Answer,
		Items:        inv.Items,
		Summary:      summarize(inv.Items),
		Suggestions:  inv.Suggestions,
		Messages:     inv.Messages,
	}
}

// summarize counts tickets that exist; ids reported as not found are skipped.
func summarize(items []ItemResult) Summary {
	var s Summary
	for _, it := range items {
		if it.TicketID == "" || !it.Found {
			continue
		}
		s.Total++
		switch it.Status {
		case domain.TicketStatusPendingApproval:
			s.Pending++
		case domain.TicketStatusApproved:
			s.Approved++
		case domain.TicketStatusRejected:
			s.Rejected++
		case domain.TicketStatusInstalling:
			s.Installing++
		case domain.TicketStatusInstalled:
			s.Installed++
		default:
			s.Unknown++
		}
	}
	return s
}
