package notify

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

var (
	ErrNotConfigured  = errors.New("notifier not configured")
	ErrDeliveryFailed = errors.New("approval request not delivered")
)

// Notifier delivers an approval request for one ticket. A nil error means delivered.
type Notifier interface {
	Notify(ctx context.Context, ticket domain.Ticket, token string) error
}

// Links are the two callback URLs bound to a token.
type Links struct {
	Approve string
	Reject  string
}

// BuildLinks renders approve and reject callback URLs under baseURL.
func BuildLinks(baseURL, token string) Links {
	base := strings.TrimRight(baseURL, "/")
	q := url.QueryEscape(token)
	return Links{
		Approve: base + "/approvals/" + domain.ActionApprove + "?token=" + q,
		Reject:  base + "/approvals/" + domain.ActionReject + "?token=" + q,
	}
}
