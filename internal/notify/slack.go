package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// BuildApprovalCard returns Slack Block Kit JSON with approve and reject URL buttons.
func BuildApprovalCard(ticket domain.Ticket, links Links) ([]byte, error) {
	blocks := []map[string]any{
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": "*Software installation approval required*",
			},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": "*Ticket*\n" + ticket.ID},
				{"type": "mrkdwn", "text": "*Requester*\n" + ticket.Requester},
				{"type": "mrkdwn", "text": "*Software*\n" + ticket.Software},
				{"type": "mrkdwn", "text": "*Version*\n" + ticket.Version},
			},
		},
		{
			"type": "actions",
			"elements": []map[string]any{
				{
					"type":      "button",
					"text":      map[string]any{"type": "plain_text", "text": "Approve"},
					"style":     "primary",
					"action_id": domain.ActionApprove,
					"url":       links.Approve,
				},
				{
					"type":      "button",
					"text":      map[string]any{"type": "plain_text", "text": "Reject"},
					"style":     "danger",
					"action_id": domain.ActionReject,
					"url":       links.Reject,
				},
			},
		},
	}

	payload := map[string]any{
		"text":   fmt.Sprintf("Approval required for %s (%s)", ticket.Label(), ticket.ID),
		"blocks": blocks,
	}
	return json.Marshal(payload)
}

// SlackNotifier posts the approval card to an incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	BaseURL    string
	HTTP       *http.Client
}

func (s *SlackNotifier) Notify(ctx context.Context, ticket domain.Ticket, token string) error {
	if s.WebhookURL == "" {
		return ErrNotConfigured
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	body, err := BuildApprovalCard(ticket, BuildLinks(s.BaseURL, token))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack card: %w", err)
	}
	defer res.Body.Close()

	reply, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook http %d: %s", res.StatusCode, strings.TrimSpace(string(reply)))
	}
	return nil
}
