package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// ServiceNowNotifier mirrors each ticket as an incident carrying both callback links.
type ServiceNowNotifier struct {
	Instance string
	User     string
	Password string
	BaseURL  string
	HTTP     *http.Client
	Logger   *zap.Logger
}

type incidentRequest struct {
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	CallerID         string `json:"caller_id"`
	Category         string `json:"category"`
	Urgency          string `json:"urgency"`
	Impact           string `json:"impact"`
	CorrelationID    string `json:"correlation_id"`
}

type incidentResponse struct {
	Result struct {
		Number string `json:"number"`
		SysID  string `json:"sys_id"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *ServiceNowNotifier) Notify(ctx context.Context, ticket domain.Ticket, token string) error {
	if s.Instance == "" || s.User == "" {
		return ErrNotConfigured
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	links := BuildLinks(s.BaseURL, token)
	caller := ticket.Requester
	if caller == "" {
		caller = "Guest"
	}
	payload, err := json.Marshal(incidentRequest{
		ShortDescription: fmt.Sprintf("Installation of %s", ticket.Label()),
		Description: fmt.Sprintf("Ticket %s requested by %s.\nApprove: %s\nReject: %s",
			ticket.ID, caller, links.Approve, links.Reject),
		CallerID:      caller,
		Category:      "software",
		Urgency:       "3",
		Impact:        "3",
		CorrelationID: ticket.ID,
	})
	if err != nil {
		return err
	}

	url := strings.TrimRight(s.Instance, "/") + "/api/now/table/incident"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.User, s.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	defer res.Body.Close()

	var decoded incidentResponse
	_ = json.NewDecoder(res.Body).Decode(&decoded)
	if res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusOK {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return fmt.Errorf("servicenow http %d: %s", res.StatusCode, decoded.Error.Message)
		}
		return fmt.Errorf("servicenow http %d", res.StatusCode)
	}

	if s.Logger != nil {
		s.Logger.Info("servicenow incident created",
			zap.String("ticket_id", ticket.ID),
			zap.String("incident", decoded.Result.Number))
	}
	return nil
}
