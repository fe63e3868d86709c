package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spec-kit/provisioning-assistant/internal/config"
	"github.com/spec-kit/provisioning-assistant/internal/domain"
)

// Channel is a named delivery path.
type Channel struct {
	Name     string
	Notifier Notifier
}

// Fanout delivers through every channel concurrently and succeeds when any channel delivers.
type Fanout struct {
	channels []Channel
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewFanout builds a Fanout. A nil limiter disables rate limiting.
func NewFanout(limiter *rate.Limiter, logger *zap.Logger, channels ...Channel) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{channels: channels, limiter: limiter, logger: logger}
}

// FromConfig wires every channel that has credentials configured.
func FromConfig(cfg config.NotificationConfig, baseURL string, logger *zap.Logger) *Fanout {
	var channels []Channel
	if cfg.SMTPEnabled() {
		channels = append(channels, Channel{Name: "email", Notifier: NewEmailNotifier(EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			To:       cfg.ApproverEmail,
			BaseURL:  baseURL,
		}, nil)})
	}
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, Channel{Name: "slack", Notifier: &SlackNotifier{WebhookURL: cfg.SlackWebhookURL, BaseURL: baseURL}})
	}
	if cfg.ServiceNowEnabled() {
		channels = append(channels, Channel{Name: "servicenow", Notifier: &ServiceNowNotifier{
			Instance: cfg.ServiceNowInstance,
			User:     cfg.ServiceNowUser,
			Password: cfg.ServiceNowPassword,
			BaseURL:  baseURL,
			Logger:   logger,
		}})
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	if len(channels) == 0 {
		logger.Warn("no notification channel configured; approval requests will not be delivered")
	}
	return NewFanout(limiter, logger, channels...)
}

// Channels lists configured channel names.
func (f *Fanout) Channels() []string {
	names := make([]string, 0, len(f.channels))
	for _, c := range f.channels {
		names = append(names, c.Name)
	}
	return names
}

func (f *Fanout) Notify(ctx context.Context, ticket domain.Ticket, token string) error {
	if len(f.channels) == 0 {
		return ErrNotConfigured
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
		}
	}

	var (
		g         errgroup.Group
		mu        sync.Mutex
		delivered int
		failures  []error
	)
	for _, ch := range f.channels {
		g.Go(func() error {
			err := ch.Notifier.Notify(ctx, ticket, token)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Errorf("%s: %w", ch.Name, err))
				f.logger.Warn("approval channel failed",
					zap.String("channel", ch.Name),
					zap.String("ticket_id", ticket.ID),
					zap.Error(err))
				return nil
			}
			delivered++
			return nil
		})
	}
	_ = g.Wait()

	if delivered > 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDeliveryFailed, errors.Join(failures...))
}
