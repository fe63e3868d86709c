package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/provisioning-assistant/internal/catalog"
	"github.com/spec-kit/provisioning-assistant/internal/conversation"
	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/events"
	"github.com/spec-kit/provisioning-assistant/internal/ids"
	"github.com/spec-kit/provisioning-assistant/internal/notify"
	"github.com/spec-kit/provisioning-assistant/internal/repository"
)

// LineItemParser extracts software requests from a prompt.
type LineItemParser interface {
	Parse(ctx context.Context, prompt string) []domain.LineItem
}

// Classifier labels a prompt the parser could not turn into line items.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Intent, error)
}

// Responder answers prompts that are not install requests.
type Responder interface {
	Answer(ctx context.Context, text string) (string, error)
}

// Dependencies bundles collaborators for the workflow.
type Dependencies struct {
	Parser     LineItemParser
	Classifier Classifier
	Responder  Responder
	Catalog    catalog.Lookup
	Tickets    repository.TicketStore
	Approvals  repository.ApprovalRegistry
	Notifier   notify.Notifier
	Sessions   InvocationStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// Options tunes the workflow.
type Options struct {
	StepDelay           time.Duration
	MaxParallelInstalls int
	SuggestionLimit     int
	Progress            ProgressFunc
	Now                 func() time.Time
}

// Workflow drives one prompt from classification to reconciliation.
type Workflow struct {
	parser     LineItemParser
	classifier Classifier
	responder  Responder
	catalog    catalog.Lookup
	tickets    repository.TicketStore
	approvals  repository.ApprovalRegistry
	notifier   notify.Notifier
	sessions   InvocationStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	opts       Options
}

// New creates a workflow.
func New(deps Dependencies, opts Options) *Workflow {
	if deps.Classifier == nil {
		deps.Classifier = conversation.KeywordClassifier{}
	}
	if deps.Responder == nil {
		deps.Responder = conversation.CannedResponder{}
	}
	if deps.Sessions == nil {
		deps.Sessions = NewMemoryStore()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = events.NewInMemoryDispatcher()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.MaxParallelInstalls <= 0 {
		opts.MaxParallelInstalls = 1
	}
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Workflow{
		parser:     deps.Parser,
		classifier: deps.Classifier,
		responder:  deps.Responder,
		catalog:    deps.Catalog,
		tickets:    deps.Tickets,
		approvals:  deps.Approvals,
		notifier:   deps.Notifier,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		opts:       opts,
	}
}

// Run handles a freshly submitted prompt.
func (w *Workflow) Run(ctx context.Context, requester, prompt string) (Result, error) {
	requester = strings.TrimSpace(requester)
	if requester == "" {
		requester = "anonymous"
	}
	now := w.opts.Now().UTC()
	inv := &Invocation{
		ID:        ids.New(),
		Requester: requester,
		Prompt:    prompt,
		Stage:     StageClassifying,
		CreatedAt: now,
		UpdatedAt: now,
	}

	items := w.parser.Parse(ctx, prompt)
	inv.Intent = w.classify(ctx, prompt, items)

	switch {
	case inv.Intent == domain.IntentSimple:
		inv.Answer = w.answer(ctx, prompt)
		inv.Stage = StageAnswered
	case len(items) == 0:
		inv.Stage = StageNothingFound
		inv.Messages = append(inv.Messages, "No specific software was recognized in your request.")
		inv.Suggestions = w.catalog.Suggestions(ctx, w.opts.SuggestionLimit)
	default:
		if err := w.ticket(ctx, inv, items); err != nil {
			if len(inv.TicketIDs()) > 0 {
				inv.Stage = StageAwaitingApproval
			}
			inv.Messages = append(inv.Messages, "The request could not be completed because the ticket store is unavailable.")
			w.save(ctx, inv)
			return inv.result(), err
		}
		if len(inv.TicketIDs()) == 0 {
			inv.Stage = StageNothingFound
			inv.Messages = append(inv.Messages, "None of the requested software was found in the catalog.")
			inv.Suggestions = w.catalog.Suggestions(ctx, w.opts.SuggestionLimit)
		} else {
			w.check(ctx, inv)
		}
	}

	w.logger.Info("workflow invocation",
		zap.String("invocation_id", inv.ID),
		zap.String("requester", requester),
		zap.String("intent", string(inv.Intent)),
		zap.String("stage", string(inv.Stage)),
		zap.Strings("tickets", inv.TicketIDs()))
	w.save(ctx, inv)
	return inv.result(), nil
}

// Refresh re-reads approval state for a stored invocation and installs what was approved.
func (w *Workflow) Refresh(ctx context.Context, invocationID string) (Result, error) {
	inv, err := w.sessions.Load(ctx, invocationID)
	if err != nil {
		return Result{}, err
	}
	if len(inv.TicketIDs()) > 0 {
		w.check(ctx, inv)
		w.save(ctx, inv)
	}
	return inv.result(), nil
}

// CheckTickets runs the approval check over explicit ticket ids without a stored invocation.
func (w *Workflow) CheckTickets(ctx context.Context, requester string, ticketIDs []string) (Result, error) {
	inv := &Invocation{
		Requester: requester,
		Intent:    domain.IntentInstall,
		Stage:     StageAwaitingApproval,
	}
	seen := make(map[string]struct{}, len(ticketIDs))
	for _, id := range ticketIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ticket, err := w.tickets.GetTicket(ctx, id)
		switch {
		case errors.Is(err, domain.ErrTicketNotFound):
			inv.Items = append(inv.Items, ItemResult{TicketID: id, Note: "ticket not found"})
			continue
		case err != nil:
			return Result{}, err
		}
		inv.Items = append(inv.Items, ItemResult{
			Requested: domain.LineItem{Software: ticket.Software, Version: ticket.Version},
			Software:  ticket.Software,
			Version:   ticket.Version,
			Found:     true,
			TicketID:  ticket.ID,
			Status:    ticket.Status,
		})
	}
	w.check(ctx, inv)
	return inv.result(), nil
}

func (w *Workflow) classify(ctx context.Context, prompt string, items []domain.LineItem) domain.Intent {
	if len(items) > 0 {
		return domain.IntentInstall
	}
	if strings.TrimSpace(prompt) == "" {
		return domain.IntentSimple
	}
	intent, err := w.classifier.Classify(ctx, prompt)
	if err != nil {
		w.logger.Warn("intent classification failed", zap.Error(err))
		return domain.IntentSimple
	}
	if intent != domain.IntentInstall {
		return domain.IntentSimple
	}
	return intent
}

func (w *Workflow) answer(ctx context.Context, prompt string) string {
	answer, err := w.responder.Answer(ctx, prompt)
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			w.logger.Warn("conversational answer failed", zap.Error(err))
		}
		return conversation.HelpText
	}
	return answer
}

// ticket resolves items against the catalog, raises one ticket per distinct
// canonical name and dispatches approval requests. When a create fails the
// remaining items are skipped, but tickets already raised are still dispatched
// before the error is returned.
func (w *Workflow) ticket(ctx context.Context, inv *Invocation, items []domain.LineItem) error {
	actor := events.Actor{Type: events.ActorRequester, ID: inv.Requester}
	seen := make(map[string]struct{}, len(items))
	var created []*domain.Ticket
	var createdIdx []int
	var createErr error

	for _, item := range items {
		item = item.Normalized()
		sw, version, err := w.catalog.Resolve(ctx, item)
		if err != nil {
			note := fmt.Sprintf("%s was not found in the catalog.", item.Software)
			if sw.Name != "" {
				note = fmt.Sprintf("%s version %s was not found in the catalog.", sw.Name, item.Version)
			}
			inv.Items = append(inv.Items, ItemResult{Requested: item, Software: sw.Name, Note: note})
			inv.Messages = append(inv.Messages, note)
			w.publish(ctx, events.New(events.EventCatalogMiss, "", actor, events.CatalogMissPayload{
				Software: item.Software,
				Version:  item.Version,
			}))
			continue
		}

		key := strings.ToLower(sw.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		ticket, err := w.tickets.CreateTicket(ctx, inv.Requester, sw.Name, version)
		if err != nil {
			w.logger.Error("ticket creation failed",
				zap.String("software", sw.Name),
				zap.String("requester", inv.Requester),
				zap.Error(err))
			createErr = err
			break
		}
		w.publish(ctx, events.New(events.EventTicketCreated, ticket.ID, actor, events.TicketCreatedPayload{
			Software: ticket.Software,
			Version:  ticket.Version,
		}))

		inv.Items = append(inv.Items, ItemResult{
			Requested: item,
			Software:  ticket.Software,
			Version:   ticket.Version,
			Found:     true,
			TicketID:  ticket.ID,
			Status:    ticket.Status,
			Approval:  domain.ApprovalPending,
		})
		created = append(created, ticket)
		createdIdx = append(createdIdx, len(inv.Items)-1)
	}

	delivered := w.dispatchApprovals(ctx, created)
	for i, idx := range createdIdx {
		inv.Items[idx].Notified = delivered[i]
		if !delivered[i] {
			inv.Messages = append(inv.Messages, fmt.Sprintf(
				"The approval request for %s could not be delivered. Quote ticket %s when following up.",
				created[i].Label(), created[i].ID))
		}
	}
	return createErr
}

// dispatchApprovals notifies the approver for every ticket concurrently.
func (w *Workflow) dispatchApprovals(ctx context.Context, tickets []*domain.Ticket) []bool {
	delivered := make([]bool, len(tickets))
	if w.notifier == nil {
		for _, t := range tickets {
			w.notificationFailed(ctx, t, notify.ErrNotConfigured)
		}
		return delivered
	}

	var g errgroup.Group
	for i, t := range tickets {
		g.Go(func() error {
			if err := w.notifier.Notify(ctx, *t, t.ApprovalToken); err != nil {
				w.notificationFailed(ctx, t, err)
				return nil
			}
			delivered[i] = true
			return nil
		})
	}
	_ = g.Wait()
	return delivered
}

func (w *Workflow) notificationFailed(ctx context.Context, t *domain.Ticket, cause error) {
	w.logger.Warn("approval notification failed", zap.String("ticket_id", t.ID), zap.Error(cause))
	w.tickets.AppendAction(ctx, domain.ActionLogEntry{
		TicketID: t.ID,
		Actor:    systemActor,
		Software: t.Label(),
		Status:   t.Status,
		Action:   domain.ActionNotificationFailed,
		Details:  fmt.Sprintf("Approval request could not be delivered: %v", cause),
	})
	w.publish(ctx, events.New(events.EventNotificationFailed, t.ID, events.Actor{Type: events.ActorSystem}, events.NotificationFailedPayload{
		Reason: cause.Error(),
	}))
}

func (w *Workflow) save(ctx context.Context, inv *Invocation) {
	if inv.ID == "" {
		return
	}
	inv.UpdatedAt = w.opts.Now().UTC()
	if err := w.sessions.Save(ctx, inv); err != nil {
		w.logger.Warn("failed to save invocation", zap.String("invocation_id", inv.ID), zap.Error(err))
	}
}

func (w *Workflow) publish(ctx context.Context, e events.Event) {
	if err := w.dispatcher.Publish(ctx, e); err != nil {
		w.logger.Debug("event handler failed", zap.String("event_type", string(e.Type)), zap.Error(err))
	}
}
