package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/catalog"
	"github.com/spec-kit/provisioning-assistant/internal/config"
	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/events"
	"github.com/spec-kit/provisioning-assistant/internal/parser"
	"github.com/spec-kit/provisioning-assistant/internal/persistence"
	"github.com/spec-kit/provisioning-assistant/internal/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	fail   bool
	tokens map[string]string
}

func (n *recordingNotifier) Notify(_ context.Context, ticket domain.Ticket, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	if n.tokens == nil {
		n.tokens = map[string]string{}
	}
	n.tokens[ticket.Software] = token
	return nil
}

func (n *recordingNotifier) token(software string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[software]
}

type progressLog struct {
	mu    sync.Mutex
	steps map[string][]string
}

func (p *progressLog) record(ticketID, step string, _, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.steps == nil {
		p.steps = map[string][]string{}
	}
	p.steps[ticketID] = append(p.steps[ticketID], step)
}

func (p *progressLog) of(ticketID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.steps[ticketID]...)
}

type staticResponder string

func (s staticResponder) Answer(context.Context, string) (string, error) { return string(s), nil }

type staticClassifier domain.Intent

func (s staticClassifier) Classify(context.Context, string) (domain.Intent, error) {
	return domain.Intent(s), nil
}

type emptyParser struct{}

func (emptyParser) Parse(context.Context, string) []domain.LineItem { return nil }

type harness struct {
	wf        *Workflow
	tickets   repository.TicketStore
	approvals repository.ApprovalRegistry
	notifier  *recordingNotifier
	progress  *progressLog
	ticketDB  *persistence.SQLite
	created   int
	mu        sync.Mutex
}

func openSQLite(t *testing.T, name string) *persistence.SQLite {
	t.Helper()
	ctx := context.Background()
	db, err := persistence.NewSQLite(ctx, config.StoreConfig{SQLitePath: filepath.Join(t.TempDir(), name)}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)
	if err := persistence.RunMigrations(ctx, db.DB, config.StoreDriverSQLite, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newHarness(t *testing.T, mutate func(*Dependencies)) *harness {
	t.Helper()
	ctx := context.Background()

	catalogDB := openSQLite(t, "catalog.db")
	catalogRepo := repository.NewCatalogRepository(catalogDB.DB, repository.DialectSQLite)
	for name, versions := range map[string][]string{
		"Google Chrome":   {"120.0", "121.0"},
		"Mozilla Firefox": {"122.0"},
		"Git":             {"2.43.0"},
		"Python":          {"3.9.18", "3.12.1"},
	} {
		if err := catalogRepo.Upsert(ctx, name, versions); err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}

	ticketDB := openSQLite(t, "tickets.db")
	h := &harness{
		tickets:   repository.NewTicketStore(ticketDB.DB, repository.DialectSQLite, repository.TicketStoreOptions{}, zap.NewNop()),
		approvals: repository.NewApprovalRegistry(ticketDB.DB, repository.DialectSQLite, nil, zap.NewNop()),
		notifier:  &recordingNotifier{},
		progress:  &progressLog{},
		ticketDB:  ticketDB,
	}

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		h.mu.Lock()
		h.created++
		h.mu.Unlock()
		return nil
	})

	deps := Dependencies{
		Parser:     parser.New(nil, nil, zap.NewNop()),
		Responder:  staticResponder("Python is a programming language."),
		Catalog:    catalog.NewService(catalogRepo, nil, zap.NewNop()),
		Tickets:    h.tickets,
		Approvals:  h.approvals,
		Notifier:   h.notifier,
		Dispatcher: dispatcher,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.wf = New(deps, Options{MaxParallelInstalls: 4, Progress: h.progress.record})
	return h
}

func (h *harness) resolve(t *testing.T, software string, decision domain.ApprovalStatus) {
	t.Helper()
	token := h.notifier.token(software)
	if token == "" {
		t.Fatalf("no approval request delivered for %s", software)
	}
	if _, err := h.approvals.Resolve(context.Background(), token, decision, "admin@example.com"); err != nil {
		t.Fatalf("Resolve %s: %v", software, err)
	}
}

func (h *harness) actions(t *testing.T, ticketID string) []string {
	t.Helper()
	entries, err := h.tickets.ListActions(context.Background(), ticketID)
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestRunLineItemIndependence(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	res, err := h.wf.Run(ctx, "alice", "install Chrome and Firefox")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Intent != domain.IntentInstall || len(res.Items) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Items[0].Software != "Google Chrome" || res.Items[0].Version != "121.0" || res.Items[1].Software != "Mozilla Firefox" {
		t.Fatalf("items out of order or unresolved: %+v", res.Items)
	}
	if res.Summary.Pending != 2 || res.Stage != StageAwaitingApproval {
		t.Fatalf("expected two pending tickets, got %+v stage %s", res.Summary, res.Stage)
	}
	if h.created != 2 {
		t.Fatalf("expected 2 ticket_created events, got %d", h.created)
	}

	h.resolve(t, "Google Chrome", domain.ApprovalApproved)

	res, err = h.wf.Refresh(ctx, res.InvocationID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	chrome, firefox := res.Items[0], res.Items[1]
	if chrome.Status != domain.TicketStatusInstalled || chrome.Approval != domain.ApprovalApproved {
		t.Fatalf("chrome should be installed: %+v", chrome)
	}
	if firefox.Status != domain.TicketStatusPendingApproval || firefox.Approval != domain.ApprovalPending {
		t.Fatalf("firefox should still be pending: %+v", firefox)
	}
	if res.Summary.Installed != 1 || res.Summary.Pending != 1 || res.Summary.Total != 2 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}

	if got := h.progress.of(chrome.TicketID); strings.Join(got, "|") != strings.Join(InstallSteps, "|") {
		t.Fatalf("install steps out of order: %v", got)
	}
	if got := h.progress.of(firefox.TicketID); len(got) != 0 {
		t.Fatalf("pending ticket must not install: %v", got)
	}

	want := []string{domain.ActionRequestCreated, domain.ActionAdminApproval, domain.ActionInstallation, domain.ActionCompleted}
	if got := h.actions(t, chrome.TicketID); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected audit trail: %v", got)
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	res, err := h.wf.Run(ctx, "bob", "install git and python 3.9")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Items[1].Version != "3.9.18" {
		t.Fatalf("version hint not resolved: %+v", res.Items[1])
	}
	h.resolve(t, "Git", domain.ApprovalApproved)
	h.resolve(t, "Python", domain.ApprovalRejected)

	for i := 0; i < 3; i++ {
		res, err = h.wf.Refresh(ctx, res.InvocationID)
		if err != nil {
			t.Fatalf("Refresh #%d: %v", i, err)
		}
	}
	if res.Stage != StageReconciled {
		t.Fatalf("expected reconciled, got %s", res.Stage)
	}
	if res.Summary.Installed != 1 || res.Summary.Rejected != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}

	git, python := res.Items[0].TicketID, res.Items[1].TicketID
	if got := h.progress.of(git); len(got) != len(InstallSteps) {
		t.Fatalf("install ran more than once: %v", got)
	}
	wantGit := []string{domain.ActionRequestCreated, domain.ActionAdminApproval, domain.ActionInstallation, domain.ActionCompleted}
	if got := h.actions(t, git); strings.Join(got, "|") != strings.Join(wantGit, "|") {
		t.Fatalf("unexpected git trail: %v", got)
	}
	wantPython := []string{domain.ActionRequestCreated, domain.ActionAdminRejection, domain.ActionInstallationCancelled}
	if got := h.actions(t, python); strings.Join(got, "|") != strings.Join(wantPython, "|") {
		t.Fatalf("unexpected python trail: %v", got)
	}
}

func TestConcurrentRefreshInstallsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	res, err := h.wf.Run(ctx, "carol", "install git")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.resolve(t, "Git", domain.ApprovalApproved)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.wf.Refresh(ctx, res.InvocationID); err != nil {
				t.Errorf("Refresh: %v", err)
			}
		}()
	}
	wg.Wait()

	ticketID := res.Items[0].TicketID
	if got := h.progress.of(ticketID); len(got) != len(InstallSteps) {
		t.Fatalf("expected one install run, got steps %v", got)
	}
	ticket, err := h.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if ticket.Status != domain.TicketStatusInstalled {
		t.Fatalf("expected installed, got %s", ticket.Status)
	}
}

func TestRunDeduplicatesCanonicalNames(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.wf.Run(context.Background(), "alice", "install chrome, chrome, and Google Chrome")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Items) != 1 || res.Summary.Total != 1 || h.created != 1 {
		t.Fatalf("expected exactly one ticket, got %+v", res)
	}
}

func TestRunUnknownSoftware(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.wf.Run(context.Background(), "alice", "install Flibbertigibbet")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stage != StageNothingFound || res.Summary.Total != 0 || h.created != 0 {
		t.Fatalf("expected nothing found, got %+v", res)
	}
	if len(res.Items) != 1 || res.Items[0].Found || !strings.Contains(res.Items[0].Note, "Flibbertigibbet") {
		t.Fatalf("miss not reported per item: %+v", res.Items)
	}
	want := []string{"Git", "Google Chrome", "Mozilla Firefox", "Python"}
	if strings.Join(res.Suggestions, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected suggestions: %v", res.Suggestions)
	}
}

func TestRunPartialCatalogMiss(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.wf.Run(context.Background(), "alice", "install git, Flibbertigibbet and python 2.7")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.Total != 1 || len(res.Items) != 3 {
		t.Fatalf("expected one ticket and three reported items, got %+v", res)
	}
	if !strings.Contains(res.Items[2].Note, "version 2.7") {
		t.Fatalf("version miss not reported: %+v", res.Items[2])
	}
}

func TestRunSimpleIntent(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.wf.Run(context.Background(), "alice", "What is Python?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Intent != domain.IntentSimple || res.Stage != StageAnswered {
		t.Fatalf("expected simple answer, got %+v", res)
	}
	if res.Answer != "Python is a programming language." || len(res.Items) != 0 {
		t.Fatalf("unexpected answer: %+v", res)
	}
}

func TestRunInstallIntentWithoutItems(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) {
		d.Parser = emptyParser{}
		d.Classifier = staticClassifier(domain.IntentInstall)
	})
	res, err := h.wf.Run(context.Background(), "alice", "set me up with something for editing photos")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Intent != domain.IntentInstall || res.Stage != StageNothingFound {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Suggestions) == 0 || len(res.Messages) == 0 {
		t.Fatalf("expected suggestions and a message, got %+v", res)
	}
}

func TestRunNotificationFailureIsNonFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.fail = true

	res, err := h.wf.Run(context.Background(), "alice", "install git")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	item := res.Items[0]
	if item.TicketID == "" || item.Status != domain.TicketStatusPendingApproval || item.Notified {
		t.Fatalf("ticket should exist without notification: %+v", item)
	}
	if len(res.Messages) != 1 || !strings.Contains(res.Messages[0], item.TicketID) {
		t.Fatalf("requester not told about delivery failure: %v", res.Messages)
	}
	want := []string{domain.ActionRequestCreated, domain.ActionNotificationFailed}
	if got := h.actions(t, item.TicketID); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected audit trail: %v", got)
	}
}

func TestRunStoreUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.ticketDB.Close()

	_, err := h.wf.Run(context.Background(), "alice", "install git")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

// flakyStore fails every CreateTicket after the first `ok` calls.
type flakyStore struct {
	repository.TicketStore
	mu    sync.Mutex
	ok    int
	calls int
}

func (f *flakyStore) CreateTicket(ctx context.Context, requester, software, version string) (*domain.Ticket, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n > f.ok {
		return nil, fmt.Errorf("%w: connection reset", domain.ErrStoreUnavailable)
	}
	return f.TicketStore.CreateTicket(ctx, requester, software, version)
}

func TestRunDispatchesTicketsCreatedBeforeStoreFailure(t *testing.T) {
	for _, deliveryFails := range []bool{false, true} {
		t.Run(fmt.Sprintf("delivery_fails=%v", deliveryFails), func(t *testing.T) {
			var store *flakyStore
			h := newHarness(t, func(d *Dependencies) {
				store = &flakyStore{TicketStore: d.Tickets, ok: 1}
				d.Tickets = store
			})
			h.notifier.fail = deliveryFails

			res, err := h.wf.Run(context.Background(), "alice", "install git and chrome")
			if !errors.Is(err, domain.ErrStoreUnavailable) {
				t.Fatalf("expected ErrStoreUnavailable, got %v", err)
			}
			if len(res.Items) != 1 || res.Items[0].Software != "Git" || res.Items[0].TicketID == "" {
				t.Fatalf("created ticket missing from partial result: %+v", res.Items)
			}
			if res.Stage != StageAwaitingApproval || res.Summary.Pending != 1 {
				t.Fatalf("unexpected stage %s summary %+v", res.Stage, res.Summary)
			}
			id := res.Items[0].TicketID
			got := strings.Join(h.actions(t, id), "|")
			if deliveryFails {
				if res.Items[0].Notified || got != domain.ActionRequestCreated+"|"+domain.ActionNotificationFailed {
					t.Fatalf("delivery failure not recorded: notified=%v audit=%s", res.Items[0].Notified, got)
				}
				if !strings.Contains(strings.Join(res.Messages, " "), id) {
					t.Fatalf("requester not given the ticket id: %v", res.Messages)
				}
				return
			}
			if !res.Items[0].Notified || h.notifier.token("Git") == "" {
				t.Fatalf("approver never asked about %s", id)
			}
		})
	}
}

func TestCheckTickets(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	res, err := h.wf.Run(ctx, "alice", "install git")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.resolve(t, "Git", domain.ApprovalApproved)

	checked, err := h.wf.CheckTickets(ctx, "alice", []string{res.Items[0].TicketID, "SNW-19990101-001", res.Items[0].TicketID})
	if err != nil {
		t.Fatalf("CheckTickets: %v", err)
	}
	if len(checked.Items) != 2 {
		t.Fatalf("expected duplicates merged, got %+v", checked.Items)
	}
	if checked.Items[0].Status != domain.TicketStatusInstalled {
		t.Fatalf("approved ticket not installed: %+v", checked.Items[0])
	}
	if checked.Items[1].Found || checked.Items[1].Note != "ticket not found" {
		t.Fatalf("missing ticket not reported: %+v", checked.Items[1])
	}
	if checked.Summary.Total != 1 || checked.Summary.Installed != 1 || checked.Summary.Unknown != 0 {
		t.Fatalf("unexpected summary: %+v", checked.Summary)
	}
}

func TestSummarizeSkipsMissingTickets(t *testing.T) {
	got := summarize([]ItemResult{
		{TicketID: "SNW-20260101-001", Found: true, Status: domain.TicketStatusPendingApproval},
		{TicketID: "SNW-20260101-002", Found: true, Status: "garbled"},
		{TicketID: "SNW-19990101-001", Note: "ticket not found"},
		{Requested: domain.LineItem{Software: "Nope"}, Note: "Nope was not found in the catalog."},
	})
	want := Summary{Total: 2, Pending: 1, Unknown: 1}
	if got != want {
		t.Fatalf("summarize = %+v, want %+v", got, want)
	}
}

func TestRefreshUnknownInvocation(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.wf.Refresh(context.Background(), "missing"); !errors.Is(err, ErrInvocationNotFound) {
		t.Fatalf("expected ErrInvocationNotFound, got %v", err)
	}
}

func TestRunSurvivesUnreachableSessionStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	h := newHarness(t, func(d *Dependencies) {
		d.Sessions = NewRedisStore(client, time.Minute)
	})

	res, err := h.wf.Run(context.Background(), "alice", "install git")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary.Pending != 1 {
		t.Fatalf("ticket should still be created: %+v", res)
	}
	if _, err := h.wf.Refresh(context.Background(), res.InvocationID); err == nil || errors.Is(err, ErrInvocationNotFound) {
		t.Fatalf("expected a store error, got %v", err)
	}
}

func TestInstallHonoursCancellation(t *testing.T) {
	h := newHarness(t, nil)
	h.wf.opts.StepDelay = time.Hour

	res, err := h.wf.Run(context.Background(), "alice", "install git")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.resolve(t, "Git", domain.ApprovalApproved)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err = h.wf.Refresh(ctx, res.InvocationID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.Items[0].Status != domain.TicketStatusInstalling || res.Stage != StageAwaitingApproval {
		t.Fatalf("interrupted install should stay installing: %+v", res)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	inv := &Invocation{ID: "inv-1", Requester: "alice", Items: []ItemResult{{TicketID: "SNW-20260314-001", Found: true}}}
	if err := store.Save(ctx, inv); err != nil {
		t.Fatalf("Save: %v", err)
	}
	inv.Requester = "mutated"
	got, err := store.Load(ctx, "inv-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Requester != "alice" || fmt.Sprint(got.TicketIDs()) != "[SNW-20260314-001]" {
		t.Fatalf("unexpected invocation: %+v", got)
	}
}
