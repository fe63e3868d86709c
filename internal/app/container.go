package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/catalog"
	"github.com/spec-kit/provisioning-assistant/internal/config"
	"github.com/spec-kit/provisioning-assistant/internal/conversation"
	"github.com/spec-kit/provisioning-assistant/internal/events"
	"github.com/spec-kit/provisioning-assistant/internal/llm"
	"github.com/spec-kit/provisioning-assistant/internal/notify"
	"github.com/spec-kit/provisioning-assistant/internal/observability"
	"github.com/spec-kit/provisioning-assistant/internal/parser"
	"github.com/spec-kit/provisioning-assistant/internal/persistence"
	"github.com/spec-kit/provisioning-assistant/internal/repository"
	"github.com/spec-kit/provisioning-assistant/internal/service"
	"github.com/spec-kit/provisioning-assistant/internal/worker"
	"github.com/spec-kit/provisioning-assistant/internal/workflow"
)

// Container holds the wired components shared by the server and the CLI.
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      *persistence.Store
	Redis      *persistence.Redis
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher

	Tickets     repository.TicketStore
	Approvals   repository.ApprovalRegistry
	Approvers   repository.ApproverRepository
	CatalogRepo repository.CatalogRepository

	Catalog  *catalog.Service
	Parser   *parser.Parser
	Notifier *notify.Fanout
	Workflow *workflow.Workflow

	ApprovalService *service.ApprovalService
	TicketService   *service.TicketService
	AuthService     *service.AuthService
}

// Options adjusts wiring for a particular entry point.
type Options struct {
	Progress workflow.ProgressFunc
}

// New opens the store and wires every component from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Container, error) {
	store, err := persistence.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	dialect, err := repository.ParseDialect(store.Driver)
	if err != nil {
		store.Close()
		return nil, err
	}

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Metrics:    observability.NewMetrics(),
		Dispatcher: events.NewInMemoryDispatcher(),
	}
	worker.StartMetricsWorker(c.Dispatcher, c.Metrics)
	worker.StartAuditWorker(c.Dispatcher, logger.Named("audit"))

	c.Tickets = repository.NewTicketStore(store.DB, dialect, repository.TicketStoreOptions{Prefix: cfg.Workflow.TicketPrefix}, logger)
	c.Approvals = repository.NewApprovalRegistry(store.DB, dialect, nil, logger)
	c.Approvers = repository.NewApproverRepository(store.DB, dialect)
	c.CatalogRepo = repository.NewCatalogRepository(store.DB, dialect)

	var (
		cache    catalog.Cache = catalog.NopCache()
		sessions workflow.InvocationStore
	)
	if cfg.Redis.Addr != "" {
		c.Redis = persistence.NewRedis(cfg.Redis)
		if err := c.Redis.Ping(ctx); err == nil {
			logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
			cache = catalog.NewRedisCache(c.Redis.Client, cfg.Redis.CatalogCacheTTL, logger)
			sessions = workflow.NewRedisStore(c.Redis.Client, cfg.Redis.SessionTTL)
		} else {
			logger.Warn("redis unavailable; using in-memory sessions and no catalog cache", zap.Error(err))
		}
	}
	if sessions == nil {
		sessions = workflow.NewMemoryStore()
	}
	c.Catalog = catalog.NewService(c.CatalogRepo, cache, logger)

	aliases := parser.DefaultAliases()
	if cfg.Catalog.SeedPath != "" {
		seed, err := catalog.LoadSeedFile(cfg.Catalog.SeedPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("load catalog seed: %w", err)
		}
		n, err := seed.Apply(ctx, c.CatalogRepo)
		if err != nil {
			c.Close()
			return nil, err
		}
		aliases = aliases.Merge(seed.Aliases())
		logger.Info("catalog seed applied", zap.String("path", cfg.Catalog.SeedPath), zap.Int("products", n))
	}

	var (
		extractor  parser.Extractor
		classifier workflow.Classifier = conversation.KeywordClassifier{}
		responder  workflow.Responder  = conversation.CannedResponder{}
	)
	if cfg.LLM.Enabled() {
		client := llm.NewOpenAI(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.Timeout())
		extractor = parser.NewLLMExtractor(client, cfg.LLM.Model, c.Catalog)
		classifier = conversation.NewLLMClassifier(client, cfg.LLM.Model)
		responder = conversation.NewLLMResponder(client, cfg.LLM.Model)
		logger.Info("llm tier enabled", zap.String("model", cfg.LLM.Model))
	}
	c.Parser = parser.New(extractor, aliases, logger)
	c.Notifier = notify.FromConfig(cfg.Notification, cfg.App.PublicBaseURL, logger)

	c.Workflow = workflow.New(workflow.Dependencies{
		Parser:     c.Parser,
		Classifier: classifier,
		Responder:  responder,
		Catalog:    c.Catalog,
		Tickets:    c.Tickets,
		Approvals:  c.Approvals,
		Notifier:   c.Notifier,
		Sessions:   sessions,
		Dispatcher: c.Dispatcher,
		Logger:     logger,
	}, workflow.Options{
		StepDelay:           cfg.Workflow.InstallStepDelay,
		MaxParallelInstalls: cfg.Workflow.MaxParallelInstalls,
		SuggestionLimit:     cfg.Catalog.SuggestionLimit,
		Progress:            opts.Progress,
	})

	c.ApprovalService = service.NewApprovalService(service.ApprovalDependencies{
		Approvals:       c.Approvals,
		Tickets:         c.Tickets,
		Dispatcher:      c.Dispatcher,
		DefaultApprover: cfg.Notification.ApproverEmail,
		Logger:          logger,
	})
	c.TicketService = service.NewTicketService(c.Tickets, c.Approvals)
	c.AuthService = service.NewAuthService(cfg.Auth, c.Approvers)
	return c, nil
}

// Close releases connections.
func (c *Container) Close() {
	if c == nil {
		return
	}
	c.Redis.Close()
	c.Store.Close()
}
