// Package app assembles the catalog pipeline from configuration and already-connected
// clients. Both the worker manager and catalogctl start from here.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/aws"
	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/database"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/observability"
	"catalog-workers/internal/jobs"
	"catalog-workers/internal/llm"
	"catalog-workers/internal/memory"
	"catalog-workers/internal/pipeline"
	"catalog-workers/internal/resolve"
	"catalog-workers/internal/retrieval"
	"catalog-workers/internal/template"
)

// Clients are the optional backing connections. Nil members select in-process fallbacks.
type Clients struct {
	Redis         *redis.Client
	DB            *sql.DB
	Elasticsearch *elasticsearch.Client
}

// ClientsFrom picks the raw clients out of opened connections.
func ClientsFrom(conns *database.Connections) Clients {
	var c Clients
	if conns == nil {
		return c
	}
	if conns.Redis != nil {
		c.Redis = conns.Redis.Client
	}
	if conns.Postgres != nil {
		c.DB = conns.Postgres.DB
	}
	if conns.Elasticsearch != nil {
		c.Elasticsearch = conns.Elasticsearch.Client
	}
	return c
}

type App struct {
	Config    *config.Config
	Rules     catalog.Rules
	Layout    template.Layout
	Memory    memory.Store
	LLM       llm.Client
	Statuses  jobs.Store
	Artifacts jobs.ArtifactStore
	Tracker   *jobs.Tracker
	Generator *pipeline.Generator
	Executor  *pipeline.Executor

	logger logger.Logger
}

// Build wires every pipeline component. Job statuses and template artifacts live in Redis
// when a client is given, so that any process sharing it can poll or run a job.
func Build(ctx context.Context, cfg *config.Config, clients Clients, obs *observability.Observability, log logger.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Rules:  catalog.RulesFromConfig(cfg.Rules),
		Layout: template.LayoutFromConfig(cfg.Pipeline.Layout),
		logger: log,
	}

	mem, err := memory.New(cfg.Memory, clients.Redis, clients.DB, log)
	if err != nil {
		return nil, fmt.Errorf("product memory: %w", err)
	}
	a.Memory = mem

	client, err := llm.New(ctx, cfg, clients.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	a.LLM = client

	if clients.Redis != nil {
		a.Statuses = jobs.NewRedisStore(clients.Redis, config.GetDuration(cfg.Pipeline.JobTTL))
		a.Artifacts = jobs.NewRedisArtifactStore(clients.Redis, config.GetDuration(cfg.Pipeline.ArtifactTTL))
	} else {
		a.Statuses = jobs.NewInMemoryStore()
		a.Artifacts = jobs.NewInMemoryArtifactStore()
	}

	notifier, err := newNotifier(ctx, cfg.Notifications, log)
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}
	a.Tracker = jobs.NewTracker(a.Statuses, notifier, obs, log)

	a.Generator = pipeline.NewGenerator(
		resolve.New(client, a.Rules, log),
		mem,
		retrieval.New(cfg.Retrieval, clients.Elasticsearch, log),
		pipeline.NewRunner(cfg.Pipeline.Concurrency),
		a.Rules,
		a.Layout,
		log,
	)
	a.Executor = pipeline.NewExecutor(a.Generator, a.Tracker, a.Artifacts, log)

	log.Info("Pipeline assembled", map[string]interface{}{
		"mode":          cfg.Pipeline.Mode,
		"memoryBackend": cfg.Memory.Backend,
		"llmProvider":   cfg.LLM.Provider,
		"sharedJobs":    clients.Redis != nil,
		"concurrency":   cfg.Pipeline.Concurrency,
	})
	return a, nil
}

func newNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (jobs.Notifier, error) {
	if !cfg.SNS.Enabled {
		return jobs.NopNotifier{}, nil
	}
	client, err := aws.NewSNSClient(ctx, cfg.SNS.Region, cfg.SNS.TopicARN)
	if err != nil {
		return nil, err
	}
	return jobs.NewSNSNotifier(client, log), nil
}

// Service returns the submission API over launcher.
func (a *App) Service(launcher pipeline.Launcher) *pipeline.Service {
	return pipeline.NewService(a.Tracker, a.Artifacts, launcher, config.GetDuration(a.Config.Pipeline.KickoffTimeout), a.logger)
}

// LocalLauncher runs jobs on goroutines of this process.
func (a *App) LocalLauncher() *pipeline.LocalLauncher {
	return pipeline.NewLocalLauncher(a.Executor, a.logger)
}
