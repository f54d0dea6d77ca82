package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"toolgate/internal/domain"
	"toolgate/internal/infra/config"
	"toolgate/internal/infra/fallback"
	"toolgate/internal/infra/journal"
	"toolgate/internal/infra/llm"
	"toolgate/internal/infra/mcpclient"
	"toolgate/internal/infra/pool"
	"toolgate/internal/infra/telemetry"
)

// App bundles the wired access layer: pool, fallback manager, metrics
// and journal, built from one configuration snapshot.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *telemetry.PrometheusMetrics
	Journal  *journal.Journal
	Factory  *mcpclient.SpecFactory
	Pool     *pool.Pool
	Resolver *llm.EnvResolver
	Models   *fallback.Manager
}

// New wires an App from configuration. The journal is optional: an empty
// journalPath disables it.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.NewPrometheusMetrics(registry)

	var callJournal *journal.Journal
	var recorder domain.CallRecorder
	if cfg.JournalPath != "" {
		opened, err := journal.Open(cfg.JournalPath, logger)
		if err != nil {
			return nil, err
		}
		callJournal = opened
		recorder = opened
	}

	factory := mcpclient.NewSpecFactory(cfg.Servers, logger)
	callPool := pool.New(factory, pool.Options{
		Logger:      logger,
		Metrics:     metrics,
		Journal:     recorder,
		CallTimeout: cfg.CallTimeout,
	})

	resolver := llm.NewEnvResolver(cfg.Providers)
	modelFactory := llm.NewFactory(resolver, logger)
	temperature := cfg.Temperature
	manager := fallback.NewManager(resolver, modelFactory, fallback.Options{
		Chain:       cfg.Chain,
		Temperature: &temperature,
		Logger:      logger,
		Metrics:     metrics,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics,
		Journal:  callJournal,
		Factory:  factory,
		Pool:     callPool,
		Resolver: resolver,
		Models:   manager,
	}, nil
}

// ApplyConfig swaps in a reloaded fallback chain and providers. Server
// spec changes require a restart; the pool keeps its factory.
func (a *App) ApplyConfig(cfg config.Config) {
	a.Config = cfg
	resolver := llm.NewEnvResolver(cfg.Providers)
	modelFactory := llm.NewFactory(resolver, a.Logger)
	temperature := cfg.Temperature
	a.Resolver = resolver
	a.Models = fallback.NewManager(resolver, modelFactory, fallback.Options{
		Chain:       cfg.Chain,
		Temperature: &temperature,
		Logger:      a.Logger,
		Metrics:     a.Metrics,
	})
}

// Health reports the current state for /healthz.
func (a *App) Health() telemetry.HealthReport {
	report := telemetry.HealthReport{
		Status:        "ok",
		ActiveClients: a.Pool.ActiveClients(),
	}
	report.CurrentModel = a.Models.Status().Current
	return report
}

// Close tears down the pool and journal.
func (a *App) Close(ctx context.Context) {
	a.Pool.Shutdown(ctx)
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			a.Logger.Warn("journal close failed", zap.Error(err))
		}
	}
}
