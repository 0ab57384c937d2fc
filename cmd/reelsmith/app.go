package main

import (
	"context"
	"fmt"

	"reelsmith/internal/capability"
	"reelsmith/internal/config"
	convctx "reelsmith/internal/context"
	"reelsmith/internal/intent"
	"reelsmith/internal/llm"
	"reelsmith/internal/orchestrator"
	"reelsmith/internal/pricing"
	"reelsmith/internal/resilience"
	"reelsmith/internal/session"
	"reelsmith/internal/styles"
)

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// app is the wired application graph shared by the serve and chat
// commands.
type app struct {
	cfg       *config.Config
	store     session.Store
	usage     *convctx.Registry
	estimator *pricing.Estimator
	orch      *orchestrator.Orchestrator
	closers   []func() error
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// buildApp wires the full dependency graph from config.
func buildApp(cfg *config.Config) (*app, error) {
	exec := resilience.NewExecutor(cfg.RetryConfig(), resilience.NewBreakerRegistry(cfg.BreakerConfig()))

	client := llm.NewHTTPClient(llm.HTTPConfig{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		Timeout:   cfg.LLMTimeout(),
		MaxTokens: cfg.LLM.MaxTokens,
	})

	classifier := orchestrator.NewKeywordClassifier()

	a := &app{cfg: cfg}
	switch cfg.Session.Backend {
	case "sqlite":
		store, err := session.NewSQLiteStore(cfg.Session.Path, classifier.IsAffirmative)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	default:
		a.store = session.NewMemoryStore(classifier.IsAffirmative)
	}

	tracker := convctx.NewTracker(cfg.Context)
	compressor := convctx.NewCompressor(client, exec, tracker, cfg.Compressor)
	a.usage = convctx.NewRegistry()

	a.estimator = pricing.NewEstimator(nil)
	if cfg.Pricing.CatalogPath != "" {
		table, err := pricing.LoadTable(cfg.Pricing.CatalogPath)
		if err != nil {
			return nil, err
		}
		a.estimator.SetTable(table)
	}

	a.orch = orchestrator.New(orchestrator.Deps{
		Store:      a.store,
		Client:     client,
		Executor:   exec,
		Extractor:  intent.NewExtractor(client, exec),
		Selector:   capability.NewSelector(),
		Estimator:  a.estimator,
		Styles:     styles.NewClient(cfg.Styles.BaseURL, cfg.StylesTimeout(), exec),
		Tracker:    tracker,
		Compressor: compressor,
		Usage:      a.usage,
		Classifier: classifier,
	})
	return a, nil
}
