package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse/internal/metrics"
	"github.com/edupulse/edupulse/internal/pipeline"
	"github.com/edupulse/edupulse/internal/profile"
	"github.com/edupulse/edupulse/internal/registry"
	"github.com/edupulse/edupulse/internal/resilience"
	"github.com/edupulse/edupulse/internal/scorer"
	"github.com/edupulse/edupulse/internal/store"
)

// appEnv holds the components shared by the serve, score and models
// commands.
type appEnv struct {
	Store     store.Store // nil when opened without a store
	Metrics   *metrics.Metrics
	Models    *registry.Registry
	Scorer    *scorer.Scorer
	Profiles  *profile.Classifier
	Processor *pipeline.Processor
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp builds the scoring stack from the loaded config. When withStore is
// set the configured store is opened and migrated, and scored batches are
// persisted to it. Callers should defer env.Close().
func initApp(ctx context.Context, withStore bool) (*appEnv, error) {
	if err := scorer.ValidateConfig(cfg.Scorer); err != nil {
		return nil, err
	}

	env := &appEnv{Metrics: metrics.New()}
	env.Models = registry.New(cfg.Models.Dir, env.Metrics)
	env.Scorer = scorer.New(env.Models, cfg.Scorer, env.Metrics)
	env.Profiles = profile.New(cfg.Scorer)

	var sink pipeline.ProfileSink
	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
		sink = st
	}
	env.Processor = pipeline.New(env.Scorer, env.Profiles, sink, env.Metrics)

	if cfg.Models.Preload {
		if err := env.Models.Preload(ctx); err != nil {
			env.Close()
			return nil, err
		}
		loaded := 0
		for _, s := range env.Models.Status() {
			if s.State == registry.StateLoaded {
				loaded++
			}
		}
		zap.L().Info("models preloaded",
			zap.String("dir", cfg.Models.Dir),
			zap.Int("loaded", loaded),
		)
	}

	return env, nil
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	policy := resilience.NewPolicy(cfg.Agent.RetryAttempts, cfg.Agent.RetryBackoffMS)
	policy.OnRetry = resilience.LogRetries("open store")
	st, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (store.Store, error) {
		return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
