package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/classify"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/registry"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/store"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/verify"
	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/webcheck"
)

// engineEnv holds the initialized store and pipeline components used by the
// verify/batch/serve commands.
type engineEnv struct {
	Store store.RecordStore
	Orch  *verify.Orchestrator
}

// Close releases resources held by the environment.
func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.RecordStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// initEngine sets up the store, registry client, web checker and classifier,
// and builds the orchestrator. Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	classifier, err := classify.New()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	cvr := registry.NewCVRClient(registry.CVROptions{
		BaseURL:        cfg.Registry.BaseURL,
		Country:        cfg.Registry.Country,
		UserAgent:      cfg.Registry.UserAgent,
		Timeout:        time.Duration(cfg.Registry.TimeoutSecs) * time.Second,
		RequestsPerSec: cfg.Registry.RequestsPerSec,
	})

	checker := webcheck.New(webcheck.Options{
		Timeout:         time.Duration(cfg.Webcheck.TimeoutSecs) * time.Second,
		UserAgent:       cfg.Webcheck.UserAgent,
		LinkedInBaseURL: cfg.Webcheck.LinkedInBaseURL,
	})

	return &engineEnv{
		Store: st,
		Orch:  verify.NewOrchestrator(st, cvr, checker, classifier),
	}, nil
}

// newBatchController builds a controller with a fresh guard, so every batch
// run keeps independent failure counters.
func newBatchController(env *engineEnv, parallel bool) *verify.BatchController {
	guard := verify.NewGuard(verify.GuardConfig{
		FailureThreshold: cfg.Verify.FailureThreshold,
		Cooldown:         time.Duration(cfg.Verify.CooldownSecs) * time.Second,
		AlertInterval:    time.Duration(cfg.Verify.AlertIntervalSecs) * time.Second,
	})
	return verify.NewBatchController(env.Orch, guard, verify.BatchConfig{
		Parallel:    parallel,
		Concurrency: cfg.Verify.Concurrency,
		ItemDelay:   time.Duration(cfg.Verify.ItemDelaySecs) * time.Second,
		ChunkDelay:  time.Duration(cfg.Verify.ChunkDelaySecs) * time.Second,
	})
}
