package verify

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// BatchConfig controls batch scheduling.
type BatchConfig struct {
	// Parallel selects chunked concurrent scheduling; the default is the
	// conservative one-at-a-time mode.
	Parallel bool

	// Concurrency is the chunk size in parallel mode. Default: 3.
	Concurrency int

	// ItemDelay separates items in sequential mode. Default: 2s.
	ItemDelay time.Duration

	// ChunkDelay separates chunks in parallel mode. Default: 2s.
	ChunkDelay time.Duration
}

// BatchController schedules the per-company pipeline over a list of ids,
// consulting its Guard between units of work.
type BatchController struct {
	orch  *Orchestrator
	guard *Guard
	cfg   BatchConfig
	log   *zap.Logger

	// sleepFunc allows tests to observe pauses instead of waiting them out.
	sleepFunc func(ctx context.Context, d time.Duration)
}

// NewBatchController creates a controller. The guard is owned by the caller
// so independent batch runs keep independent failure counters.
func NewBatchController(orch *Orchestrator, guard *Guard, cfg BatchConfig) *BatchController {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.ItemDelay <= 0 {
		cfg.ItemDelay = 2 * time.Second
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = 2 * time.Second
	}
	return &BatchController{
		orch:      orch,
		guard:     guard,
		cfg:       cfg,
		log:       zap.L().With(zap.String("component", "batch")),
		sleepFunc: sleepCtx,
	}
}

// Run verifies every id and reports a tally. Individual failures never
// abort the batch; the only early exit is context cancellation.
func (b *BatchController) Run(ctx context.Context, ids []string) (*model.BatchSummary, error) {
	if b.cfg.Parallel {
		return b.runParallel(ctx, ids)
	}
	return b.runSequential(ctx, ids)
}

func (b *BatchController) runSequential(ctx context.Context, ids []string) (*model.BatchSummary, error) {
	start := time.Now()
	summary := &model.BatchSummary{Total: len(ids)}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		res, err := b.orch.Verify(ctx, id)
		if err != nil {
			summary.Failed++
			b.log.Warn("verification failed", zap.String("company_id", id), zap.Error(err))
		} else {
			summary.Successful++
		}

		if cooldown, triggered := b.guard.Observe(err, lookupOf(res)); triggered {
			summary.Pauses++
			b.sleepFunc(ctx, cooldown)
		}

		if i < len(ids)-1 {
			b.sleepFunc(ctx, b.cfg.ItemDelay)
		}
	}

	summary.Duration = time.Since(start)
	b.logSummary(summary)
	return summary, ctx.Err()
}

// runParallel processes ids in fixed-size chunks. Every orchestration in a
// chunk settles before the guard verdict is acted on; in-flight lookups
// cannot be cancelled, so the pause lever only exists at chunk boundaries.
func (b *BatchController) runParallel(ctx context.Context, ids []string) (*model.BatchSummary, error) {
	start := time.Now()
	summary := &model.BatchSummary{Total: len(ids)}

	var successful, failed atomic.Int64
	for chunkStart := 0; chunkStart < len(ids); chunkStart += b.cfg.Concurrency {
		if err := ctx.Err(); err != nil {
			break
		}
		chunkEnd := chunkStart + b.cfg.Concurrency
		if chunkEnd > len(ids) {
			chunkEnd = len(ids)
		}
		chunk := ids[chunkStart:chunkEnd]

		var pauseNanos atomic.Int64
		g := new(errgroup.Group)
		for _, id := range chunk {
			id := id
			g.Go(func() error {
				res, err := b.orch.Verify(ctx, id)
				if err != nil {
					failed.Add(1)
					b.log.Warn("verification failed", zap.String("company_id", id), zap.Error(err))
				} else {
					successful.Add(1)
				}
				if cooldown, triggered := b.guard.Observe(err, lookupOf(res)); triggered {
					pauseNanos.Store(int64(cooldown))
				}
				return nil // individual failures never abort the chunk
			})
		}
		_ = g.Wait()

		if pause := time.Duration(pauseNanos.Load()); pause > 0 {
			summary.Pauses++
			b.sleepFunc(ctx, pause)
		}
		if chunkEnd < len(ids) {
			b.sleepFunc(ctx, b.cfg.ChunkDelay)
		}
	}

	summary.Successful = int(successful.Load())
	summary.Failed = int(failed.Load())
	summary.Duration = time.Since(start)
	if summary.Total > 0 {
		summary.AvgPerCompany = summary.Duration / time.Duration(summary.Total)
	}
	b.logSummary(summary)
	return summary, ctx.Err()
}

func (b *BatchController) logSummary(s *model.BatchSummary) {
	b.log.Info("batch finished",
		zap.Int("total", s.Total),
		zap.Int("successful", s.Successful),
		zap.Int("failed", s.Failed),
		zap.Int("pauses", s.Pauses),
		zap.Duration("duration", s.Duration))
}

func lookupOf(res *Result) *model.RegistryLookupResult {
	if res == nil {
		return nil
	}
	return res.Lookup
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
