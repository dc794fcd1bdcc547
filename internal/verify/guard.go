package verify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

// GuardConfig controls rate-limit detection thresholds.
type GuardConfig struct {
	// FailureThreshold is the number of consecutive failures (of either
	// kind) before a pause is triggered. Default: 3.
	FailureThreshold int

	// Cooldown is how long callers should pause after a trigger.
	// Default: 5m.
	Cooldown time.Duration

	// AlertInterval rate-limits the alert log line to at most one per
	// interval of wall-clock time. Default: 10m.
	AlertInterval time.Duration

	// OnAlert is called when a pause is triggered, at most once per
	// AlertInterval.
	OnAlert func(reason string)
}

// Guard detects registry rate-limiting from runs of consecutive failures.
// Each batch run owns its own Guard so independent runs never share
// counters. Safe for concurrent use.
type Guard struct {
	cfg GuardConfig

	mu                   sync.Mutex
	consecFailures       int
	consecSearchFailures int
	lastAlert            time.Time
	pauses               int

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewGuard creates a Guard with the given config.
func NewGuard(cfg GuardConfig) *Guard {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.AlertInterval <= 0 {
		cfg.AlertInterval = 10 * time.Minute
	}
	return &Guard{cfg: cfg, nowFunc: time.Now}
}

// Observe records one orchestration attempt and reports whether callers
// should pause. err is the orchestration error (nil when the pipeline
// completed); lookup is the registry result, nil when the pipeline failed
// before the lookup ran. The rules are evaluated in order: an orchestration
// failure counts against one counter, a search-level lookup failure against
// the other, and any clean outcome (match or miss) resets both.
func (g *Guard) Observe(err error, lookup *model.RegistryLookupResult) (cooldown time.Duration, triggered bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case err != nil:
		g.consecFailures++
		g.consecSearchFailures = 0
	case lookup != nil && lookup.Failed():
		g.consecSearchFailures++
		g.consecFailures = 0
	default:
		// Clean miss or successful match.
		g.consecFailures = 0
		g.consecSearchFailures = 0
	}

	if g.consecFailures < g.cfg.FailureThreshold && g.consecSearchFailures < g.cfg.FailureThreshold {
		return 0, false
	}

	reason := "consecutive search failures"
	if g.consecFailures >= g.cfg.FailureThreshold {
		reason = "consecutive orchestration failures"
	}

	now := g.nowFunc()
	if now.Sub(g.lastAlert) >= g.cfg.AlertInterval {
		g.lastAlert = now
		zap.L().Warn("verify: registry rate limiting suspected, pausing",
			zap.String("reason", reason),
			zap.Duration("cooldown", g.cfg.Cooldown))
		if g.cfg.OnAlert != nil {
			g.cfg.OnAlert(reason)
		}
	}

	g.consecFailures = 0
	g.consecSearchFailures = 0
	g.pauses++
	return g.cfg.Cooldown, true
}

// Pauses returns how many pauses this guard has triggered.
func (g *Guard) Pauses() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pauses
}

// Counters returns the current failure counts for observability.
func (g *Guard) Counters() (orchestration, search int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consecFailures, g.consecSearchFailures
}
