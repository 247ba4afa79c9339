package aggregator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/personaverse/discovery/internal/db"
	"github.com/personaverse/discovery/internal/engine"
	"github.com/personaverse/discovery/pkg/config"
	"github.com/personaverse/discovery/pkg/logging"
	"github.com/personaverse/discovery/pkg/telemetry"
)

// recomputeWindows lists the windows refreshed on every cycle
var recomputeWindows = []engine.Window{
	engine.Window24h,
	engine.Window7d,
	engine.Window30d,
}

// Runner drives the metrics aggregator on a fixed cadence as a standalone
// background process, decoupled from request latency.
type Runner struct {
	config     *config.Config
	aggregator *engine.Aggregator
	logger     *zap.Logger
}

// NewRunner creates a cadence runner wired to the database
func NewRunner(cfg *config.Config, database *db.DB) *Runner {
	repo := db.NewRepository(database.DB)
	aggregator := engine.NewAggregator(
		db.NewPersonaRepository(repo),
		db.NewMetricsRepository(repo),
		db.NewEngagementRepository(repo),
		cfg.Scoring,
		cfg.Aggregator.BatchSize,
	)
	return &Runner{
		config:     cfg,
		aggregator: aggregator,
		logger:     logging.GetLogger().With(zap.String("component", "aggregator-runner")),
	}
}

// Run executes recompute cycles until the context is cancelled. One cycle
// runs immediately on start so a fresh deployment does not serve sentinel
// ranks for a full cadence interval.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Starting aggregator runner",
		zap.Duration("cadence", r.config.Aggregator.Cadence),
		zap.String("scoring_version", r.config.Scoring.Version))

	r.cycle(ctx)

	ticker := time.NewTicker(r.config.Aggregator.Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Aggregator runner stopping")
			return ctx.Err()
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

// cycle recomputes every window once. A window failure is logged and the
// remaining windows still run; the next tick retries.
func (r *Runner) cycle(ctx context.Context) {
	spanCtx, span := telemetry.StartSpan(ctx, "aggregator.cycle")
	defer span.End()

	start := time.Now()
	for _, window := range recomputeWindows {
		if err := r.aggregator.Recompute(spanCtx, window); err != nil {
			r.logger.Error("Window recompute failed",
				zap.String("window", string(window)),
				zap.Error(err))
		}
	}
	r.logger.Info("Recompute cycle finished",
		zap.Duration("elapsed", time.Since(start)))
}
