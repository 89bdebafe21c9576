package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
	"github.com/Ananth-NQI/botfleet-backend/internal/observability"
)

// StatsSource is implemented by services.BotManager
type StatsSource interface {
	GetGlobalStats() models.FleetStats
	PendingPairings() int
}

// FleetStatsJob periodically publishes fleet occupancy to the metrics
// registry and the log
type FleetStatsJob struct {
	source   StatsSource
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFleetStatsJob creates a job that samples source every interval
func NewFleetStatsJob(source StatsSource, interval time.Duration, logger zerolog.Logger) *FleetStatsJob {
	return &FleetStatsJob{
		source:   source,
		interval: interval,
		logger:   logger.With().Str("job", "fleet_stats").Logger(),
	}
}

// Start begins sampling until ctx is cancelled or Stop is called
func (j *FleetStatsJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		j.logger.Warn().Msg("fleet stats job already running")
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	go j.run(ctx, j.done)
	j.logger.Info().Dur("interval", j.interval).Msg("fleet stats job started")
}

// Stop halts the job and waits for the current sample to finish
func (j *FleetStatsJob) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	j.logger.Info().Msg("fleet stats job stopped")
}

func (j *FleetStatsJob) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sample()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sample()
		}
	}
}

// Sample records one snapshot
func (j *FleetStatsJob) Sample() models.FleetStats {
	stats := j.source.GetGlobalStats()
	observability.SetFleetGauges(stats.Total, stats.Connected, stats.MaxBots)

	ev := j.logger.Debug()
	if stats.MaxBots > 0 && stats.Total >= stats.MaxBots {
		ev = j.logger.Warn()
	}
	ev.Int("total", stats.Total).
		Int("connected", stats.Connected).
		Int("max_bots", stats.MaxBots).
		Float64("usage_percentage", stats.UsagePercentage).
		Int("pending_pairings", j.source.PendingPairings()).
		Msg("fleet stats")
	return stats
}
