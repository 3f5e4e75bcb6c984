package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prepsio/testline-backend/internal/config"
	"github.com/prepsio/testline-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StatsWorker consumes the stats refresh queue and recomputes each user's
// cached trend report after an accepted submission. Keeping this off the
// submit path keeps finalize latency flat no matter how many tests the user
// has taken.
type StatsWorker struct {
	reportService *service.ReportService
	rdb           *redis.Client
	log           zerolog.Logger
}

// NewStatsWorker creates a new StatsWorker.
func NewStatsWorker(reportService *service.ReportService, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		reportService: reportService,
		rdb:           rdb,
		log:           log.With().Str("component", "stats_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *StatsWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.RefreshStatsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	if err := w.refresh(ctx, []byte(result[1])); err != nil {
		w.log.Error().Err(err).Msg("Refresh error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.RefreshStatsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *StatsWorker) refresh(ctx context.Context, data []byte) error {
	var job service.StatsRefreshJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Dropping malformed stats job")
		return nil
	}

	stats, err := w.reportService.RefreshOverallStats(ctx, job.UserID)
	if err != nil {
		return err
	}

	w.log.Debug().
		Int("user_id", job.UserID).
		Int("total_tests", stats.TotalTests).
		Msg("Overall stats refreshed")
	return nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *StatsWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.RefreshStatsQueue).Result()
		if err != nil {
			break
		}

		if err := w.refresh(ctx, []byte(result)); err != nil {
			w.log.Error().Err(err).Msg("Drain refresh error")
			w.rdb.RPush(ctx, config.WorkerKey.RefreshStatsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
