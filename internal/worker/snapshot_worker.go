package worker

import (
	"context"
	"time"

	"github.com/prepsio/testline-backend/internal/config"
	"github.com/prepsio/testline-backend/internal/repository"
	"github.com/prepsio/testline-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SnapshotWorker consumes the session snapshot queue and mirrors machine
// snapshots into PostgreSQL. Losing a snapshot costs only some in-progress
// answers after a total Redis loss, never the timer: the session row's
// started_at is written synchronously on open.
type SnapshotWorker struct {
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewSnapshotWorker creates a new SnapshotWorker.
func NewSnapshotWorker(sessionRepo *repository.SessionRepository, rdb *redis.Client, log zerolog.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "snapshot_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *SnapshotWorker) Start(ctx context.Context) {
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

func (w *SnapshotWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.SessionSnapshotQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	if err := w.persistSnapshot(ctx, []byte(result[1])); err != nil {
		w.log.Error().Err(err).Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.SessionSnapshotQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *SnapshotWorker) persistSnapshot(ctx context.Context, data []byte) error {
	snap, err := session.Unmarshal(data)
	if err != nil {
		// A payload that never parses would retry forever; drop it loudly.
		w.log.Error().Err(err).Msg("Dropping malformed snapshot payload")
		return nil
	}

	return w.sessionRepo.SaveSnapshot(ctx, snap.UserID, snap.TestID, snap.Phase, snap.AutoSubmitted, data)
}

// drain processes all remaining items in the queue before shutdown.
func (w *SnapshotWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.SessionSnapshotQueue).Result()
		if err != nil {
			break
		}

		if err := w.persistSnapshot(ctx, []byte(result)); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.SessionSnapshotQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
