package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/courseloop/hwboard-backend/internal/config"
	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/courseloop/hwboard-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	EventBatchSize    = 100
	EventBatchTimeout = 2 * time.Second
	EventPollTimeout  = 1 * time.Second
)

// AnalyticsWorker drains the analytics event queue into PostgreSQL.
// The sensor side is fire-and-forget; this side is the durable half.
type AnalyticsWorker struct {
	repo *repository.AnalyticsRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAnalyticsWorker creates a new AnalyticsWorker.
func NewAnalyticsWorker(repo *repository.AnalyticsRepository, rdb *redis.Client, log zerolog.Logger) *AnalyticsWorker {
	return &AnalyticsWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "analytics_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *AnalyticsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnalyticsWorker started")

	batch := make([]*model.AnalyticsEvent, 0, EventBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= EventBatchSize || time.Since(lastFlush) >= EventBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, EventPollTimeout, config.WorkerKey.AnalyticsEventsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var e model.AnalyticsEvent
			if err := json.Unmarshal([]byte(item[1]), &e); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &e)
		}
	}
}

// flushSafe bulk-inserts the batch, falling back to single inserts and
// finally a requeue for anything that still fails.
func (w *AnalyticsWorker) flushSafe(ctx context.Context, batch []*model.AnalyticsEvent) {
	if len(batch) == 0 {
		return
	}

	if err := w.repo.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk event insert failed, using fallback")

		for _, e := range batch {
			if err := w.repo.InsertOne(ctx, e); err != nil {
				w.log.Error().Err(err).Str("kind", e.Kind).Msg("single insert failed, requeueing")
				raw, _ := json.Marshal(e)
				w.rdb.RPush(ctx, config.WorkerKey.AnalyticsEventsQueue, raw)
			}
		}
	}
}
