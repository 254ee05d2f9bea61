package analytics

import (
	"context"
	"encoding/json"

	"github.com/courseloop/hwboard-backend/internal/config"
	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Sensor publishes structured analytics events onto the Redis delivery
// queue. Delivery is best-effort: a failed push is logged and dropped, it
// never propagates to the caller's primary work.
type Sensor struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewSensor creates a new Sensor.
func NewSensor(rdb *redis.Client, log zerolog.Logger) *Sensor {
	return &Sensor{
		rdb: rdb,
		log: log.With().Str("component", "analytics_sensor").Logger(),
	}
}

// Emit queues the events for background persistence. Events that fail to
// marshal or push are dropped with a warning.
func (s *Sensor) Emit(ctx context.Context, events ...*model.AnalyticsEvent) {
	for _, e := range events {
		raw, err := json.Marshal(e)
		if err != nil {
			s.log.Warn().Err(err).Str("kind", e.Kind).Msg("Event marshal failed, dropping")
			continue
		}
		if err := s.rdb.RPush(ctx, config.WorkerKey.AnalyticsEventsQueue, raw).Err(); err != nil {
			s.log.Warn().Err(err).Str("kind", e.Kind).Msg("Event push failed, dropping")
		}
	}
}
