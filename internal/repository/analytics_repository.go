package repository

import (
	"context"
	"time"

	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsRepository persists sensor events drained from the Redis queue.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// BulkInsert writes a batch of events in one round trip using UNNEST.
func (r *AnalyticsRepository) BulkInsert(ctx context.Context, events []*model.AnalyticsEvent) error {
	n := len(events)

	ids := make([]string, 0, n)
	kinds := make([]string, 0, n)
	courses := make([]string, 0, n)
	users := make([]string, 0, n)
	sets := make([]string, 0, n)
	problems := make([]int, 0, n)
	scores := make([]float64, 0, n)
	emittedAts := make([]time.Time, 0, n)

	for _, e := range events {
		ids = append(ids, e.ID)
		kinds = append(kinds, e.Kind)
		courses = append(courses, e.CourseID)
		users = append(users, e.UserID)
		sets = append(sets, e.SetID)
		problems = append(problems, e.ProblemID)
		scores = append(scores, e.Score)
		emittedAts = append(emittedAts, e.EmittedAt)
	}

	query := `
		INSERT INTO analytics_events (id, kind, course_id, user_id, set_id, problem_id, score, emitted_at)
		SELECT u.id, u.kind, u.course_id, u.user_id, u.set_id, u.problem_id, u.score, u.emitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::text[],
			$4::text[],
			$5::text[],
			$6::int[],
			$7::float8[],
			$8::timestamptz[]
		) AS u (id, kind, course_id, user_id, set_id, problem_id, score, emitted_at)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, ids, kinds, courses, users, sets, problems, scores, emittedAts)
	return err
}

// InsertOne writes a single event. Fallback path when a bulk write fails.
func (r *AnalyticsRepository) InsertOne(ctx context.Context, e *model.AnalyticsEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO analytics_events (id, kind, course_id, user_id, set_id, problem_id, score, emitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Kind, e.CourseID, e.UserID, e.SetID, e.ProblemID, e.Score, e.EmittedAt)
	return err
}
