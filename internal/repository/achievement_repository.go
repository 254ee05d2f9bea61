package repository

import (
	"context"

	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AchievementRepository stores the per-user achievement item counters.
// The counters live in one JSONB blob per (course, user); (de)serialization
// happens here at the persistence boundary, nowhere else.
type AchievementRepository struct {
	pool *pgxpool.Pool
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(pool *pgxpool.Pool) *AchievementRepository {
	return &AchievementRepository{pool: pool}
}

// GetState retrieves and decodes the user's item counters.
// Returns pgx.ErrNoRows if the user has no achievement record at all.
func (r *AchievementRepository) GetState(ctx context.Context, courseID, userID string) (*model.AchievementState, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT state FROM achievement_states
		 WHERE course_id = $1 AND user_id = $2`,
		courseID, userID,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}
	return model.UnmarshalState(raw)
}

// SaveState encodes and upserts the user's item counters.
func (r *AchievementRepository) SaveState(ctx context.Context, courseID, userID string, state *model.AchievementState) error {
	raw, err := model.MarshalState(state)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO achievement_states (course_id, user_id, state)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (course_id, user_id) DO UPDATE SET state = EXCLUDED.state`,
		courseID, userID, raw)
	return err
}
