package repository

import (
	"context"

	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserSetRepository handles per-student set assignment data access.
type UserSetRepository struct {
	pool *pgxpool.Pool
}

// NewUserSetRepository creates a new UserSetRepository.
func NewUserSetRepository(pool *pgxpool.Pool) *UserSetRepository {
	return &UserSetRepository{pool: pool}
}

// Get retrieves the set assignment for a specific (course, user, set) key.
func (r *UserSetRepository) Get(ctx context.Context, courseID, userID, setID string) (*model.UserSet, error) {
	s := &model.UserSet{}
	err := r.pool.QueryRow(ctx,
		`SELECT course_id, user_id, set_id, assignment_type,
		        open_date, due_date, answer_date, reduced_scoring_date, enable_reduced_scoring
		 FROM user_sets
		 WHERE course_id = $1 AND user_id = $2 AND set_id = $3`,
		courseID, userID, setID,
	).Scan(&s.CourseID, &s.UserID, &s.SetID, &s.AssignmentType,
		&s.OpenDate, &s.DueDate, &s.AnswerDate, &s.ReducedScoringDate, &s.EnableReducedScoring)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces the mutable assignment fields (full-record semantics).
func (r *UserSetRepository) Update(ctx context.Context, s *model.UserSet) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_sets
		 SET assignment_type = $1, open_date = $2, due_date = $3,
		     answer_date = $4, reduced_scoring_date = $5, enable_reduced_scoring = $6
		 WHERE course_id = $7 AND user_id = $8 AND set_id = $9`,
		s.AssignmentType, s.OpenDate, s.DueDate,
		s.AnswerDate, s.ReducedScoringDate, s.EnableReducedScoring,
		s.CourseID, s.UserID, s.SetID)
	return err
}
