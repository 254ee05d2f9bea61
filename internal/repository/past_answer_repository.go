package repository

import (
	"context"

	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PastAnswerRepository handles the append-only submission audit trail.
type PastAnswerRepository struct {
	pool *pgxpool.Pool
}

// NewPastAnswerRepository creates a new PastAnswerRepository.
func NewPastAnswerRepository(pool *pgxpool.Pool) *PastAnswerRepository {
	return &PastAnswerRepository{pool: pool}
}

// Insert appends one audit row. Rows are never updated or deleted.
func (r *PastAnswerRepository) Insert(ctx context.Context, a *model.PastAnswer) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO past_answers (course_id, user_id, set_id, problem_id, submit_time, scores, answer_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		a.CourseID, a.UserID, a.SetID, a.ProblemID, a.SubmitTime, a.Scores, a.AnswerText,
	).Scan(&a.ID)
}

// ListByProblem retrieves the audit trail for one problem attempt, newest
// first, with pagination.
func (r *PastAnswerRepository) ListByProblem(ctx context.Context, courseID, userID, setID string, problemID, page, perPage int) ([]model.PastAnswer, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM past_answers
		 WHERE course_id = $1 AND user_id = $2 AND set_id = $3 AND problem_id = $4`,
		courseID, userID, setID, problemID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, user_id, set_id, problem_id, submit_time, scores, answer_text
		 FROM past_answers
		 WHERE course_id = $1 AND user_id = $2 AND set_id = $3 AND problem_id = $4
		 ORDER BY submit_time DESC
		 LIMIT $5 OFFSET $6`,
		courseID, userID, setID, problemID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var answers []model.PastAnswer
	for rows.Next() {
		var a model.PastAnswer
		if err := rows.Scan(&a.ID, &a.CourseID, &a.UserID, &a.SetID, &a.ProblemID,
			&a.SubmitTime, &a.Scores, &a.AnswerText); err != nil {
			return nil, 0, err
		}
		answers = append(answers, a)
	}
	return answers, total, rows.Err()
}
