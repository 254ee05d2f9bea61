package repository

import (
	"context"

	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserProblemRepository handles per-student problem attempt data access.
type UserProblemRepository struct {
	pool *pgxpool.Pool
}

// NewUserProblemRepository creates a new UserProblemRepository.
func NewUserProblemRepository(pool *pgxpool.Pool) *UserProblemRepository {
	return &UserProblemRepository{pool: pool}
}

// Get retrieves the persisted user record for one problem attempt.
// Returns pgx.ErrNoRows if the problem was never assigned to the user.
func (r *UserProblemRepository) Get(ctx context.Context, courseID, userID, setID string, problemID int) (*model.UserProblem, error) {
	p := &model.UserProblem{}
	var flags string
	err := r.pool.QueryRow(ctx,
		`SELECT course_id, user_id, set_id, problem_id,
		        status, sub_status, attempted, num_correct, num_incorrect,
		        last_answer, seed, flags
		 FROM user_problems
		 WHERE course_id = $1 AND user_id = $2 AND set_id = $3 AND problem_id = $4`,
		courseID, userID, setID, problemID,
	).Scan(&p.CourseID, &p.UserID, &p.SetID, &p.ProblemID,
		&p.Status, &p.SubStatus, &p.Attempted, &p.NumCorrect, &p.NumIncorrect,
		&p.LastAnswer, &p.Seed, &flags)
	if err != nil {
		return nil, err
	}
	p.Flags = model.ParseProblemFlags(flags)
	return p, nil
}

// GetMerged retrieves the effective view: the user record overlaid on the
// shared problem defaults (point value, attempt limit).
func (r *UserProblemRepository) GetMerged(ctx context.Context, courseID, userID, setID string, problemID int) (*model.MergedProblem, error) {
	m := &model.MergedProblem{}
	var flags string
	err := r.pool.QueryRow(ctx,
		`SELECT up.course_id, up.user_id, up.set_id, up.problem_id,
		        up.status, up.sub_status, up.attempted, up.num_correct, up.num_incorrect,
		        up.last_answer, up.seed, up.flags,
		        gp.value, gp.max_attempts
		 FROM user_problems up
		 JOIN global_problems gp
		   ON gp.course_id = up.course_id AND gp.set_id = up.set_id AND gp.problem_id = up.problem_id
		 WHERE up.course_id = $1 AND up.user_id = $2 AND up.set_id = $3 AND up.problem_id = $4`,
		courseID, userID, setID, problemID,
	).Scan(&m.CourseID, &m.UserID, &m.SetID, &m.ProblemID,
		&m.Status, &m.SubStatus, &m.Attempted, &m.NumCorrect, &m.NumIncorrect,
		&m.LastAnswer, &m.Seed, &flags,
		&m.Value, &m.MaxAttempts)
	if err != nil {
		return nil, err
	}
	m.Flags = model.ParseProblemFlags(flags)
	return m, nil
}

// ListBySet retrieves every problem record for one (user, set) pair.
func (r *UserProblemRepository) ListBySet(ctx context.Context, courseID, userID, setID string) ([]model.UserProblem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT course_id, user_id, set_id, problem_id,
		        status, sub_status, attempted, num_correct, num_incorrect,
		        last_answer, seed, flags
		 FROM user_problems
		 WHERE course_id = $1 AND user_id = $2 AND set_id = $3
		 ORDER BY problem_id ASC`,
		courseID, userID, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []model.UserProblem
	for rows.Next() {
		var p model.UserProblem
		var flags string
		if err := rows.Scan(&p.CourseID, &p.UserID, &p.SetID, &p.ProblemID,
			&p.Status, &p.SubStatus, &p.Attempted, &p.NumCorrect, &p.NumIncorrect,
			&p.LastAnswer, &p.Seed, &flags); err != nil {
			return nil, err
		}
		p.Flags = model.ParseProblemFlags(flags)
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

// Update replaces the full user record (no partial-field updates).
func (r *UserProblemRepository) Update(ctx context.Context, p *model.UserProblem) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_problems
		 SET status = $1, sub_status = $2, attempted = $3,
		     num_correct = $4, num_incorrect = $5,
		     last_answer = $6, seed = $7, flags = $8
		 WHERE course_id = $9 AND user_id = $10 AND set_id = $11 AND problem_id = $12`,
		p.Status, p.SubStatus, p.Attempted,
		p.NumCorrect, p.NumIncorrect,
		p.LastAnswer, p.Seed, p.Flags.String(),
		p.CourseID, p.UserID, p.SetID, p.ProblemID)
	return err
}

// SetGrade returns the weighted score earned and the total weight for one
// set: sum(status * value) over the assigned problems.
func (r *UserProblemRepository) SetGrade(ctx context.Context, courseID, userID, setID string) (earned, total float64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(up.status * gp.value), 0), COALESCE(SUM(gp.value), 0)
		 FROM user_problems up
		 JOIN global_problems gp
		   ON gp.course_id = up.course_id AND gp.set_id = up.set_id AND gp.problem_id = up.problem_id
		 WHERE up.course_id = $1 AND up.user_id = $2 AND up.set_id = $3`,
		courseID, userID, setID,
	).Scan(&earned, &total)
	return earned, total, err
}

// CourseGrade returns the weighted score earned and the total weight across
// every set assigned to the user in the course.
func (r *UserProblemRepository) CourseGrade(ctx context.Context, courseID, userID string) (earned, total float64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(up.status * gp.value), 0), COALESCE(SUM(gp.value), 0)
		 FROM user_problems up
		 JOIN global_problems gp
		   ON gp.course_id = up.course_id AND gp.set_id = up.set_id AND gp.problem_id = up.problem_id
		 WHERE up.course_id = $1 AND up.user_id = $2`,
		courseID, userID,
	).Scan(&earned, &total)
	return earned, total, err
}
