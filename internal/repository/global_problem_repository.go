package repository

import (
	"context"

	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GlobalProblemRepository handles shared per-(set, problem) metadata.
type GlobalProblemRepository struct {
	pool *pgxpool.Pool
}

// NewGlobalProblemRepository creates a new GlobalProblemRepository.
func NewGlobalProblemRepository(pool *pgxpool.Pool) *GlobalProblemRepository {
	return &GlobalProblemRepository{pool: pool}
}

// Get retrieves the shared problem metadata.
func (r *GlobalProblemRepository) Get(ctx context.Context, courseID, setID string, problemID int) (*model.GlobalProblem, error) {
	p := &model.GlobalProblem{}
	var flags string
	err := r.pool.QueryRow(ctx,
		`SELECT course_id, set_id, problem_id, value, max_attempts, flags
		 FROM global_problems
		 WHERE course_id = $1 AND set_id = $2 AND problem_id = $3`,
		courseID, setID, problemID,
	).Scan(&p.CourseID, &p.SetID, &p.ProblemID, &p.Value, &p.MaxAttempts, &flags)
	if err != nil {
		return nil, err
	}
	p.Flags = model.ParseProblemFlags(flags)
	return p, nil
}

// Update replaces the full shared record (no partial-field updates).
func (r *GlobalProblemRepository) Update(ctx context.Context, p *model.GlobalProblem) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE global_problems
		 SET value = $1, max_attempts = $2, flags = $3
		 WHERE course_id = $4 AND set_id = $5 AND problem_id = $6`,
		p.Value, p.MaxAttempts, p.Flags.String(),
		p.CourseID, p.SetID, p.ProblemID)
	return err
}
