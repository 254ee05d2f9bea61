package model

// GlobalProblem is the per-(set, problem) metadata shared by every student in
// the course. The essay tag is mutated opportunistically from submissions:
// last submission wins, which can race across students sharing the problem.
// That race is accepted for this domain.
type GlobalProblem struct {
	CourseID    string         `json:"course_id"`
	SetID       string         `json:"set_id"`
	ProblemID   int            `json:"problem_id"`
	Value       float64        `json:"value"`
	MaxAttempts int            `json:"max_attempts"`
	Flags       ProblemFlagSet `json:"flags"`
}
