package model

import "time"

// PastAnswer is one append-only audit entry for a graded submission.
// Rows are never mutated after creation.
type PastAnswer struct {
	ID         int64     `json:"id"`
	CourseID   string    `json:"course_id"`
	UserID     string    `json:"user_id"`
	SetID      string    `json:"set_id"`
	ProblemID  int       `json:"problem_id"`
	SubmitTime time.Time `json:"submit_time"`
	Scores     string    `json:"scores"`
	AnswerText string    `json:"answer_text"`
}
