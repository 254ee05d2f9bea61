package model

import "time"

// AssignmentType enumerates the kinds of homework sets a course can assign.
type AssignmentType string

const (
	AssignmentTypeDefault AssignmentType = "default"
	AssignmentTypeGateway AssignmentType = "gateway"
	AssignmentTypeJITAR   AssignmentType = "jitar"
)

// UserSet is a homework set as assigned to one student, with the dates that
// govern when answers are accepted and when reduced scoring kicks in.
//
// When reduced scoring is enabled and the dates are non-degenerate the
// invariant OpenDate <= ReducedScoringDate <= DueDate <= AnswerDate holds.
type UserSet struct {
	CourseID             string         `json:"course_id"`
	UserID               string         `json:"user_id"`
	SetID                string         `json:"set_id"`
	AssignmentType       AssignmentType `json:"assignment_type"`
	OpenDate             time.Time      `json:"open_date"`
	DueDate              time.Time      `json:"due_date"`
	AnswerDate           time.Time      `json:"answer_date"`
	ReducedScoringDate   *time.Time     `json:"reduced_scoring_date,omitempty"`
	EnableReducedScoring bool           `json:"enable_reduced_scoring"`
}

// Open reports whether t falls inside the answer-accepting window.
func (s *UserSet) Open(t time.Time) bool {
	return !t.Before(s.OpenDate) && !t.After(s.DueDate)
}
