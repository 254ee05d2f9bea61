package model

import "time"

// AnswerGroupType enumerates the grader-declared kinds of answer groups.
type AnswerGroupType string

const (
	GroupTypeDefault AnswerGroupType = "default"
	GroupTypeEssay   AnswerGroupType = "essay"
)

// AnswerGroup describes one graded answer rule from the rendering engine:
// its declared type, the score the grader assigned, and the ordered form
// fields that feed it.
type AnswerGroup struct {
	Name   string          `json:"name" binding:"required"`
	Type   AnswerGroupType `json:"type"`
	Score  float64         `json:"score"`
	Fields []string        `json:"fields" binding:"required,min=1"`
}

// SubmitRequest is the payload posted after the external rendering engine
// has graded an attempt. Fields carries every submitted form value; Groups
// and ExtraFields are the ordering metadata the encoder needs; Score is the
// raw overall grade in [0,1].
type SubmitRequest struct {
	Fields      map[string]AnswerValue `json:"fields" binding:"required"`
	Groups      []AnswerGroup          `json:"groups" binding:"required,dive"`
	ExtraFields []string               `json:"extra_fields"`
	Score       float64                `json:"score" binding:"min=0,max=1"`
	// Latest-submission counters from the grader; they overwrite, not
	// accumulate.
	NumCorrect   int `json:"num_correct" binding:"min=0"`
	NumIncorrect int `json:"num_incorrect" binding:"min=0"`
}

// AnalyticsEvent is one structured descriptor for the analytics sensor.
// Delivery is best-effort; events may be dropped if the sensor is down.
type AnalyticsEvent struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	SetID     string    `json:"set_id"`
	ProblemID int       `json:"problem_id,omitempty"`
	Score     float64   `json:"score"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Analytics event kinds emitted on a recorded submission.
const (
	EventItemCompletion = "item_completion"
	EventSetSubmission  = "set_submission"
	EventToolUse        = "tool_use"
)
