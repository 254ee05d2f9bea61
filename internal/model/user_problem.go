package model

import (
	"sort"
	"strings"
)

// ProblemFlag is a single tag carried on a problem record.
type ProblemFlag string

const (
	FlagNeedsGrading ProblemFlag = "needs_grading"
	FlagGraded       ProblemFlag = "graded"
	FlagEssay        ProblemFlag = "essay"
)

// ProblemFlagSet is a set of problem tags. It replaces the legacy
// comma-joined tag string; mutation is set insertion/removal so repeated
// updates stay idempotent.
type ProblemFlagSet map[ProblemFlag]struct{}

// ParseProblemFlags builds a flag set from its comma-joined storage form.
func ParseProblemFlags(raw string) ProblemFlagSet {
	set := ProblemFlagSet{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			set[ProblemFlag(trimmed)] = struct{}{}
		}
	}
	return set
}

// Has reports whether the flag is present.
func (f ProblemFlagSet) Has(flag ProblemFlag) bool {
	_, ok := f[flag]
	return ok
}

// Add inserts the flag. Inserting an existing flag is a no-op.
func (f ProblemFlagSet) Add(flag ProblemFlag) {
	f[flag] = struct{}{}
}

// Remove deletes the flag if present.
func (f ProblemFlagSet) Remove(flag ProblemFlag) {
	delete(f, flag)
}

// String renders the comma-joined storage form with stable ordering.
func (f ProblemFlagSet) String() string {
	parts := make([]string, 0, len(f))
	for flag := range f {
		parts = append(parts, string(flag))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// UserProblem is the persisted per-student record of one problem attempt.
// Status is the cumulative best score in [0,1]; SubStatus is the score as of
// the reduced-scoring cutoff and is the reference point for discounting
// later gains. NumCorrect/NumIncorrect reflect the latest submission only.
type UserProblem struct {
	CourseID     string         `json:"course_id"`
	UserID       string         `json:"user_id"`
	SetID        string         `json:"set_id"`
	ProblemID    int            `json:"problem_id"`
	Status       float64        `json:"status"`
	SubStatus    float64        `json:"sub_status"`
	Attempted    bool           `json:"attempted"`
	NumCorrect   int            `json:"num_correct"`
	NumIncorrect int            `json:"num_incorrect"`
	LastAnswer   string         `json:"last_answer"`
	Seed         int64          `json:"seed"`
	Flags        ProblemFlagSet `json:"flags"`
}

// MergedProblem is the effective view of a problem attempt: the user record
// overlaid on set-level defaults. It is a distinct value object from the
// persisted UserProblem; the reconciler updates both in lockstep and calls
// SyncTo to keep them aligned.
type MergedProblem struct {
	UserProblem
	Value       float64 `json:"value"`
	MaxAttempts int     `json:"max_attempts"`
}

// SyncTo copies the submission-mutable fields onto the persisted record so
// both views end in the same state.
func (m *MergedProblem) SyncTo(p *UserProblem) {
	p.Status = m.Status
	p.SubStatus = m.SubStatus
	p.Attempted = m.Attempted
	p.NumCorrect = m.NumCorrect
	p.NumIncorrect = m.NumIncorrect
	p.LastAnswer = m.LastAnswer
}
