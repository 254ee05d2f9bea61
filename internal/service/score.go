package service

import (
	"time"

	"github.com/courseloop/hwboard-backend/internal/model"
)

// ReducedScoringPolicy is the course-wide half of the reduced scoring
// switch; the per-assignment half lives on the UserSet.
type ReducedScoringPolicy struct {
	Enabled bool
	// Value is the discount factor in [0,1] applied to score gains made
	// after the cutoff. 0.5 means post-cutoff gains count half.
	Value float64
}

// ReduceScore computes the effective score for a graded submission, applying
// the reduced-scoring discount when the submission lands inside the window.
//
// The raw score passes through unchanged unless ALL of the following hold:
// the policy is enabled, the set has reduced scoring enabled, a reduced
// scoring date is set and differs from the due date, the submission is at or
// after that date, and the raw score improves on priorSubStatus. Only the
// gain made after the cutoff is discounted; the portion earned before the
// cutoff keeps full value.
//
// Pure function, no error conditions.
func ReduceScore(policy ReducedScoringPolicy, set *model.UserSet, priorSubStatus, rawScore float64, submitTime time.Time) float64 {
	if !policy.Enabled || !set.EnableReducedScoring {
		return rawScore
	}
	if set.ReducedScoringDate == nil || set.ReducedScoringDate.Equal(set.DueDate) {
		return rawScore
	}
	if submitTime.Before(*set.ReducedScoringDate) {
		return rawScore
	}
	if rawScore <= priorSubStatus {
		return rawScore
	}
	return priorSubStatus + policy.Value*(rawScore-priorSubStatus)
}

// inReducedScoringPeriod reports whether a submission at t is governed by
// the reduced-scoring window for this set.
func inReducedScoringPeriod(policy ReducedScoringPolicy, set *model.UserSet, t time.Time) bool {
	return policy.Enabled &&
		set.EnableReducedScoring &&
		set.ReducedScoringDate != nil &&
		!t.Before(*set.ReducedScoringDate)
}
