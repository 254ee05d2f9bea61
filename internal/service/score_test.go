package service

import (
	"math"
	"testing"
	"time"

	"github.com/courseloop/hwboard-backend/internal/model"
)

var (
	scoreOpen   = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	scoreCutoff = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	scoreDue    = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
)

func reducedSet(t *testing.T) *model.UserSet {
	t.Helper()
	cutoff := scoreCutoff
	return &model.UserSet{
		CourseID:             "math101",
		UserID:               "alice",
		SetID:                "hw3",
		AssignmentType:       model.AssignmentTypeDefault,
		OpenDate:             scoreOpen,
		DueDate:              scoreDue,
		AnswerDate:           scoreDue,
		ReducedScoringDate:   &cutoff,
		EnableReducedScoring: true,
	}
}

func TestReduceScoreDiscountsPostCutoffGain(t *testing.T) {
	policy := ReducedScoringPolicy{Enabled: true, Value: 0.5}
	set := reducedSet(t)
	after := scoreCutoff.Add(time.Hour)

	// Prior 0.4, raw 0.8 at half value: 0.4 + 0.5*(0.8-0.4) = 0.6.
	got := ReduceScore(policy, set, 0.4, 0.8, after)
	if math.Abs(got-0.6) > 1e-9 {
		t.Errorf("expected 0.6, got %v", got)
	}
}

func TestReduceScorePassthrough(t *testing.T) {
	cutoff := scoreCutoff
	policy := ReducedScoringPolicy{Enabled: true, Value: 0.5}
	after := scoreCutoff.Add(time.Hour)

	tests := []struct {
		name   string
		policy ReducedScoringPolicy
		mutate func(*model.UserSet)
		prior  float64
		raw    float64
		at     time.Time
	}{
		{
			name:   "policy disabled",
			policy: ReducedScoringPolicy{Enabled: false, Value: 0.5},
			mutate: func(*model.UserSet) {},
			prior:  0.4, raw: 0.8, at: after,
		},
		{
			name:   "set opts out",
			policy: policy,
			mutate: func(s *model.UserSet) { s.EnableReducedScoring = false },
			prior:  0.4, raw: 0.8, at: after,
		},
		{
			name:   "no cutoff date",
			policy: policy,
			mutate: func(s *model.UserSet) { s.ReducedScoringDate = nil },
			prior:  0.4, raw: 0.8, at: after,
		},
		{
			name:   "cutoff equals due date",
			policy: policy,
			mutate: func(s *model.UserSet) { due := s.DueDate; s.ReducedScoringDate = &due },
			prior:  0.4, raw: 0.8, at: after,
		},
		{
			name:   "submitted before cutoff",
			policy: policy,
			mutate: func(*model.UserSet) {},
			prior:  0.4, raw: 0.8, at: cutoff.Add(-time.Minute),
		},
		{
			name:   "no improvement over prior",
			policy: policy,
			mutate: func(*model.UserSet) {},
			prior:  0.8, raw: 0.8, at: after,
		},
		{
			name:   "raw below prior",
			policy: policy,
			mutate: func(*model.UserSet) {},
			prior:  0.8, raw: 0.3, at: after,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := reducedSet(t)
			tt.mutate(set)
			got := ReduceScore(tt.policy, set, tt.prior, tt.raw, tt.at)
			if got != tt.raw {
				t.Errorf("expected raw score %v to pass through, got %v", tt.raw, got)
			}
		})
	}
}

func TestReduceScoreExactlyAtCutoff(t *testing.T) {
	policy := ReducedScoringPolicy{Enabled: true, Value: 0.5}
	set := reducedSet(t)

	// The cutoff instant itself is inside the window.
	got := ReduceScore(policy, set, 0, 1, scoreCutoff)
	if got != 0.5 {
		t.Errorf("expected 0.5 at the cutoff instant, got %v", got)
	}
}

func TestInReducedScoringPeriod(t *testing.T) {
	policy := ReducedScoringPolicy{Enabled: true, Value: 0.5}
	set := reducedSet(t)

	if inReducedScoringPeriod(policy, set, scoreCutoff.Add(-time.Second)) {
		t.Error("before the cutoff should not be in the window")
	}
	if !inReducedScoringPeriod(policy, set, scoreCutoff) {
		t.Error("the cutoff instant should be in the window")
	}
	set.ReducedScoringDate = nil
	if inReducedScoringPeriod(policy, set, scoreDue) {
		t.Error("a set without a cutoff has no window")
	}
}
