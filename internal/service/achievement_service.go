package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// DueDateExtension is the fixed shift the extension item buys.
const DueDateExtension = 48 * time.Hour

// Validation errors surfaced to the student; none of them leave any
// mutation behind.
var (
	ErrSetNotFound      = errors.New("couldn't find that homework set")
	ErrItemNotHeld      = errors.New("you don't have any uses of this item left")
	ErrSetNotExtendable = errors.New("this set can't be extended right now")
)

// AchievementStateStore is the opaque per-user item counter blob.
type AchievementStateStore interface {
	GetState(ctx context.Context, courseID, userID string) (*model.AchievementState, error)
	SaveState(ctx context.Context, courseID, userID string, state *model.AchievementState) error
}

// UserSetWriter extends the read-only set store with the update the
// extension item needs.
type UserSetWriter interface {
	UserSetStore
	Update(ctx context.Context, s *model.UserSet) error
}

// ProblemReseeder is the slice of the problem store used to re-randomize
// seeds when a set is reopened after its due date.
type ProblemReseeder interface {
	ListBySet(ctx context.Context, courseID, userID, setID string) ([]model.UserProblem, error)
	Update(ctx context.Context, p *model.UserProblem) error
}

// AchievementService applies consumable achievement items to a student's
// homework state. Currently the only item is the 48-hour due date extension.
type AchievementService struct {
	states   AchievementStateStore
	sets     UserSetWriter
	problems ProblemReseeder
	log      zerolog.Logger
}

// NewAchievementService creates a new AchievementService.
func NewAchievementService(states AchievementStateStore, sets UserSetWriter, problems ProblemReseeder, log zerolog.Logger) *AchievementService {
	return &AchievementService{
		states:   states,
		sets:     sets,
		problems: problems,
		log:      log.With().Str("component", "achievement_service").Logger(),
	}
}

// State returns the student's item counters. A student with no record gets
// an empty state, not an error.
func (s *AchievementService) State(ctx context.Context, courseID, userID string) (*model.AchievementState, error) {
	state, err := s.states.GetState(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewAchievementState(), nil
		}
		return nil, err
	}
	return state, nil
}

// ExtendDueDate spends one DueDateExtension use on the given set: the due
// date (and reduced scoring date, when set) shifts forward 48 hours, and the
// answer date is raised to the new due date if it would otherwise precede
// it. If the due date had already passed, every problem in the set is
// re-seeded first so the reopened set presents fresh versions.
//
// All preconditions are validated before the first write; a validation
// failure aborts with no mutation at all.
func (s *AchievementService) ExtendDueDate(ctx context.Context, courseID, userID, setID string, now time.Time) (*model.UserSet, error) {
	set, err := s.sets.Get(ctx, courseID, userID, setID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("load set: %w", err)
	}

	// Only plain homework sets within the extendable window qualify.
	if set.AssignmentType != model.AssignmentTypeDefault {
		return nil, ErrSetNotExtendable
	}
	if now.Before(set.OpenDate) || now.After(set.DueDate.Add(DueDateExtension)) {
		return nil, ErrSetNotExtendable
	}

	state, err := s.states.GetState(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotHeld
		}
		return nil, fmt.Errorf("load achievement state: %w", err)
	}
	if !state.ConsumeUse(model.ItemDueDateExtension) {
		return nil, ErrItemNotHeld
	}

	// Past the due date the set is reopened with fresh problem versions.
	if now.After(set.DueDate) {
		if err := s.reseedProblems(ctx, courseID, userID, setID); err != nil {
			return nil, err
		}
	}

	set.DueDate = set.DueDate.Add(DueDateExtension)
	if set.ReducedScoringDate != nil {
		shifted := set.ReducedScoringDate.Add(DueDateExtension)
		set.ReducedScoringDate = &shifted
	}
	// The answer date is a floor: raised to the new due date, never lowered.
	if set.DueDate.After(set.AnswerDate) {
		set.AnswerDate = set.DueDate
	}

	if err := s.sets.Update(ctx, set); err != nil {
		return nil, fmt.Errorf("update set: %w", err)
	}
	if err := s.states.SaveState(ctx, courseID, userID, state); err != nil {
		return nil, fmt.Errorf("save achievement state: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).Str("set_id", setID).
		Time("new_due_date", set.DueDate).
		Msg("Due date extended")

	return set, nil
}

// reseedProblems re-randomizes every problem seed in the set.
func (s *AchievementService) reseedProblems(ctx context.Context, courseID, userID, setID string) error {
	problems, err := s.problems.ListBySet(ctx, courseID, userID, setID)
	if err != nil {
		return fmt.Errorf("list problems: %w", err)
	}
	for i := range problems {
		p := &problems[i]
		p.Seed = Reseed(p.Seed)
		if err := s.problems.Update(ctx, p); err != nil {
			return fmt.Errorf("reseed problem %d: %w", p.ProblemID, err)
		}
	}
	return nil
}

// Reseed maps a problem seed to its replacement when a set is reopened.
// The legacy formula is seed mod 2^31 + 1: seeds under 2^31 just move up by
// one and larger ones only drop into their modulo class, so this is not a
// real reroll. Kept as-is for compatibility with records produced by the
// legacy system.
func Reseed(seed int64) int64 {
	return seed%(1<<31) + 1
}
