package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/courseloop/hwboard-backend/internal/config"
	"github.com/courseloop/hwboard-backend/internal/lms"
	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Student-visible outcome messages.
const (
	MsgRecorded       = "Your score was recorded."
	MsgStorageFailure = "Your score was not recorded because there was a failure in storing the problem record to the database."
	MsgNotAssigned    = "Your score was not recorded because this problem has not been assigned to you."
	MsgSetClosed      = "Your score was not recorded because this homework set is closed."
	MsgNotRecorded    = "Your score was not recorded."

	noticeLMSSent    = "Your score was successfully sent to the LMS."
	noticeLMSNotSent = "Your score was NOT sent to the LMS."
)

// UserSetStore is the assignment slice of the persistence layer the
// reconciler depends on.
type UserSetStore interface {
	Get(ctx context.Context, courseID, userID, setID string) (*model.UserSet, error)
}

// UserProblemStore covers the per-student problem records: the persisted
// user record, the merged effective view, and grade aggregates.
type UserProblemStore interface {
	Get(ctx context.Context, courseID, userID, setID string, problemID int) (*model.UserProblem, error)
	GetMerged(ctx context.Context, courseID, userID, setID string, problemID int) (*model.MergedProblem, error)
	Update(ctx context.Context, p *model.UserProblem) error
	SetGrade(ctx context.Context, courseID, userID, setID string) (earned, total float64, err error)
	CourseGrade(ctx context.Context, courseID, userID string) (earned, total float64, err error)
}

// GlobalProblemStore covers the shared per-(set, problem) metadata.
type GlobalProblemStore interface {
	Get(ctx context.Context, courseID, setID string, problemID int) (*model.GlobalProblem, error)
	Update(ctx context.Context, p *model.GlobalProblem) error
}

// PastAnswerStore is the append-only audit table.
type PastAnswerStore interface {
	Insert(ctx context.Context, a *model.PastAnswer) error
	ListByProblem(ctx context.Context, courseID, userID, setID string, problemID, page, perPage int) ([]model.PastAnswer, int64, error)
}

// AuditSink is the line-oriented audit log file.
type AuditSink interface {
	Append(at time.Time, fields ...string) error
}

// EventSensor accepts best-effort analytics events.
type EventSensor interface {
	Emit(ctx context.Context, events ...*model.AnalyticsEvent)
}

// MailSender delivers best-effort notification mail.
type MailSender interface {
	Send(to []string, subject, body string, headers map[string]string) error
}

// RecordOptions carries the caller-decided knobs for one reconciliation.
type RecordOptions struct {
	// Practice marks a no-credit submission; nothing is persisted.
	Practice bool
	// Role suppresses analytics emission for non-student submitters.
	Role Role
}

// SubmitOutcome is the student-visible result of a reconciliation.
type SubmitOutcome struct {
	Recorded bool     `json:"recorded"`
	Message  string   `json:"message"`
	Notices  []string `json:"notices,omitempty"`
	Status   float64  `json:"status"`
	NeedsGrading bool `json:"needs_grading,omitempty"`
}

// SubmissionService reconciles freshly graded problem attempts into student
// state and fans out to the audit trail, analytics sensor, LMS, and
// instructor mail. Each fan-out channel tolerates failure independently:
// a dead sensor or LMS never rolls back the committed score record.
type SubmissionService struct {
	sets        UserSetStore
	problems    UserProblemStore
	globals     GlobalProblemStore
	pastAnswers PastAnswerStore
	audit       AuditSink
	sensor      EventSensor
	lmsClient   lms.Client
	mail        MailSender

	policy           ReducedScoringPolicy
	lmsMode          config.LMSGradeMode
	analyticsEnabled bool
	notifyAddrs      []string

	log zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService. sensor, lmsClient
// and mail may be nil when the corresponding channel is disabled.
func NewSubmissionService(
	sets UserSetStore,
	problems UserProblemStore,
	globals GlobalProblemStore,
	pastAnswers PastAnswerStore,
	audit AuditSink,
	sensor EventSensor,
	lmsClient lms.Client,
	mail MailSender,
	cfg *config.Config,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		sets:        sets,
		problems:    problems,
		globals:     globals,
		pastAnswers: pastAnswers,
		audit:       audit,
		sensor:      sensor,
		lmsClient:   lmsClient,
		mail:        mail,
		policy: ReducedScoringPolicy{
			Enabled: cfg.ReducedScoringEnabled,
			Value:   cfg.ReducedScoringValue,
		},
		lmsMode:          cfg.LMSGradeMode,
		analyticsEnabled: cfg.AnalyticsEnabled,
		notifyAddrs:      cfg.NotifyAddrs,
		log:              log.With().Str("component", "submission_service").Logger(),
	}
}

// Record reconciles one graded submission. The persisted record and the
// merged view are updated in lockstep; the outcome message reflects the
// first step that failed while everything that did succeed stays committed.
func (s *SubmissionService) Record(ctx context.Context, courseID, userID, setID string, problemID int, req *model.SubmitRequest, submitTime time.Time, opts RecordOptions) (*SubmitOutcome, error) {
	enc, err := EncodeResponses(req.Fields, req.Groups, req.ExtraFields)
	if err != nil {
		return nil, fmt.Errorf("encode responses: %w", err)
	}

	set, err := s.sets.Get(ctx, courseID, userID, setID)
	if err != nil {
		return nil, fmt.Errorf("load set: %w", err)
	}

	// Recording happens only for graded submissions inside the answer
	// window; everything else is reported without mutation.
	if opts.Practice || !set.Open(submitTime) {
		if !set.Open(submitTime) {
			return &SubmitOutcome{Message: MsgSetClosed}, nil
		}
		return &SubmitOutcome{Message: MsgNotRecorded}, nil
	}

	record, err := s.problems.Get(ctx, courseID, userID, setID, problemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &SubmitOutcome{Message: MsgNotAssigned}, nil
		}
		return nil, fmt.Errorf("load problem record: %w", err)
	}

	merged, err := s.problems.GetMerged(ctx, courseID, userID, setID, problemID)
	if err != nil {
		return nil, fmt.Errorf("load merged view: %w", err)
	}

	// New sticky answers land on both views.
	merged.LastAnswer = enc.ReplayBlob
	record.LastAnswer = enc.ReplayBlob

	// Scores never regress: keep the best of the old status and the
	// (possibly discounted) new score.
	effective := ReduceScore(s.policy, set, record.SubStatus, req.Score, submitTime)
	if effective > merged.Status {
		merged.Status = effective
	}

	// Outside the reduced-scoring window subStatus simply tracks status.
	// Inside it, subStatus stays put as the pre-cutoff reference point.
	if !inReducedScoringPeriod(s.policy, set, submitTime) {
		merged.SubStatus = merged.Status
	}

	merged.Attempted = true
	merged.NumCorrect = req.NumCorrect
	merged.NumIncorrect = req.NumIncorrect

	merged.SyncTo(record)

	s.applyEssayFlags(record, merged, enc.IsEssay)
	s.updateGlobalEssayFlag(ctx, courseID, setID, problemID, enc.IsEssay)

	outcome := &SubmitOutcome{
		Recorded:     true,
		Message:      MsgRecorded,
		Status:       record.Status,
		NeedsGrading: record.Flags.Has(model.FlagNeedsGrading),
	}

	if err := s.problems.Update(ctx, record); err != nil {
		s.log.Error().Err(err).
			Str("user_id", userID).Str("set_id", setID).Int("problem_id", problemID).
			Msg("Problem record update failed")
		outcome.Recorded = false
		outcome.Message = MsgStorageFailure
	}

	s.appendAudit(ctx, courseID, userID, setID, problemID, submitTime, enc)

	if s.analyticsEnabled && opts.Role == RoleStudent && s.sensor != nil {
		s.emitEvents(ctx, courseID, userID, setID, problemID, record.Status, submitTime)
	}

	s.pushGrade(ctx, courseID, userID, setID, outcome)

	if enc.IsEssay && outcome.Recorded {
		s.notifyInstructor(courseID, userID, setID, problemID)
	}

	return outcome, nil
}

// StickyAnswers decodes the persisted replay blob so the frontend can
// repopulate the submission form.
func (s *SubmissionService) StickyAnswers(ctx context.Context, courseID, userID, setID string, problemID int) ([]model.ReplayEntry, error) {
	record, err := s.problems.Get(ctx, courseID, userID, setID, problemID)
	if err != nil {
		return nil, err
	}
	return model.DecodeReplay(record.LastAnswer)
}

// PastAnswers lists the audit trail for one problem attempt.
func (s *SubmissionService) PastAnswers(ctx context.Context, courseID, userID, setID string, problemID, page, perPage int) ([]model.PastAnswer, int64, error) {
	return s.pastAnswers.ListByProblem(ctx, courseID, userID, setID, problemID, page, perPage)
}

// applyEssayFlags handles the needs_grading/graded bookkeeping on both the
// persisted record and the merged view.
func (s *SubmissionService) applyEssayFlags(record *model.UserProblem, merged *model.MergedProblem, isEssay bool) {
	if !isEssay || record.Flags.Has(model.FlagNeedsGrading) {
		return
	}
	record.Flags.Remove(model.FlagGraded)
	record.Flags.Add(model.FlagNeedsGrading)
	merged.Flags.Remove(model.FlagGraded)
	merged.Flags.Add(model.FlagNeedsGrading)
}

// updateGlobalEssayFlag keeps the shared essay tag in sync with the latest
// submission: added when an essay answer shows up, removed when a non-essay
// one does. Last submission wins; concurrent submissions to the same shared
// problem may race on this tag, which is accepted for this domain.
func (s *SubmissionService) updateGlobalEssayFlag(ctx context.Context, courseID, setID string, problemID int, isEssay bool) {
	gp, err := s.globals.Get(ctx, courseID, setID, problemID)
	if err != nil {
		s.log.Warn().Err(err).Str("set_id", setID).Int("problem_id", problemID).
			Msg("Global problem load failed, essay tag not updated")
		return
	}

	switch {
	case isEssay && !gp.Flags.Has(model.FlagEssay):
		gp.Flags.Add(model.FlagEssay)
	case !isEssay && gp.Flags.Has(model.FlagEssay):
		gp.Flags.Remove(model.FlagEssay)
	default:
		return
	}

	if err := s.globals.Update(ctx, gp); err != nil {
		s.log.Warn().Err(err).Str("set_id", setID).Int("problem_id", problemID).
			Msg("Global problem update failed, essay tag not updated")
	}
}

func (s *SubmissionService) appendAudit(ctx context.Context, courseID, userID, setID string, problemID int, submitTime time.Time, enc EncodedResponses) {
	past := &model.PastAnswer{
		CourseID:   courseID,
		UserID:     userID,
		SetID:      setID,
		ProblemID:  problemID,
		SubmitTime: submitTime,
		Scores:     enc.ScoreString,
		AnswerText: enc.AuditString,
	}
	if err := s.pastAnswers.Insert(ctx, past); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Past answer insert failed")
	}

	if s.audit == nil {
		return
	}
	err := s.audit.Append(submitTime,
		courseID, userID, setID+"."+strconv.Itoa(problemID),
		enc.ScoreString, enc.AuditString)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Audit log append failed")
	}
}

func (s *SubmissionService) emitEvents(ctx context.Context, courseID, userID, setID string, problemID int, status float64, submitTime time.Time) {
	base := model.AnalyticsEvent{
		CourseID:  courseID,
		UserID:    userID,
		SetID:     setID,
		Score:     status,
		EmittedAt: submitTime,
	}

	completion := base
	completion.ID = uuid.New().String()
	completion.Kind = model.EventItemCompletion
	completion.ProblemID = problemID

	submission := base
	submission.ID = uuid.New().String()
	submission.Kind = model.EventSetSubmission

	toolUse := base
	toolUse.ID = uuid.New().String()
	toolUse.Kind = model.EventToolUse
	toolUse.ProblemID = problemID

	s.sensor.Emit(ctx, &completion, &submission, &toolUse)
}

// pushGrade performs the on-submit LMS grade passback. Its success or
// failure is reported as a notice and never affects the stored record.
func (s *SubmissionService) pushGrade(ctx context.Context, courseID, userID, setID string, outcome *SubmitOutcome) {
	if s.lmsMode == config.LMSGradeModeOff || s.lmsClient == nil {
		return
	}

	var earned, total float64
	var err error
	switch s.lmsMode {
	case config.LMSGradeModeCourse:
		earned, total, err = s.problems.CourseGrade(ctx, courseID, userID)
	case config.LMSGradeModeHomework:
		earned, total, err = s.problems.SetGrade(ctx, courseID, userID, setID)
	default:
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Grade aggregation failed")
		outcome.Notices = append(outcome.Notices, noticeLMSNotSent)
		return
	}

	var score float64
	if total > 0 {
		score = earned / total
	}

	var sent bool
	if s.lmsMode == config.LMSGradeModeCourse {
		sent = s.lmsClient.SubmitCourseGrade(ctx, courseID, userID, score)
	} else {
		sent = s.lmsClient.SubmitSetGrade(ctx, courseID, userID, setID, score)
	}

	if sent {
		outcome.Notices = append(outcome.Notices, noticeLMSSent)
	} else {
		outcome.Notices = append(outcome.Notices, noticeLMSNotSent)
	}
}

// notifyInstructor sends the best-effort "essay needs grading" mail.
func (s *SubmissionService) notifyInstructor(courseID, userID, setID string, problemID int) {
	if s.mail == nil || len(s.notifyAddrs) == 0 {
		return
	}

	subject := fmt.Sprintf("[%s] Essay answer needs grading: %s problem %d", courseID, setID, problemID)
	body := fmt.Sprintf(
		"Student %s submitted an essay answer for set %s, problem %d.\nIt is waiting in the manual grading queue.\n",
		userID, setID, problemID)
	headers := map[string]string{
		"X-HWBoard-Course": courseID,
		"X-HWBoard-Set":    setID,
	}

	if err := s.mail.Send(s.notifyAddrs, subject, body, headers); err != nil {
		s.log.Warn().Err(err).Str("set_id", setID).Msg("Instructor notification failed")
	}
}
