package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/courseloop/hwboard-backend/internal/config"
	"github.com/courseloop/hwboard-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ─── Fakes ───────────────────────────────────────────────────────────────

type fakeSetStore struct {
	set *model.UserSet
	err error
}

func (f *fakeSetStore) Get(_ context.Context, _, _, _ string) (*model.UserSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.set, nil
}

type fakeProblemStore struct {
	record    *model.UserProblem
	merged    *model.MergedProblem
	getErr    error
	updateErr error
	updated   *model.UserProblem

	earned, total                   float64
	gradeErr                        error
	setGradeCalls, courseGradeCalls int
}

func (f *fakeProblemStore) Get(_ context.Context, _, _, _ string, _ int) (*model.UserProblem, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.record, nil
}

func (f *fakeProblemStore) GetMerged(_ context.Context, _, _, _ string, _ int) (*model.MergedProblem, error) {
	return f.merged, nil
}

func (f *fakeProblemStore) Update(_ context.Context, p *model.UserProblem) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cp := *p
	f.updated = &cp
	return nil
}

func (f *fakeProblemStore) SetGrade(_ context.Context, _, _, _ string) (float64, float64, error) {
	f.setGradeCalls++
	return f.earned, f.total, f.gradeErr
}

func (f *fakeProblemStore) CourseGrade(_ context.Context, _, _ string) (float64, float64, error) {
	f.courseGradeCalls++
	return f.earned, f.total, f.gradeErr
}

type fakeGlobalStore struct {
	gp      *model.GlobalProblem
	getErr  error
	updated *model.GlobalProblem
}

func (f *fakeGlobalStore) Get(_ context.Context, _, _ string, _ int) (*model.GlobalProblem, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.gp, nil
}

func (f *fakeGlobalStore) Update(_ context.Context, p *model.GlobalProblem) error {
	f.updated = p
	return nil
}

type fakePastAnswers struct {
	inserted  []*model.PastAnswer
	insertErr error
}

func (f *fakePastAnswers) Insert(_ context.Context, a *model.PastAnswer) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, a)
	return nil
}

func (f *fakePastAnswers) ListByProblem(_ context.Context, _, _, _ string, _, _, _ int) ([]model.PastAnswer, int64, error) {
	out := make([]model.PastAnswer, 0, len(f.inserted))
	for _, a := range f.inserted {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

type fakeAudit struct {
	lines [][]string
	err   error
}

func (f *fakeAudit) Append(_ time.Time, fields ...string) error {
	if f.err != nil {
		return f.err
	}
	f.lines = append(f.lines, fields)
	return nil
}

type fakeSensor struct {
	events []*model.AnalyticsEvent
}

func (f *fakeSensor) Emit(_ context.Context, events ...*model.AnalyticsEvent) {
	f.events = append(f.events, events...)
}

type fakeLMS struct {
	courseCalls, setCalls int
	ok                    bool
}

func (f *fakeLMS) SubmitCourseGrade(_ context.Context, _, _ string, _ float64) bool {
	f.courseCalls++
	return f.ok
}

func (f *fakeLMS) SubmitSetGrade(_ context.Context, _, _, _ string, _ float64) bool {
	f.setCalls++
	return f.ok
}

type fakeMail struct {
	sent   int
	lastTo []string
	err    error
}

func (f *fakeMail) Send(to []string, _, _ string, _ map[string]string) error {
	f.sent++
	f.lastTo = to
	return f.err
}

// ─── Harness ─────────────────────────────────────────────────────────────

type submitEnv struct {
	sets    *fakeSetStore
	probs   *fakeProblemStore
	globals *fakeGlobalStore
	past    *fakePastAnswers
	audit   *fakeAudit
	sensor  *fakeSensor
	lms     *fakeLMS
	mail    *fakeMail
	svc     *SubmissionService
}

func newSubmitEnv(t *testing.T, cfg *config.Config) *submitEnv {
	t.Helper()

	cutoff := scoreCutoff
	env := &submitEnv{
		sets: &fakeSetStore{set: &model.UserSet{
			CourseID:             "math101",
			UserID:               "alice",
			SetID:                "hw3",
			AssignmentType:       model.AssignmentTypeDefault,
			OpenDate:             scoreOpen,
			DueDate:              scoreDue,
			AnswerDate:           scoreDue,
			ReducedScoringDate:   &cutoff,
			EnableReducedScoring: true,
		}},
		probs: &fakeProblemStore{
			record: &model.UserProblem{
				CourseID: "math101", UserID: "alice", SetID: "hw3", ProblemID: 2,
				Status: 0.4, SubStatus: 0.4, Seed: 1234,
				Flags: model.ProblemFlagSet{},
			},
			merged: &model.MergedProblem{
				UserProblem: model.UserProblem{
					CourseID: "math101", UserID: "alice", SetID: "hw3", ProblemID: 2,
					Status: 0.4, SubStatus: 0.4, Seed: 1234,
					Flags: model.ProblemFlagSet{},
				},
				Value:       1,
				MaxAttempts: -1,
			},
			earned: 3, total: 4,
		},
		globals: &fakeGlobalStore{gp: &model.GlobalProblem{
			CourseID: "math101", SetID: "hw3", ProblemID: 2,
			Value: 1, MaxAttempts: -1, Flags: model.ProblemFlagSet{},
		}},
		past:   &fakePastAnswers{},
		audit:  &fakeAudit{},
		sensor: &fakeSensor{},
		lms:    &fakeLMS{ok: true},
		mail:   &fakeMail{},
	}

	env.svc = NewSubmissionService(
		env.sets, env.probs, env.globals, env.past,
		env.audit, env.sensor, env.lms, env.mail,
		cfg, zerolog.Nop(),
	)
	return env
}

func defaultCfg() *config.Config {
	return &config.Config{
		ReducedScoringEnabled: true,
		ReducedScoringValue:   0.5,
		LMSGradeMode:          config.LMSGradeModeHomework,
		AnalyticsEnabled:      true,
		NotifyAddrs:           []string{"prof@example.edu"},
	}
}

func basicRequest(score float64) *model.SubmitRequest {
	return &model.SubmitRequest{
		Fields: map[string]model.AnswerValue{
			"AnSwEr0001": model.Scalar("42"),
		},
		Groups: []model.AnswerGroup{
			{Name: "AnSwEr0001", Type: model.GroupTypeDefault, Score: score, Fields: []string{"AnSwEr0001"}},
		},
		Score:      score,
		NumCorrect: 1,
	}
}

// ─── Tests ───────────────────────────────────────────────────────────────

func TestRecordHappyPath(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())
	at := scoreOpen.Add(24 * time.Hour) // before the cutoff

	out, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(1), at, RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if !out.Recorded || out.Message != MsgRecorded {
		t.Errorf("expected recorded outcome, got %+v", out)
	}
	if out.Status != 1 {
		t.Errorf("expected status 1, got %v", out.Status)
	}
	if env.probs.updated == nil {
		t.Fatal("record was not persisted")
	}
	if env.probs.updated.Status != 1 || env.probs.updated.SubStatus != 1 {
		t.Errorf("persisted status/subStatus = %v/%v, want 1/1",
			env.probs.updated.Status, env.probs.updated.SubStatus)
	}
	if !env.probs.updated.Attempted {
		t.Error("attempted should be set")
	}
	if env.probs.updated.LastAnswer == "" {
		t.Error("sticky answer blob should be persisted")
	}
	if len(env.past.inserted) != 1 {
		t.Fatalf("expected 1 past answer, got %d", len(env.past.inserted))
	}
	if env.past.inserted[0].Scores != "1" {
		t.Errorf("expected score string 1, got %q", env.past.inserted[0].Scores)
	}
	if len(env.audit.lines) != 1 {
		t.Errorf("expected 1 audit line, got %d", len(env.audit.lines))
	}
	if len(env.sensor.events) != 3 {
		t.Errorf("expected 3 analytics events, got %d", len(env.sensor.events))
	}
	if env.lms.setCalls != 1 {
		t.Errorf("expected 1 LMS set-grade push, got %d", env.lms.setCalls)
	}
	if len(out.Notices) != 1 || out.Notices[0] != noticeLMSSent {
		t.Errorf("expected LMS sent notice, got %v", out.Notices)
	}
}

func TestRecordStatusNeverRegresses(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())
	env.probs.record.Status = 0.9
	env.probs.record.SubStatus = 0.9
	env.probs.merged.Status = 0.9
	env.probs.merged.SubStatus = 0.9

	out, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(0.3), scoreOpen.Add(time.Hour), RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if out.Status != 0.9 {
		t.Errorf("status regressed to %v, want 0.9", out.Status)
	}
	if env.probs.updated.Status != 0.9 {
		t.Errorf("persisted status regressed to %v", env.probs.updated.Status)
	}
}

func TestRecordReducedScoringKeepsSubStatus(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())
	at := scoreCutoff.Add(time.Hour)

	out, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(0.8), at, RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	// 0.4 + 0.5*(0.8-0.4) = 0.6; subStatus stays the pre-cutoff 0.4.
	if math.Abs(out.Status-0.6) > 1e-9 {
		t.Errorf("expected discounted status 0.6, got %v", out.Status)
	}
	if env.probs.updated.SubStatus != 0.4 {
		t.Errorf("subStatus should hold at 0.4 inside the window, got %v",
			env.probs.updated.SubStatus)
	}
}

func TestRecordNotAssigned(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())
	env.probs.getErr = pgx.ErrNoRows

	out, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(1), scoreOpen.Add(time.Hour), RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if out.Recorded || out.Message != MsgNotAssigned {
		t.Errorf("expected not-assigned outcome, got %+v", out)
	}
}

func TestRecordSetClosed(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())

	out, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(1), scoreDue.Add(time.Hour), RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if out.Recorded || out.Message != MsgSetClosed {
		t.Errorf("expected set-closed outcome, got %+v", out)
	}
	if env.probs.updated != nil {
		t.Error("closed set must not be mutated")
	}
	if len(env.past.inserted) != 0 {
		t.Error("closed set must not append audit rows")
	}
}

func TestRecordPracticeNotRecorded(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())

	out, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(1), scoreOpen.Add(time.Hour), RecordOptions{Practice: true, Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if out.Recorded || out.Message != MsgNotRecorded {
		t.Errorf("expected not-recorded outcome, got %+v", out)
	}
	if env.probs.updated != nil {
		t.Error("practice submission must not be persisted")
	}
}

func TestRecordStorageFailure(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())
	env.probs.updateErr = errors.New("connection reset")

	out, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(1), scoreOpen.Add(time.Hour), RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if out.Recorded || out.Message != MsgStorageFailure {
		t.Errorf("expected storage-failure outcome, got %+v", out)
	}
	// The audit trail still gets its append.
	if len(env.past.inserted) != 1 {
		t.Errorf("expected audit append despite storage failure, got %d rows",
			len(env.past.inserted))
	}
}

func TestRecordEssayFlags(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())
	req := &model.SubmitRequest{
		Fields: map[string]model.AnswerValue{
			"AnSwEr0001": model.Scalar("long form answer"),
		},
		Groups: []model.AnswerGroup{
			{Name: "AnSwEr0001", Type: model.GroupTypeEssay, Score: 0, Fields: []string{"AnSwEr0001"}},
		},
	}

	out, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		req, scoreOpen.Add(time.Hour), RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !out.NeedsGrading {
		t.Error("essay submission should report needs grading")
	}
	if !env.probs.updated.Flags.Has(model.FlagNeedsGrading) {
		t.Error("needs_grading flag missing on the persisted record")
	}
	if env.globals.updated == nil || !env.globals.updated.Flags.Has(model.FlagEssay) {
		t.Error("global essay tag should be added")
	}
	if env.mail.sent != 1 {
		t.Errorf("expected 1 instructor notification, got %d", env.mail.sent)
	}

	// A second essay submission while needs_grading is held leaves the
	// flags alone (an instructor-granted grade is not clobbered).
	env.probs.record = env.probs.updated
	env.probs.merged.Flags = env.probs.updated.Flags
	if _, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		req, scoreOpen.Add(2*time.Hour), RecordOptions{Role: RoleStudent}); err != nil {
		t.Fatalf("Record (second): %v", err)
	}
	if !env.probs.updated.Flags.Has(model.FlagNeedsGrading) {
		t.Error("needs_grading flag should persist across submissions")
	}
}

func TestRecordGlobalEssayTagRemovedOnNonEssay(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())
	env.globals.gp.Flags.Add(model.FlagEssay)

	_, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(1), scoreOpen.Add(time.Hour), RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if env.globals.updated == nil || env.globals.updated.Flags.Has(model.FlagEssay) {
		t.Error("non-essay submission should clear the global essay tag")
	}
}

func TestRecordChannelFailuresAreIsolated(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())
	env.past.insertErr = errors.New("insert failed")
	env.audit.err = errors.New("disk full")
	env.lms.ok = false
	env.globals.getErr = errors.New("timeout")
	env.mail.err = errors.New("smtp down")

	out, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(1), scoreOpen.Add(time.Hour), RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !out.Recorded || out.Message != MsgRecorded {
		t.Errorf("side-channel failures must not affect the outcome, got %+v", out)
	}
	if len(out.Notices) != 1 || out.Notices[0] != noticeLMSNotSent {
		t.Errorf("expected LMS not-sent notice, got %v", out.Notices)
	}
}

func TestRecordAnalyticsSuppressedForInstructor(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())

	_, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(1), scoreOpen.Add(time.Hour), RecordOptions{Role: RoleInstructor})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(env.sensor.events) != 0 {
		t.Errorf("instructor submission should emit no events, got %d", len(env.sensor.events))
	}
}

func TestRecordCourseGradeMode(t *testing.T) {
	cfg := defaultCfg()
	cfg.LMSGradeMode = config.LMSGradeModeCourse
	env := newSubmitEnv(t, cfg)

	_, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		basicRequest(1), scoreOpen.Add(time.Hour), RecordOptions{Role: RoleStudent})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if env.probs.courseGradeCalls != 1 || env.lms.courseCalls != 1 {
		t.Errorf("expected course-grade push, got grade calls %d, lms calls %d",
			env.probs.courseGradeCalls, env.lms.courseCalls)
	}
}

func TestStickyAnswersRoundTrip(t *testing.T) {
	env := newSubmitEnv(t, defaultCfg())

	req := basicRequest(1)
	if _, err := env.svc.Record(context.Background(), "math101", "alice", "hw3", 2,
		req, scoreOpen.Add(time.Hour), RecordOptions{Role: RoleStudent}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	env.probs.record = env.probs.updated
	entries, err := env.svc.StickyAnswers(context.Background(), "math101", "alice", "hw3", 2)
	if err != nil {
		t.Fatalf("StickyAnswers: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "AnSwEr0001" || entries[0].Value.Flat() != "42" {
		t.Errorf("unexpected sticky answers: %+v", entries)
	}
}
