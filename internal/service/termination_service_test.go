package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/proctorly/proctorly-backend/internal/session"
	"github.com/rs/zerolog"
)

type fakeResultSink struct {
	mu      sync.Mutex
	results []model.ExamResult
}

func (s *fakeResultSink) PersistResult(ctx context.Context, result model.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (n *fakeNotifier) NotifyTerminated(examID, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

type fakeRecorder struct {
	mu         sync.Mutex
	violations []model.Violation
}

func (r *fakeRecorder) Record(ctx context.Context, v model.Violation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations = append(r.violations, v)
}

type terminationFixture struct {
	store    *session.Store
	answers  *AnswerService
	results  *fakeResultSink
	notifier *fakeNotifier
	recorder *fakeRecorder
	term     *TerminationService
}

func newTerminationFixture(t *testing.T) *terminationFixture {
	t.Helper()
	store := session.NewStore(session.NewMemoryBackend(), nil, "candidate-1", zerolog.Nop())

	sess, err := store.Session(context.Background())
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	// Two MCQs with known keys so grading is deterministic.
	err = store.SaveSectionQuestions(context.Background(), model.SectionMCQ1, []model.Question{
		{ID: 1, Type: model.QuestionTypeMCQ, Title: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "a"},
		{ID: 2, Type: model.QuestionTypeMCQ, Title: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "b"},
	})
	if err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	answers := NewAnswerService(sess.ExamID, time.Hour, &fakePersister{}, zerolog.Nop())
	results := &fakeResultSink{}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}

	term := NewTerminationService(store, answers, NewScoringService(zerolog.Nop()), results, notifier, zerolog.Nop())
	term.SetRecorder(recorder)

	return &terminationFixture{
		store:    store,
		answers:  answers,
		results:  results,
		notifier: notifier,
		recorder: recorder,
		term:     term,
	}
}

func TestTerminateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newTerminationFixture(t)

	f.term.Terminate(ctx, model.ViolationTabSwitch)
	f.term.Terminate(ctx, model.ViolationTabSwitch)
	f.term.Terminate(ctx, model.ViolationVoiceDetection)

	f.results.mu.Lock()
	persisted := len(f.results.results)
	f.results.mu.Unlock()
	if persisted != 1 {
		t.Errorf("expected exactly 1 finalized result, got %d", persisted)
	}

	f.notifier.mu.Lock()
	notified := len(f.notifier.reasons)
	reason := ""
	if notified > 0 {
		reason = f.notifier.reasons[0]
	}
	f.notifier.mu.Unlock()
	if notified != 1 {
		t.Errorf("expected exactly 1 notification, got %d", notified)
	}
	if reason != "tab-switch" {
		t.Errorf("termination reason = %q, want tab-switch", reason)
	}
}

func TestTerminateMarksSessionViolated(t *testing.T) {
	ctx := context.Background()
	f := newTerminationFixture(t)

	f.term.Terminate(ctx, model.ViolationPersonOutOfFrame)

	sess, err := f.store.Session(ctx)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.Status != model.SessionStatusViolated {
		t.Errorf("status = %s", sess.Status)
	}
	if sess.TerminationReason != "person-out-of-frame" {
		t.Errorf("reason = %q", sess.TerminationReason)
	}
	if sess.TerminatedAt == nil {
		t.Error("terminated_at not set")
	}

	// The breach itself is recorded as a critical violation.
	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	if len(f.recorder.violations) != 1 {
		t.Fatalf("expected 1 recorded violation, got %d", len(f.recorder.violations))
	}
	if f.recorder.violations[0].Severity != model.SeverityCritical {
		t.Errorf("recorded severity = %s", f.recorder.violations[0].Severity)
	}
}

func TestTerminatePersistsTerminatedFlag(t *testing.T) {
	ctx := context.Background()
	f := newTerminationFixture(t)

	f.term.Terminate(ctx, model.ViolationVoiceDetection)

	sess, err := f.store.Session(ctx)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	reason, ok, err := f.store.Terminated(ctx, sess.ExamID)
	if err != nil || !ok {
		t.Fatalf("terminated flag missing: ok=%v err=%v", ok, err)
	}
	if reason != "voice-detection" {
		t.Errorf("flag reason = %q", reason)
	}

	// A second controller over the same store (a restart) must refuse to
	// finalize again.
	answers := NewAnswerService(sess.ExamID, time.Hour, &fakePersister{}, zerolog.Nop())
	revived := NewTerminationService(f.store, answers, NewScoringService(zerolog.Nop()), f.results, f.notifier, zerolog.Nop())
	if _, err := revived.Submit(ctx); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("revived controller finalized again: %v", err)
	}
}

func TestSubmitGradesAndCompletes(t *testing.T) {
	ctx := context.Background()
	f := newTerminationFixture(t)

	// One correct, one wrong.
	f.answers.OnAnswerChange(ctx, model.SectionMCQ1, 1, "a")
	f.answers.OnAnswerChange(ctx, model.SectionMCQ1, 2, "c")

	result, err := f.term.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if result.Status != model.SessionStatusCompleted {
		t.Errorf("result status = %s", result.Status)
	}
	if result.TotalQuestions != 2 || result.CorrectAnswers != 1 {
		t.Errorf("graded %d/%d, want 1/2", result.CorrectAnswers, result.TotalQuestions)
	}
	if result.Score != 50 {
		t.Errorf("score = %v, want 50", result.Score)
	}
	if result.TerminationReason != "" {
		t.Errorf("normal submit has reason %q", result.TerminationReason)
	}

	sess, err := f.store.Session(ctx)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.Status != model.SessionStatusCompleted {
		t.Errorf("session status = %s", sess.Status)
	}
}

func TestSubmitAfterTerminateFails(t *testing.T) {
	ctx := context.Background()
	f := newTerminationFixture(t)

	f.term.Terminate(ctx, model.ViolationTabSwitch)

	if _, err := f.term.Submit(ctx); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("expected ErrAlreadyFinalized, got %v", err)
	}
}

func TestDoubleSubmitFails(t *testing.T) {
	ctx := context.Background()
	f := newTerminationFixture(t)

	if _, err := f.term.Submit(ctx); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.term.Submit(ctx); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("expected ErrAlreadyFinalized, got %v", err)
	}
}
