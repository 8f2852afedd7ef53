package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/proctorly/proctorly-backend/internal/session"
	"github.com/rs/zerolog"
)

// ErrAlreadyFinalized is returned when the session has already been
// completed or terminated. Repeated breach signals hit this path.
var ErrAlreadyFinalized = errors.New("exam session already finalized")

// Finalizer computes and returns the exam result under a terminal status.
type Finalizer interface {
	Finalize(ctx context.Context, sess *model.ExamSession, answers []model.Answer, status model.SessionStatus, reason string) model.ExamResult
}

// ResultSink persists the finalized result (the Redis results queue).
type ResultSink interface {
	PersistResult(ctx context.Context, result model.ExamResult) error
}

// ViolationRecorder receives the high-severity entry describing a
// termination trigger.
type ViolationRecorder interface {
	Record(ctx context.Context, v model.Violation)
}

// Notifier signals the page layer so it navigates to the locked terminal
// view. The client disables back-navigation and interaction on receipt.
type Notifier interface {
	NotifyTerminated(examID, reason string)
}

// TerminationService is the auto-submit controller: it finalizes the exam
// exactly once, either on violation breach or on explicit submit.
type TerminationService struct {
	store     *session.Store
	answers   *AnswerService
	recorder  ViolationRecorder
	finalizer Finalizer
	results   ResultSink
	notifier  Notifier
	log       zerolog.Logger

	finalized atomic.Bool
}

// NewTerminationService wires the controller. recorder and notifier may be
// nil; SetRecorder breaks the construction cycle with the aggregator.
func NewTerminationService(
	store *session.Store,
	answers *AnswerService,
	finalizer Finalizer,
	results ResultSink,
	notifier Notifier,
	log zerolog.Logger,
) *TerminationService {
	return &TerminationService{
		store:     store,
		answers:   answers,
		finalizer: finalizer,
		results:   results,
		notifier:  notifier,
		log:       logger.Component(log, "termination_service"),
	}
}

// SetRecorder attaches the violation recorder after the aggregator exists.
func (t *TerminationService) SetRecorder(r ViolationRecorder) {
	t.recorder = r
}

// Terminate finalizes the session as violated. Idempotent: a second breach
// signal does not re-trigger finalization or navigation.
func (t *TerminationService) Terminate(ctx context.Context, violationType model.ViolationType) {
	reason := string(violationType)

	result, err := t.finalize(ctx, model.SessionStatusViolated, reason, violationType)
	if errors.Is(err, ErrAlreadyFinalized) {
		return
	}
	if err != nil {
		t.log.Error().Err(err).Str("reason", reason).Msg("Termination failed")
		return
	}

	t.log.Warn().
		Str("exam_id", result.ExamID).
		Str("reason", reason).
		Msg("Exam terminated by violation breach")

	if t.notifier != nil {
		t.notifier.NotifyTerminated(result.ExamID, reason)
	}
}

// Submit finalizes the session as completed (the candidate finished
// normally). Shares the violation path's once-only finalization.
func (t *TerminationService) Submit(ctx context.Context) (model.ExamResult, error) {
	return t.finalize(ctx, model.SessionStatusCompleted, "", "")
}

func (t *TerminationService) finalize(ctx context.Context, status model.SessionStatus, reason string, violationType model.ViolationType) (model.ExamResult, error) {
	if !t.finalized.CompareAndSwap(false, true) {
		return model.ExamResult{}, ErrAlreadyFinalized
	}

	sess, err := t.store.Session(ctx)
	if err != nil {
		// Nothing was finalized yet; allow a retry.
		t.finalized.Store(false)
		return model.ExamResult{}, fmt.Errorf("load session: %w", err)
	}
	if sess.Status != model.SessionStatusInProgress {
		return model.ExamResult{}, ErrAlreadyFinalized
	}
	if _, terminated, err := t.store.Terminated(ctx, sess.ExamID); err == nil && terminated {
		return model.ExamResult{}, ErrAlreadyFinalized
	}

	if status == model.SessionStatusViolated {
		if t.recorder != nil {
			t.recorder.Record(ctx, model.Violation{
				Type:        violationType,
				Severity:    model.SeverityCritical,
				Description: "Violation limit exceeded, exam terminated: " + reason,
			})
		}
		if err := t.store.MarkTerminated(ctx, sess.ExamID, reason); err != nil {
			t.log.Warn().Err(err).Msg("Failed to persist terminated flag")
		}
	}

	now := time.Now()
	sess.Status = status
	sess.TerminationReason = reason
	sess.TerminatedAt = &now
	if err := t.store.SaveSession(ctx, sess); err != nil {
		t.log.Error().Err(err).Msg("Failed to persist terminal session state")
	}

	// Drain pending debounced answer writes before grading.
	t.answers.Stop()

	result := t.finalizer.Finalize(ctx, sess, t.answers.Snapshot(), status, reason)

	if err := t.results.PersistResult(ctx, result); err != nil {
		// Local state is authoritative; the mirror can catch up later.
		t.log.Warn().Err(err).Str("exam_id", result.ExamID).Msg("Result persist failed")
	}

	return result, nil
}
