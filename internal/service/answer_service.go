package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/proctorly/proctorly-backend/internal/debounce"
	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/rs/zerolog"
)

// AnswerPersister receives debounced answer writes. The production
// implementation pushes onto the Redis answers queue.
type AnswerPersister interface {
	PersistAnswer(ctx context.Context, examID string, a model.Answer) error
}

// AnswerService is the per-question status state machine for one exam
// session. Mutations update in-memory state synchronously and schedule a
// debounced persistence write; rapid edits to the same question coalesce
// to the last value, while different questions flush independently.
type AnswerService struct {
	examID    string
	persister AnswerPersister
	debouncer *debounce.Writer
	log       zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	answers map[string]*model.Answer
}

// NewAnswerService creates the state machine with the given debounce window.
func NewAnswerService(examID string, window time.Duration, persister AnswerPersister, log zerolog.Logger) *AnswerService {
	return &AnswerService{
		examID:    examID,
		persister: persister,
		debouncer: debounce.NewWriter(window),
		log:       logger.Component(log, "answer_service").With().Str("exam_id", examID).Logger(),
		now:       time.Now,
		answers:   make(map[string]*model.Answer),
	}
}

// OnVisit marks a question as displayed. Only the first visit changes state.
func (s *AnswerService) OnVisit(ctx context.Context, section model.Section, questionID int) {
	s.mutate(ctx, section, questionID, func(a *model.Answer) {
		a.Status = a.Status.Visit()
	})
}

// OnAnswerChange records the candidate's answer. An empty value is "no
// answer" and clears instead; no input is ever a validation error.
func (s *AnswerService) OnAnswerChange(ctx context.Context, section model.Section, questionID int, value string) {
	s.mutate(ctx, section, questionID, func(a *model.Answer) {
		if value == "" {
			a.UserAnswer = ""
			a.Status = a.Status.ClearAnswer()
			return
		}
		a.UserAnswer = value
		a.Status = a.Status.SetAnswer()
	})
}

// OnMarkForReview toggles the review mark.
func (s *AnswerService) OnMarkForReview(ctx context.Context, section model.Section, questionID int) {
	s.mutate(ctx, section, questionID, func(a *model.Answer) {
		a.Status = a.Status.ToggleMark()
	})
}

// OnClearResponse discards the recorded answer, keeping any review mark.
func (s *AnswerService) OnClearResponse(ctx context.Context, section model.Section, questionID int) {
	s.mutate(ctx, section, questionID, func(a *model.Answer) {
		a.UserAnswer = ""
		a.Status = a.Status.ClearAnswer()
	})
}

// Status returns the current status for a question.
func (s *AnswerService) Status(section model.Section, questionID int) model.QuestionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.answers[answerKey(section, questionID)]; ok {
		return a.Status
	}
	return model.StatusNotVisited
}

// GetTimeSpent returns elapsed wall-clock seconds since the question's
// first visit, or 0 if it was never visited.
func (s *AnswerService) GetTimeSpent(section model.Section, questionID int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[answerKey(section, questionID)]
	if !ok || a.StartTime == nil {
		return 0
	}
	return int64(s.now().Sub(*a.StartTime).Seconds())
}

// Snapshot returns a copy of every touched answer record.
func (s *AnswerService) Snapshot() []model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Answer, 0, len(s.answers))
	for _, a := range s.answers {
		out = append(out, *a)
	}
	return out
}

// Stop drains pending debounced writes. Called at finalization/shutdown.
func (s *AnswerService) Stop() {
	s.debouncer.Stop()
}

// mutate applies fn under the lock, refreshes bookkeeping fields, and
// schedules the debounced persistence write for this question.
func (s *AnswerService) mutate(ctx context.Context, section model.Section, questionID int, fn func(*model.Answer)) {
	key := answerKey(section, questionID)

	s.mu.Lock()
	a, ok := s.answers[key]
	if !ok {
		a = &model.Answer{
			Section:    section,
			QuestionID: questionID,
			Status:     model.StatusNotVisited,
		}
		s.answers[key] = a
	}
	if a.StartTime == nil {
		t := s.now()
		a.StartTime = &t
	}

	fn(a)

	a.MarkedForReview = a.Status.Marked()
	a.TimeSpent = int64(s.now().Sub(*a.StartTime).Seconds())
	snapshot := *a
	s.mu.Unlock()

	s.debouncer.Schedule(key, func() {
		// Persistence failures are swallowed; local state stays authoritative.
		if err := s.persister.PersistAnswer(context.Background(), s.examID, snapshot); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Answer persist failed")
		}
	})
}

func answerKey(section model.Section, questionID int) string {
	return fmt.Sprintf("%s:%d", section, questionID)
}
