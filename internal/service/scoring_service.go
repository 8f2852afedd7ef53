package service

import (
	"context"
	"time"

	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/rs/zerolog"
)

// ScoringService grades the exam in RAM against the cached answer keys.
// It stands in for the external scoring collaborator: MCQ answers are
// compared to the generated correct option; coding questions count toward
// the total but are scored elsewhere.
type ScoringService struct {
	log zerolog.Logger
}

// NewScoringService creates a new ScoringService.
func NewScoringService(log zerolog.Logger) *ScoringService {
	return &ScoringService{log: logger.Component(log, "scoring_service")}
}

// Finalize computes the result for a session under the given terminal
// status. Implements Finalizer.
func (s *ScoringService) Finalize(ctx context.Context, sess *model.ExamSession, answers []model.Answer, status model.SessionStatus, reason string) model.ExamResult {
	byQuestion := make(map[string]model.Answer, len(answers))
	for _, a := range answers {
		byQuestion[answerKey(a.Section, a.QuestionID)] = a
	}

	total := 0
	correct := 0
	for section, questions := range sess.Sections {
		for _, q := range questions {
			total++
			if q.Type != model.QuestionTypeMCQ {
				continue
			}
			if a, ok := byQuestion[answerKey(section, q.ID)]; ok && a.UserAnswer == q.CorrectAnswer {
				correct++
			}
		}
	}

	var score float64
	if total > 0 {
		score = float64(correct) / float64(total) * 100
	}

	s.log.Info().
		Str("exam_id", sess.ExamID).
		Str("status", string(status)).
		Float64("score", score).
		Int("correct", correct).
		Int("total", total).
		Msg("Exam graded")

	return model.ExamResult{
		ExamID:            sess.ExamID,
		Status:            status,
		Score:             score,
		TotalQuestions:    total,
		CorrectAnswers:    correct,
		TerminationReason: reason,
		FinishedAt:        time.Now(),
	}
}
