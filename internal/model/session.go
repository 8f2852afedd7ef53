package model

import (
	"time"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusViolated   SessionStatus = "violated"
)

// ExamSession is the authoritative per-attempt state. It is owned by the
// session store; the document-store mirror is independently keyed and never
// authoritative for the live flow.
type ExamSession struct {
	ExamID     string                 `json:"exam_id"`
	StartTime  time.Time              `json:"start_time"`
	Sections   map[Section][]Question `json:"sections"`
	SeenTitles []string               `json:"seen_titles"`

	Status            SessionStatus `json:"status"`
	TerminationReason string        `json:"termination_reason,omitempty"`
	TerminatedAt      *time.Time    `json:"terminated_at,omitempty"`
}

// NewExamSession creates a fresh in-progress session for the given exam id.
func NewExamSession(examID string) *ExamSession {
	return &ExamSession{
		ExamID:    examID,
		StartTime: time.Now(),
		Sections:  make(map[Section][]Question),
		Status:    SessionStatusInProgress,
	}
}

// SeenTitleSet rehydrates the persisted seen-titles array into a set.
func (s *ExamSession) SeenTitleSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.SeenTitles))
	for _, t := range s.SeenTitles {
		set[t] = struct{}{}
	}
	return set
}

// MarkSeen records normalized titles for cross-batch dedup, skipping ones
// already present.
func (s *ExamSession) MarkSeen(titles []string) {
	set := s.SeenTitleSet()
	for _, t := range titles {
		if _, ok := set[t]; ok {
			continue
		}
		set[t] = struct{}{}
		s.SeenTitles = append(s.SeenTitles, t)
	}
}

// ExamResult is the finalized outcome computed by the scorer.
type ExamResult struct {
	ExamID            string        `json:"exam_id"`
	Status            SessionStatus `json:"status"`
	Score             float64       `json:"score"`
	TotalQuestions    int           `json:"total_questions"`
	CorrectAnswers    int           `json:"correct_answers"`
	TerminationReason string        `json:"termination_reason,omitempty"`
	FinishedAt        time.Time     `json:"finished_at"`
}
