package model

import "time"

// Answer is the per-question interaction record. It is mutated only through
// the answer service's state machine and persisted with a debounce.
type Answer struct {
	Section         Section        `json:"section"`
	QuestionID      int            `json:"question_id"`
	UserAnswer      string         `json:"user_answer"`
	Status          QuestionStatus `json:"status"`
	MarkedForReview bool           `json:"marked_for_review"`
	TimeSpent       int64          `json:"time_spent"` // accumulated seconds since first visit
	StartTime       *time.Time     `json:"start_time,omitempty"`
}
