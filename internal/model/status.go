package model

// QuestionStatus tracks a candidate's progress on one question.
type QuestionStatus string

const (
	StatusNotVisited     QuestionStatus = "not-visited"
	StatusNotAnswered    QuestionStatus = "not-answered"
	StatusAnswered       QuestionStatus = "answered"
	StatusMarkedReview   QuestionStatus = "marked-review"
	StatusAnsweredMarked QuestionStatus = "answered-marked"
)

// Visit transitions a question on first display. Only a not-visited
// question changes; every other state is a no-op.
func (s QuestionStatus) Visit() QuestionStatus {
	if s == StatusNotVisited {
		return StatusNotAnswered
	}
	return s
}

// SetAnswer transitions on a non-empty answer. A marked question keeps its
// mark; everything else becomes answered.
func (s QuestionStatus) SetAnswer() QuestionStatus {
	switch s {
	case StatusMarkedReview, StatusAnsweredMarked:
		return StatusAnsweredMarked
	default:
		return StatusAnswered
	}
}

// ClearAnswer removes a recorded answer. The mark, if present, survives.
func (s QuestionStatus) ClearAnswer() QuestionStatus {
	switch s {
	case StatusAnswered:
		return StatusNotAnswered
	case StatusAnsweredMarked:
		return StatusMarkedReview
	default:
		return s
	}
}

// ToggleMark flips the review mark. Removing the mark reverts to the
// answer-determined base state. Not-visited questions cannot be marked.
func (s QuestionStatus) ToggleMark() QuestionStatus {
	switch s {
	case StatusNotAnswered:
		return StatusMarkedReview
	case StatusAnswered:
		return StatusAnsweredMarked
	case StatusMarkedReview:
		return StatusNotAnswered
	case StatusAnsweredMarked:
		return StatusAnswered
	default:
		return s
	}
}

// Marked reports whether the status carries a review mark.
func (s QuestionStatus) Marked() bool {
	return s == StatusMarkedReview || s == StatusAnsweredMarked
}
