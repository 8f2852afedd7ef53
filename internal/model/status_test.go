package model

import "testing"

func TestStatusVisit(t *testing.T) {
	tests := []struct {
		name string
		from QuestionStatus
		want QuestionStatus
	}{
		{"first visit", StatusNotVisited, StatusNotAnswered},
		{"revisit not answered", StatusNotAnswered, StatusNotAnswered},
		{"revisit answered", StatusAnswered, StatusAnswered},
		{"revisit marked", StatusMarkedReview, StatusMarkedReview},
		{"revisit answered marked", StatusAnsweredMarked, StatusAnsweredMarked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.Visit(); got != tt.want {
				t.Errorf("Visit() from %s = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

func TestStatusSetAnswer(t *testing.T) {
	tests := []struct {
		name string
		from QuestionStatus
		want QuestionStatus
	}{
		{"answer fresh question", StatusNotAnswered, StatusAnswered},
		{"answer keeps mark", StatusMarkedReview, StatusAnsweredMarked},
		{"re-answer answered", StatusAnswered, StatusAnswered},
		{"re-answer answered marked", StatusAnsweredMarked, StatusAnsweredMarked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.SetAnswer(); got != tt.want {
				t.Errorf("SetAnswer() from %s = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

func TestStatusClearAnswer(t *testing.T) {
	tests := []struct {
		name string
		from QuestionStatus
		want QuestionStatus
	}{
		{"clear answered", StatusAnswered, StatusNotAnswered},
		{"clear keeps mark", StatusAnsweredMarked, StatusMarkedReview},
		{"clear not answered is noop", StatusNotAnswered, StatusNotAnswered},
		{"clear marked only is noop", StatusMarkedReview, StatusMarkedReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.ClearAnswer(); got != tt.want {
				t.Errorf("ClearAnswer() from %s = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

func TestStatusToggleMark(t *testing.T) {
	tests := []struct {
		name string
		from QuestionStatus
		want QuestionStatus
	}{
		{"mark unanswered", StatusNotAnswered, StatusMarkedReview},
		{"mark answered", StatusAnswered, StatusAnsweredMarked},
		{"unmark reverts to unanswered", StatusMarkedReview, StatusNotAnswered},
		{"unmark reverts to answered", StatusAnsweredMarked, StatusAnswered},
		{"cannot mark unvisited", StatusNotVisited, StatusNotVisited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.ToggleMark(); got != tt.want {
				t.Errorf("ToggleMark() from %s = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

// TestStatusLifecycle walks a realistic interaction sequence end to end.
func TestStatusLifecycle(t *testing.T) {
	s := StatusNotVisited

	s = s.Visit()
	if s != StatusNotAnswered {
		t.Fatalf("after visit: %s", s)
	}

	s = s.SetAnswer()
	if s != StatusAnswered {
		t.Fatalf("after answer: %s", s)
	}

	s = s.ToggleMark()
	if s != StatusAnsweredMarked {
		t.Fatalf("after mark: %s", s)
	}

	s = s.ClearAnswer()
	if s != StatusMarkedReview {
		t.Fatalf("after clear: %s", s)
	}

	s = s.SetAnswer()
	if s != StatusAnsweredMarked {
		t.Fatalf("after re-answer: %s", s)
	}

	s = s.ToggleMark()
	if s != StatusAnswered {
		t.Fatalf("after unmark: %s", s)
	}
}

func TestStatusMarked(t *testing.T) {
	marked := []QuestionStatus{StatusMarkedReview, StatusAnsweredMarked}
	unmarked := []QuestionStatus{StatusNotVisited, StatusNotAnswered, StatusAnswered}

	for _, s := range marked {
		if !s.Marked() {
			t.Errorf("%s should report marked", s)
		}
	}
	for _, s := range unmarked {
		if s.Marked() {
			t.Errorf("%s should not report marked", s)
		}
	}
}
