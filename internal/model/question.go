package model

import "strings"

// Section identifies one named block of the exam. Each section has its own
// question set, duration and status tracking.
type Section string

const (
	SectionMCQ1   Section = "mcq1"
	SectionMCQ2   Section = "mcq2"
	SectionMCQ3   Section = "mcq3"
	SectionCoding Section = "coding"
)

// Sections lists every required section in display order.
var Sections = []Section{SectionMCQ1, SectionMCQ2, SectionMCQ3, SectionCoding}

// ValidSection reports whether s names a known exam section.
func ValidSection(s Section) bool {
	for _, sec := range Sections {
		if sec == s {
			return true
		}
	}
	return false
}

type QuestionType string

const (
	QuestionTypeMCQ    QuestionType = "MCQ"
	QuestionTypeCoding QuestionType = "CODING"
)

// TestCase is a sample input/output pair attached to a coding question.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

// Question is a single generated exam question, either MCQ or coding.
// ID is unique within its section, 1-based, insertion order = display order.
// MCQ questions carry exactly four options; CorrectAnswer must be one of them.
type Question struct {
	ID            int          `json:"id"`
	Type          QuestionType `json:"type"`
	Title         string       `json:"title"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	TestCases     []TestCase   `json:"test_cases,omitempty"`
	Constraints   []string     `json:"constraints,omitempty"`
}

// Valid checks the structural invariants for a generated question.
func (q Question) Valid() bool {
	if strings.TrimSpace(q.Title) == "" {
		return false
	}
	if q.Type == QuestionTypeMCQ {
		if len(q.Options) != 4 {
			return false
		}
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				return true
			}
		}
		return false
	}
	return true
}

// NormalizeTitle folds a question title to its dedup key: lower-cased with
// every non-alphanumeric rune stripped. A missing title normalizes to "".
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DedupQuestions removes same-batch duplicates: only the first question per
// normalized title survives, in original order. The filter is batch-local
// and never consults prior session history.
func DedupQuestions(questions []Question) []Question {
	seen := make(map[string]struct{}, len(questions))
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		key := NormalizeTitle(q.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}
