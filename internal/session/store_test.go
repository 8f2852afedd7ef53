package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/rs/zerolog"
)

type fakeMirror struct {
	mu    sync.Mutex
	calls int
	fail  bool
	done  chan struct{}
}

func newFakeMirror(fail bool) *fakeMirror {
	return &fakeMirror{fail: fail, done: make(chan struct{}, 16)}
}

func (m *fakeMirror) MirrorSectionQuestions(ctx context.Context, examID string, section model.Section, questions []model.Question) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	m.done <- struct{}{}
	if m.fail {
		return fmt.Errorf("document store down")
	}
	return nil
}

func (m *fakeMirror) wait(t *testing.T) {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(time.Second):
		t.Fatal("mirror write-through never happened")
	}
}

func newTestStore(mirror Mirror) *Store {
	return NewStore(NewMemoryBackend(), mirror, "candidate-1", zerolog.Nop())
}

func TestCurrentExamIDStable(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(nil)

	first, err := store.CurrentExamID(ctx)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first == "" {
		t.Fatal("expected generated exam id")
	}

	second, err := store.CurrentExamID(ctx)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second {
		t.Errorf("exam id changed: %s vs %s", first, second)
	}
}

func TestSessionLazyCreation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(nil)

	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.Status != model.SessionStatusInProgress {
		t.Errorf("fresh session status = %s", sess.Status)
	}
	if sess.Sections == nil {
		t.Error("sections map must be initialized")
	}

	// Reload must round-trip the same exam id.
	again, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.ExamID != sess.ExamID {
		t.Errorf("exam id not stable: %s vs %s", again.ExamID, sess.ExamID)
	}
}

func TestSaveSectionQuestionsDedupsAndRecordsTitles(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(nil)

	batch := []model.Question{
		{ID: 1, Type: model.QuestionTypeMCQ, Title: "What is Go?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "a"},
		{ID: 2, Type: model.QuestionTypeMCQ, Title: "what is go", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "b"},
		{ID: 3, Type: model.QuestionTypeMCQ, Title: "Channels", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "c"},
	}

	if err := store.SaveSectionQuestions(ctx, model.SectionMCQ1, batch); err != nil {
		t.Fatalf("save: %v", err)
	}

	questions, ok, err := store.SectionQuestions(ctx, model.SectionMCQ1)
	if err != nil || !ok {
		t.Fatalf("read back: ok=%v err=%v", ok, err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected dedup to 2, got %d", len(questions))
	}

	sess, err := store.Session(ctx)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	seen := sess.SeenTitleSet()
	if _, ok := seen["whatisgo"]; !ok {
		t.Error("normalized title not recorded")
	}
	if _, ok := seen["channels"]; !ok {
		t.Error("second title not recorded")
	}
}

func TestSaveSectionQuestionsReplacesBatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(nil)

	partial := []model.Question{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}
	complete := []model.Question{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}}

	if err := store.SaveSectionQuestions(ctx, model.SectionMCQ2, partial); err != nil {
		t.Fatalf("partial save: %v", err)
	}
	if err := store.SaveSectionQuestions(ctx, model.SectionMCQ2, complete); err != nil {
		t.Fatalf("complete save: %v", err)
	}

	questions, _, err := store.SectionQuestions(ctx, model.SectionMCQ2)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(questions) != 3 {
		t.Errorf("complete batch must replace partial, got %d questions", len(questions))
	}
}

func TestMirrorFailureDoesNotSurface(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror(true)
	store := newTestStore(mirror)

	err := store.SaveSectionQuestions(ctx, model.SectionMCQ1, []model.Question{{ID: 1, Title: "Q"}})
	if err != nil {
		t.Fatalf("mirror failure must not surface: %v", err)
	}
	mirror.wait(t)

	// Local state is intact despite the failed write-through.
	if _, ok, _ := store.SectionQuestions(ctx, model.SectionMCQ1); !ok {
		t.Error("local questions missing after mirror failure")
	}
}

func TestAllSectionsLoaded(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(nil)

	loaded, err := store.AllSectionsLoaded(ctx)
	if err != nil {
		t.Fatalf("initial: %v", err)
	}
	if loaded {
		t.Fatal("fresh session must not report all sections loaded")
	}

	for _, section := range model.Sections {
		if err := store.SaveSectionQuestions(ctx, section, []model.Question{{ID: 1, Title: string(section)}}); err != nil {
			t.Fatalf("save %s: %v", section, err)
		}
	}

	loaded, err = store.AllSectionsLoaded(ctx)
	if err != nil {
		t.Fatalf("final: %v", err)
	}
	if !loaded {
		t.Error("all sections saved but not reported loaded")
	}
}

func TestClearStartsFreshAttempt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(nil)

	first, err := store.CurrentExamID(ctx)
	if err != nil {
		t.Fatalf("first id: %v", err)
	}
	if err := store.SaveSectionQuestions(ctx, model.SectionMCQ1, []model.Question{{ID: 1, Title: "Q"}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	second, err := store.CurrentExamID(ctx)
	if err != nil {
		t.Fatalf("second id: %v", err)
	}
	if second == first {
		t.Error("clear must rotate the exam id")
	}
	if _, ok, _ := store.SectionQuestions(ctx, model.SectionMCQ1); ok {
		t.Error("cleared session still has questions")
	}
}

func TestTerminatedFlagRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(nil)

	examID, err := store.CurrentExamID(ctx)
	if err != nil {
		t.Fatalf("exam id: %v", err)
	}

	if _, ok, err := store.Terminated(ctx, examID); err != nil || ok {
		t.Fatalf("fresh session terminated: ok=%v err=%v", ok, err)
	}

	if err := store.MarkTerminated(ctx, examID, "tab-switch"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	reason, ok, err := store.Terminated(ctx, examID)
	if err != nil || !ok {
		t.Fatalf("read back: ok=%v err=%v", ok, err)
	}
	if reason != "tab-switch" {
		t.Errorf("reason = %q", reason)
	}

	// Clear removes the flag along with the rest of the attempt.
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Terminated(ctx, examID); ok {
		t.Error("terminated flag survived clear")
	}
}

func TestClearIdempotent(t *testing.T) {
	store := newTestStore(nil)
	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("clear without session: %v", err)
	}
}
