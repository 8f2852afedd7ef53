// Package session owns the authoritative exam attempt state: the serialized
// session blob, the lazily created exam id, and the section question sets.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/proctorly/proctorly-backend/internal/config"
	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/rs/zerolog"
)

// Mirror receives best-effort write-throughs to the document-store
// collaborator. Failures never surface to callers of the store.
type Mirror interface {
	MirrorSectionQuestions(ctx context.Context, examID string, section model.Section, questions []model.Question) error
}

// Store is the local session store for one candidate profile. It is an
// explicit context object created at start-exam and discarded at clear-exam;
// nothing here lives in package-level state.
type Store struct {
	backend     Backend
	mirror      Mirror // may be nil
	candidateID string
	log         zerolog.Logger
}

// NewStore creates a session store scoped to a candidate profile.
func NewStore(backend Backend, mirror Mirror, candidateID string, log zerolog.Logger) *Store {
	return &Store{
		backend:     backend,
		mirror:      mirror,
		candidateID: candidateID,
		log:         logger.Component(log, "session_store"),
	}
}

// CurrentExamID returns the active exam id, lazily creating and persisting
// one on first access. The id is stable until Clear.
func (s *Store) CurrentExamID(ctx context.Context) (string, error) {
	key := config.CacheKey.CurrentExamIDKey(s.candidateID)

	val, err := s.backend.Get(ctx, key)
	if err == nil {
		return string(val), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("get exam id: %w", err)
	}

	examID := uuid.New().String()
	if err := s.backend.Set(ctx, key, []byte(examID)); err != nil {
		return "", fmt.Errorf("persist exam id: %w", err)
	}
	return examID, nil
}

// Session returns the current exam session, creating and persisting a fresh
// one if absent.
func (s *Store) Session(ctx context.Context) (*model.ExamSession, error) {
	examID, err := s.CurrentExamID(ctx)
	if err != nil {
		return nil, err
	}

	blob, err := s.backend.Get(ctx, config.CacheKey.SessionBlobKey(examID))
	if errors.Is(err, ErrNotFound) {
		sess := model.NewExamSession(examID)
		if err := s.SaveSession(ctx, sess); err != nil {
			return nil, err
		}
		return sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session blob: %w", err)
	}

	var sess model.ExamSession
	if err := json.Unmarshal(blob, &sess); err != nil {
		return nil, fmt.Errorf("decode session blob: %w", err)
	}
	if sess.Sections == nil {
		sess.Sections = make(map[model.Section][]model.Question)
	}
	return &sess, nil
}

// SaveSession serializes the session under its fixed blob key.
func (s *Store) SaveSession(ctx context.Context, sess *model.ExamSession) error {
	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session blob: %w", err)
	}
	if err := s.backend.Set(ctx, config.CacheKey.SessionBlobKey(sess.ExamID), blob); err != nil {
		return fmt.Errorf("save session blob: %w", err)
	}
	return nil
}

// SectionQuestions returns the cached batch for a section, or ok=false when
// the section has not been loaded yet.
func (s *Store) SectionQuestions(ctx context.Context, section model.Section) ([]model.Question, bool, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return nil, false, err
	}
	questions, ok := sess.Sections[section]
	if !ok || len(questions) == 0 {
		return nil, false, nil
	}
	return questions, true, nil
}

// SaveSectionQuestions dedups the batch, replaces the section's question
// set, records normalized titles for cross-batch dedup, and fires a
// non-blocking write-through to the document-store mirror. Mirror failure
// is logged and swallowed; local state stays authoritative.
func (s *Store) SaveSectionQuestions(ctx context.Context, section model.Section, questions []model.Question) error {
	sess, err := s.Session(ctx)
	if err != nil {
		return err
	}

	deduped := model.DedupQuestions(questions)
	sess.Sections[section] = deduped

	titles := make([]string, 0, len(deduped))
	for _, q := range deduped {
		titles = append(titles, model.NormalizeTitle(q.Title))
	}
	sess.MarkSeen(titles)

	if err := s.SaveSession(ctx, sess); err != nil {
		return err
	}

	if s.mirror != nil {
		go func(examID string, batch []model.Question) {
			if err := s.mirror.MirrorSectionQuestions(context.Background(), examID, section, batch); err != nil {
				s.log.Warn().Err(err).
					Str("section", string(section)).
					Msg("Mirror write-through failed")
			}
		}(sess.ExamID, deduped)
	}

	return nil
}

// AllSectionsLoaded reports whether every required section holds a
// non-empty question array.
func (s *Store) AllSectionsLoaded(ctx context.Context) (bool, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return false, err
	}
	for _, section := range model.Sections {
		if len(sess.Sections[section]) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// MarkTerminated records the termination reason under the session-scoped
// terminated flag. The flag survives restarts, so a breach observed before a
// crash still blocks re-finalization afterwards.
func (s *Store) MarkTerminated(ctx context.Context, examID, reason string) error {
	return s.backend.Set(ctx, config.CacheKey.TerminatedKey(examID), []byte(reason))
}

// Terminated returns the recorded termination reason, ok=false when the
// session was never terminated.
func (s *Store) Terminated(ctx context.Context, examID string) (string, bool, error) {
	val, err := s.backend.Get(ctx, config.CacheKey.TerminatedKey(examID))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get terminated flag: %w", err)
	}
	return string(val), true, nil
}

// Clear invalidates the attempt: blob, exam id key and terminated flag are
// removed, so the next access starts a fresh exam.
func (s *Store) Clear(ctx context.Context) error {
	idKey := config.CacheKey.CurrentExamIDKey(s.candidateID)

	val, err := s.backend.Get(ctx, idKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get exam id: %w", err)
	}

	examID := string(val)
	return s.backend.Del(ctx,
		idKey,
		config.CacheKey.SessionBlobKey(examID),
		config.CacheKey.TerminatedKey(examID),
	)
}
