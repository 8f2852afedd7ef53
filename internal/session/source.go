package session

import (
	"context"

	"github.com/proctorly/proctorly-backend/internal/generator"
	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/rs/zerolog"
)

// Loader is the network acquisition path behind the facade.
type Loader interface {
	Load(ctx context.Context, section model.Section, onProgress generator.ProgressFunc) generator.Result
}

// Source is the question sourcing facade: the only entry point page-level
// callers use. It guarantees at most one network fetch per section per
// session; GenerateMore is the explicit top-up escape hatch.
type Source struct {
	store  *Store
	loader Loader
	log    zerolog.Logger
}

// NewSource creates the facade over a store and loader.
func NewSource(store *Store, loader Loader, log zerolog.Logger) *Source {
	return &Source{
		store:  store,
		loader: loader,
		log:    logger.Component(log, "question_source"),
	}
}

// GetOrLoad serves a section from cache when present, otherwise delegates
// to the streaming loader (which persists into the store as a side channel).
func (f *Source) GetOrLoad(ctx context.Context, section model.Section, onProgress generator.ProgressFunc) (generator.Result, error) {
	cached, ok, err := f.store.SectionQuestions(ctx, section)
	if err != nil {
		return generator.Result{}, err
	}
	if ok {
		f.log.Debug().Str("section", string(section)).Int("count", len(cached)).Msg("Section cache hit")
		return generator.Result{Questions: cached, Source: generator.SourceCache}, nil
	}

	return f.loader.Load(ctx, section, onProgress), nil
}

// GenerateMore tops up an incomplete cached batch with a fresh generation
// round, keeping the cached questions and appending only titles the session
// has never seen. The persisted seen-title history filters out questions
// from earlier rounds even when a batch replacement dropped them from the
// section.
func (f *Source) GenerateMore(ctx context.Context, section model.Section, onProgress generator.ProgressFunc) (generator.Result, error) {
	sess, err := f.store.Session(ctx)
	if err != nil {
		return generator.Result{}, err
	}
	existing := sess.Sections[section]

	fresh := f.loader.Load(ctx, section, onProgress)
	merged := mergeBatches(existing, fresh.Questions, sess.SeenTitleSet())

	if err := f.store.SaveSectionQuestions(ctx, section, merged); err != nil {
		return generator.Result{}, err
	}
	return generator.Result{Questions: merged, Source: fresh.Source}, nil
}

// mergeBatches appends fresh questions whose normalized title is neither in
// the current batch nor in the session's seen history, renumbering ids so
// insertion order stays the display order.
func mergeBatches(existing, fresh []model.Question, seen map[string]struct{}) []model.Question {
	if seen == nil {
		seen = make(map[string]struct{}, len(existing))
	}
	for _, q := range existing {
		seen[model.NormalizeTitle(q.Title)] = struct{}{}
	}

	merged := make([]model.Question, 0, len(existing)+len(fresh))
	merged = append(merged, existing...)
	for _, q := range fresh {
		key := model.NormalizeTitle(q.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, q)
	}

	for i := range merged {
		merged[i].ID = i + 1
	}
	return merged
}
