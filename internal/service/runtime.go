package service

import (
	"context"
	"sync"
	"time"

	"github.com/proctorly/proctorly-backend/internal/config"
	"github.com/proctorly/proctorly-backend/internal/generator"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/proctorly/proctorly-backend/internal/queue"
	"github.com/proctorly/proctorly-backend/internal/session"
	"github.com/proctorly/proctorly-backend/internal/violation"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Runtime bundles the per-attempt components: the session store, question
// sourcing facade, answer state machine, violation aggregator and the
// termination controller. It is created at start-exam and torn down at
// clear-exam; no component reaches for ambient global state.
type Runtime struct {
	ExamID      string
	CandidateID string
	Store       *session.Store
	Source      *session.Source
	Answers     *AnswerService
	Violations  *violation.Aggregator
	Termination *TerminationService

	cancel context.CancelFunc
}

// Manager creates and tracks exam runtimes, one per active exam session.
type Manager struct {
	cfg      *config.Config
	rdb      *redis.Client
	queue    *queue.Queue
	mirror   session.Mirror
	notifier Notifier
	log      zerolog.Logger

	mu       sync.Mutex
	runtimes map[string]*Runtime // keyed by exam id
}

// NewManager creates a runtime manager. mirror and notifier may be nil.
func NewManager(cfg *config.Config, rdb *redis.Client, q *queue.Queue, mirror session.Mirror, notifier Notifier, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		rdb:      rdb,
		queue:    q,
		mirror:   mirror,
		notifier: notifier,
		log:      log,
		runtimes: make(map[string]*Runtime),
	}
}

// StartExam resolves (or lazily creates) the candidate's exam session and
// returns its runtime. Rejoining an in-progress exam returns the existing
// runtime, so a page reload does not reset any state.
func (m *Manager) StartExam(ctx context.Context, candidateID string) (*Runtime, error) {
	store := session.NewStore(session.NewRedisBackend(m.rdb), m.mirror, candidateID, m.log)

	sess, err := store.Session(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rt, ok := m.runtimes[sess.ExamID]; ok {
		return rt, nil
	}

	loader := generator.New(m.cfg, store, m.log)
	answers := NewAnswerService(sess.ExamID, m.cfg.AnswerDebounce, &answerPersister{m.queue}, m.log)
	scorer := NewScoringService(m.log)

	term := NewTerminationService(store, answers, scorer, m.queue, m.notifier, m.log)

	agg := violation.NewAggregator(
		sess.ExamID,
		m.cfg.ViolationLimits,
		m.queue,
		func(t model.ViolationType) { term.Terminate(context.Background(), t) },
		m.cfg.ViolationFlushInterval,
		m.log,
	)
	term.SetRecorder(agg)

	runCtx, cancel := context.WithCancel(context.Background())
	go agg.Start(runCtx)

	if m.cfg.SimulateViolations {
		sim := violation.NewSimSource(m.cfg.SimulationInterval, time.Now().UnixNano())
		go sim.Run(runCtx, func(v model.Violation) { agg.Record(runCtx, v) })
	}

	rt := &Runtime{
		ExamID:      sess.ExamID,
		CandidateID: candidateID,
		Store:       store,
		Source:      session.NewSource(store, loader, m.log),
		Answers:     answers,
		Violations:  agg,
		Termination: term,
		cancel:      cancel,
	}
	m.runtimes[sess.ExamID] = rt

	m.log.Info().
		Str("exam_id", sess.ExamID).
		Str("candidate_id", candidateID).
		Msg("Exam runtime started")

	return rt, nil
}

// Get returns the runtime for an exam id, if active.
func (m *Manager) Get(examID string) (*Runtime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.runtimes[examID]
	return rt, ok
}

// EndExam tears a runtime down and clears the candidate's session state so
// the next start begins a fresh attempt.
func (m *Manager) EndExam(ctx context.Context, examID string) error {
	m.mu.Lock()
	rt, ok := m.runtimes[examID]
	if ok {
		delete(m.runtimes, examID)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	rt.cancel()
	rt.Violations.Stop()
	rt.Answers.Stop()
	return rt.Store.Clear(ctx)
}

// Shutdown stops every active runtime without clearing session state, so
// in-progress exams survive a server restart.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.runtimes {
		rt.cancel()
		rt.Violations.Stop()
		rt.Answers.Stop()
	}
	m.runtimes = make(map[string]*Runtime)
}

// answerPersister adapts the queue's exam-scoped push to AnswerPersister.
type answerPersister struct {
	q *queue.Queue
}

func (p *answerPersister) PersistAnswer(ctx context.Context, examID string, a model.Answer) error {
	return p.q.PersistAnswer(ctx, examID, a)
}
