// Package violation accumulates proctoring signals, applies per-type
// thresholds, and drives exam termination on breach.
package violation

import (
	"context"
	"sync"
	"time"

	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/rs/zerolog"
)

// Sink receives flushed violation batches (the Redis persistence queue in
// production). Failures are retried on the next flush.
type Sink interface {
	PersistViolations(ctx context.Context, violations []model.Violation) error
}

// BreachFunc is invoked when a counter reaches its limit. Idempotency is
// the callee's concern; the aggregator may report the same breach again.
type BreachFunc func(violationType model.ViolationType)

// Aggregator tracks saturating per-type counters for one exam session.
// Non-critical events are buffered and flushed on an interval to bound
// write volume; critical events flush immediately.
type Aggregator struct {
	examID        string
	limits        model.ViolationLimits
	sink          Sink
	onBreach      BreachFunc
	flushInterval time.Duration
	log           zerolog.Logger

	mu     sync.Mutex
	counts model.ViolationCounts
	buffer []model.Violation

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewAggregator creates an aggregator for one exam session. sink and
// onBreach may be nil.
func NewAggregator(examID string, limits model.ViolationLimits, sink Sink, onBreach BreachFunc, flushInterval time.Duration, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		examID:        examID,
		limits:        limits,
		sink:          sink,
		onBreach:      onBreach,
		flushInterval: flushInterval,
		stopped:       make(chan struct{}),
		log:           logger.Component(log, "violation_aggregator").With().Str("exam_id", examID).Logger(),
	}
}

// Start runs the periodic flush loop. Call in a goroutine.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.Flush(context.Background())
			return
		case <-a.stopped:
			a.Flush(context.Background())
			return
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Stop ends the flush loop and drains the buffer.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() { close(a.stopped) })
}

// Record applies one proctoring signal: counters saturate at their limit,
// the headphones flag toggles, and the event is queued for persistence.
// Critical events bypass the batch and flush immediately.
func (a *Aggregator) Record(ctx context.Context, v model.Violation) {
	v.ExamID = a.examID
	if v.OccurredAt.IsZero() {
		v.OccurredAt = time.Now()
	}

	a.mu.Lock()
	switch v.Type {
	case model.ViolationTabSwitch:
		a.counts.TabSwitch = saturate(a.counts.TabSwitch+1, a.limits.TabSwitch)
	case model.ViolationPersonOutOfFrame:
		a.counts.PersonOutOfFrame = saturate(a.counts.PersonOutOfFrame+1, a.limits.PersonOutOfFrame)
	case model.ViolationVoiceDetection:
		a.counts.VoiceDetection = saturate(a.counts.VoiceDetection+1, a.limits.VoiceDetection)
	case model.ViolationLookingAway:
		a.counts.LookingAway = saturate(a.counts.LookingAway+1, a.limits.LookingAway)
	case model.ViolationHeadphones:
		a.counts.HeadphonesDetected = !a.counts.HeadphonesDetected
	}
	a.buffer = append(a.buffer, v)
	critical := v.Severity == model.SeverityCritical
	exceeded := a.limitExceededLocked(v.Type)
	a.mu.Unlock()

	a.log.Debug().
		Str("type", string(v.Type)).
		Str("severity", string(v.Severity)).
		Msg("Violation recorded")

	if critical {
		a.Flush(ctx)
	}

	if exceeded && a.onBreach != nil {
		a.onBreach(v.Type)
	}
}

// Counts returns a snapshot of the running counters.
func (a *Aggregator) Counts() model.ViolationCounts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts
}

// IsLimitExceeded reports whether a type's counter has reached its limit.
func (a *Aggregator) IsLimitExceeded(t model.ViolationType) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limitExceededLocked(t)
}

// IsAnyLimitExceeded reports the first exceeded type, if any.
func (a *Aggregator) IsAnyLimitExceeded() (model.ViolationType, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range []model.ViolationType{
		model.ViolationTabSwitch,
		model.ViolationPersonOutOfFrame,
		model.ViolationVoiceDetection,
		model.ViolationLookingAway,
	} {
		if a.limitExceededLocked(t) {
			return t, true
		}
	}
	return "", false
}

// Flush pushes the buffered events to the sink. On failure the batch is
// kept for the next interval; persistence never blocks or fails the
// primary flow.
func (a *Aggregator) Flush(ctx context.Context) {
	a.mu.Lock()
	if len(a.buffer) == 0 || a.sink == nil {
		a.mu.Unlock()
		return
	}
	batch := a.buffer
	a.buffer = nil
	a.mu.Unlock()

	if err := a.sink.PersistViolations(ctx, batch); err != nil {
		a.log.Warn().Err(err).Int("count", len(batch)).Msg("Violation flush failed, keeping batch")
		a.mu.Lock()
		a.buffer = append(batch, a.buffer...)
		a.mu.Unlock()
	}
}

func (a *Aggregator) limitExceededLocked(t model.ViolationType) bool {
	switch t {
	case model.ViolationTabSwitch:
		return a.counts.TabSwitch >= a.limits.TabSwitch
	case model.ViolationPersonOutOfFrame:
		return a.counts.PersonOutOfFrame >= a.limits.PersonOutOfFrame
	case model.ViolationVoiceDetection:
		return a.counts.VoiceDetection >= a.limits.VoiceDetection
	case model.ViolationLookingAway:
		return a.counts.LookingAway >= a.limits.LookingAway
	default:
		return false
	}
}

func saturate(n, limit int) int {
	if n > limit {
		return limit
	}
	return n
}
