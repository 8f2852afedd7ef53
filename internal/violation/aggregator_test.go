package violation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/rs/zerolog"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]model.Violation
	fail    bool
}

func (s *fakeSink) PersistViolations(ctx context.Context, violations []model.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("queue down")
	}
	batch := make([]model.Violation, len(violations))
	copy(batch, violations)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *fakeSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func newTestAggregator(sink Sink, onBreach BreachFunc) *Aggregator {
	return NewAggregator("exam-1", model.DefaultViolationLimits(), sink, onBreach, time.Hour, zerolog.Nop())
}

func record(a *Aggregator, t model.ViolationType, n int) {
	for i := 0; i < n; i++ {
		a.Record(context.Background(), model.Violation{Type: t, Severity: model.SeverityLow})
	}
}

func TestCountersSaturateAtLimit(t *testing.T) {
	a := newTestAggregator(nil, nil)

	record(a, model.ViolationTabSwitch, 8) // limit is 3

	counts := a.Counts()
	if counts.TabSwitch != 3 {
		t.Errorf("tab switch counter = %d, want saturation at 3", counts.TabSwitch)
	}
}

func TestPerTypeLimits(t *testing.T) {
	tests := []struct {
		vtype model.ViolationType
		limit int
	}{
		{model.ViolationTabSwitch, 3},
		{model.ViolationPersonOutOfFrame, 5},
		{model.ViolationVoiceDetection, 3},
		{model.ViolationLookingAway, 10},
	}

	for _, tt := range tests {
		t.Run(string(tt.vtype), func(t *testing.T) {
			a := newTestAggregator(nil, nil)

			record(a, tt.vtype, tt.limit-1)
			if a.IsLimitExceeded(tt.vtype) {
				t.Fatalf("limit reported exceeded at %d/%d", tt.limit-1, tt.limit)
			}

			record(a, tt.vtype, 1)
			if !a.IsLimitExceeded(tt.vtype) {
				t.Errorf("limit not reported exceeded at %d/%d", tt.limit, tt.limit)
			}
		})
	}
}

func TestHeadphonesToggles(t *testing.T) {
	a := newTestAggregator(nil, nil)

	record(a, model.ViolationHeadphones, 1)
	if !a.Counts().HeadphonesDetected {
		t.Fatal("headphones flag should be set")
	}

	record(a, model.ViolationHeadphones, 1)
	if a.Counts().HeadphonesDetected {
		t.Error("headphones flag should toggle off")
	}

	// Headphones never terminate.
	if _, exceeded := a.IsAnyLimitExceeded(); exceeded {
		t.Error("headphones must not count toward any limit")
	}
}

func TestBreachCallbackFires(t *testing.T) {
	var mu sync.Mutex
	var breaches []model.ViolationType

	a := newTestAggregator(nil, func(vt model.ViolationType) {
		mu.Lock()
		breaches = append(breaches, vt)
		mu.Unlock()
	})

	record(a, model.ViolationVoiceDetection, 3)

	mu.Lock()
	defer mu.Unlock()
	if len(breaches) == 0 {
		t.Fatal("expected breach callback")
	}
	if breaches[0] != model.ViolationVoiceDetection {
		t.Errorf("breach type = %s", breaches[0])
	}
}

func TestNonCriticalEventsBufferUntilFlush(t *testing.T) {
	sink := &fakeSink{}
	a := newTestAggregator(sink, nil)

	record(a, model.ViolationLookingAway, 2)
	if sink.total() != 0 {
		t.Fatalf("non-critical events must not flush eagerly, got %d", sink.total())
	}

	a.Flush(context.Background())
	if sink.total() != 2 {
		t.Errorf("expected 2 persisted events, got %d", sink.total())
	}
}

func TestCriticalEventFlushesImmediately(t *testing.T) {
	sink := &fakeSink{}
	a := newTestAggregator(sink, nil)

	a.Record(context.Background(), model.Violation{
		Type:        model.ViolationTabSwitch,
		Severity:    model.SeverityCritical,
		Description: "limit exceeded",
	})

	if sink.total() != 1 {
		t.Errorf("critical event must flush immediately, got %d", sink.total())
	}
}

func TestFlushKeepsBatchOnSinkFailure(t *testing.T) {
	sink := &fakeSink{fail: true}
	a := newTestAggregator(sink, nil)

	record(a, model.ViolationLookingAway, 3)
	a.Flush(context.Background())

	// Sink recovers: the retained batch goes through on the next flush.
	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()

	a.Flush(context.Background())
	if sink.total() != 3 {
		t.Errorf("retained batch not re-flushed, got %d events", sink.total())
	}
}

func TestIsAnyLimitExceeded(t *testing.T) {
	a := newTestAggregator(nil, nil)

	if _, exceeded := a.IsAnyLimitExceeded(); exceeded {
		t.Fatal("fresh aggregator reports a breach")
	}

	record(a, model.ViolationPersonOutOfFrame, 5)

	vt, exceeded := a.IsAnyLimitExceeded()
	if !exceeded || vt != model.ViolationPersonOutOfFrame {
		t.Errorf("got (%s, %v)", vt, exceeded)
	}
}
