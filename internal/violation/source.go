package violation

import (
	"context"
	"math/rand"
	"time"

	"github.com/proctorly/proctorly-backend/internal/model"
)

// Source is the capability interface over proctoring signal producers. The
// WebSocket stream feeds the aggregator directly in production; SimSource
// stands in when no real sensing is attached.
type Source interface {
	Run(ctx context.Context, emit func(model.Violation))
}

// SimSource emits randomized detection events on an interval. It exists for
// development environments without camera/audio capture; the randomness
// lives here, never in the aggregator.
type SimSource struct {
	interval time.Duration
	rng      *rand.Rand
}

// NewSimSource creates a simulated source. A fixed seed makes a run
// reproducible.
func NewSimSource(interval time.Duration, seed int64) *SimSource {
	return &SimSource{
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

var simCatalog = []struct {
	t           model.ViolationType
	severity    model.ViolationSeverity
	description string
	chance      float64
}{
	{model.ViolationLookingAway, model.SeverityLow, "Candidate looking away from screen", 0.30},
	{model.ViolationPersonOutOfFrame, model.SeverityMedium, "Candidate not visible in frame", 0.10},
	{model.ViolationVoiceDetection, model.SeverityMedium, "Voice activity detected", 0.08},
	{model.ViolationHeadphones, model.SeverityHigh, "Headphones detected", 0.03},
}

// Run emits events until the context ends.
func (s *SimSource) Run(ctx context.Context, emit func(model.Violation)) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, entry := range simCatalog {
				if s.rng.Float64() < entry.chance {
					duration := 1 + s.rng.Float64()*4
					emit(model.Violation{
						Type:        entry.t,
						Severity:    entry.severity,
						Description: entry.description,
						Duration:    &duration,
						OccurredAt:  time.Now(),
					})
				}
			}
		}
	}
}
