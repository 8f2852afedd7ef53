package model

import "time"

// ViolationType enumerates the proctoring signals the aggregator tracks.
type ViolationType string

const (
	ViolationTabSwitch        ViolationType = "tab-switch"
	ViolationPersonOutOfFrame ViolationType = "person-out-of-frame"
	ViolationVoiceDetection   ViolationType = "voice-detection"
	ViolationLookingAway      ViolationType = "looking-away"
	ViolationHeadphones       ViolationType = "headphones"
)

// ValidViolationType reports whether t names a known proctoring signal.
func ValidViolationType(t ViolationType) bool {
	switch t {
	case ViolationTabSwitch, ViolationPersonOutOfFrame, ViolationVoiceDetection,
		ViolationLookingAway, ViolationHeadphones:
		return true
	}
	return false
}

// ViolationSeverity classifies how a signal is persisted. Critical events
// bypass the batch flush and are written immediately.
type ViolationSeverity string

const (
	SeverityLow      ViolationSeverity = "low"
	SeverityMedium   ViolationSeverity = "medium"
	SeverityHigh     ViolationSeverity = "high"
	SeverityCritical ViolationSeverity = "critical"
)

// Violation is one typed proctoring event as delivered by the
// media-capability collaborator.
type Violation struct {
	ExamID      string            `json:"exam_id"`
	Type        ViolationType     `json:"type"`
	Severity    ViolationSeverity `json:"severity"`
	Description string            `json:"description"`
	Duration    *float64          `json:"duration,omitempty"` // seconds, when the signal has one
	OccurredAt  time.Time         `json:"occurred_at"`
}

// ViolationCounts holds the per-type running counters. Counters saturate at
// their configured limit; HeadphonesDetected toggles.
type ViolationCounts struct {
	TabSwitch          int  `json:"tab_switch"`
	PersonOutOfFrame   int  `json:"person_out_of_frame"`
	VoiceDetection     int  `json:"voice_detection"`
	LookingAway        int  `json:"looking_away"`
	HeadphonesDetected bool `json:"headphones_detected"`
}

// ViolationLimits configures the per-type thresholds at which the exam is
// terminated.
type ViolationLimits struct {
	TabSwitch        int `json:"tab_switch"`
	PersonOutOfFrame int `json:"person_out_of_frame"`
	VoiceDetection   int `json:"voice_detection"`
	LookingAway      int `json:"looking_away"`
}

// DefaultViolationLimits mirrors the proctoring policy defaults.
func DefaultViolationLimits() ViolationLimits {
	return ViolationLimits{
		TabSwitch:        3,
		PersonOutOfFrame: 5,
		VoiceDetection:   3,
		LookingAway:      10,
	}
}
