package sync

import "time"

// Phase describes the current load phase.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseReading  Phase = "reading"
	PhaseDecoding Phase = "decoding"
	PhaseStoring  Phase = "storing"
	PhaseDone     Phase = "done"
)

// Progress reports load progress to listeners.
type Progress struct {
	Phase   Phase  `json:"phase"`
	Source  string `json:"source"`
	Bytes   int    `json:"bytes"`
	Records int    `json:"records"`
	Skipped int    `json:"skipped"`
}

// LoadStats summarizes one load of the dataset file.
//
// Unchanged is set when the file content matched the previous
// load and the store was left as it was.
type LoadStats struct {
	Source    string        `json:"source"`
	LoadID    string        `json:"load_id,omitempty"`
	Records   int           `json:"records"`
	Skipped   int           `json:"skipped"`
	Unchanged bool          `json:"unchanged"`
	Duration  time.Duration `json:"duration_ns"`
}

// SkipRate returns the share of array elements that were not
// usable records, as a percentage (0 to 100).
func (s LoadStats) SkipRate() float64 {
	total := s.Records + s.Skipped
	if total == 0 {
		return 0
	}
	return float64(s.Skipped) / float64(total) * 100
}

// ProgressFunc is called with progress updates during a load.
type ProgressFunc func(Progress)
