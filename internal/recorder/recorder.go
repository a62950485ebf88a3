// Package recorder accumulates the trial records of one session.
package recorder

import (
	"sync"

	"statlearn/internal/experiment"
)

// Recorder is an append-only list of trial records keyed by trial number.
type Recorder struct {
	mu      sync.RWMutex
	records []experiment.TrialRecord
	seen    map[int]struct{}
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{seen: make(map[int]struct{})}
}

// Record appends a trial. Trial numbers are unique for the life of the
// Recorder; a repeat is an internal invariant violation.
func (r *Recorder) Record(trial int, stimulusID string, choice experiment.Option, rtMillis int64) error {
	if trial < 1 {
		return experiment.Errorf(experiment.ErrDuplicateTrial, "trial number %d is not positive", trial)
	}
	if rtMillis < 0 {
		rtMillis = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.seen[trial]; dup {
		return experiment.Errorf(experiment.ErrDuplicateTrial, "trial %d already recorded", trial)
	}
	r.seen[trial] = struct{}{}
	r.records = append(r.records, experiment.TrialRecord{
		Trial:      trial,
		StimulusID: stimulusID,
		Choice:     choice,
		RTMillis:   rtMillis,
	})
	return nil
}

// Snapshot returns a copy of the records in the order they were recorded.
func (r *Recorder) Snapshot() []experiment.TrialRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]experiment.TrialRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of recorded trials.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
