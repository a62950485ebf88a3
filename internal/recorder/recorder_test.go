package recorder

import (
	"errors"
	"testing"

	"statlearn/internal/experiment"
)

func TestRecordAndSnapshot(t *testing.T) {
	r := New()

	if err := r.Record(1, "Q1.wav", experiment.Option1, 800); err != nil {
		t.Fatalf("Record 1: %v", err)
	}
	if err := r.Record(2, "Q2.wav", experiment.Option1, 1200); err != nil {
		t.Fatalf("Record 2: %v", err)
	}

	snap := r.Snapshot()
	if len(snap) != 2 || r.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", len(snap))
	}
	if snap[0].Trial != 1 || snap[0].StimulusID != "Q1.wav" || snap[0].RTMillis != 800 {
		t.Errorf("unexpected first record %+v", snap[0])
	}
	if snap[1].Choice != experiment.Option1 {
		t.Errorf("unexpected second record %+v", snap[1])
	}

	// Snapshot is a copy.
	snap[0].StimulusID = "changed"
	if r.Snapshot()[0].StimulusID != "Q1.wav" {
		t.Error("snapshot mutation leaked into recorder")
	}
}

func TestRecordDuplicateTrial(t *testing.T) {
	r := New()
	if err := r.Record(1, "Q1.wav", experiment.Option2, 10); err != nil {
		t.Fatalf("Record: %v", err)
	}

	err := r.Record(1, "Q2.wav", experiment.Option1, 20)
	if !errors.Is(err, experiment.ErrDuplicateTrial) {
		t.Fatalf("expected ErrDuplicateTrial, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("duplicate must not be appended, have %d records", r.Len())
	}
}

func TestRecordClampsNegativeRT(t *testing.T) {
	r := New()
	if err := r.Record(1, "Q1.wav", experiment.Option1, -5); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rt := r.Snapshot()[0].RTMillis; rt != 0 {
		t.Errorf("expected RT clamped to 0, got %d", rt)
	}
}

func TestRecordRejectsNonPositiveTrial(t *testing.T) {
	r := New()
	if err := r.Record(0, "Q1.wav", experiment.Option1, 1); err == nil {
		t.Error("expected error for trial 0")
	}
}
