package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"statlearn/internal/experiment"
)

func TestParseAnswerKeyFormats(t *testing.T) {
	cases := []struct {
		name string
		ext  string
		data string
	}{
		{"json", ".json", `{"Q1.wav": 1, "Q2.wav": 2}`},
		{"yaml", ".yaml", "Q1.wav: 1\nQ2.wav: 2\n"},
		{"toml", ".toml", "\"Q1.wav\" = 1\n\"Q2.wav\" = 2\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := ParseAnswerKey([]byte(tc.data), tc.ext)
			if err != nil {
				t.Fatalf("ParseAnswerKey: %v", err)
			}
			if len(key) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(key))
			}
			if key["Q1.wav"] != experiment.Option1 || key["Q2.wav"] != experiment.Option2 {
				t.Errorf("unexpected key %v", key)
			}
		})
	}
}

func TestParseAnswerKeyRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"out of range", `{"Q1.wav": 3}`},
		{"not integer", `{"Q1.wav": "left"}`},
		{"empty", `{}`},
		{"fractional", `{"Q1.wav": 1.5}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAnswerKey([]byte(tc.data), ".json")
			if !errors.Is(err, experiment.ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestParseAnswerKeyUnknownFormat(t *testing.T) {
	_, err := ParseAnswerKey([]byte(`Q1.wav=1`), ".ini")
	if !errors.Is(err, experiment.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoadAnswerKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, []byte(`{"Q1.wav": 2}`), 0600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	key, err := LoadAnswerKey(path)
	if err != nil {
		t.Fatalf("LoadAnswerKey: %v", err)
	}
	if key["Q1.wav"] != experiment.Option2 {
		t.Errorf("expected Option2, got %v", key["Q1.wav"])
	}

	if _, err := LoadAnswerKey(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, experiment.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for missing file, got %v", err)
	}
}
