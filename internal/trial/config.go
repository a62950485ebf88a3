package trial

import "time"

// Keys names the keys the controller reacts to.
type Keys struct {
	Continue string
	Option1  string
	Option2  string
	Quit     []string
}

// Text holds the fixed screens shown between stimuli.
type Text struct {
	Training string
	Ready    string
	// TrialLabel is a format string receiving the 1-based trial number.
	TrialLabel string
	Prompt     string
}

// Config controls pacing and input handling of a session.
type Config struct {
	// Debug skips training and truncates the session to DebugTrials.
	Debug       bool
	DebugTrials int

	// InterStimulus is the blank pause before every trial.
	InterStimulus time.Duration

	// PromptDwell is the minimum time a continue prompt stays up before
	// the continue key is accepted.
	PromptDwell time.Duration

	// ResponseTimeout bounds the response window. Zero leaves it unbounded.
	ResponseTimeout time.Duration

	// SummaryDuration is how long the closing summary stays up unless a key
	// is pressed first.
	SummaryDuration time.Duration

	Keys Keys
	Text Text
}

// DefaultConfig returns the reference pacing and key layout.
func DefaultConfig() Config {
	return Config{
		DebugTrials:     2,
		InterStimulus:   500 * time.Millisecond,
		PromptDwell:     500 * time.Millisecond,
		SummaryDuration: 5 * time.Second,
		Keys: Keys{
			Continue: "space",
			Option1:  "left",
			Option2:  "right",
			Quit:     []string{"escape"},
		},
		Text: Text{
			Training:   "Please listen to the training audio.",
			Ready:      "Press SPACE to begin test trials.",
			TrialLabel: "Test Trial %d",
			Prompt:     "Which sound was the real word?\n\nLEFT for sound 1.    RIGHT for sound 2.",
		},
	}
}
