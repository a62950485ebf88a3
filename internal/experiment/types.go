// Package experiment holds the value types shared by every stage of a
// forced-choice listening session: stimuli, recorded trials and scores.
package experiment

import "strconv"

// Option is a participant's forced-choice answer.
type Option int

const (
	// OptionNone marks a trial whose response window closed without an answer.
	OptionNone Option = iota
	// Option1 selects the first sound.
	Option1
	// Option2 selects the second sound.
	Option2
)

// Valid reports whether o is one of the two answerable options.
func (o Option) Valid() bool {
	return o == Option1 || o == Option2
}

// String returns the label written to result files.
func (o Option) String() string {
	if !o.Valid() {
		return "none"
	}
	return strconv.Itoa(int(o))
}

// ParseOption converts an integer answer key value into an Option.
func ParseOption(v int) (Option, error) {
	o := Option(v)
	if !o.Valid() {
		return OptionNone, Errorf(ErrConfiguration, "option %d is not 1 or 2", v)
	}
	return o, nil
}

// Item is one test stimulus. Items are immutable once a catalog is built.
type Item struct {
	ID      string
	Ordinal int
	Asset   string
	Correct Option
}

// TrialRecord is a single completed presentation-and-response cycle.
type TrialRecord struct {
	Trial      int    `json:"trial_num"`
	StimulusID string `json:"stimulus_id"`
	Choice     Option `json:"response"`
	RTMillis   int64  `json:"rt_ms"`
}

// Correctness is the scored outcome of a trial.
type Correctness string

const (
	Correct   Correctness = "CORRECT"
	Incorrect Correctness = "INCORRECT"
)

// AnswerKey maps a stimulus identifier to its correct option.
type AnswerKey map[string]Option

// Lookup returns the correct option for id.
func (k AnswerKey) Lookup(id string) (Option, bool) {
	o, ok := k[id]
	return o, ok
}

// AnswerKeyFromInts builds an AnswerKey from raw configuration values.
func AnswerKeyFromInts(raw map[string]int) (AnswerKey, error) {
	key := make(AnswerKey, len(raw))
	for id, v := range raw {
		o, err := ParseOption(v)
		if err != nil {
			return nil, Errorf(ErrConfiguration, "answer key %q: option %d is not 1 or 2", id, v)
		}
		key[id] = o
	}
	return key, nil
}
