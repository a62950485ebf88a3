// Package scoring compares recorded answers with the answer key.
package scoring

import (
	"fmt"

	"statlearn/internal/experiment"
)

// Score returns one correctness value per record, in record order.
func Score(records []experiment.TrialRecord, key experiment.AnswerKey) ([]experiment.Correctness, error) {
	out := make([]experiment.Correctness, 0, len(records))
	for _, rec := range records {
		want, ok := key.Lookup(rec.StimulusID)
		if !ok {
			return nil, experiment.Errorf(experiment.ErrMissingAnswerKey,
				"trial %d: stimulus %q", rec.Trial, rec.StimulusID)
		}
		if rec.Choice == want {
			out = append(out, experiment.Correct)
		} else {
			out = append(out, experiment.Incorrect)
		}
	}
	return out, nil
}

// Summary is the aggregate score of a session.
type Summary struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Summarize counts the correct entries.
func Summarize(marks []experiment.Correctness) Summary {
	s := Summary{Total: len(marks)}
	for _, m := range marks {
		if m == experiment.Correct {
			s.Correct++
		}
	}
	return s
}

// String renders the score as "correct/total".
func (s Summary) String() string {
	return fmt.Sprintf("%d/%d", s.Correct, s.Total)
}

// Message is the line shown to the participant at the end of a session.
func (s Summary) Message() string {
	return fmt.Sprintf("You got ( %d / %d )  correct.", s.Correct, s.Total)
}
