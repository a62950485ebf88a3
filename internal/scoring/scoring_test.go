package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlearn/internal/experiment"
)

func TestScoreScenario(t *testing.T) {
	key := experiment.AnswerKey{"Q1": experiment.Option1, "Q2": experiment.Option2}
	records := []experiment.TrialRecord{
		{Trial: 1, StimulusID: "Q1", Choice: experiment.Option1, RTMillis: 800},
		{Trial: 2, StimulusID: "Q2", Choice: experiment.Option1, RTMillis: 1200},
	}

	marks, err := Score(records, key)
	require.NoError(t, err)
	assert.Equal(t, []experiment.Correctness{experiment.Correct, experiment.Incorrect}, marks)

	sum := Summarize(marks)
	assert.Equal(t, "1/2", sum.String())
	assert.Equal(t, "You got ( 1 / 2 )  correct.", sum.Message())
}

func TestScoreIsDeterministicAndOrderPreserving(t *testing.T) {
	key := experiment.AnswerKey{
		"Q1.wav": experiment.Option1,
		"Q2.wav": experiment.Option2,
		"Q3.wav": experiment.Option2,
	}
	records := []experiment.TrialRecord{
		{Trial: 1, StimulusID: "Q3.wav", Choice: experiment.Option2},
		{Trial: 2, StimulusID: "Q1.wav", Choice: experiment.Option2},
		{Trial: 3, StimulusID: "Q2.wav", Choice: experiment.Option2},
	}

	first, err := Score(records, key)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := Score(records, key)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []experiment.Correctness{
		experiment.Correct, experiment.Incorrect, experiment.Correct,
	}, first)
}

func TestScoreNoResponseIsIncorrect(t *testing.T) {
	key := experiment.AnswerKey{"Q1.wav": experiment.Option1}
	marks, err := Score([]experiment.TrialRecord{
		{Trial: 1, StimulusID: "Q1.wav", Choice: experiment.OptionNone},
	}, key)
	require.NoError(t, err)
	assert.Equal(t, []experiment.Correctness{experiment.Incorrect}, marks)
}

func TestScoreMissingKey(t *testing.T) {
	_, err := Score([]experiment.TrialRecord{{Trial: 1, StimulusID: "Q9.wav"}}, experiment.AnswerKey{})
	assert.ErrorIs(t, err, experiment.ErrMissingAnswerKey)
}

func TestScoreEmpty(t *testing.T) {
	marks, err := Score(nil, experiment.AnswerKey{})
	require.NoError(t, err)
	assert.Empty(t, marks)
	assert.Equal(t, "0/0", Summarize(marks).String())
}
