package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlearn/internal/experiment"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Experiment.Debug)
	assert.True(t, cfg.Experiment.Randomize)
	assert.Equal(t, 2, cfg.Experiment.DebugTrials)
	assert.Equal(t, 500, cfg.Experiment.InterStimulusMs)
	assert.Equal(t, 500, cfg.Experiment.PromptDwellMs)
	assert.Equal(t, 0, cfg.Experiment.ResponseTimeoutMs)
	assert.Equal(t, 5000, cfg.Experiment.SummaryMs)
	assert.Equal(t, "demo_audio", cfg.Assets.AudioDir)
	assert.Equal(t, "demo_results", cfg.Results.Dir)
	assert.Equal(t, "results", cfg.Results.Prefix)
	assert.Equal(t, "TrainingFile.wav", cfg.Assets.TrainingFile)
	assert.Len(t, cfg.AnswerKey, 8)
	assert.Equal(t, 2, cfg.AnswerKey["Q6"])
	assert.Equal(t, "file", cfg.Logging.Output)
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audio.Player = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	warnings := Check(cfg).Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "audio.player", warnings[0].Field)
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/statlearn.toml")
	require.NoError(t, err)
	assert.Equal(t, "demo_audio", cfg.Assets.AudioDir)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statlearn.toml")
	content := `
[experiment]
debug = true
response_timeout_ms = 4000

[assets]
audio_dir = "/srv/stimuli"

[answer_key]
Q1 = 2
Q2 = 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Experiment.Debug)
	assert.Equal(t, 4000, cfg.Experiment.ResponseTimeoutMs)
	assert.Equal(t, "/srv/stimuli", cfg.Assets.AudioDir)
	assert.Equal(t, 500, cfg.Experiment.InterStimulusMs, "unset values keep defaults")
	assert.Equal(t, map[string]int{"Q1": 2, "Q2": 1}, cfg.AnswerKey, "configured key replaces the default")
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "statlearn.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"results": {"dir": "out"}, "keys": {"option1": "a", "option2": "d"}}`), 0o644))
	cfg, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.Results.Dir)
	assert.Equal(t, "a", cfg.Keys.Option1)
	assert.Len(t, cfg.AnswerKey, 8)

	yamlPath := filepath.Join(dir, "statlearn.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("experiment:\n  randomize: false\nanswer_key_path: key.json\n"), 0o644))
	cfg, err = Load(yamlPath)
	require.NoError(t, err)
	assert.False(t, cfg.Experiment.Randomize)
	assert.Equal(t, "key.json", cfg.AnswerKeyPath)
	assert.Nil(t, cfg.AnswerKey)
}

func TestLoadUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statlearn.conf")
	require.NoError(t, os.WriteFile(path, []byte("[results]\ndir = \"x\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Results.Dir)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statlearn.toml")
	require.NoError(t, os.WriteFile(path, []byte("[experiment\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("STATLEARN_DEBUG", "true")
	t.Setenv("STATLEARN_RANDOMIZE", "0")
	t.Setenv("STATLEARN_RESULTS_DIR", "/data/results")
	t.Setenv("STATLEARN_LOG_LEVEL", "debug")
	t.Setenv("STATLEARN_AUDIO_PLAYER", "paplay")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.True(t, cfg.Experiment.Debug)
	assert.False(t, cfg.Experiment.Randomize)
	assert.Equal(t, "/data/results", cfg.Results.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "paplay", cfg.Audio.Player)
}

func TestApplyEnvOverridesIgnoresBadBool(t *testing.T) {
	t.Setenv("STATLEARN_DEBUG", "maybe")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()
	assert.False(t, cfg.Experiment.Debug)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Experiment.DebugTrials = 0
	cfg.Experiment.InterStimulusMs = -1
	cfg.Keys.Option2 = cfg.Keys.Option1
	cfg.Keys.Quit = []string{"space"}
	cfg.Results.Retries = -1
	cfg.Logging.Level = "loud"
	cfg.AnswerKey["Q9"] = 3

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, experiment.ErrConfiguration))

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, f := range []string{
		"experiment.debug_trials",
		"experiment.inter_stimulus_ms",
		"keys.option2",
		"keys.quit",
		"results.retries",
		"logging.level",
		"answer_key.Q9",
	} {
		assert.True(t, fields[f], "expected error for %s in %v", f, err)
	}
}

func TestValidateTrainingFileCollision(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Assets.TrainingFile = "Q_training.wav"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assets.training_file")
}

func TestTrialConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Experiment.ResponseTimeoutMs = 2500
	cfg.Keys.Option1 = "a"

	tc := cfg.TrialConfig()
	assert.Equal(t, 500*time.Millisecond, tc.InterStimulus)
	assert.Equal(t, 2500*time.Millisecond, tc.ResponseTimeout)
	assert.Equal(t, 5*time.Second, tc.SummaryDuration)
	assert.Equal(t, "a", tc.Keys.Option1)
	assert.Equal(t, "Test Trial %d", tc.Text.TrialLabel)
}

func TestCatalogOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.CatalogOptions()
	assert.Equal(t, "welcome.txt", opts.InstructionsName)
	assert.True(t, opts.RequireTraining)
	assert.Equal(t, "instructions", cfg.InstructionsDir())

	cfg.Experiment.Debug = true
	assert.False(t, cfg.CatalogOptions().RequireTraining)
}

func TestResolveAnswerKey(t *testing.T) {
	cfg := DefaultConfig()
	key, err := cfg.ResolveAnswerKey()
	require.NoError(t, err)
	assert.Equal(t, experiment.Option2, key["Q2"])

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Q1": 2}`), 0o644))
	cfg.AnswerKeyPath = path
	key, err = cfg.ResolveAnswerKey()
	require.NoError(t, err)
	assert.Equal(t, experiment.AnswerKey{"Q1": experiment.Option2}, key)

	cfg.AnswerKeyPath = ""
	cfg.AnswerKey = nil
	_, err = cfg.ResolveAnswerKey()
	assert.ErrorIs(t, err, experiment.ErrConfiguration)
}

func TestCloneIsDeep(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.AnswerKey["Q1"] = 2
	clone.Keys.Quit[0] = "q"

	assert.Equal(t, 1, cfg.AnswerKey["Q1"])
	assert.Equal(t, "escape", cfg.Keys.Quit[0])
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "statlearn.toml")
	cfg := DefaultConfig()
	cfg.Results.Dir = "saved"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Results.Dir)
	assert.Equal(t, cfg.AnswerKey, loaded.AnswerKey)
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STATLEARN_DATA_DIR", dir)
	t.Chdir(t.TempDir())

	assert.Equal(t, "", FindConfigFile())

	path := filepath.Join(dir, "statlearn.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	assert.Equal(t, path, FindConfigFile())
	assert.True(t, strings.HasPrefix(DataDir(), dir))
}
