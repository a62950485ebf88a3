// Package config handles configuration loading, validation, and management for statlearn.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"statlearn/internal/catalog"
	"statlearn/internal/experiment"
	"statlearn/internal/trial"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete configuration of an experiment station.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// AnswerKeyPath points at an external answer key file. When set it
	// replaces AnswerKey.
	AnswerKeyPath string `toml:"answer_key_path" json:"answer_key_path" yaml:"answer_key_path"`

	// Experiment controls pacing and session shape.
	Experiment ExperimentConfig `toml:"experiment" json:"experiment" yaml:"experiment"`

	// Assets locates the stimuli and instruction text.
	Assets AssetsConfig `toml:"assets" json:"assets" yaml:"assets"`

	// Keys maps participant input.
	Keys KeysConfig `toml:"keys" json:"keys" yaml:"keys"`

	// Audio selects the playback command.
	Audio AudioConfig `toml:"audio" json:"audio" yaml:"audio"`

	// Results configures persistence.
	Results ResultsConfig `toml:"results" json:"results" yaml:"results"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Notify configures desktop notifications.
	Notify NotifyConfig `toml:"notify" json:"notify" yaml:"notify"`

	// AnswerKey maps stimulus ids to the correct option (1 or 2).
	AnswerKey map[string]int `toml:"answer_key" json:"answer_key" yaml:"answer_key"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// ExperimentConfig holds session settings.
type ExperimentConfig struct {
	// Debug skips training and truncates the session to DebugTrials.
	Debug       bool `toml:"debug" json:"debug" yaml:"debug"`
	DebugTrials int  `toml:"debug_trials" json:"debug_trials" yaml:"debug_trials"`

	// Randomize shuffles the order of test items.
	Randomize bool `toml:"randomize" json:"randomize" yaml:"randomize"`

	InterStimulusMs int `toml:"inter_stimulus_ms" json:"inter_stimulus_ms" yaml:"inter_stimulus_ms"`
	PromptDwellMs   int `toml:"prompt_dwell_ms" json:"prompt_dwell_ms" yaml:"prompt_dwell_ms"`

	// ResponseTimeoutMs bounds the response window. 0 leaves it open.
	ResponseTimeoutMs int `toml:"response_timeout_ms" json:"response_timeout_ms" yaml:"response_timeout_ms"`

	SummaryMs int `toml:"summary_ms" json:"summary_ms" yaml:"summary_ms"`

	// PersistPartial saves the trials of an aborted session.
	PersistPartial bool `toml:"persist_partial" json:"persist_partial" yaml:"persist_partial"`
}

// AssetsConfig locates stimuli.
type AssetsConfig struct {
	AudioDir         string `toml:"audio_dir" json:"audio_dir" yaml:"audio_dir"`
	InstructionsPath string `toml:"instructions_path" json:"instructions_path" yaml:"instructions_path"`
	TestPrefix       string `toml:"test_prefix" json:"test_prefix" yaml:"test_prefix"`
	AudioExt         string `toml:"audio_ext" json:"audio_ext" yaml:"audio_ext"`
	TrainingFile     string `toml:"training_file" json:"training_file" yaml:"training_file"`
}

// KeysConfig names the keys the session reacts to.
type KeysConfig struct {
	Continue string   `toml:"continue" json:"continue" yaml:"continue"`
	Option1  string   `toml:"option1" json:"option1" yaml:"option1"`
	Option2  string   `toml:"option2" json:"option2" yaml:"option2"`
	Quit     []string `toml:"quit" json:"quit" yaml:"quit"`
}

// AudioConfig selects the external player. The asset path is appended to Args.
type AudioConfig struct {
	Player string   `toml:"player" json:"player" yaml:"player"`
	Args   []string `toml:"args" json:"args" yaml:"args"`
}

// ResultsConfig configures the results store.
type ResultsConfig struct {
	Dir    string `toml:"dir" json:"dir" yaml:"dir"`
	Prefix string `toml:"prefix" json:"prefix" yaml:"prefix"`

	// FallbackDir receives the session when Dir cannot be written.
	FallbackDir string `toml:"fallback_dir" json:"fallback_dir" yaml:"fallback_dir"`

	// Retries bounds re-attempts of result file creation.
	Retries      int `toml:"retries" json:"retries" yaml:"retries"`
	RetryDelayMs int `toml:"retry_delay_ms" json:"retry_delay_ms" yaml:"retry_delay_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log destination: "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the size at which the log file rotates.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// NotifyConfig configures desktop notifications.
type NotifyConfig struct {
	Enabled   bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	AppName   string `toml:"app_name" json:"app_name" yaml:"app_name"`
	TimeoutMs int    `toml:"timeout_ms" json:"timeout_ms" yaml:"timeout_ms"`
}

// DefaultConfig returns the reference experiment setup.
func DefaultConfig() *Config {
	tc := trial.DefaultConfig()
	player, args := defaultPlayer()

	return &Config{
		Version: Version,
		Experiment: ExperimentConfig{
			Debug:             false,
			DebugTrials:       tc.DebugTrials,
			Randomize:         true,
			InterStimulusMs:   int(tc.InterStimulus / time.Millisecond),
			PromptDwellMs:     int(tc.PromptDwell / time.Millisecond),
			ResponseTimeoutMs: 0,
			SummaryMs:         int(tc.SummaryDuration / time.Millisecond),
		},
		Assets: AssetsConfig{
			AudioDir:         "demo_audio",
			InstructionsPath: filepath.Join("instructions", "welcome.txt"),
			TestPrefix:       "Q",
			AudioExt:         ".wav",
			TrainingFile:     "TrainingFile.wav",
		},
		Keys: KeysConfig{
			Continue: tc.Keys.Continue,
			Option1:  tc.Keys.Option1,
			Option2:  tc.Keys.Option2,
			Quit:     append([]string{}, tc.Keys.Quit...),
		},
		Audio: AudioConfig{
			Player: player,
			Args:   args,
		},
		Results: ResultsConfig{
			Dir:          "demo_results",
			Prefix:       "results",
			FallbackDir:  filepath.Join(DataDir(), "results"),
			Retries:      3,
			RetryDelayMs: 50,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "file",
			FilePath:   filepath.Join(DataDir(), "statlearn.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Notify: NotifyConfig{
			Enabled:   false,
			AppName:   "statlearn",
			TimeoutMs: 5000,
		},
		AnswerKey: map[string]int{
			"Q1": 1, "Q2": 2, "Q3": 2, "Q4": 1,
			"Q5": 1, "Q6": 2, "Q7": 1, "Q8": 2,
		},
	}
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FindConfigFile()
	}

	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		var err error
		if cfg, err = loadConfigFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with STATLEARN_.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := envBool("STATLEARN_DEBUG"); ok {
		c.Experiment.Debug = v
	}
	if v, ok := envBool("STATLEARN_RANDOMIZE"); ok {
		c.Experiment.Randomize = v
	}
	if v := os.Getenv("STATLEARN_AUDIO_DIR"); v != "" {
		c.Assets.AudioDir = v
	}
	if v := os.Getenv("STATLEARN_RESULTS_DIR"); v != "" {
		c.Results.Dir = v
	}
	if v := os.Getenv("STATLEARN_AUDIO_PLAYER"); v != "" {
		c.Audio.Player = v
	}
	if v := os.Getenv("STATLEARN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STATLEARN_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

func envBool(name string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Version:       c.Version,
		AnswerKeyPath: c.AnswerKeyPath,
		Experiment:    c.Experiment,
		Assets:        c.Assets,
		Keys:          c.Keys,
		Audio:         c.Audio,
		Results:       c.Results,
		Logging:       c.Logging,
		Notify:        c.Notify,
	}
	clone.Keys.Quit = append([]string{}, c.Keys.Quit...)
	clone.Audio.Args = append([]string{}, c.Audio.Args...)
	clone.AnswerKey = make(map[string]int, len(c.AnswerKey))
	for k, v := range c.AnswerKey {
		clone.AnswerKey[k] = v
	}
	return clone
}

// TrialConfig returns the controller settings.
func (c *Config) TrialConfig() trial.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tc := trial.DefaultConfig()
	tc.Debug = c.Experiment.Debug
	tc.DebugTrials = c.Experiment.DebugTrials
	tc.InterStimulus = ms(c.Experiment.InterStimulusMs)
	tc.PromptDwell = ms(c.Experiment.PromptDwellMs)
	tc.ResponseTimeout = ms(c.Experiment.ResponseTimeoutMs)
	tc.SummaryDuration = ms(c.Experiment.SummaryMs)
	tc.Keys = trial.Keys{
		Continue: c.Keys.Continue,
		Option1:  c.Keys.Option1,
		Option2:  c.Keys.Option2,
		Quit:     append([]string{}, c.Keys.Quit...),
	}
	return tc
}

// CatalogOptions returns the discovery settings. The instruction file is
// named relative to InstructionsDir.
func (c *Config) CatalogOptions() catalog.Options {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return catalog.Options{
		TestPrefix:          c.Assets.TestPrefix,
		AudioExt:            c.Assets.AudioExt,
		TrainingName:        c.Assets.TrainingFile,
		InstructionsName:    filepath.Base(c.Assets.InstructionsPath),
		RequireTraining:     !c.Experiment.Debug,
		RequireInstructions: true,
		Randomize:           c.Experiment.Randomize,
	}
}

// InstructionsDir returns the directory holding the instruction text.
func (c *Config) InstructionsDir() string {
	return filepath.Dir(c.Assets.InstructionsPath)
}

// ResolveAnswerKey returns the answer key from AnswerKeyPath when set and
// from the inline table otherwise.
func (c *Config) ResolveAnswerKey() (experiment.AnswerKey, error) {
	if c.AnswerKeyPath != "" {
		return catalog.LoadAnswerKey(c.AnswerKeyPath)
	}
	if len(c.AnswerKey) == 0 {
		return nil, experiment.Errorf(experiment.ErrConfiguration, "no answer key configured")
	}
	return experiment.AnswerKeyFromInts(c.AnswerKey)
}

// SaveConfig writes the configuration to path as TOML.
func SaveConfig(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode TOML: %w", err)
	}
	return nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func defaultPlayer() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "afplay", nil
	case "linux":
		return "aplay", []string{"-q"}
	default:
		return "", nil
	}
}
