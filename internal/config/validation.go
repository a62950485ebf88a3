package config

import (
	"fmt"
	"slices"
	"strings"

	"statlearn/internal/experiment"
	"statlearn/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes validation failures match experiment.ErrConfiguration.
func (e ValidationErrors) Is(target error) bool {
	return target == experiment.ErrConfiguration
}

// ValidateConfig checks c and returns ValidationErrors holding every
// error-level problem, or nil. Warnings are available from Check.
func ValidateConfig(c *Config) error {
	errs := Check(c).Errors()
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Check returns every problem with c, warnings included.
func Check(c *Config) ValidationErrors {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors
	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateExperiment(&c.Experiment)...)
	errs = append(errs, validateAssets(&c.Assets)...)
	errs = append(errs, validateKeys(&c.Keys)...)
	errs = append(errs, validateAudio(&c.Audio)...)
	errs = append(errs, validateResults(&c.Results)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateAnswerKey(c.AnswerKey, c.AnswerKeyPath)...)
	return errs
}

func validateExperiment(e *ExperimentConfig) ValidationErrors {
	var errs ValidationErrors

	if e.DebugTrials < 1 {
		errs = append(errs, ValidationError{
			Field:   "experiment.debug_trials",
			Message: "debug trial count must be at least 1",
		})
	}

	durations := []struct {
		field string
		v     int
	}{
		{"experiment.inter_stimulus_ms", e.InterStimulusMs},
		{"experiment.prompt_dwell_ms", e.PromptDwellMs},
		{"experiment.response_timeout_ms", e.ResponseTimeoutMs},
		{"experiment.summary_ms", e.SummaryMs},
	}
	for _, d := range durations {
		if d.v < 0 {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: "duration cannot be negative",
			})
		}
	}

	return errs
}

func validateAssets(a *AssetsConfig) ValidationErrors {
	var errs ValidationErrors

	if a.AudioDir == "" {
		errs = append(errs, *RequiredFieldError("assets.audio_dir"))
	}
	if a.InstructionsPath == "" {
		errs = append(errs, *RequiredFieldError("assets.instructions_path"))
	}
	if a.AudioExt != "" && !strings.HasPrefix(a.AudioExt, ".") {
		errs = append(errs, ValidationError{
			Field:   "assets.audio_ext",
			Message: fmt.Sprintf("extension %q must start with a dot", a.AudioExt),
		})
	}
	if a.TrainingFile != "" && a.TestPrefix != "" &&
		strings.HasPrefix(a.TrainingFile, a.TestPrefix) && strings.HasSuffix(a.TrainingFile, a.AudioExt) {
		errs = append(errs, ValidationError{
			Field:   "assets.training_file",
			Message: "training file would also be picked up as a test item",
		})
	}

	return errs
}

func validateKeys(k *KeysConfig) ValidationErrors {
	var errs ValidationErrors

	named := map[string]string{
		"keys.continue": k.Continue,
		"keys.option1":  k.Option1,
		"keys.option2":  k.Option2,
	}
	for _, field := range []string{"keys.continue", "keys.option1", "keys.option2"} {
		if named[field] == "" {
			errs = append(errs, *RequiredFieldError(field))
		}
	}

	if k.Option1 != "" && k.Option1 == k.Option2 {
		errs = append(errs, ValidationError{
			Field:   "keys.option2",
			Message: "option keys must differ",
		})
	}
	for _, q := range k.Quit {
		if q == k.Option1 || q == k.Option2 || q == k.Continue {
			errs = append(errs, ValidationError{
				Field:   "keys.quit",
				Message: fmt.Sprintf("quit key %q is already bound", q),
			})
		}
	}

	return errs
}

func validateAudio(a *AudioConfig) ValidationErrors {
	if a.Player == "" {
		return ValidationErrors{{
			Field:   "audio.player",
			Message: "no audio player configured; playback will fail",
		}}
	}
	return nil
}

func validateResults(r *ResultsConfig) ValidationErrors {
	var errs ValidationErrors

	if r.Dir == "" {
		errs = append(errs, *RequiredFieldError("results.dir"))
	}
	if r.Prefix == "" {
		errs = append(errs, *RequiredFieldError("results.prefix"))
	}
	if strings.ContainsAny(r.Prefix, `/\`) {
		errs = append(errs, ValidationError{
			Field:   "results.prefix",
			Message: "prefix cannot contain path separators",
		})
	}
	if r.Retries < 0 {
		errs = append(errs, *RangeError("results.retries", 0, "unbounded"))
	}
	if r.RetryDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "results.retry_delay_ms",
			Message: "duration cannot be negative",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := logging.ParseLevel(l.Level); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %q (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}

func validateAnswerKey(key map[string]int, path string) ValidationErrors {
	if path != "" {
		return nil
	}
	if len(key) == 0 {
		return ValidationErrors{*RequiredFieldError("answer_key")}
	}

	var errs ValidationErrors
	ids := make([]string, 0, len(key))
	for id := range key {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if v := key[id]; !experiment.Option(v).Valid() {
			errs = append(errs, ValidationError{
				Field:   "answer_key." + id,
				Message: fmt.Sprintf("option %d is not 1 or 2", v),
			})
		}
	}
	return errs
}

// IsWarning returns true if this is a non-fatal validation issue.
func (e *ValidationError) IsWarning() bool {
	warningFields := []string{
		"audio.player",
	}
	for _, f := range warningFields {
		if strings.HasPrefix(e.Field, f) {
			return true
		}
	}
	return false
}

// Warnings returns only warning-level validation errors.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.IsWarning() {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Errors returns only error-level validation errors.
func (e ValidationErrors) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, err := range e {
		if !err.IsWarning() {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors returns true if there are any non-warning errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
