package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"statlearn/internal/experiment"
)

//go:embed answer_key.schema.json
var answerKeySchemaJSON []byte

const answerKeySchemaURL = "answer-key-v1.schema.json"

var (
	answerKeySchema     *jsonschema.Schema
	answerKeySchemaErr  error
	answerKeySchemaOnce sync.Once
)

func compiledAnswerKeySchema() (*jsonschema.Schema, error) {
	answerKeySchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(answerKeySchemaURL, bytes.NewReader(answerKeySchemaJSON)); err != nil {
			answerKeySchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		answerKeySchema, answerKeySchemaErr = compiler.Compile(answerKeySchemaURL)
	})
	return answerKeySchema, answerKeySchemaErr
}

// LoadAnswerKey reads an answer key file (TOML, JSON or YAML by extension)
// and validates it against the answer key schema.
func LoadAnswerKey(path string) (experiment.AnswerKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, experiment.Wrap(experiment.ErrConfiguration, err, "read answer key")
	}
	return ParseAnswerKey(data, filepath.Ext(path))
}

// ParseAnswerKey decodes and validates answer key content. ext selects the
// format (".toml", ".json", ".yaml" or ".yml").
func ParseAnswerKey(data []byte, ext string) (experiment.AnswerKey, error) {
	var raw map[string]any
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, experiment.Wrap(experiment.ErrConfiguration, err, "decode TOML answer key")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, experiment.Wrap(experiment.ErrConfiguration, err, "decode YAML answer key")
		}
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, experiment.Wrap(experiment.ErrConfiguration, err, "decode JSON answer key")
		}
	default:
		return nil, experiment.Errorf(experiment.ErrConfiguration, "unsupported answer key format %q", ext)
	}

	// Normalize to JSON values so the schema sees the same types regardless
	// of the source format.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, experiment.Wrap(experiment.ErrConfiguration, err, "normalize answer key")
	}
	var instance any
	if err := json.Unmarshal(normalized, &instance); err != nil {
		return nil, experiment.Wrap(experiment.ErrConfiguration, err, "normalize answer key")
	}

	schema, err := compiledAnswerKeySchema()
	if err != nil {
		return nil, experiment.Wrap(experiment.ErrConfiguration, err, "compile answer key schema")
	}
	if err := schema.Validate(instance); err != nil {
		return nil, experiment.Wrap(experiment.ErrConfiguration, err, "answer key does not match schema")
	}

	var values map[string]int
	if err := json.Unmarshal(normalized, &values); err != nil {
		return nil, experiment.Wrap(experiment.ErrConfiguration, err, "decode answer key values")
	}
	return experiment.AnswerKeyFromInts(values)
}
