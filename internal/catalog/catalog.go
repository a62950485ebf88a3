// Package catalog discovers the stimulus set for a session and pairs every
// test item with its answer.
package catalog

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"

	"statlearn/internal/experiment"
)

// Options control discovery and ordering.
type Options struct {
	// TestPrefix and AudioExt select test items by file name.
	TestPrefix string
	AudioExt   string

	// TrainingName is the reserved name of the training stimulus.
	TrainingName string

	// InstructionsName is the instruction text file inside the
	// instructions source.
	InstructionsName string

	// RequireTraining is false in debug mode, where training is skipped.
	RequireTraining bool

	// RequireInstructions makes a missing instruction file fatal.
	RequireInstructions bool

	// Randomize shuffles the sorted item list.
	Randomize bool

	// Rand drives the shuffle. Nil uses a randomly seeded generator.
	Rand *rand.Rand
}

// Catalog is the resolved stimulus set of one session.
type Catalog struct {
	Training     string
	Instructions string
	Items        []experiment.Item
	Key          experiment.AnswerKey
}

// Build resolves training, instructions and test items from the sources and
// checks that every test item has an answer.
func Build(audio, instructions AssetSource, key experiment.AnswerKey, opts Options) (*Catalog, error) {
	if audio == nil {
		return nil, experiment.Errorf(experiment.ErrConfiguration, "no audio source")
	}

	names, err := audio.Entries()
	if err != nil {
		return nil, experiment.Wrap(experiment.ErrAssetNotFound, err, "list audio assets")
	}

	var tests []string
	for _, name := range names {
		if strings.HasPrefix(name, opts.TestPrefix) && strings.HasSuffix(name, opts.AudioExt) {
			tests = append(tests, name)
		}
	}
	if len(tests) == 0 {
		return nil, experiment.Errorf(experiment.ErrAssetNotFound,
			"no test items matching %s*%s", opts.TestPrefix, opts.AudioExt)
	}

	sort.Strings(tests)
	if opts.Randomize {
		r := opts.Rand
		if r == nil {
			r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		r.Shuffle(len(tests), func(i, j int) {
			tests[i], tests[j] = tests[j], tests[i]
		})
	}

	cat := &Catalog{Key: key}

	var missing []string
	for i, name := range tests {
		correct, ok := key.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cat.Items = append(cat.Items, experiment.Item{
			ID:      name,
			Ordinal: i + 1,
			Asset:   audio.Locate(name),
			Correct: correct,
		})
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, experiment.Errorf(experiment.ErrConfiguration,
			"answer key has no entry for %s", strings.Join(missing, ", "))
	}

	if opts.RequireTraining {
		ok, err := exists(audio, opts.TrainingName)
		if err != nil {
			return nil, experiment.Wrap(experiment.ErrAssetNotFound, err, "training asset %s", opts.TrainingName)
		}
		if !ok {
			return nil, experiment.Errorf(experiment.ErrAssetNotFound, "training asset %s", opts.TrainingName)
		}
		cat.Training = audio.Locate(opts.TrainingName)
	}

	if opts.RequireInstructions {
		if instructions == nil {
			return nil, experiment.Errorf(experiment.ErrAssetNotFound, "instructions %s", opts.InstructionsName)
		}
		text, err := readText(instructions, opts.InstructionsName)
		if err != nil {
			return nil, experiment.Wrap(experiment.ErrAssetNotFound, err, "instructions %s", opts.InstructionsName)
		}
		cat.Instructions = text
	}

	return cat, nil
}

// IDs returns the stimulus identifiers in presentation order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ID
	}
	return ids
}

func readText(src AssetSource, name string) (string, error) {
	f, err := src.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}
