package catalog

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statlearn/internal/experiment"
)

func referenceKey() experiment.AnswerKey {
	return experiment.AnswerKey{
		"Q1.wav": experiment.Option1,
		"Q2.wav": experiment.Option2,
		"Q3.wav": experiment.Option2,
		"Q4.wav": experiment.Option1,
		"Q5.wav": experiment.Option1,
		"Q6.wav": experiment.Option2,
		"Q7.wav": experiment.Option1,
		"Q8.wav": experiment.Option2,
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("RIFF"), 0600))
	}
}

func setupAssets(t *testing.T) (audio, instr string) {
	t.Helper()
	root := t.TempDir()
	audio = filepath.Join(root, "demo_audio")
	instr = filepath.Join(root, "instructions")
	require.NoError(t, os.MkdirAll(audio, 0755))
	require.NoError(t, os.MkdirAll(instr, 0755))

	writeFiles(t, audio,
		"Q3.wav", "Q1.wav", "Q8.wav", "Q2.wav", "Q5.wav", "Q4.wav", "Q7.wav", "Q6.wav",
		"TrainingFile.wav", "Q9.txt", "notes.wav")
	require.NoError(t, os.WriteFile(filepath.Join(instr, "welcome.txt"), []byte("Listen carefully."), 0600))
	return audio, instr
}

func defaultOptions() Options {
	return Options{
		TestPrefix:          "Q",
		AudioExt:            ".wav",
		TrainingName:        "TrainingFile.wav",
		InstructionsName:    "welcome.txt",
		RequireTraining:     true,
		RequireInstructions: true,
	}
}

func TestBuildSortedOrder(t *testing.T) {
	audio, instr := setupAssets(t)

	cat, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Q1.wav", "Q2.wav", "Q3.wav", "Q4.wav", "Q5.wav", "Q6.wav", "Q7.wav", "Q8.wav",
	}, cat.IDs())
	assert.Equal(t, "Listen carefully.", cat.Instructions)
	assert.Equal(t, filepath.Join(audio, "TrainingFile.wav"), cat.Training)

	for i, it := range cat.Items {
		assert.Equal(t, i+1, it.Ordinal)
		assert.Equal(t, referenceKey()[it.ID], it.Correct)
		assert.True(t, filepath.IsAbs(it.Asset))
	}
}

func TestBuildRandomizedIsPermutation(t *testing.T) {
	audio, instr := setupAssets(t)

	sorted, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), defaultOptions())
	require.NoError(t, err)

	opts := defaultOptions()
	opts.Randomize = true
	opts.Rand = rand.New(rand.NewPCG(7, 11))
	shuffled, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), opts)
	require.NoError(t, err)

	got := shuffled.IDs()
	assert.ElementsMatch(t, sorted.IDs(), got)

	slices.Sort(got)
	assert.Equal(t, sorted.IDs(), got)
}

func TestBuildDeterministicWithoutRandomize(t *testing.T) {
	audio, instr := setupAssets(t)

	first, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), defaultOptions())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), defaultOptions())
		require.NoError(t, err)
		assert.Equal(t, first.IDs(), again.IDs())
	}
}

func TestBuildSameSeedSameOrder(t *testing.T) {
	audio, instr := setupAssets(t)

	opts := defaultOptions()
	opts.Randomize = true

	opts.Rand = rand.New(rand.NewPCG(1, 2))
	a, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), opts)
	require.NoError(t, err)

	opts.Rand = rand.New(rand.NewPCG(1, 2))
	b, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), opts)
	require.NoError(t, err)

	assert.Equal(t, a.IDs(), b.IDs())
}

func TestBuildNoTestItems(t *testing.T) {
	audio := t.TempDir()
	writeFiles(t, audio, "TrainingFile.wav")

	_, err := Build(DirSource{Root: audio}, nil, referenceKey(), Options{TestPrefix: "Q", AudioExt: ".wav"})
	if !errors.Is(err, experiment.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestBuildMissingAudioDir(t *testing.T) {
	_, err := Build(DirSource{Root: filepath.Join(t.TempDir(), "nope")}, nil, referenceKey(), defaultOptions())
	if !errors.Is(err, experiment.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestBuildMissingKeyEntry(t *testing.T) {
	audio, instr := setupAssets(t)
	key := referenceKey()
	delete(key, "Q5.wav")

	_, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, key, defaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, experiment.ErrConfiguration)
	assert.Contains(t, err.Error(), "Q5.wav")
}

func TestBuildMissingTraining(t *testing.T) {
	audio, instr := setupAssets(t)
	require.NoError(t, os.Remove(filepath.Join(audio, "TrainingFile.wav")))

	_, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), defaultOptions())
	assert.ErrorIs(t, err, experiment.ErrAssetNotFound)

	// Debug runs skip training, so the asset is not required.
	opts := defaultOptions()
	opts.RequireTraining = false
	cat, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), opts)
	require.NoError(t, err)
	assert.Empty(t, cat.Training)
}

func TestBuildMissingInstructions(t *testing.T) {
	audio, instr := setupAssets(t)
	require.NoError(t, os.Remove(filepath.Join(instr, "welcome.txt")))

	_, err := Build(DirSource{Root: audio}, DirSource{Root: instr}, referenceKey(), defaultOptions())
	assert.ErrorIs(t, err, experiment.ErrAssetNotFound)
}

func TestDirSourceSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Q1.wav")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Q2.wav"), 0755))

	names, err := DirSource{Root: dir}.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1.wav"}, names)
}
