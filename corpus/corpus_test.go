package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hb9tf/rfi/config"
)

func writePair(t *testing.T, base string, data []string, labels []string) {
	t.Helper()
	require.NoError(t, os.WriteFile(base+".txt", []byte(strings.Join(data, "\n")+"\n"), 0644))
	require.NoError(t, os.WriteFile(base+"_loc.txt", []byte(strings.Join(labels, "\n")+"\n"), 0644))
}

func TestRelabelAndOneHot(t *testing.T) {
	labels := []int{0, 1, 1, 0, 1}
	Relabel(labels, 2)
	assert.Equal(t, []int{0, 2, 2, 0, 2}, labels)

	m, err := OneHot(labels, 3)
	require.NoError(t, err)
	want := mat.NewDense(5, 3, []float64{
		1, 0, 0,
		0, 0, 1,
		0, 0, 1,
		1, 0, 0,
		0, 0, 1,
	})
	assert.True(t, mat.Equal(want, m), "got %v", mat.Formatted(m))
}

func TestRelabelIdentity(t *testing.T) {
	labels := []int{0, 1, 3}
	Relabel(labels, 1)
	assert.Equal(t, []int{0, 1, 3}, labels)
}

func TestOneHotRejectsOutOfRange(t *testing.T) {
	_, err := OneHot([]int{0, 3}, 3)
	assert.Error(t, err)
	_, err = OneHot(nil, 3)
	assert.Error(t, err)
}

func TestProcessPairMissingCompanion(t *testing.T) {
	base := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(base+".txt", []byte("1\n2\n"), 0644))

	p, err := ProcessPair(base, 1)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestProcessPairLengthMismatch(t *testing.T) {
	base := filepath.Join(t.TempDir(), "x")
	writePair(t, base, []string{"1", "2", "3"}, []string{"0", "1"})

	_, err := ProcessPair(base, 1)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestProcessPair(t *testing.T) {
	base := filepath.Join(t.TempDir(), "x")
	writePair(t, base, []string{"0.5", "-1.25", " 3e2", "4"}, []string{"0", "1", "1", "0"})

	p, err := ProcessPair(base, 2)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []float64{0.5, -1.25, 300, 4}, p.Data)
	assert.Equal(t, []int{0, 2, 2, 0}, p.Labels)
}

func TestProcessPairBadValue(t *testing.T) {
	base := filepath.Join(t.TempDir(), "x")
	writePair(t, base, []string{"1", "oops"}, []string{"0", "1"})
	_, err := ProcessPair(base, 1)
	assert.Error(t, err)

	writePair(t, base, []string{"1", "2"}, []string{"0", "0.5"})
	_, err = ProcessPair(base, 1)
	assert.ErrorContains(t, err, "not an integer")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	writePair(t, a, []string{"1", "2", "3"}, []string{"0", "1", "0"})
	writePair(t, b, []string{"4", "5"}, []string{"1", "1"})

	return &config.Config{
		DataPath:             filepath.Join(dir, "out"),
		DataFile:             "corpus.db",
		Version:              "3",
		NumberChannels:       1,
		NumberClasses:        3,
		TrainingPercentage:   60,
		ValidationPercentage: 20,
		Sources: []config.Source{
			{Base: a, RFILabel: 1},
			{Base: b, RFILabel: 2},
		},
	}
}

func TestBuildAndOpen(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Build(cfg))

	c, err := Open(cfg.OutputFile(), 60, 20)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, c.Samples, "sources concatenated in order")
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, "3", c.Version)
	assert.Equal(t, 1, c.NumberChannels)
	assert.Equal(t, 3, c.NumberClasses)
	assert.Equal(t, 5, c.LengthData)
	assert.NotEmpty(t, c.BuildID)

	want := mat.NewDense(5, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		1, 0, 0,
		0, 0, 1,
		0, 0, 1,
	})
	assert.True(t, mat.Equal(want, c.Labels), "got %v", mat.Formatted(c.Labels))

	// No temporary files are left next to the container.
	entries, err := os.ReadDir(cfg.DataPath)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBuildCache(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Build(cfg))
	first, err := readHeader(cfg.OutputFile())
	require.NoError(t, err)

	// Same version: nothing is rebuilt, even when the inputs disappear.
	for _, src := range cfg.Sources {
		require.NoError(t, os.Remove(src.Base+"_loc.txt"))
	}
	require.NoError(t, Build(cfg))
	again, err := readHeader(cfg.OutputFile())
	require.NoError(t, err)
	assert.Equal(t, first.BuildID, again.BuildID)

	// A new version forces a rebuild, which now fails on the missing input.
	cfg.Version = "4"
	assert.ErrorIs(t, Build(cfg), ErrMissingCompanion)
}

func TestBuildRebuildsOnNewVersion(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Build(cfg))
	first, err := readHeader(cfg.OutputFile())
	require.NoError(t, err)

	cfg.Version = "4"
	require.NoError(t, Build(cfg))
	second, err := readHeader(cfg.OutputFile())
	require.NoError(t, err)
	assert.NotEqual(t, first.BuildID, second.BuildID)
	assert.Equal(t, "4", second.Version)
}

func TestBuildReplacesGarbage(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.DataPath, 0755))
	require.NoError(t, os.WriteFile(cfg.OutputFile(), []byte("not a container"), 0644))

	require.NoError(t, Build(cfg))
	_, err := Open(cfg.OutputFile(), 60, 20)
	assert.NoError(t, err)
}

func TestBuildUnderSpecialCharacterPaths(t *testing.T) {
	for _, name := range []string{"run#1", "what?", "with space"} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.DataPath = filepath.Join(cfg.DataPath, name)
			require.NoError(t, Build(cfg))

			c, err := Open(cfg.OutputFile(), 60, 20)
			require.NoError(t, err)
			assert.Equal(t, 5, c.Len())
			assert.True(t, upToDate(cfg.OutputFile(), cfg))

			entries, err := os.ReadDir(cfg.DataPath)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

// writePartial writes a container holding the data but, depending on the
// flags, without the version tag or the percentages.
func writePartial(t *testing.T, path string, version, percentages bool) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	c, err := createContainer(path)
	require.NoError(t, err)
	defer c.Close()
	tx, err := c.db.Begin()
	require.NoError(t, err)

	require.NoError(t, setAttr(tx, rootGroup, attrNumberChannels, 1))
	require.NoError(t, setAttr(tx, rootGroup, attrNumberClasses, 2))
	if percentages {
		require.NoError(t, setAttr(tx, rootGroup, attrTrainingPercentage, 60.0))
		require.NoError(t, setAttr(tx, rootGroup, attrValidationPercentage, 20.0))
	}
	require.NoError(t, setAttr(tx, dataGroup, attrLengthData, 2))
	require.NoError(t, putDataset(tx, dataGroup, datasetSamples, 2, 1, []float64{1, 2}))
	require.NoError(t, putDataset(tx, dataGroup, datasetLabels, 2, 2, []float64{1, 0, 0, 1}))
	if version {
		require.NoError(t, setAttr(tx, rootGroup, attrVersion, "3"))
	}
	require.NoError(t, tx.Commit())
}

func TestUntaggedContainer(t *testing.T) {
	cfg := testConfig(t)
	writePartial(t, cfg.OutputFile(), false, true)

	_, err := Open(cfg.OutputFile(), 60, 20)
	assert.ErrorIs(t, err, ErrMustBuild)
	assert.False(t, upToDate(cfg.OutputFile(), cfg))

	require.NoError(t, Build(cfg))
	c, err := Open(cfg.OutputFile(), 60, 20)
	require.NoError(t, err)
	assert.Equal(t, "3", c.Version)
	assert.Equal(t, 5, c.Len(), "rebuilt from the sources")
}

func TestContainerWithoutPercentages(t *testing.T) {
	cfg := testConfig(t)
	writePartial(t, cfg.OutputFile(), true, false)

	h, err := readHeader(cfg.OutputFile())
	require.NoError(t, err)
	assert.Equal(t, -1.0, h.TrainingPercentage)
	assert.Equal(t, -1.0, h.ValidationPercentage)

	_, err = Open(cfg.OutputFile(), 60, 20)
	assert.ErrorIs(t, err, ErrMustBuild)
	assert.False(t, upToDate(cfg.OutputFile(), cfg))
}

func TestOpenMustBuild(t *testing.T) {
	cfg := testConfig(t)

	_, err := Open(cfg.OutputFile(), 60, 20)
	assert.ErrorIs(t, err, ErrMustBuild)

	require.NoError(t, Build(cfg))
	_, err = Open(cfg.OutputFile(), 70, 20)
	assert.ErrorIs(t, err, ErrMustBuild)
	_, err = Open(cfg.OutputFile(), 60, 10)
	assert.ErrorIs(t, err, ErrMustBuild)
}

func TestNew(t *testing.T) {
	c, err := New([]float64{1, 2}, []int{0, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	r, col := c.Labels.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, col)

	_, err = New([]float64{1}, []int{0, 1}, 2)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1, 0.25}, Normalize([]float64{-2, 0, 2, -1}))
	assert.Equal(t, []float64{0, 0}, Normalize([]float64{3, 3}))
	assert.Empty(t, Normalize(nil))
}

func TestReadSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.txt")
	require.NoError(t, os.WriteFile(path, []byte("1\n-3\n 3.5\n"), 0644))
	x, err := ReadSeries(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -3, 3.5}, x)
}
