// Package corpus builds and opens the labeled RFI time series corpus.
//
// A corpus is built once from companion text file pairs and stored in a
// versioned container. Consumers open it read-only; the window index over it
// lives in package dataset.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/hb9tf/rfi/config"
	"github.com/hb9tf/rfi/timer"
)

var (
	ErrMissingCompanion = errors.New("missing companion file")
	ErrLengthMismatch   = errors.New("the line counts do not match")
	ErrMustBuild        = errors.New("you need to build the corpus first")
)

const (
	attrNumberChannels       = "number_channels"
	attrNumberClasses        = "number_classes"
	attrTrainingPercentage   = "training_percentage"
	attrValidationPercentage = "validation_percentage"
	attrBuildID              = "build_id"
	attrVersion              = "version"
	attrLengthData           = "length_data"

	datasetSamples = "data_channel_0"
	datasetLabels  = "labels"
)

// Header is the metadata stored with a corpus.
type Header struct {
	NumberChannels       int
	NumberClasses        int
	TrainingPercentage   float64
	ValidationPercentage float64
	BuildID              string
	Version              string
	LengthData           int
}

// Corpus is an in-memory sample series with its one-hot labels.
// Labels has one row per sample.
type Corpus struct {
	Header

	Samples []float64
	Labels  *mat.Dense
}

// New pairs samples with integer labels, one-hot encoding the labels.
func New(samples []float64, labels []int, numberClasses int) (*Corpus, error) {
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("%w (%d samples, %d labels)", ErrLengthMismatch, len(samples), len(labels))
	}
	oh, err := OneHot(labels, numberClasses)
	if err != nil {
		return nil, err
	}
	return &Corpus{
		Header: Header{
			NumberChannels: 1,
			NumberClasses:  numberClasses,
			LengthData:     len(samples),
		},
		Samples: samples,
		Labels:  oh,
	}, nil
}

// Len is the number of samples.
func (c *Corpus) Len() int {
	return len(c.Samples)
}

// Build writes the corpus container described by cfg.
//
// It is a no-op when a container with the same version and percentages
// already exists. Sources are concatenated in the configured order.
func Build(cfg *config.Config) error {
	outputFile := cfg.OutputFile()
	if upToDate(outputFile, cfg) {
		glog.Infof("%s is up to date (version %s)", outputFile, cfg.Version)
		return nil
	}

	pairs := make([]*Pair, 0, len(cfg.Sources))
	stop := timer.Track("Processing input files")
	for _, src := range cfg.Sources {
		p, err := ProcessPair(src.Base, src.RFILabel)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w for: %s", ErrMissingCompanion, src.Base)
		}
		pairs = append(pairs, p)
	}
	stop()

	stop = timer.Track("Concatenating data")
	var data []float64
	var labels []int
	for _, p := range pairs {
		data = append(data, p.Data...)
		labels = append(labels, p.Labels...)
	}
	stop()
	if len(data) == 0 {
		return fmt.Errorf("no samples found in %d sources", len(cfg.Sources))
	}

	stop = timer.Track("One hot")
	oneHot, err := OneHot(labels, cfg.NumberClasses)
	stop()
	if err != nil {
		return err
	}

	defer timer.Track(fmt.Sprintf("Saving to %s", outputFile))()
	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("unable to create data path %q: %w", cfg.DataPath, err)
	}
	h := Header{
		NumberChannels:       cfg.NumberChannels,
		NumberClasses:        cfg.NumberClasses,
		TrainingPercentage:   cfg.TrainingPercentage,
		ValidationPercentage: cfg.ValidationPercentage,
		BuildID:              uuid.NewString(),
		Version:              cfg.Version,
		LengthData:           len(data),
	}
	if err := write(outputFile, h, data, oneHot); err != nil {
		return err
	}

	if info, err := os.Stat(outputFile); err == nil {
		glog.Infof("wrote %s samples (%s) to %s", humanize.Comma(int64(len(data))), humanize.Bytes(uint64(info.Size())), outputFile)
	}
	return nil
}

// write stores the corpus in a temporary file next to path and renames it
// into place. The version attribute is the last thing written.
func write(path string, h Header, data []float64, labels *mat.Dense) error {
	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), uuid.NewString()))
	defer os.Remove(tmp)

	c, err := createContainer(tmp)
	if err != nil {
		return err
	}
	tx, err := c.db.Begin()
	if err != nil {
		c.Close()
		return err
	}

	rows, cols := labels.Dims()
	steps := []func() error{
		func() error { return setAttr(tx, rootGroup, attrNumberChannels, h.NumberChannels) },
		func() error { return setAttr(tx, rootGroup, attrNumberClasses, h.NumberClasses) },
		func() error { return setAttr(tx, rootGroup, attrTrainingPercentage, h.TrainingPercentage) },
		func() error { return setAttr(tx, rootGroup, attrValidationPercentage, h.ValidationPercentage) },
		func() error { return setAttr(tx, rootGroup, attrBuildID, h.BuildID) },
		func() error { return setAttr(tx, dataGroup, attrLengthData, h.LengthData) },
		func() error { return putDataset(tx, dataGroup, datasetSamples, len(data), 1, data) },
		func() error { return putDataset(tx, dataGroup, datasetLabels, rows, cols, labels.RawMatrix().Data) },
		func() error { return setAttr(tx, rootGroup, attrVersion, h.Version) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			tx.Rollback()
			c.Close()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		c.Close()
		return fmt.Errorf("unable to commit container %q: %w", tmp, err)
	}
	if err := c.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// upToDate reports whether path holds a complete container matching cfg.
func upToDate(path string, cfg *config.Config) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	h, err := readHeader(path)
	if err != nil {
		glog.Warningf("ignoring unreadable container %q: %s", path, err)
		return false
	}
	return h.Version == cfg.Version &&
		h.TrainingPercentage == cfg.TrainingPercentage &&
		h.ValidationPercentage == cfg.ValidationPercentage
}

func readHeader(path string) (*Header, error) {
	c, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.header()
}

// header reads the container metadata. A missing version yields an empty
// Version rather than an error; it marks an incomplete container.
func (c *container) header() (*Header, error) {
	h := &Header{}
	var err error
	if h.Version, _, err = c.attr(rootGroup, attrVersion); err != nil {
		return nil, err
	}
	if h.BuildID, _, err = c.attr(rootGroup, attrBuildID); err != nil {
		return nil, err
	}
	if h.NumberChannels, _, err = c.attrInt(rootGroup, attrNumberChannels); err != nil {
		return nil, err
	}
	if h.NumberClasses, _, err = c.attrInt(rootGroup, attrNumberClasses); err != nil {
		return nil, err
	}
	if h.LengthData, _, err = c.attrInt(dataGroup, attrLengthData); err != nil {
		return nil, err
	}
	var ok bool
	if h.TrainingPercentage, ok, err = c.attrFloat(rootGroup, attrTrainingPercentage); err != nil {
		return nil, err
	} else if !ok {
		h.TrainingPercentage = -1
	}
	if h.ValidationPercentage, ok, err = c.attrFloat(rootGroup, attrValidationPercentage); err != nil {
		return nil, err
	} else if !ok {
		h.ValidationPercentage = -1
	}
	return h, nil
}

// Open loads the corpus container at path into memory.
//
// It fails with ErrMustBuild when there is no container or when the
// recorded percentages differ from the expected ones.
func Open(path string, trainingPercentage, validationPercentage float64) (*Corpus, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMustBuild, err)
	}
	defer timer.Track("Checking corpus file")()

	c, err := openContainer(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	h, err := c.header()
	if err != nil {
		return nil, err
	}
	if h.Version == "" {
		return nil, fmt.Errorf("%w: %s has no version tag", ErrMustBuild, path)
	}
	if h.TrainingPercentage != trainingPercentage || h.ValidationPercentage != validationPercentage {
		return nil, fmt.Errorf("%w: %s was built for %g/%g, want %g/%g", ErrMustBuild, path,
			h.TrainingPercentage, h.ValidationPercentage, trainingPercentage, validationPercentage)
	}

	n, _, samples, err := c.dataset(dataGroup, datasetSamples)
	if err != nil {
		return nil, err
	}
	rows, cols, labels, err := c.dataset(dataGroup, datasetLabels)
	if err != nil {
		return nil, err
	}
	if rows != n {
		return nil, fmt.Errorf("%w in %s (%d samples, %d labels)", ErrLengthMismatch, path, n, rows)
	}
	glog.V(2).Infof("opened %s: %d samples, %d classes", path, n, cols)

	return &Corpus{
		Header:  *h,
		Samples: samples,
		Labels:  mat.NewDense(rows, cols, labels),
	}, nil
}
