// Package dataset indexes sliding windows over an RFI corpus.
//
// The window start offsets are shuffled once and split into training,
// validation and test partitions. A partition can be further sharded across
// cooperating worker processes by rank. Each window is expanded into a flat
// feature vector of 6 + 7*SequenceLength values.
package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"gonum.org/v1/gonum/mat"

	"github.com/hb9tf/rfi/corpus"
)

var (
	ErrInvalidPartition = errors.New("partition must be one of: 'training', 'validation', 'test'")
	ErrInvalidRank      = errors.New("rank out of range")
	ErrIndexOutOfRange  = errors.New("index out of range")
)

// Partition names one of the three disjoint window subsets.
type Partition string

const (
	Training   Partition = "training"
	Validation Partition = "validation"
	Test       Partition = "test"
)

// ParsePartition validates a partition name.
func ParsePartition(s string) (Partition, error) {
	switch p := Partition(s); p {
	case Training, Validation, Test:
		return p, nil
	}
	return "", fmt.Errorf("%w, got %q", ErrInvalidPartition, s)
}

// Options control how the window index is built.
type Options struct {
	// SequenceLength is the number of samples per window.
	SequenceLength int
	// TrainingPercentage and ValidationPercentage set the partition cut
	// points; the test partition gets the remainder.
	TrainingPercentage   float64
	ValidationPercentage float64
	// NumProcesses is the number of ranks a partition is sharded across.
	NumProcesses int
	// UsingGPU disables rank sharding.
	UsingGPU bool
	// Rand shuffles the window starts. Nil uses the process-wide generator.
	Rand *rand.Rand
}

// Data is the shuffled and partitioned window index over a corpus.
type Data struct {
	sequenceLength int
	numProcesses   int
	usingGPU       bool

	samples []float64
	labels  *mat.Dense

	train      []int
	validation []int
	test       []int

	global summary
}

// New builds the window index over c.
func New(c *corpus.Corpus, opts Options) (*Data, error) {
	if opts.SequenceLength < 1 {
		return nil, fmt.Errorf("sequence length must be positive, got %d", opts.SequenceLength)
	}
	if opts.SequenceLength >= c.Len() {
		return nil, fmt.Errorf("sequence length %d leaves no windows in %d samples", opts.SequenceLength, c.Len())
	}
	if rows, _ := c.Labels.Dims(); rows != c.Len() {
		return nil, fmt.Errorf("%w (%d samples, %d labels)", corpus.ErrLengthMismatch, c.Len(), rows)
	}
	if opts.TrainingPercentage < 0 || opts.ValidationPercentage < 0 || opts.TrainingPercentage+opts.ValidationPercentage > 100 {
		return nil, fmt.Errorf("invalid percentages %g/%g", opts.TrainingPercentage, opts.ValidationPercentage)
	}
	numProcesses := opts.NumProcesses
	if numProcesses < 1 {
		numProcesses = 1
	}

	lengthData := c.Len() - opts.SequenceLength
	split1 := int(float64(lengthData) * opts.TrainingPercentage / 100)
	split2 := int(float64(lengthData) * (opts.TrainingPercentage + opts.ValidationPercentage) / 100)

	perm := make([]int, lengthData)
	for i := range perm {
		perm[i] = i
	}
	swap := func(i, j int) { perm[i], perm[j] = perm[j], perm[i] }
	if opts.Rand != nil {
		opts.Rand.Shuffle(len(perm), swap)
	} else {
		rand.Shuffle(len(perm), swap)
	}

	d := &Data{
		sequenceLength: opts.SequenceLength,
		numProcesses:   numProcesses,
		usingGPU:       opts.UsingGPU,
		samples:        c.Samples,
		labels:         c.Labels,
		train:          perm[:split1],
		validation:     perm[split1:split2],
		test:           perm[split2:],
		global:         summarize(c.Samples),
	}
	glog.Infof("window index: %s windows (train %s, validation %s, test %s)",
		humanize.Comma(int64(lengthData)), humanize.Comma(int64(len(d.train))),
		humanize.Comma(int64(len(d.validation))), humanize.Comma(int64(len(d.test))))
	return d, nil
}

// LengthData is the number of windows in the index.
func (d *Data) LengthData() int {
	return len(d.train) + len(d.validation) + len(d.test)
}

// SequenceLength is the number of samples per window.
func (d *Data) SequenceLength() int {
	return d.sequenceLength
}

// FeatureLength is the length of every feature vector.
func (d *Data) FeatureLength() int {
	return 6 + 7*d.sequenceLength
}

// NumProcesses is the number of ranks partitions are sharded across.
func (d *Data) NumProcesses() int {
	return d.numProcesses
}

// Partitions returns copies of the three window start index slices.
func (d *Data) Partitions() (train, validation, test []int) {
	return append([]int(nil), d.train...), append([]int(nil), d.validation...), append([]int(nil), d.test...)
}

// GlobalStats returns the corpus-wide median, MAD and mean.
func (d *Data) GlobalStats() (median, mad, mean float64) {
	return d.global.median, d.global.mad, d.global.mean
}

type selectOptions struct {
	rank     *int
	shortRun *int
}

// SelectOption narrows a selection.
type SelectOption func(*selectOptions)

// WithRank selects the shard of the given rank. It is ignored in GPU mode.
func WithRank(rank int) SelectOption {
	return func(o *selectOptions) { o.rank = &rank }
}

// WithShortRun caps the selection at n windows.
func WithShortRun(n int) SelectOption {
	return func(o *selectOptions) { o.shortRun = &n }
}

// Select returns a view over one partition.
//
// In GPU mode or without a rank the whole partition is used. Otherwise the
// partition is cut into NumProcesses contiguous shards, shard r starting at
// floor(r*len/NumProcesses); the last shard runs to the end of the
// partition. A short run keeps at most n windows from the start of the
// selection. In sharded mode it never reaches past the end of the shard,
// so ranks cannot overlap even when n exceeds the shard length.
func (d *Data) Select(p Partition, opts ...SelectOption) (*View, error) {
	o := &selectOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var sequence []int
	switch p {
	case Training:
		sequence = d.train
	case Validation:
		sequence = d.validation
	case Test:
		sequence = d.test
	default:
		return nil, fmt.Errorf("%w, got %q", ErrInvalidPartition, p)
	}
	if o.shortRun != nil && *o.shortRun < 0 {
		return nil, fmt.Errorf("short run size must be non-negative, got %d", *o.shortRun)
	}

	if d.usingGPU || o.rank == nil {
		if o.shortRun != nil {
			sequence = sequence[:min(*o.shortRun, len(sequence))]
		}
	} else {
		rank := *o.rank
		if rank < 0 || rank >= d.numProcesses {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidRank, rank, d.numProcesses)
		}
		start := rank * len(sequence) / d.numProcesses
		end := (rank + 1) * len(sequence) / d.numProcesses
		if rank == d.numProcesses-1 {
			end = len(sequence)
		}
		if o.shortRun != nil {
			end = min(start+*o.shortRun, end)
		}
		sequence = sequence[start:end]
	}

	glog.V(2).Infof("Length: %d", len(sequence))
	return &View{data: d, selection: sequence}, nil
}
