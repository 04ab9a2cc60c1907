package corpus

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/golang/glog"
)

const (
	dataEnding  = ".txt"
	labelEnding = "_loc.txt"
)

// Pair is the content of one companion file pair.
type Pair struct {
	Data   []float64
	Labels []int
}

// ProcessPair loads <base>.txt and <base>_loc.txt.
//
// When either file is missing the problem is logged and ProcessPair returns
// nil with a nil error; callers must check for a nil Pair. Differing line
// counts are reported as ErrLengthMismatch. Labels equal to 1 are replaced
// by rfiLabel when rfiLabel is not 1.
func ProcessPair(base string, rfiLabel int) (*Pair, error) {
	var files []string
	for _, ending := range []string{dataEnding, labelEnding} {
		name := base + ending
		if _, err := os.Stat(name); err == nil {
			files = append(files, name)
		}
	}
	if len(files) != 2 {
		glog.Errorf("missing companion file for: %s", base)
		return nil, nil
	}

	glog.Infof("Loading: %s", files[0])
	data, err := readColumn(files[0])
	if err != nil {
		return nil, err
	}

	glog.Infof("Loading: %s", files[1])
	raw, err := readColumn(files[1])
	if err != nil {
		return nil, err
	}

	if len(data) != len(raw) {
		return nil, fmt.Errorf("%w for: %s (%d vs %d)", ErrLengthMismatch, base, len(data), len(raw))
	}

	labels := make([]int, len(raw))
	for i, v := range raw {
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%s: label %d is not an integer: %v", files[1], i, v)
		}
		labels[i] = int(v)
	}
	Relabel(labels, rfiLabel)

	return &Pair{Data: data, Labels: labels}, nil
}

// Relabel replaces every label equal to 1 with rfiLabel, in place. Other
// labels are left untouched. Nothing changes when rfiLabel is 1.
func Relabel(labels []int, rfiLabel int) {
	if rfiLabel == 1 {
		return
	}
	for i, l := range labels {
		if l == 1 {
			labels[i] = rfiLabel
		}
	}
}

// readColumn parses whitespace separated numbers into a flat slice.
func readColumn(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: value %d: %w", path, len(values), err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}
