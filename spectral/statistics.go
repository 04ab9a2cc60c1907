package spectral

import (
	"errors"
	"sort"
)

var ErrMissingLevels = errors.New("missing sample levels for ratios")

// Statistics counts the quantised sample levels of a series. The LBA
// recorder stores 2 bit samples with levels -3, -1, 1 and 3.
type Statistics struct {
	Shape        []int       `json:"shape"`
	Counts       map[int]int `json:"counts"`
	NegCounts    int         `json:"neg_counts"`
	PosCounts    int         `json:"pos_counts"`
	NegPosRatio  float64     `json:"neg_pos_ratio"`
	Low          int         `json:"low"`
	High         int         `json:"high"`
	LowHighRatio float64     `json:"low_high_ratio"`
}

// Levels returns the counted sample levels in ascending order.
func (s *Statistics) Levels() []int {
	levels := make([]int, 0, len(s.Counts))
	for l := range s.Counts {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels
}

// SampleStatistics counts every sample level of x (truncated to an integer)
// and derives the negative/positive and low/high level ratios. Ratios that
// would divide by zero are reported as ErrMissingLevels together with the
// counts.
func SampleStatistics(x []float64) (*Statistics, error) {
	s := &Statistics{
		Shape:  []int{len(x)},
		Counts: map[int]int{},
	}
	for _, v := range x {
		s.Counts[int(v)]++
	}
	s.NegCounts = s.Counts[-3] + s.Counts[-1]
	s.PosCounts = s.Counts[3] + s.Counts[1]
	s.Low = s.Counts[-1] + s.Counts[1]
	s.High = s.Counts[-3] + s.Counts[3]
	if s.PosCounts == 0 || s.High == 0 {
		return s, ErrMissingLevels
	}
	s.NegPosRatio = float64(s.NegCounts) / float64(s.PosCounts)
	s.LowHighRatio = float64(s.Low) / float64(s.High)
	return s, nil
}
