// Package export stores the sample statistics of rendered channels.
package export

import (
	"context"
	"time"

	"github.com/hb9tf/rfi/spectral"
)

// Record is the sample statistics of one channel of one rendering run.
type Record struct {
	Identifier   string
	Source       string
	Channel      int
	Band         string
	SampleCount  int
	NegCounts    int
	PosCounts    int
	NegPosRatio  float64
	Low          int
	High         int
	LowHighRatio float64
	Time         time.Time
}

// NewRecord flattens stats into a record.
func NewRecord(identifier, source string, channel int, band string, stats *spectral.Statistics, t time.Time) Record {
	n := 0
	for _, c := range stats.Counts {
		n += c
	}
	return Record{
		Identifier:   identifier,
		Source:       source,
		Channel:      channel,
		Band:         band,
		SampleCount:  n,
		NegCounts:    stats.NegCounts,
		PosCounts:    stats.PosCounts,
		NegPosRatio:  stats.NegPosRatio,
		Low:          stats.Low,
		High:         stats.High,
		LowHighRatio: stats.LowHighRatio,
		Time:         t,
	}
}

type Exporter interface {
	Write(context.Context, <-chan Record) error
}
