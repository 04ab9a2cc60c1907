package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
)

// CSV writes records to Out, or stdout when Out is nil.
type CSV struct {
	Out io.Writer
}

func (c *CSV) Write(ctx context.Context, records <-chan Record) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	w := csv.NewWriter(out)
	w.Write([]string{
		"Identifier",
		"Source",
		"Channel",
		"Band",
		"SampleCount",
		"NegCounts",
		"PosCounts",
		"NegPosRatio",
		"Low",
		"High",
		"LowHighRatio",
		"UnixMilli",
	})

	for r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write([]string{
			r.Identifier,
			r.Source,
			fmt.Sprintf("%d", r.Channel),
			r.Band,
			fmt.Sprintf("%d", r.SampleCount),
			fmt.Sprintf("%d", r.NegCounts),
			fmt.Sprintf("%d", r.PosCounts),
			fmt.Sprintf("%f", r.NegPosRatio),
			fmt.Sprintf("%d", r.Low),
			fmt.Sprintf("%d", r.High),
			fmt.Sprintf("%f", r.LowHighRatio),
			fmt.Sprintf("%d", r.Time.UnixMilli()),
		}); err != nil {
			glog.Warningf("error while writing CSV line: %s\n", err)
		}

		w.Flush()
		if err := w.Error(); err != nil {
			glog.Warningf("error flushing CSV: %s\n", err)
		}
	}
	w.Flush()
	return w.Error()
}
