// Package timer logs how long a named step took.
package timer

import (
	"time"

	"github.com/golang/glog"
)

// Track logs the start of the named step and returns a func that logs the
// elapsed time when called, typically via defer.
//
//	defer timer.Track("Concatenating data")()
func Track(name string) func() {
	glog.Infof("%s, Starting timer", name)
	start := time.Now()
	return func() {
		glog.Infof("%s, Elapsed time: %s", name, time.Since(start).Round(time.Millisecond))
	}
}
