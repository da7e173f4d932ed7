// Package monitoring is the diagnostic logging hook shared by the library
// packages. Binaries keep the default; tests usually mute it.
package monitoring

import (
	"fmt"
	"log"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SlowThreshold is the duration above which Timed reports an operation.
var SlowThreshold = 250 * time.Millisecond

// Timed starts timing an operation. Calling the returned func logs the
// operation when it took longer than SlowThreshold and returns the elapsed
// time either way.
//
//	defer monitoring.Timed("heatmap canvas %d", id)()
func Timed(format string, v ...interface{}) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		if d > SlowThreshold {
			Logf("slow: %s took %v", fmt.Sprintf(format, v...), d.Round(time.Millisecond))
		}
		return d
	}
}
