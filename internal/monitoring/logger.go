// Package monitoring carries the estimator's diagnostic log stream. Intake
// routines are hot paths, so they log only rare fault-class events (buffer
// allocation failures) and operator-requested status dumps.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Errorf logs fault-class events. It shares the sink with Logf but tags the
// line so post-flight triage can grep for faults.
func Errorf(format string, v ...interface{}) {
	Logf("ERROR: "+format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
