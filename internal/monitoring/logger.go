package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// debug controls whether Debugf output is emitted.
var debug bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug enables or disables Debugf output.
func SetDebug(enabled bool) {
	debug = enabled
}

// Debugf logs through Logf only when debug output is enabled. Intended for
// per-frame diagnostics that would otherwise flood the log at pipeline rates.
func Debugf(format string, v ...interface{}) {
	if debug {
		Logf(format, v...)
	}
}
