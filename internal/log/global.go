package log

import "sync/atomic"

var process atomic.Pointer[Logger]

// SetDefaultLogger installs the logger that stores, clients and caches
// fall back to when they are built without one. Passing nil restores the
// silent default.
func SetDefaultLogger(logger *Logger) {
	process.Store(logger)
}

// DefaultLogger returns the logger installed by SetDefaultLogger, or a
// no-op logger so library code stays quiet until the CLI configures output.
func DefaultLogger() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	return Nop()
}
