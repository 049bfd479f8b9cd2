package utils

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"
)

var processOnce sync.Once

// InitProcess installs the process-wide logger and crash hook. Only the first
// call has any effect; later calls are no-ops and report false.
func InitProcess(level LogLevel, out io.Writer) bool {
	initialized := false
	processOnce.Do(func() {
		if out == nil {
			out = os.Stderr
		}
		SetGlobalLogger(NewDefaultLogger(level, out))
		debug.SetTraceback("all")
		initialized = true
	})
	return initialized
}

// RecoverError turns a recovered panic value into an error. It returns nil
// when r is nil.
func RecoverError(r interface{}) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
