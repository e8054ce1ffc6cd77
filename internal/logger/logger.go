// Package logger provides a package-level logging facade for the
// documind server. Debug output is gated behind verbose mode; the
// backing charm logger handles formatting and levels.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

var (
	mu  sync.RWMutex
	log = newCharm(os.Stderr, charmlog.InfoLevel)
)

func newCharm(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
	})
}

// SetVerbose lowers the level to debug when v is true.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		log.SetLevel(charmlog.DebugLevel)
	} else {
		log.SetLevel(charmlog.InfoLevel)
	}
}

// IsVerbose reports whether debug output is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return log.GetLevel() <= charmlog.DebugLevel
}

// SetOutput redirects log output. Defaults to os.Stderr. Useful for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	level := log.GetLevel()
	log = newCharm(w, level)
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug(fmt.Sprintf(format, args...))
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info(fmt.Sprintf(format, args...))
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn(fmt.Sprintf(format, args...))
}

// Error logs a formatted message at error level.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error(fmt.Sprintf(format, args...))
}
