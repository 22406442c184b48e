package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

type levelStyle struct {
	tag   string
	color string
}

var styles = map[LogLevel]levelStyle{
	LevelDebug: {"[DEBUG]", "\033[90m"},
	LevelInfo:  {"[INFO] ", "\033[36m"},
	LevelWarn:  {"[WARN] ", "\033[33m"},
	LevelError: {"[ERROR]", "\033[31m"},
}

var (
	mu              sync.Mutex
	currentLogLevel = LevelInfo
	useColors       = IsTerminal(os.Stderr.Fd())
	output          io.Writer = os.Stderr
)

// SetLogLevel sets the minimum log level to display
func SetLogLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLogLevel = level
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		SetLogLevel(LevelDebug)
	}
}

// SetQuiet enables quiet mode (errors only)
func SetQuiet(quiet bool) {
	if quiet {
		SetLogLevel(LevelError)
	}
}

// IsQuiet reports whether only errors are printed
func IsQuiet() bool {
	mu.Lock()
	defer mu.Unlock()
	return currentLogLevel >= LevelError
}

// SetColors enables or disables colored output
func SetColors(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	useColors = enabled
}

// SetOutput redirects log output. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(level LogLevel, tag string, color string, format string, args []interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if level < currentLogLevel {
		return
	}

	ts := time.Now().Format("15:04:05")
	if useColors {
		ts = color + ts + "\033[0m"
	}
	fmt.Fprintf(output, "%s %s %s\n", ts, tag, fmt.Sprintf(format, args...))
}

// DebugLog logs debug messages
func DebugLog(format string, args ...interface{}) {
	s := styles[LevelDebug]
	logf(LevelDebug, s.tag, s.color, format, args)
}

// InfoLog logs informational messages
func InfoLog(format string, args ...interface{}) {
	s := styles[LevelInfo]
	logf(LevelInfo, s.tag, s.color, format, args)
}

// WarnLog logs warning messages
func WarnLog(format string, args ...interface{}) {
	s := styles[LevelWarn]
	logf(LevelWarn, s.tag, s.color, format, args)
}

// ErrorLog logs error messages
func ErrorLog(format string, args ...interface{}) {
	s := styles[LevelError]
	logf(LevelError, s.tag, s.color, format, args)
}

// SuccessLog logs success messages (shown at info level)
func SuccessLog(format string, args ...interface{}) {
	logf(LevelInfo, "[OK]   ", "\033[32m", format, args)
}
