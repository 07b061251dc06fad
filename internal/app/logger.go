package app

import (
	"fmt"
	"io"
	"os"
)

// Logger is the process-wide diagnostic sink. The pipeline reports progress
// through the event bus; this interface carries only the operational noise
// around it (degraded writes, best-effort failures).
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// defaultLogger prints every level to one writer. Good enough until a
// command installs something smarter.
type defaultLogger struct {
	output io.Writer
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "DEBUG: "+format+"\n", args...)
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "INFO: "+format+"\n", args...)
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "WARN: "+format+"\n", args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.output, "ERROR: "+format+"\n", args...)
}

// globalLogger defaults to stderr so stdout stays clean for command output
var globalLogger Logger = &defaultLogger{output: os.Stderr}

// SetLogger replaces the process logger. A nil logger is ignored.
func SetLogger(logger Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// GetLogger returns the current process logger
func GetLogger() Logger {
	return globalLogger
}
