// Package logger provides leveled logging to standard error.
// Standard output is reserved for the report document, so every diagnostic line,
// including progress, goes through this package.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel is for per-request detail.
	DebugLevel Level = iota
	// InfoLevel is the default and carries progress lines.
	InfoLevel
	// WarnLevel marks skipped debates and failed notifications.
	WarnLevel
	// ErrorLevel marks failures that end the run.
	ErrorLevel
)

// Logger provides leveled logging
type Logger struct {
	level  Level
	prefix string
	logger *log.Logger
}

var defaultLogger *Logger

// ParseLevel maps a level name to a Level. Unknown names map to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Init initializes the default logger writing to stderr
func Init(level string, format string) {
	InitWithWriter(os.Stderr, level, format)
}

// InitWithWriter initializes the default logger writing to w
func InitWithWriter(w io.Writer, level string, format string) {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}

	defaultLogger = &Logger{
		level:  ParseLevel(level),
		logger: log.New(w, "", flags),
	}
}

// SetRunID tags every subsequent line with the given run identifier.
func SetRunID(runID string) {
	if defaultLogger == nil {
		return
	}
	if runID == "" {
		defaultLogger.prefix = ""
		return
	}
	defaultLogger.prefix = "run=" + runID + " "
}

func output(l Level, tag, format string, args ...interface{}) {
	if defaultLogger == nil || defaultLogger.level > l {
		return
	}
	msg := fmt.Sprintf("["+tag+"] "+defaultLogger.prefix+format, args...)
	_ = defaultLogger.logger.Output(3, msg)
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	output(DebugLevel, "DEBUG", format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	output(InfoLevel, "INFO", format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	output(WarnLevel, "WARN", format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	output(ErrorLevel, "ERROR", format, args...)
}

// Fatal logs a message and exits with status 1
func Fatal(format string, args ...interface{}) {
	if defaultLogger != nil {
		_ = defaultLogger.logger.Output(2, fatalLine(format, args...))
	} else {
		log.Print(fatalLine(format, args...))
	}
	os.Exit(1)
}

// fatalLine formats a fatal message with the same tag-then-prefix order as output.
func fatalLine(format string, args ...interface{}) string {
	prefix := ""
	if defaultLogger != nil {
		prefix = defaultLogger.prefix
	}
	return fmt.Sprintf("[FATAL] "+prefix+format, args...)
}
