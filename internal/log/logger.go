// SPDX-License-Identifier: MIT
//
// Package log is the leveled logger shared by every component. The level is
// global and atomic so the audio callback can check it without locking;
// component loggers only add a prefix.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

var (
	currentLevel atomic.Uint32
	output       atomic.Pointer[stdlog.Logger]
)

func init() {
	SetLevel(LevelInfo)
	SetOutput(os.Stderr)
}

// SetLevel sets the global logging level.
func SetLevel(level LogLevel) { currentLevel.Store(uint32(level)) }

// GetLevel returns the global logging level.
func GetLevel() LogLevel { return LogLevel(currentLevel.Load()) }

// SetOutput redirects every logger to w.
func SetOutput(w io.Writer) {
	output.Store(stdlog.New(w, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds))
}

// Logger writes messages tagged with a component name.
type Logger struct {
	prefix string
}

// New returns a Logger whose messages are prefixed with component.
func New(component string) *Logger {
	if component == "" {
		return &Logger{}
	}
	return &Logger{prefix: component + ": "}
}

var std = New("")

func (l *Logger) logf(level LogLevel, format string, v ...any) {
	if level < GetLevel() {
		return
	}
	output.Load().Printf("[%-5s] %s%s", level, l.prefix, fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Infof(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warnf(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Errorf(format string, v ...any) { l.logf(LevelError, format, v...) }

// Package-level helpers log without a component prefix.

func Debugf(format string, v ...any) { std.logf(LevelDebug, format, v...) }
func Infof(format string, v ...any)  { std.logf(LevelInfo, format, v...) }
func Warnf(format string, v ...any)  { std.logf(LevelWarn, format, v...) }
func Errorf(format string, v ...any) { std.logf(LevelError, format, v...) }

// Fatalf logs regardless of level and exits.
func Fatalf(format string, v ...any) {
	output.Load().Fatalf("[FATAL] %s", fmt.Sprintf(format, v...))
}
