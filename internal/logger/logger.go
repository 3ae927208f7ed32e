// Package logger provides structured JSON logging and run counters for the event scout.
//
// Log entries are emitted as one JSON object per line with a timestamp, level,
// message and optional structured fields. A package-level default logger backs
// the convenience functions (Debug, Info, Warn, Error) so components don't need
// to thread a logger through every call.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a config string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return Level(s)
	default:
		return LevelInfo
	}
}

// Fields holds structured log fields.
type Fields map[string]interface{}

// Logger writes structured JSON log entries to a single destination.
type Logger struct {
	mu       sync.Mutex
	minLevel Level
	out      io.Writer
}

type entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
	Error     string `json:"error,omitempty"`
}

var defaultLogger = New(LevelInfo, os.Stderr)

// New creates a logger that discards entries below the given level.
func New(level Level, out io.Writer) *Logger {
	return &Logger{minLevel: level, out: out}
}

// SetDefault replaces the package-level logger used by the convenience functions.
func SetDefault(l *Logger) {
	defaultLogger = l
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Message:   msg,
		Fields:    fields,
	}
	if err != nil {
		e.Error = err.Error()
	}

	data, merr := json.Marshal(e)

	l.mu.Lock()
	defer l.mu.Unlock()
	if merr != nil {
		fmt.Fprintf(l.out, "[%s] %s: %s (marshal error: %v)\n", e.Timestamp, e.Level, e.Message, merr)
		return
	}
	fmt.Fprintln(l.out, string(data))
}

// Debug logs diagnostic detail.
func (l *Logger) Debug(msg string, fields Fields) { l.log(LevelDebug, msg, fields, nil) }

// Info logs general operational information.
func (l *Logger) Info(msg string, fields Fields) { l.log(LevelInfo, msg, fields, nil) }

// Warn logs a condition that degrades but does not stop a run.
func (l *Logger) Warn(msg string, fields Fields) { l.log(LevelWarn, msg, fields, nil) }

// Error logs a failure along with the causing error.
func (l *Logger) Error(msg string, fields Fields, err error) { l.log(LevelError, msg, fields, err) }

// Package-level convenience functions using the default logger.

// Debug logs a debug message with the default logger.
func Debug(msg string, fields Fields) { defaultLogger.Debug(msg, fields) }

// Info logs an info message with the default logger.
func Info(msg string, fields Fields) { defaultLogger.Info(msg, fields) }

// Warn logs a warning with the default logger.
func Warn(msg string, fields Fields) { defaultLogger.Warn(msg, fields) }

// Error logs an error with the default logger.
func Error(msg string, fields Fields, err error) { defaultLogger.Error(msg, fields, err) }

// Counters tracks named run counters. All operations are safe for concurrent use.
type Counters struct {
	mu     sync.Mutex
	counts map[string]int64
}

var defaultCounters = NewCounters()

// NewCounters creates an empty counter set.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]int64)}
}

// Incr increments a counter by 1, initializing it on first use.
func (c *Counters) Incr(name string) {
	c.Add(name, 1)
}

// Add increments a counter by n.
func (c *Counters) Add(name string, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name] += n
}

// Snapshot returns a copy of all counters.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Incr increments a counter on the default counter set.
func Incr(name string) { defaultCounters.Incr(name) }

// Add adds to a counter on the default counter set.
func Add(name string, n int64) { defaultCounters.Add(name, n) }

// CountersSnapshot returns a copy of the default counter set.
func CountersSnapshot() map[string]int64 { return defaultCounters.Snapshot() }
