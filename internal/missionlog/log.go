// Package missionlog records the append-only operator-facing mission log.
package missionlog

import (
	"fmt"
	"time"
)

// Level classifies a mission log entry.
type Level string

// Log levels. LevelOperator marks commands received from the operator,
// whatever their outcome.
const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
	LevelOperator Level = "OPERATOR"
)

// Entry is one timestamped log record.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// Log is an ordered, append-only sequence of entries. It is not safe for
// concurrent use; the simulator serialises access.
type Log struct {
	now     func() time.Time
	entries []Entry
	pending []Entry
}

// New creates an empty log stamping entries with now. A nil clock uses time.Now.
func New(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

// Add appends an entry.
func (l *Log) Add(level Level, msg string) {
	e := Entry{Timestamp: l.now().UTC(), Level: level, Message: msg}
	l.entries = append(l.entries, e)
	l.pending = append(l.pending, e)
}

// Addf appends a formatted entry.
func (l *Log) Addf(level Level, format string, args ...any) {
	l.Add(level, fmt.Sprintf(format, args...))
}

// Entries returns a copy of all entries in insertion order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Reset empties the log. Entries not yet drained are still delivered by Drain.
func (l *Log) Reset() {
	l.entries = nil
}

// Drain returns entries appended since the previous call.
func (l *Log) Drain() []Entry {
	out := l.pending
	l.pending = nil
	return out
}
