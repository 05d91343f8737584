// Package activity keeps the user-visible activity log and error status.
package activity

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/simex/internal/domain"
)

const defaultCapacity = 200

// Entry single activity log line.
type Entry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Snapshot activity state rendered by the status bar.
type Snapshot struct {
	Entries []Entry `json:"entries"`
	Error   string  `json:"error,omitempty"`
	Level   string  `json:"level,omitempty"`
}

// Log bounded activity log with the current user-facing error.
type Log struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	entries  []Entry
	capacity int
	errMsg   string
	level    string
	now      func() time.Time
}

// NewLog creates an activity log holding up to capacity entries.
func NewLog(logger *zap.Logger, capacity int) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity < 1 {
		capacity = defaultCapacity
	}
	return &Log{
		logger:   logger,
		capacity: capacity,
		now:      time.Now,
	}
}

// Record appends a message, evicting the oldest entry when full.
func (l *Log) Record(msg string) {
	l.logger.Info(msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Time: l.now(), Message: msg})
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
}

// Fail sets the user-facing error with a severity level.
func (l *Log) Fail(err error, level string) {
	if err == nil {
		return
	}
	msg := domain.UserMessage(err)
	l.logger.Error("user-facing error", zap.String("level", level), zap.Error(err))

	l.mu.Lock()
	defer l.mu.Unlock()
	l.errMsg = msg
	l.level = level
}

// Clear resets the user-facing error.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errMsg = ""
	l.level = ""
}

// Snapshot returns a copy of the entries and the current error.
func (l *Log) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return Snapshot{Entries: entries, Error: l.errMsg, Level: l.level}
}

// Status derives the status bar text.
func (l *Log) Status(connected bool) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch {
	case l.errMsg != "":
		return "Error"
	case l.level != "":
		return "Level: " + l.level
	case connected:
		return "Connected"
	default:
		return "Not Connected"
	}
}
