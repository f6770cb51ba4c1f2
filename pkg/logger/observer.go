package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Logs is the view of captured log entries that tests assert on.
type Logs interface {
	Len() int
	All() []observer.LoggedEntry
	FilterMessage(msg string) *observer.ObservedLogs
	// TakeAll drains the captured entries.
	TakeAll() []observer.LoggedEntry
}

var _ Logs = (*observer.ObservedLogs)(nil)

// NewObserverLogger returns a Logger whose entries at or above level are kept
// in memory instead of written out. An unparsable level captures everything.
func NewObserverLogger(level string) (Logger, Logs) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		atomicLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	core, captured := observer.New(atomicLevel)
	return &ZapLogger{Logger: zap.New(core)}, captured
}
