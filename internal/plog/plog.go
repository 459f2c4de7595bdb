// Package plog is the compiler's structured logger: a thin logrus wrapper
// adapted from log/log.go, retargeted from OPA's policy-evaluation trace
// points to this compiler's three debug-level trace surfaces — the PEG
// engine's rule dispatch, the recovery driver's per-recovery-point
// bookkeeping, and the type checker's constraint-queue/toxic-set activity.
package plog

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// Fields aliases logrus.Fields.
type Fields = logrus.Fields

// Entry aliases logrus.Entry.
type Entry = logrus.Entry

// Logger is the interface application code logs through.
type Logger interface {
	Debug(...interface{})
	Debugf(string, ...interface{})

	Info(...interface{})
	Infof(string, ...interface{})

	Warn(...interface{})
	Warnf(string, ...interface{})

	Error(...interface{})
	Errorf(string, ...interface{})

	WithField(key string, value interface{}) *Entry
	WithFields(Fields) *Entry

	SetLevel(string) error
	SetOutput(io.Writer)
	SetJSONFormatter()

	WithContext(context.Context) Logger
}

type logger struct {
	entry *logrus.Entry
}

// New creates a new logger.
func New() Logger {
	l := logrus.New()
	return logger{entry: logrus.NewEntry(l)}
}

func (l logger) WithContext(ctx context.Context) Logger {
	return logger{l.entry.WithContext(ctx)}
}

func (l logger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l logger) WithField(key string, value interface{}) *Entry { return l.entry.WithField(key, value) }
func (l logger) WithFields(fields Fields) *Entry                { return l.entry.WithFields(fields) }

func (l logger) SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.entry.Logger.SetLevel(lvl)
	return nil
}

func (l logger) SetOutput(w io.Writer) { l.entry.Logger.SetOutput(w) }
func (l logger) SetJSONFormatter()     { l.entry.Logger.SetFormatter(&logrus.JSONFormatter{}) }

var (
	origLogger   = logrus.New()
	globalLogger = logger{entry: logrus.NewEntry(origLogger)}
)

// Global returns the process-wide default logger.
func Global() Logger { return globalLogger }

// SetLevel sets the global logger's level, by name ("debug", "info", ...),
// as bound from internal/config's LogLevel field.
func SetLevel(level string) error { return globalLogger.SetLevel(level) }

// SetOutput redirects the global logger.
func SetOutput(w io.Writer) { origLogger.SetOutput(w) }

// TraceParseRule logs the PEG engine's rule-dispatch trace point: every
// ParseRule invocation, at Debug level, with its rule name, offset and
// block-list key.
func TraceParseRule(ruleName string, offset int, blockListKey uint64) {
	globalLogger.entry.WithFields(Fields{
		"rule":      ruleName,
		"offset":    offset,
		"blocklist": blockListKey,
	}).Debug("parse rule")
}

// TraceRecoveryPoint logs the recovery driver's per-recovery-point
// bookkeeping: a new synthetic skip point registered, or an existing one
// advanced.
func TraceRecoveryPoint(offset, resumeOffset int, isNew bool) {
	globalLogger.entry.WithFields(Fields{
		"offset": offset,
		"resume": resumeOffset,
		"new":    isNew,
	}).Debug("recovery point")
}

// TraceConstraint logs the type checker's constraint-queue/toxic-set
// activity: a Free metavariable being filled, and how many queued
// constraints were replayed as a result.
func TraceConstraint(freeIdx int, queuedReplayed int, toxic bool) {
	globalLogger.entry.WithFields(Fields{
		"free":    freeIdx,
		"replayed": queuedReplayed,
		"toxic":   toxic,
	}).Debug("constraint queue")
}
