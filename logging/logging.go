// Package logging provides the structured logger threaded through Runtime
// construction, built directly against logrus.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Level is a log severity.
type Level uint8

const (
	Error Level = iota
	Warn
	Info
	Debug
)

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	case Debug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the interface Runtime logs through.
// Fields attaches structured key/value context (e.g. the entrypoint name or
// built-in id) without building a format string.
type Logger interface {
	Debug(fields map[string]interface{}, format string, a ...interface{})
	Info(fields map[string]interface{}, format string, a ...interface{})
	Warn(fields map[string]interface{}, format string, a ...interface{})
	Error(fields map[string]interface{}, format string, a ...interface{})
	WithFields(fields map[string]interface{}) Logger
	SetLevel(Level)
	GetLevel() Level
}

// StandardLogger is the default Logger implementation, backed by logrus.
type StandardLogger struct {
	entry *logrus.Entry
}

// New returns a StandardLogger writing structured (JSON) output at Info
// level.
func New() *StandardLogger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return &StandardLogger{entry: logrus.NewEntry(l)}
}

func (l *StandardLogger) log(level logrus.Level, fields map[string]interface{}, format string, a ...interface{}) {
	e := l.entry
	if len(fields) > 0 {
		e = e.WithFields(fields)
	}
	e.Logf(level, format, a...)
}

func (l *StandardLogger) Debug(fields map[string]interface{}, format string, a ...interface{}) {
	l.log(logrus.DebugLevel, fields, format, a...)
}

func (l *StandardLogger) Info(fields map[string]interface{}, format string, a ...interface{}) {
	l.log(logrus.InfoLevel, fields, format, a...)
}

func (l *StandardLogger) Warn(fields map[string]interface{}, format string, a ...interface{}) {
	l.log(logrus.WarnLevel, fields, format, a...)
}

func (l *StandardLogger) Error(fields map[string]interface{}, format string, a ...interface{}) {
	l.log(logrus.ErrorLevel, fields, format, a...)
}

// WithFields returns a Logger that always includes fields in subsequent
// calls, without mutating the receiver.
func (l *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	return &StandardLogger{entry: l.entry.WithFields(fields)}
}

func (l *StandardLogger) SetLevel(lvl Level) {
	l.entry.Logger.SetLevel(lvl.logrusLevel())
}

func (l *StandardLogger) GetLevel() Level {
	switch l.entry.Logger.GetLevel() {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return Error
	case logrus.WarnLevel:
		return Warn
	case logrus.DebugLevel, logrus.TraceLevel:
		return Debug
	default:
		return Info
	}
}
