package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs info, warnings and errors
	LevelInfo
	// LevelDebug logs everything including debug messages
	LevelDebug
)

var levelNames = map[LogLevel]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
}

var logrusLevels = map[LogLevel]logrus.Level{
	LevelError: logrus.ErrorLevel,
	LevelWarn:  logrus.WarnLevel,
	LevelInfo:  logrus.InfoLevel,
	LevelDebug: logrus.DebugLevel,
}

// String returns the upper case name of the level
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Logger represents a component logger
type Logger struct {
	component string
	level     LogLevel
	entry     *logrus.Entry
}

// LogWriter wraps a Logger to implement io.Writer
type LogWriter struct {
	logger *Logger
	level  LogLevel
}

// NewLogWriter creates a new LogWriter that writes to the given logger at the specified level
func NewLogWriter(logger *Logger, level LogLevel) *LogWriter {
	return &LogWriter{
		logger: logger,
		level:  level,
	}
}

// Write implements io.Writer
func (w *LogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		switch w.level {
		case LevelError:
			w.logger.Error("%s", msg)
		case LevelWarn:
			w.logger.Warn("%s", msg)
		case LevelInfo:
			w.logger.Info("%s", msg)
		case LevelDebug:
			w.logger.Debug("%s", msg)
		}
	}
	return len(p), nil
}

// New creates a new logger for a component writing text lines to stdout
func New(component string, level LogLevel) *Logger {
	return NewWithOutput(component, level, os.Stdout)
}

// NewWithOutput creates a component logger writing to out
func NewWithOutput(component string, level LogLevel, out io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(logrusLevels[level])
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	return &Logger{
		component: component,
		level:     level,
		entry:     base.WithField("component", component),
	}
}

// Named returns a logger for another component sharing this logger's output and level
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		component: component,
		level:     l.level,
		entry:     l.entry.Logger.WithField("component", component),
	}
}

// WithField returns a logger that attaches key=value to every line
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		component: l.component,
		level:     l.level,
		entry:     l.entry.WithField(key, value),
	}
}

// Level returns the configured level
func (l *Logger) Level() LogLevel {
	return l.level
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// ParseLevel parses a log level string into a LogLevel
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "ERROR":
		return LevelError, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "INFO", "":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}
