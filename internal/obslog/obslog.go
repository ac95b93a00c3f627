// Package obslog is the structured logging sink described in spec.md
// §6: one timestamped file per process run under the configured logs
// directory, each line "[timestamp] message". It keeps the teacher's
// colored, leveled println API (pkg/logger/logger.go: Info/Warn/Error/
// Success/Debug/Fatal) but backs it with github.com/sirupsen/logrus
// instead of the teacher's raw log.Println, the same logging library
// telepresenceio-telepresence uses throughout (cmd/traffic/main.go,
// cmd/playpen/daemon.go).
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ANSI color codes, kept from the teacher for console readability.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
)

// Logger writes every entry to stderr (colored) and to a timestamped
// log file, one line per call in "[timestamp] message" form.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

// New creates the logs directory if needed, opens
// log_YYYY-MM-DD_HH-MM-SS.txt inside it, and returns a Logger scoped to
// that file.
func New(logsDir string) (*Logger, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create logs directory %s", logsDir)
	}

	filename := fmt.Sprintf("log_%s.txt", time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(logsDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open log file %s", path)
	}

	base := logrus.New()
	base.SetOutput(file)
	base.SetFormatter(&plainLineFormatter{})
	base.SetLevel(logrus.DebugLevel)

	return &Logger{entry: logrus.NewEntry(base), file: file}, nil
}

// With returns a derived Logger that tags every subsequent line with a
// field (e.g. a session id), without opening a second file.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), file: l.file}
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.console(colorGray, "DEBUG", format, args...)
	l.entry.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.console(colorWhite, "INFO", format, args...)
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.console(colorYellow, "WARN", format, args...)
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.console(colorRed, "ERROR", format, args...)
	l.entry.Errorf(format, args...)
}

func (l *Logger) Success(format string, args ...interface{}) {
	l.console(colorGreen, "SUCCESS", format, args...)
	l.entry.Infof(format, args...)
}

// Fatal logs and terminates the process, matching the teacher's
// pkg/logger.Fatal behavior.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.console(colorRed, "FATAL", format, args...)
	l.entry.Errorf(format, args...)
	l.Close()
	os.Exit(1)
}

func (l *Logger) console(color, prefix, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stderr, "%s[%s]%s %s[%s]%s %s\n", colorGray, ts, colorReset, color, prefix, colorReset, msg)
}

// plainLineFormatter renders each entry as "[timestamp] message" with
// no level tag, per spec.md §6's log line format, followed by any fields
// attached via With as " key=value" pairs in map iteration order.
type plainLineFormatter struct{}

func (f *plainLineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	line := fmt.Sprintf("[%s] %s", e.Time.Format("2006-01-02 15:04:05"), e.Message)
	for k, v := range e.Data {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	return append([]byte(line), '\n'), nil
}
