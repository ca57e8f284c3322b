package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

var defaultLogger = NewLogger(LoadFromEnv())

// Fields is a map of structured data attached to a log line
type Fields map[string]any

// Logger writes formatted entries to a single writer
type Logger struct {
	mu        sync.Mutex
	config    Config
	formatter Formatter
	writer    io.Writer
	exitFunc  func(int)
}

func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}

	var formatter Formatter = &ConsoleFormatter{config: &cfg}
	if cfg.Format == FormatJSON {
		formatter = &JSONFormatter{config: &cfg}
	}

	return &Logger{
		config:    cfg,
		formatter: formatter,
		writer:    writer,
		exitFunc:  os.Exit,
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config.Level
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

func (l *Logger) WithField(key string, value any) *Entry {
	return (&Entry{logger: l}).WithField(key, value)
}

func (l *Logger) WithFields(fields Fields) *Entry {
	return (&Entry{logger: l}).WithFields(fields)
}

func (l *Logger) WithError(err error) *Entry {
	return (&Entry{logger: l}).WithError(err)
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.config.Level.Enabled(level) {
		return
	}

	entry := &LogEntry{
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Error:     err,
		Timestamp: time.Now(),
	}
	if l.config.EnableCaller {
		entry.Caller = caller(3)
	}

	formatted, ferr := l.formatter.Format(entry)
	if ferr != nil {
		fmt.Fprintf(os.Stderr, "logx: format: %v\n", ferr)
		return
	}
	if _, werr := l.writer.Write(formatted); werr != nil {
		fmt.Fprintf(os.Stderr, "logx: write: %v\n", werr)
	}
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// ----------------------------------------------------------------------------
// Package-level API over the default logger
// ----------------------------------------------------------------------------

func SetDefaultLogger(logger *Logger) { defaultLogger = logger }
func GetDefaultLogger() *Logger { return defaultLogger }
func SetLevel(level Level) { defaultLogger.SetLevel(level) }
func SetOutput(w io.Writer) { defaultLogger.SetOutput(w) }

func Debug(msg string) { defaultLogger.log(LevelDebug, msg, nil, nil) }
func Info(msg string) { defaultLogger.log(LevelInfo, msg, nil, nil) }
func Warn(msg string) { defaultLogger.log(LevelWarn, msg, nil, nil) }
func Error(msg string) { defaultLogger.log(LevelError, msg, nil, nil) }

func Debugf(format string, args ...any) {
	defaultLogger.log(LevelDebug, fmt.Sprintf(format, args...), nil, nil)
}

func Infof(format string, args ...any) {
	defaultLogger.log(LevelInfo, fmt.Sprintf(format, args...), nil, nil)
}

func Warnf(format string, args ...any) {
	defaultLogger.log(LevelWarn, fmt.Sprintf(format, args...), nil, nil)
}

func Errorf(format string, args ...any) {
	defaultLogger.log(LevelError, fmt.Sprintf(format, args...), nil, nil)
}

// Fatalf logs and exits the process with status 1
func Fatalf(format string, args ...any) {
	defaultLogger.log(LevelFatal, fmt.Sprintf(format, args...), nil, nil)
	defaultLogger.exitFunc(1)
}

func WithFields(fields Fields) *Entry { return defaultLogger.WithFields(fields) }
func WithField(key string, value any) *Entry { return defaultLogger.WithField(key, value) }
func WithError(err error) *Entry { return defaultLogger.WithError(err) }
